// Package metaads exposes the Meta Marketing (Graph) API as tools. The
// access token travels as the access_token query parameter on every
// request, including writes.
package metaads

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harun/apigate/pkg/aggregator"
	"github.com/harun/apigate/pkg/apiclient"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v18.0"
	// DefaultMaxInsightPages bounds insight pagination.
	DefaultMaxInsightPages = 10
)

const campaignFields = "id,name,status,objective,daily_budget,lifetime_budget,created_time,updated_time"

// Config configures the Meta Ads gateway.
type Config struct {
	AccessToken     string
	AdAccountID     string
	BaseURL         string
	APIVersion      string
	MaxInsightPages int
	Timeout         time.Duration
	HTTPClient      *http.Client
}

// Gateway is bound to a single ad account.
type Gateway struct {
	client    *apiclient.Client
	accountID string
	maxPages  int
}

// New builds the gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.MaxInsightPages <= 0 {
		cfg.MaxInsightPages = DefaultMaxInsightPages
	}

	client, err := apiclient.New(apiclient.Config{
		API:        "Meta",
		BaseURL:    cfg.BaseURL,
		Version:    cfg.APIVersion,
		Auth:       apiclient.AuthQueryToken,
		Credential: cfg.AccessToken,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	return &Gateway{
		client:    client,
		accountID: NormalizeAccountID(cfg.AdAccountID),
		maxPages:  cfg.MaxInsightPages,
	}, nil
}

// NormalizeAccountID adds the act_ prefix the Graph API expects.
func NormalizeAccountID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "act_") {
		return id
	}
	return "act_" + id
}

// Tools returns the gateway's tools in listing order.
func (g *Gateway) Tools() []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		g.getCampaignsTool(),
		g.getInsightsTool(),
		g.getAdsetsTool(),
		g.getAdsTool(),
		g.getAdCreativesTool(),
		g.createCampaignTool(),
		g.updateCampaignStatusTool(),
		g.getAccountInfoTool(),
	}
}

func (g *Gateway) accountPath(suffix string) string {
	return "/" + url.PathEscape(g.accountID) + suffix
}

func objectPath(id, suffix string) string {
	return "/" + url.PathEscape(id) + suffix
}

// cents renders an amount in minor units. Graph sends amounts as strings,
// so "0" is a real zero ($0.00); only missing, null, empty or numeric zero
// values are nil.
func cents(r gjson.Result) *string {
	switch r.Type {
	case gjson.Null, gjson.False:
		return nil
	case gjson.String:
		if r.Str == "" {
			return nil
		}
	case gjson.Number:
		if r.Num == 0 {
			return nil
		}
	}
	s := aggregator.FormatCents(r.Float())
	return &s
}

// centsOrNA is cents with "N/A" for absent values.
func centsOrNA(r gjson.Result) string {
	if s := cents(r); s != nil {
		return *s
	}
	return aggregator.NotAvailable
}

// rawArray returns the JSON at path, or an empty array when absent.
func rawArray(resp *apiclient.Response, path string) json.RawMessage {
	r := resp.Get(path)
	if !r.IsArray() {
		return json.RawMessage(`[]`)
	}
	return json.RawMessage(r.Raw)
}

type campaign struct {
	ID             string      `json:"id"`
	Name           interface{} `json:"name"`
	Status         interface{} `json:"status"`
	Objective      interface{} `json:"objective"`
	DailyBudget    *string     `json:"daily_budget"`
	LifetimeBudget *string     `json:"lifetime_budget"`
	Created        interface{} `json:"created"`
	Updated        interface{} `json:"updated"`
}

func toCampaign(r gjson.Result) campaign {
	return campaign{
		ID:             r.Get("id").String(),
		Name:           r.Get("name").Value(),
		Status:         r.Get("status").Value(),
		Objective:      r.Get("objective").Value(),
		DailyBudget:    cents(r.Get("daily_budget")),
		LifetimeBudget: cents(r.Get("lifetime_budget")),
		Created:        r.Get("created_time").Value(),
		Updated:        r.Get("updated_time").Value(),
	}
}

func (g *Gateway) getCampaignsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_campaigns",
		Description: "Get all campaigns from the ad account with their status and basic metrics",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "status", Type: "string", Description: "Filter by status: ACTIVE, PAUSED, or ALL", Enum: []interface{}{"ACTIVE", "PAUSED", "ALL"}, Default: "ALL"},
			{Name: "limit", Type: "number", Description: "Number of campaigns to return", Default: 50},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{}
			q.Set("fields", campaignFields)
			q.Set("limit", strconv.Itoa(args.Int("limit")))
			if status := args.String("status"); status != "ALL" {
				filter, _ := json.Marshal([]map[string]interface{}{{
					"field":    "effective_status",
					"operator": "IN",
					"value":    []string{status},
				}})
				q.Set("filtering", string(filter))
			}

			resp, err := g.client.Get(ctx, g.accountPath("/campaigns"), q)
			if err != nil {
				return nil, err
			}

			rows := resp.Array("data")
			campaigns := make([]campaign, 0, len(rows))
			for _, row := range rows {
				campaigns = append(campaigns, toCampaign(row))
			}
			return struct {
				Count     int        `json:"count"`
				Campaigns []campaign `json:"campaigns"`
			}{len(campaigns), campaigns}, nil
		}),
	}
}

func (g *Gateway) getAdsetsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_adsets",
		Description: "Get all adsets for a specific campaign",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "campaign_id", Type: "string", Description: "The campaign ID to get adsets for", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{"fields": {"id,name,status,daily_budget,targeting,optimization_goal"}}
			resp, err := g.client.Get(ctx, objectPath(args.String("campaign_id"), "/adsets"), q)
			if err != nil {
				return nil, err
			}
			return struct {
				Adsets json.RawMessage `json:"adsets"`
			}{rawArray(resp, "data")}, nil
		}),
	}
}

func (g *Gateway) getAdsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_ads",
		Description: "Get all ads for a specific adset",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "adset_id", Type: "string", Description: "The adset ID to get ads for", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{"fields": {"id,name,status,creative"}}
			resp, err := g.client.Get(ctx, objectPath(args.String("adset_id"), "/ads"), q)
			if err != nil {
				return nil, err
			}
			return struct {
				Ads json.RawMessage `json:"ads"`
			}{rawArray(resp, "data")}, nil
		}),
	}
}

func (g *Gateway) getAdCreativesTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_ad_creatives",
		Description: "Get creative details for an ad including image/video URLs and copy",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "ad_id", Type: "string", Description: "The ad ID to get creatives for", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{"fields": {"creative{id,name,effective_object_story_id,object_story_spec,thumbnail_url}"}}
			resp, err := g.client.Get(ctx, objectPath(args.String("ad_id"), ""), q)
			if err != nil {
				return nil, err
			}
			creative := json.RawMessage(`null`)
			if r := resp.Get("creative"); r.Exists() {
				creative = json.RawMessage(r.Raw)
			}
			return struct {
				Creative json.RawMessage `json:"creative"`
			}{creative}, nil
		}),
	}
}

func (g *Gateway) createCampaignTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_create_campaign",
		Description: "Create a new campaign (will be created in PAUSED status for approval)",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "name", Type: "string", Description: "Campaign name", Required: true},
			{Name: "objective", Type: "string", Description: "Campaign objective", Required: true,
				Enum: []interface{}{"CONVERSIONS", "LEAD_GENERATION", "TRAFFIC", "REACH", "VIDEO_VIEWS"}},
			{Name: "daily_budget", Type: "number", Description: "Daily budget in cents (e.g., 5000 = $50)", Required: true},
			{Name: "special_ad_categories", Type: "array", Items: "string", Description: "Special ad categories if applicable", Default: []interface{}{}},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			categories := args.Strings("special_ad_categories")
			if categories == nil {
				categories = []string{}
			}
			budget := args.Float("daily_budget")

			// new campaigns always start paused and need a human to activate
			resp, err := g.client.Post(ctx, g.accountPath("/campaigns"), nil, map[string]interface{}{
				"name":                  args.String("name"),
				"objective":             args.String("objective"),
				"status":                "PAUSED",
				"daily_budget":          strconv.FormatFloat(budget, 'f', 0, 64),
				"special_ad_categories": categories,
			})
			if err != nil {
				return nil, err
			}

			return struct {
				Message     string `json:"message"`
				CampaignID  string `json:"campaign_id"`
				Name        string `json:"name"`
				Objective   string `json:"objective"`
				DailyBudget string `json:"daily_budget"`
				Status      string `json:"status"`
				NextStep    string `json:"next_step"`
			}{
				Message:     "Campaign created in PAUSED status. Requires human approval to activate.",
				CampaignID:  resp.Get("id").String(),
				Name:        args.String("name"),
				Objective:   args.String("objective"),
				DailyBudget: aggregator.FormatCents(budget),
				Status:      "PAUSED",
				NextStep:    "Use meta_update_campaign_status to activate after review",
			}, nil
		}),
	}
}

func (g *Gateway) updateCampaignStatusTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_update_campaign_status",
		Description: "Update campaign status (ACTIVE or PAUSED)",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "campaign_id", Type: "string", Description: "The campaign ID to update", Required: true},
			{Name: "status", Type: "string", Description: "New status", Required: true, Enum: []interface{}{"ACTIVE", "PAUSED"}},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			campaignID := args.String("campaign_id")
			status := args.String("status")

			if _, err := g.client.Post(ctx, objectPath(campaignID, ""), nil, map[string]string{"status": status}); err != nil {
				return nil, err
			}

			verb := "paused"
			if status == "ACTIVE" {
				verb = "activated"
			}
			return struct {
				CampaignID string `json:"campaign_id"`
				NewStatus  string `json:"new_status"`
				Message    string `json:"message"`
			}{campaignID, status, "Campaign " + verb + " successfully"}, nil
		}),
	}
}

func (g *Gateway) getAccountInfoTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_account_info",
		Description: "Get basic info about the ad account",
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{"fields": {"id,name,account_status,currency,timezone_name,amount_spent,balance"}}
			resp, err := g.client.Get(ctx, g.accountPath(""), q)
			if err != nil {
				return nil, err
			}

			status := "INACTIVE"
			if resp.Get("account_status").Int() == 1 {
				status = "ACTIVE"
			}

			type account struct {
				ID         string      `json:"id"`
				Name       interface{} `json:"name"`
				Status     string      `json:"status"`
				Currency   interface{} `json:"currency"`
				Timezone   interface{} `json:"timezone"`
				TotalSpent string      `json:"total_spent"`
				Balance    string      `json:"balance"`
			}
			return struct {
				Account account `json:"account"`
			}{account{
				ID:         resp.Get("id").String(),
				Name:       resp.Get("name").Value(),
				Status:     status,
				Currency:   resp.Get("currency").Value(),
				Timezone:   resp.Get("timezone_name").Value(),
				TotalSpent: centsOrNA(resp.Get("amount_spent")),
				Balance:    centsOrNA(resp.Get("balance")),
			}}, nil
		}),
	}
}
