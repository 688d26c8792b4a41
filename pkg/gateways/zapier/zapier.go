// Package zapier exposes Zap management and webhook triggering as tools.
package zapier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/harun/apigate/pkg/apiclient"
	"github.com/harun/apigate/pkg/toolerr"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/tidwall/gjson"
)

const (
	DefaultBaseURL    = "https://api.zapier.com"
	DefaultAPIVersion = "v1"
)

// Config configures the Zapier gateway.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Gateway talks to the Zapier REST API with a bearer key, and to webhook
// URLs without credentials.
type Gateway struct {
	client  *apiclient.Client
	webhook *apiclient.Client
}

// New builds the gateway.
func New(cfg Config) (*Gateway, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	client, err := apiclient.New(apiclient.Config{
		API:        "Zapier",
		BaseURL:    cfg.BaseURL,
		Version:    cfg.APIVersion,
		Auth:       apiclient.AuthBearer,
		Credential: cfg.APIKey,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	// the API key must never reach an arbitrary webhook host
	webhook, err := apiclient.New(apiclient.Config{
		API:        "Webhook",
		Auth:       apiclient.AuthNone,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	return &Gateway{client: client, webhook: webhook}, nil
}

// Tools returns the gateway's tools in listing order.
func (g *Gateway) Tools() []toolexecutor.ToolDefinition {
	return []toolexecutor.ToolDefinition{
		g.listZapsTool(),
		g.getZapTool(),
		g.toggleZapTool(true),
		g.toggleZapTool(false),
		g.getZapRunsTool(),
		g.triggerWebhookTool(),
		g.getAccountStatusTool(),
	}
}

func zapPath(id, suffix string) string {
	return "/zaps/" + url.PathEscape(id) + suffix
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

type zapSummary struct {
	ID         string      `json:"id"`
	Title      interface{} `json:"title"`
	Status     string      `json:"status"`
	TriggerApp string      `json:"trigger_app"`
	ActionApps []string    `json:"action_apps"`
	LastRun    interface{} `json:"last_run"`
	Created    interface{} `json:"created"`
}

func toZapSummary(z gjson.Result) zapSummary {
	steps := z.Get("steps").Array()

	trigger := "Unknown"
	if len(steps) > 0 {
		if name := steps[0].Get("app.name").String(); name != "" {
			trigger = name
		}
	}

	actions := []string{}
	for i := 1; i < len(steps); i++ {
		if name := steps[i].Get("app.name").String(); name != "" {
			actions = append(actions, name)
		}
	}

	return zapSummary{
		ID:         z.Get("id").String(),
		Title:      z.Get("title").Value(),
		Status:     onOff(z.Get("is_enabled").Bool()),
		TriggerApp: trigger,
		ActionApps: actions,
		LastRun:    z.Get("last_run_at").Value(),
		Created:    z.Get("created_at").Value(),
	}
}

func (g *Gateway) listZapsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "zapier_list_zaps",
		Description: "List all Zaps in the account with their status",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "status", Type: "string", Description: "Filter by status", Enum: []interface{}{"on", "off", "all"}, Default: "all"},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/zaps", nil)
			if err != nil {
				return nil, err
			}

			status := args.String("status")
			zaps := []zapSummary{}
			for _, z := range resp.Array("data") {
				if status != "all" && z.Get("is_enabled").Bool() != (status == "on") {
					continue
				}
				zaps = append(zaps, toZapSummary(z))
			}

			return struct {
				Count int          `json:"count"`
				Zaps  []zapSummary `json:"zaps"`
			}{len(zaps), zaps}, nil
		}),
	}
}

type zapStep struct {
	Position interface{} `json:"position"`
	App      interface{} `json:"app"`
	Action   interface{} `json:"action"`
}

type zapDetail struct {
	ID       string      `json:"id"`
	Title    interface{} `json:"title"`
	Status   string      `json:"status"`
	Steps    []zapStep   `json:"steps"`
	LastRun  interface{} `json:"last_run"`
	Created  interface{} `json:"created"`
	Modified interface{} `json:"modified"`
}

func (g *Gateway) getZapTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "zapier_get_zap",
		Description: "Get details of a specific Zap",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "zap_id", Type: "string", Description: "The Zap ID", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, zapPath(args.String("zap_id"), ""), nil)
			if err != nil {
				return nil, err
			}

			steps := []zapStep{}
			for _, s := range resp.Array("steps") {
				steps = append(steps, zapStep{
					Position: s.Get("position").Value(),
					App:      s.Get("app.name").Value(),
					Action:   s.Get("action.name").Value(),
				})
			}

			return struct {
				Zap zapDetail `json:"zap"`
			}{zapDetail{
				ID:       resp.Get("id").String(),
				Title:    resp.Get("title").Value(),
				Status:   onOff(resp.Get("is_enabled").Bool()),
				Steps:    steps,
				LastRun:  resp.Get("last_run_at").Value(),
				Created:  resp.Get("created_at").Value(),
				Modified: resp.Get("modified_at").Value(),
			}}, nil
		}),
	}
}

func (g *Gateway) toggleZapTool(enable bool) toolexecutor.ToolDefinition {
	name, verb, description := "zapier_disable_zap", "disable", "Turn off a Zap"
	if enable {
		name, verb, description = "zapier_enable_zap", "enable", "Turn on a Zap"
	}

	return toolexecutor.ToolDefinition{
		Name:        name,
		Description: description,
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "zap_id", Type: "string", Description: "The Zap ID to " + verb, Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			zapID := args.String("zap_id")
			if _, err := g.client.Patch(ctx, zapPath(zapID, ""), map[string]bool{"is_enabled": enable}); err != nil {
				msg := fmt.Sprintf("Unable to %s Zap %s via API. Please %s manually in Zapier dashboard. (%v)", verb, zapID, verb, err)
				return nil, toolerr.Wrap(toolerr.KindOf(err), msg, err)
			}

			return struct {
				Message   string `json:"message"`
				ZapID     string `json:"zap_id"`
				NewStatus string `json:"new_status"`
			}{fmt.Sprintf("Zap %s has been %sd", zapID, verb), zapID, onOff(enable)}, nil
		}),
	}
}

type zapRun struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Started    interface{} `json:"started"`
	Finished   interface{} `json:"finished"`
	DurationMS interface{} `json:"duration_ms"`
	StepsRun   interface{} `json:"steps_run"`
	Error      interface{} `json:"error"`
}

func (g *Gateway) getZapRunsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "zapier_get_zap_runs",
		Description: "Get run history for a specific Zap",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "zap_id", Type: "string", Description: "The Zap ID", Required: true},
			{Name: "status", Type: "string", Description: "Filter by run status", Enum: []interface{}{"success", "error", "all"}, Default: "all"},
			{Name: "limit", Type: "number", Description: "Number of runs to fetch", Default: 10},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			q := url.Values{"limit": {strconv.Itoa(args.Int("limit"))}}
			resp, err := g.client.Get(ctx, zapPath(args.String("zap_id"), "/runs"), q)
			if err != nil {
				return nil, err
			}

			status := args.String("status")
			runs := []zapRun{}
			for _, r := range resp.Array("data") {
				runStatus := r.Get("status").String()
				if status != "all" && runStatus != status {
					continue
				}
				var runErr interface{}
				if runStatus == "error" {
					runErr = r.Get("error_message").Value()
				}
				runs = append(runs, zapRun{
					ID:         r.Get("id").String(),
					Status:     runStatus,
					Started:    r.Get("started_at").Value(),
					Finished:   r.Get("finished_at").Value(),
					DurationMS: r.Get("duration").Value(),
					StepsRun:   r.Get("steps_count").Value(),
					Error:      runErr,
				})
			}

			return struct {
				Count int      `json:"count"`
				Runs  []zapRun `json:"runs"`
			}{len(runs), runs}, nil
		}),
	}
}

func (g *Gateway) triggerWebhookTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "zapier_trigger_webhook",
		Description: "Trigger a Zapier webhook URL with custom data",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			{Name: "webhook_url", Type: "string", Description: "The Zapier webhook URL", Required: true},
			{Name: "data", Type: "object", Description: "Data to send to the webhook", Required: true},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			target := strings.TrimSpace(args.String("webhook_url"))
			parsed, err := url.Parse(target)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return nil, toolerr.Validationf("webhook_url must be an absolute http(s) URL")
			}

			resp, err := g.webhook.Do(ctx, apiclient.Request{
				Method:     http.MethodPost,
				Path:       target,
				Body:       args.Object("data"),
				AcceptText: true,
			})
			if err != nil {
				return nil, err
			}

			return struct {
				StatusCode int    `json:"status_code"`
				Response   string `json:"response"`
				Message    string `json:"message"`
			}{resp.Status(), resp.Text(), "Webhook triggered successfully"}, nil
		}),
	}
}

func (g *Gateway) getAccountStatusTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "zapier_get_account_status",
		Description: "Get account status including task usage",
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			resp, err := g.client.Get(ctx, "/profile", nil)
			if err != nil {
				return nil, toolerr.Wrap(toolerr.KindOf(err), "Unable to fetch account status: "+err.Error(), err)
			}

			type account struct {
				Email          interface{} `json:"email"`
				Plan           interface{} `json:"plan"`
				TasksUsed      int64       `json:"tasks_used"`
				TasksLimit     int64       `json:"tasks_limit"`
				TasksRemaining int64       `json:"tasks_remaining"`
				ZapsCount      interface{} `json:"zaps_count"`
			}
			used := resp.Get("tasks_used").Int()
			limit := resp.Get("tasks_limit").Int()

			return struct {
				Account account `json:"account"`
			}{account{
				Email:          resp.Get("email").Value(),
				Plan:           resp.Get("plan_name").Value(),
				TasksUsed:      used,
				TasksLimit:     limit,
				TasksRemaining: limit - used,
				ZapsCount:      resp.Get("zaps_count").Value(),
			}}, nil
		}),
	}
}
