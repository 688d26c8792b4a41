package metaads

import (
	"context"
	"fmt"
	"net/url"

	"github.com/harun/apigate/pkg/aggregator"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const insightFields = "campaign_name,adset_name,ad_name,spend,impressions,clicks,ctr,cpc,actions,cost_per_action_type,reach,frequency"

// InsightRow is one normalized insights row.
type InsightRow struct {
	Campaign    interface{} `json:"campaign"`
	Adset       interface{} `json:"adset"`
	Ad          interface{} `json:"ad"`
	Spend       string      `json:"spend"`
	Impressions int64       `json:"impressions"`
	Clicks      int64       `json:"clicks"`
	CTR         string      `json:"ctr"`
	CPC         string      `json:"cpc"`
	Leads       int64       `json:"leads"`
	CPL         string      `json:"cpl"`
	Purchases   int64       `json:"purchases"`
	Reach       int64       `json:"reach"`
	Frequency   string      `json:"frequency"`
}

// InsightSummary is recomputed from summed totals, never from per-row rates.
type InsightSummary struct {
	TotalSpend       string `json:"total_spend"`
	TotalImpressions int64  `json:"total_impressions"`
	TotalClicks      int64  `json:"total_clicks"`
	AverageCTR       string `json:"average_ctr"`
	TotalLeads       int64  `json:"total_leads"`
	AverageCPL       string `json:"average_cpl"`
}

type insightsResult struct {
	DateRange string         `json:"date_range"`
	Level     string         `json:"level"`
	Pages     int            `json:"pages"`
	Summary   InsightSummary `json:"summary"`
	Breakdown []InsightRow   `json:"breakdown"`
}

func (g *Gateway) getInsightsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "meta_get_insights",
		Description: "Get performance metrics for campaigns, adsets, or ads",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "level", Type: "string", Description: "Level of aggregation", Required: true,
				Enum: []interface{}{"account", "campaign", "adset", "ad"}, Default: "campaign"},
			{Name: "date_preset", Type: "string", Description: "Date range preset", Required: true,
				Enum: []interface{}{"today", "yesterday", "last_7d", "last_14d", "last_30d", "this_month", "last_month"}, Default: "last_7d"},
			{Name: "campaign_id", Type: "string", Description: "Optional: specific campaign ID to get insights for"},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			path := g.accountPath("/insights")
			if args.Has("campaign_id") {
				path = objectPath(args.String("campaign_id"), "/insights")
			}

			rows, pages, err := g.fetchInsights(ctx, path, args.String("level"), args.String("date_preset"))
			if err != nil {
				return nil, err
			}

			breakdown := make([]InsightRow, 0, len(rows))
			for _, row := range rows {
				breakdown = append(breakdown, toInsightRow(row))
			}

			return &insightsResult{
				DateRange: args.String("date_preset"),
				Level:     args.String("level"),
				Pages:     pages,
				Summary:   summarize(rows),
				Breakdown: breakdown,
			}, nil
		}),
	}
}

// fetchInsights follows paging.cursors.after while paging.next is present,
// up to maxPages pages.
func (g *Gateway) fetchInsights(ctx context.Context, path, level, datePreset string) ([]gjson.Result, int, error) {
	var rows []gjson.Result
	after := ""
	pages := 0

	for pages < g.maxPages {
		q := url.Values{}
		q.Set("fields", insightFields)
		q.Set("date_preset", datePreset)
		q.Set("level", level)
		if after != "" {
			q.Set("after", after)
		}

		resp, err := g.client.Get(ctx, path, q)
		if err != nil {
			if pages > 0 {
				return nil, pages, fmt.Errorf("insights page %d: %w", pages+1, err)
			}
			return nil, pages, err
		}
		pages++
		rows = append(rows, resp.Array("data")...)

		after = resp.Get("paging.cursors.after").String()
		if !resp.Get("paging.next").Exists() || after == "" {
			return rows, pages, nil
		}
	}

	log.Warn().
		Str("path", path).
		Int("pages", pages).
		Msg("Insights truncated at page limit")

	return rows, pages, nil
}

// actionValue returns the value of the named action type in an actions list.
func actionValue(row gjson.Result, list, actionType string) (gjson.Result, bool) {
	for _, action := range row.Get(list).Array() {
		if action.Get("action_type").String() == actionType {
			return action.Get("value"), true
		}
	}
	return gjson.Result{}, false
}

func toInsightRow(row gjson.Result) InsightRow {
	leads, _ := actionValue(row, "actions", "lead")
	purchases, _ := actionValue(row, "actions", "purchase")

	cpl := aggregator.NotAvailable
	if costPerLead, ok := actionValue(row, "cost_per_action_type", "lead"); ok && costPerLead.Float() != 0 {
		cpl = aggregator.FormatMoney(costPerLead.Float())
	}

	return InsightRow{
		Campaign:    row.Get("campaign_name").Value(),
		Adset:       row.Get("adset_name").Value(),
		Ad:          row.Get("ad_name").Value(),
		Spend:       aggregator.FormatMoney(row.Get("spend").Float()),
		Impressions: row.Get("impressions").Int(),
		Clicks:      row.Get("clicks").Int(),
		CTR:         aggregator.FormatPercent(row.Get("ctr").Float(), 2),
		CPC:         aggregator.FormatMoney(row.Get("cpc").Float()),
		Leads:       leads.Int(),
		CPL:         cpl,
		Purchases:   purchases.Int(),
		Reach:       row.Get("reach").Int(),
		Frequency:   fmt.Sprintf("%.2f", row.Get("frequency").Float()),
	}
}

func summarize(rows []gjson.Result) InsightSummary {
	totals := aggregator.NewTotals("spend", "impressions", "clicks", "leads")
	for _, row := range rows {
		leads, _ := actionValue(row, "actions", "lead")
		totals.Add("spend", row.Get("spend").Float())
		totals.Add("impressions", float64(row.Get("impressions").Int()))
		totals.Add("clicks", float64(row.Get("clicks").Int()))
		totals.Add("leads", float64(leads.Int()))
	}

	return InsightSummary{
		TotalSpend:       aggregator.FormatMoney(totals.Get("spend")),
		TotalImpressions: int64(totals.Get("impressions")),
		TotalClicks:      int64(totals.Get("clicks")),
		AverageCTR:       totals.Rate("clicks", "impressions", 2),
		TotalLeads:       int64(totals.Get("leads")),
		AverageCPL:       totals.CostPer("spend", "leads"),
	}
}
