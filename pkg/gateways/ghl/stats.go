package ghl

import (
	"context"
	"net/url"

	"github.com/harun/apigate/pkg/aggregator"
	"github.com/harun/apigate/pkg/apiclient"
	"github.com/harun/apigate/pkg/toolexecutor"
	"github.com/tidwall/gjson"
)

// statsOpportunityLimit bounds the opportunities sampled for stats.
const statsOpportunityLimit = "100"

// LocationStats is the summary derived from contacts, opportunities and
// appointments.
type LocationStats struct {
	TotalContacts        int64  `json:"total_contacts"`
	TotalOpportunities   int    `json:"total_opportunities"`
	WonOpportunities     int    `json:"won_opportunities"`
	TotalRevenue         string `json:"total_revenue"`
	AppointmentsInPeriod int    `json:"appointments_in_period"`
	ConversionRate       string `json:"conversion_rate"`
}

type locationStatsResult struct {
	Stats           LocationStats            `json:"stats"`
	PartialFailures []aggregator.SlotFailure `json:"partial_failures,omitempty"`
}

func (g *Gateway) getLocationStatsTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "ghl_get_location_stats",
		Description: "Get location statistics and metrics",
		Parameters: []toolexecutor.ToolParameter{
			{Name: "start_date", Type: "string", Description: "Start date (YYYY-MM-DD)"},
			{Name: "end_date", Type: "string", Description: "End date (YYYY-MM-DD)"},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			return g.locationStats(ctx, args.String("start_date"), args.String("end_date"))
		}),
	}
}

func (g *Gateway) locationStats(ctx context.Context, start, end string) (*locationStatsResult, error) {
	fetch := func(path string, q url.Values) func(context.Context) (*apiclient.Response, error) {
		return func(ctx context.Context) (*apiclient.Response, error) {
			return g.client.Get(ctx, path, q)
		}
	}

	events := aggregator.Slot[*apiclient.Response]{
		Name:     "appointments",
		Fallback: apiclient.Static(`{"events":[]}`),
	}
	if start != "" && end != "" {
		events.Fetch = fetch("/calendars/events", g.eventsQuery(start, end, ""))
	}

	joined := aggregator.JoinAll(ctx, "ghl_location_stats",
		aggregator.Slot[*apiclient.Response]{
			Name:     "contacts",
			Fetch:    fetch("/contacts/", g.query("limit", "1")),
			Fallback: apiclient.Static(`{"meta":{"total":0}}`),
		},
		aggregator.Slot[*apiclient.Response]{
			Name:     "opportunities",
			Fetch:    fetch("/opportunities/search", g.query("limit", statsOpportunityLimit)),
			Fallback: apiclient.Static(`{"opportunities":[]}`),
		},
		events,
	)

	if joined.AllFailed() {
		return nil, joined.FirstError()
	}

	opps := joined.Value("opportunities").Array("opportunities")
	won := aggregator.Count(opps, func(o gjson.Result) bool { return o.Get("status").String() == "won" })
	revenue := aggregator.Sum(opps, func(o gjson.Result) float64 {
		if o.Get("status").String() != "won" {
			return 0
		}
		return o.Get("monetaryValue").Float()
	})

	return &locationStatsResult{
		Stats: LocationStats{
			TotalContacts:        joined.Value("contacts").Get("meta.total").Int(),
			TotalOpportunities:   len(opps),
			WonOpportunities:     won,
			TotalRevenue:         aggregator.FormatMoney(revenue),
			AppointmentsInPeriod: len(joined.Value("appointments").Array("events")),
			ConversionRate:       aggregator.FormatRate(float64(won), float64(len(opps)), 1),
		},
		PartialFailures: joined.Failures(),
	}, nil
}
