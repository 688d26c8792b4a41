package sheets

import (
	"context"
	"strconv"

	"github.com/harun/apigate/pkg/aggregator"
	"github.com/harun/apigate/pkg/toolexecutor"
)

// MetaDataRange is the reporting table push_meta_data appends to.
const MetaDataRange = "Data!A:X"

// CommissionRate is the share of profit paid as commission.
const CommissionRate = 0.20

// ratio renders num/den with two decimals, or "N/A" on a zero denominator.
func ratio(num, den float64) string {
	v, ok := aggregator.SafeDiv(num, den)
	if !ok {
		return aggregator.NotAvailable
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// profitAndCommission returns both amounts rounded to cents.
func profitAndCommission(data toolexecutor.Args) (float64, float64) {
	profit := data.Float("revenue") - data.Float("spend")
	return aggregator.RoundMoney(profit), aggregator.RoundMoney(profit * CommissionRate)
}

// MetaRow derives the 24-column reporting row (A:X) from daily Meta Ads
// metrics. Profit and commission stay numeric so the sheet can sum them.
func MetaRow(data toolexecutor.Args) []interface{} {
	spend := data.Float("spend")
	revenue := data.Float("revenue")
	profit, commission := profitAndCommission(data)

	margin := aggregator.NotAvailable
	if revenue > 0 {
		margin = strconv.FormatFloat((revenue-spend)/revenue*100, 'f', 2, 64)
	}

	return []interface{}{
		data.String("date"),
		spend,
		revenue,
		data.Float("impressions"),
		data.Float("reach"),
		data.Float("frequency"),
		data.Float("cpm"),
		data.Float("clicks"),
		data.Float("cpc"),
		data.Float("ctr"),
		data.Float("link_clicks"),
		data.Float("lp_views"),
		ratio(spend, data.Float("lp_views")),
		data.Float("init_checkout"),
		ratio(spend, data.Float("init_checkout")),
		data.Float("add_payment"),
		ratio(spend, data.Float("add_payment")),
		data.Float("purchases"),
		ratio(revenue, data.Float("purchases")),
		ratio(spend, data.Float("purchases")),
		data.Float("roas"),
		profit,
		margin,
		commission,
	}
}

type pushedMetrics struct {
	Date       string  `json:"date"`
	Spend      float64 `json:"spend"`
	Revenue    float64 `json:"revenue"`
	ROAS       float64 `json:"roas"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
}

func (g *Gateway) pushMetaDataTool() toolexecutor.ToolDefinition {
	return toolexecutor.ToolDefinition{
		Name:        "sheets_push_meta_data",
		Description: "Push daily Meta Ads metrics with derived profit, margin and cost-per-step columns to the Data sheet",
		Mutating:    true,
		Parameters: []toolexecutor.ToolParameter{
			spreadsheetIDParam,
			{Name: "data", Type: "object", Required: true,
				Description: "Meta Ads metrics: date, spend, revenue, impressions, reach, frequency, cpm, clicks, cpc, ctr, link_clicks, lp_views, init_checkout, add_payment, purchases, roas"},
		},
		Handler: toolexecutor.HandlerFunc(func(ctx context.Context, args toolexecutor.Args) (interface{}, error) {
			data := toolexecutor.Args(args.Object("data"))
			row := MetaRow(data)

			updates, err := g.appendRows(ctx, args.String("spreadsheetId"), MetaDataRange, [][]interface{}{row})
			if err != nil {
				return nil, err
			}

			profit, commission := profitAndCommission(data)
			return struct {
				Message      string        `json:"message"`
				UpdatedRange string        `json:"updatedRange"`
				Metrics      pushedMetrics `json:"metrics"`
			}{
				Message:      "Meta Ads data pushed successfully",
				UpdatedRange: updates.UpdatedRange,
				Metrics: pushedMetrics{
					Date:       data.String("date"),
					Spend:      data.Float("spend"),
					Revenue:    data.Float("revenue"),
					ROAS:       data.Float("roas"),
					Profit:     profit,
					Commission: commission,
				},
			}, nil
		}),
	}
}
