package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotals_RateRecomputedFromSums(t *testing.T) {
	totals := NewTotals("clicks", "impressions")

	// per-row CTRs are 10% and 15%; the aggregate must not average them
	totals.Add("clicks", 10)
	totals.Add("impressions", 100)
	totals.Add("clicks", 30)
	totals.Add("impressions", 200)

	assert.Equal(t, "13.33%", totals.Rate("clicks", "impressions", 2))
	assert.Equal(t, []string{"clicks", "impressions"}, totals.Keys())
}

func TestTotals_ZeroDenominator(t *testing.T) {
	totals := NewTotals("spend", "leads")
	totals.Add("spend", 50)

	assert.Equal(t, NotAvailable, totals.CostPer("spend", "leads"))
	assert.Equal(t, NotAvailable, totals.Rate("leads", "missing", 2))
}

func TestTotals_CostPer(t *testing.T) {
	totals := NewTotals()
	totals.Add("spend", 125.5)
	totals.Add("leads", 4)

	assert.Equal(t, "$31.38", totals.CostPer("spend", "leads"))
	assert.Equal(t, []string{"spend", "leads"}, totals.Keys())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$1234.50", FormatMoney(1234.5))
	assert.Equal(t, "$0.00", FormatMoney(0))
	assert.Equal(t, "$50.00", FormatCents(5000))
	assert.Equal(t, "40.0%", FormatRate(2, 5, 1))
	assert.Equal(t, "N/A", FormatRate(2, 0, 1))
	assert.Equal(t, "12.35%", FormatPercent(12.345678, 2))
	assert.Equal(t, "$2.50", FormatCostPer(10, 4))
	assert.Equal(t, "N/A", FormatCostPer(10, 0))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 20.0, RoundMoney(100.1-80.1))
	assert.Equal(t, 4.0, RoundMoney((100.1-80.1)*0.20))
	assert.Equal(t, -12.35, RoundMoney(-12.345678))
	assert.Equal(t, 0.0, RoundMoney(0))
}

func TestSumAndCount(t *testing.T) {
	type opp struct {
		status string
		value  float64
	}
	opps := []opp{{"won", 1000}, {"open", 300}, {"won", 250.25}}

	won := func(o opp) bool { return o.status == "won" }
	assert.Equal(t, 2, Count(opps, won))
	assert.Equal(t, 1550.25, Sum(opps, func(o opp) float64 { return o.value }))
}

func TestSafeDiv(t *testing.T) {
	v, ok := SafeDiv(1, 4)
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	_, ok = SafeDiv(1, 0)
	assert.False(t, ok)
}
