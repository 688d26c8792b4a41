package aggregator

import (
	"fmt"
	"math"
	"strconv"
)

// NotAvailable stands in for a derived metric whose denominator is zero.
const NotAvailable = "N/A"

// SafeDiv divides num by den, reporting false when den is zero.
func SafeDiv(num, den float64) (float64, bool) {
	if den == 0 || math.IsNaN(den) {
		return 0, false
	}
	return num / den, true
}

// FormatMoney renders v as "$x.xx".
func FormatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// RoundMoney rounds v to whole cents.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatCents renders an amount in minor units as "$x.xx".
func FormatCents(cents float64) string {
	return FormatMoney(cents / 100)
}

// FormatPercent renders v with the given decimals and a "%" suffix.
func FormatPercent(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64) + "%"
}

// FormatRate renders num/den as a percentage, or NotAvailable.
func FormatRate(num, den float64, decimals int) string {
	ratio, ok := SafeDiv(num, den)
	if !ok {
		return NotAvailable
	}
	return FormatPercent(ratio*100, decimals)
}

// FormatCostPer renders cost/count as money, or NotAvailable.
func FormatCostPer(cost, count float64) string {
	ratio, ok := SafeDiv(cost, count)
	if !ok {
		return NotAvailable
	}
	return FormatMoney(ratio)
}

// Sum adds f(item) over items.
func Sum[T any](items []T, f func(T) float64) float64 {
	total := 0.0
	for _, item := range items {
		total += f(item)
	}
	return total
}

// Count returns how many items satisfy pred.
func Count[T any](items []T, pred func(T) bool) int {
	n := 0
	for _, item := range items {
		if pred(item) {
			n++
		}
	}
	return n
}

// Totals accumulates named sums across rows. Rates derived from Totals are
// always recomputed from the summed numerator and denominator.
type Totals struct {
	keys []string
	sums map[string]float64
}

// NewTotals creates Totals tracking keys in the given order.
func NewTotals(keys ...string) *Totals {
	t := &Totals{sums: make(map[string]float64, len(keys))}
	for _, key := range keys {
		t.track(key)
	}
	return t
}

func (t *Totals) track(key string) {
	if _, ok := t.sums[key]; !ok {
		t.keys = append(t.keys, key)
		t.sums[key] = 0
	}
}

// Add adds v to key.
func (t *Totals) Add(key string, v float64) {
	t.track(key)
	t.sums[key] += v
}

// Get returns the sum for key.
func (t *Totals) Get(key string) float64 {
	return t.sums[key]
}

// Keys returns tracked keys in first-seen order.
func (t *Totals) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Rate renders sum(num)/sum(den) as a percentage.
func (t *Totals) Rate(num, den string, decimals int) string {
	return FormatRate(t.Get(num), t.Get(den), decimals)
}

// CostPer renders sum(cost)/sum(count) as money.
func (t *Totals) CostPer(cost, count string) string {
	return FormatCostPer(t.Get(cost), t.Get(count))
}
