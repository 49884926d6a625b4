package aggregator

import (
	"sort"

	"github.com/shopspring/decimal"

	"tisops-insights-go/internal/types"
)

// UnassignedApplication is the bucket for records whose application did not
// match any pattern.
const UnassignedApplication = "Unassigned"

// Options apply to every report. Application, when set, keeps only records
// whose resolved application equals it exactly.
type Options struct {
	Application string
	Tiers       types.StatusTiers
}

var hundred = decimal.NewFromInt(100)

// Percentage returns count/total as a percent rounded to two decimals. The
// denominator is always explicit: callers pick grand or subgroup totals.
func Percentage(count, total int) float64 {
	if total <= 0 {
		return 0
	}
	return decimal.NewFromInt(int64(count)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		InexactFloat64()
}

func applicationKey(r types.NormalizedIncident) string {
	if r.ApplicationUnmapped || r.ResolvedApplication == nil || *r.ResolvedApplication == "" {
		return UnassignedApplication
	}
	return *r.ResolvedApplication
}

func selectRecords(records []types.NormalizedIncident, opts Options) []types.NormalizedIncident {
	if opts.Application == "" {
		return records
	}
	out := make([]types.NormalizedIncident, 0, len(records))
	for _, r := range records {
		if applicationKey(r) == opts.Application {
			out = append(out, r)
		}
	}
	return out
}

// byCountDesc orders keys by descending count, then alphabetically.
func byCountDesc(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
