package aggregator

import (
	"sort"

	"tisops-insights-go/internal/types"
)

type StabilityRow struct {
	Application      string   `json:"application"`
	L2Count          int      `json:"l2Count"`
	L3Count          int      `json:"l3Count"`
	OtherCount       int      `json:"otherCount"`
	UnmappedCount    int      `json:"unmappedCount"`
	UnmappedStatuses []string `json:"unmappedStatuses"`
	Total            int      `json:"total"`
	Percentage       float64  `json:"percentage"`
}

type StabilityIndicators struct {
	Data                []StabilityRow `json:"data"`
	TotalIncidents      int            `json:"totalIncidents"`
	TotalUnmapped       int            `json:"totalUnmapped"`
	HasUnmappedStatuses bool           `json:"hasUnmappedStatuses"`
}

// BuildStabilityIndicators splits each application's load into L2 and L3
// tiers. Unmapped statuses already resolve to an L3 default, so they are
// counted there and also reported separately with their raw values.
func BuildStabilityIndicators(records []types.NormalizedIncident, opts Options) StabilityIndicators {
	records = selectRecords(records, opts)

	rows := map[string]*StabilityRow{}
	totals := map[string]int{}
	rawUnmapped := map[string]map[string]bool{}
	for _, r := range records {
		app := applicationKey(r)
		row, ok := rows[app]
		if !ok {
			row = &StabilityRow{Application: app, UnmappedStatuses: []string{}}
			rows[app] = row
			rawUnmapped[app] = map[string]bool{}
		}
		row.Total++
		totals[app]++
		switch {
		case opts.Tiers.IsL2(r.ResolvedStatus):
			row.L2Count++
		case opts.Tiers.IsL3(r.ResolvedStatus):
			row.L3Count++
		default:
			row.OtherCount++
		}
		if r.StatusUnmapped {
			row.UnmappedCount++
			if !rawUnmapped[app][r.Status] {
				rawUnmapped[app][r.Status] = true
				row.UnmappedStatuses = append(row.UnmappedStatuses, r.Status)
			}
		}
	}

	out := StabilityIndicators{Data: []StabilityRow{}, TotalIncidents: len(records)}
	for _, app := range byCountDesc(totals) {
		row := rows[app]
		sort.Strings(row.UnmappedStatuses)
		row.Percentage = Percentage(row.Total, out.TotalIncidents)
		out.TotalUnmapped += row.UnmappedCount
		if row.UnmappedCount > 0 {
			out.HasUnmappedStatuses = true
		}
		out.Data = append(out.Data, *row)
	}
	return out
}
