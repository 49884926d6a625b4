package aggregator

import (
	"tisops-insights-go/internal/registry"
	"tisops-insights-go/internal/types"
)

type CategoryRow struct {
	Category             string   `json:"category"`
	Total                int      `json:"total"`
	Recurring            int      `json:"recurring"`
	New                  int      `json:"new"`
	Unassigned           int      `json:"unassigned"`
	Percentage           float64  `json:"percentage"`
	UnassignedRequestIDs []string `json:"unassignedRequestIds"`
}

type CategoryDistribution struct {
	Data           []CategoryRow `json:"data"`
	TotalIncidents int           `json:"totalIncidents"`
}

func BuildCategoryDistribution(records []types.NormalizedIncident, opts Options) CategoryDistribution {
	records = selectRecords(records, opts)
	rows := map[string]*CategoryRow{}
	totals := map[string]int{}
	for _, r := range records {
		row, ok := rows[r.ResolvedCategory]
		if !ok {
			row = &CategoryRow{Category: r.ResolvedCategory, UnassignedRequestIDs: []string{}}
			rows[r.ResolvedCategory] = row
		}
		row.Total++
		totals[r.ResolvedCategory]++
		switch r.ResolvedRecurrence {
		case registry.RecurrenceRecurring:
			row.Recurring++
		case registry.RecurrenceNew:
			row.New++
		default:
			row.Unassigned++
			row.UnassignedRequestIDs = append(row.UnassignedRequestIDs, r.RequestID)
		}
	}

	out := CategoryDistribution{Data: []CategoryRow{}, TotalIncidents: len(records)}
	for _, k := range byCountDesc(totals) {
		row := rows[k]
		row.Percentage = Percentage(row.Total, out.TotalIncidents)
		out.Data = append(out.Data, *row)
	}
	return out
}
