package aggregator

import (
	"slices"

	"tisops-insights-go/internal/types"
)

type L3Row struct {
	Application  string         `json:"application"`
	StatusCounts map[string]int `json:"statusCounts"`
	Total        int            `json:"total"`
	Percentage   float64        `json:"percentage"`
}

type L3TicketsByStatus struct {
	Data []L3Row `json:"data"`
	// StatusColumns holds only statuses present in the data, in tier order.
	StatusColumns  []string `json:"statusColumns"`
	TotalIncidents int      `json:"totalIncidents"`
}

func BuildL3TicketsByStatus(records []types.NormalizedIncident, opts Options) L3TicketsByStatus {
	records = selectRecords(records, opts)

	rows := map[string]*L3Row{}
	totals := map[string]int{}
	present := map[string]bool{}
	total := 0
	for _, r := range records {
		if !opts.Tiers.IsL3(r.ResolvedStatus) {
			continue
		}
		total++
		app := applicationKey(r)
		row, ok := rows[app]
		if !ok {
			row = &L3Row{Application: app, StatusCounts: map[string]int{}}
			rows[app] = row
		}
		row.StatusCounts[r.ResolvedStatus]++
		row.Total++
		totals[app]++
		present[r.ResolvedStatus] = true
	}

	out := L3TicketsByStatus{Data: []L3Row{}, StatusColumns: []string{}, TotalIncidents: total}
	for _, s := range opts.Tiers.L3 {
		if present[s] && !slices.Contains(out.StatusColumns, s) {
			out.StatusColumns = append(out.StatusColumns, s)
		}
	}
	for _, app := range byCountDesc(totals) {
		row := rows[app]
		row.Percentage = Percentage(row.Total, total)
		out.Data = append(out.Data, *row)
	}
	return out
}
