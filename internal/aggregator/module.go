package aggregator

import "tisops-insights-go/internal/types"

type TicketDetail struct {
	RequestID         string `json:"requestId"`
	Subject           string `json:"subject"`
	ParentTicketID    string `json:"parentTicketId,omitempty"`
	LinkedTicketCount int    `json:"linkedTicketCount"`
	Status            string `json:"status"`
}

type CategorizationNode struct {
	Categorization string `json:"categorization"`
	Count          int    `json:"count"`
	// Percentage is relative to the enclosing module, not the grand total.
	Percentage float64        `json:"percentage"`
	Tickets    []TicketDetail `json:"tickets"`
}

type ModuleRow struct {
	Module          string               `json:"module"`
	Count           int                  `json:"count"`
	Percentage      float64              `json:"percentage"`
	Categorizations []CategorizationNode `json:"categorizations"`
}

type ModuleEvolution struct {
	Data           []ModuleRow `json:"data"`
	TotalIncidents int         `json:"totalIncidents"`
}

func BuildModuleEvolution(records []types.NormalizedIncident, opts Options) ModuleEvolution {
	records = selectRecords(records, opts)

	moduleCounts := map[string]int{}
	catCounts := map[string]map[string]int{}
	tickets := map[string]map[string][]TicketDetail{}
	for _, r := range records {
		mod, cat := r.ResolvedModule, r.ResolvedCategory
		moduleCounts[mod]++
		if catCounts[mod] == nil {
			catCounts[mod] = map[string]int{}
			tickets[mod] = map[string][]TicketDetail{}
		}
		catCounts[mod][cat]++
		tickets[mod][cat] = append(tickets[mod][cat], TicketDetail{
			RequestID:         r.RequestID,
			Subject:           r.Subject,
			ParentTicketID:    r.ParentTicketID,
			LinkedTicketCount: r.LinkedTicketCount,
			Status:            r.ResolvedStatus,
		})
	}

	out := ModuleEvolution{Data: []ModuleRow{}, TotalIncidents: len(records)}
	for _, mod := range byCountDesc(moduleCounts) {
		row := ModuleRow{
			Module:          mod,
			Count:           moduleCounts[mod],
			Percentage:      Percentage(moduleCounts[mod], out.TotalIncidents),
			Categorizations: []CategorizationNode{},
		}
		for _, cat := range byCountDesc(catCounts[mod]) {
			row.Categorizations = append(row.Categorizations, CategorizationNode{
				Categorization: cat,
				Count:          catCounts[mod][cat],
				Percentage:     Percentage(catCounts[mod][cat], row.Count),
				Tickets:        tickets[mod][cat],
			})
		}
		out.Data = append(out.Data, row)
	}
	return out
}
