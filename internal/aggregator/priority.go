package aggregator

import (
	"tisops-insights-go/internal/registry"
	"tisops-insights-go/internal/types"
)

type ModuleCount struct {
	Module     string  `json:"module"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type PriorityGroup struct {
	Priority   string        `json:"priority"`
	Total      int           `json:"total"`
	Percentage float64       `json:"percentage"`
	Modules    []ModuleCount `json:"modules"`
}

type BusinessFlowPriority struct {
	Data           []PriorityGroup `json:"data"`
	TotalIncidents int             `json:"totalIncidents"`
}

// BuildBusinessFlowPriority always emits Critical, High, Medium and Low in
// that order. Records with an unknown priority form a trailing Unassigned
// group only when there are any.
func BuildBusinessFlowPriority(records []types.NormalizedIncident, opts Options) BusinessFlowPriority {
	records = selectRecords(records, opts)
	out := BusinessFlowPriority{Data: []PriorityGroup{}, TotalIncidents: len(records)}
	if len(records) == 0 {
		return out
	}

	totals := map[string]int{}
	modules := map[string]map[string]int{}
	for _, r := range records {
		p := r.ResolvedPriority
		totals[p]++
		if modules[p] == nil {
			modules[p] = map[string]int{}
		}
		modules[p][r.ResolvedModule]++
	}

	order := registry.PriorityOrder
	if totals[registry.PriorityUnassigned] > 0 {
		order = append(append([]string{}, order...), registry.PriorityUnassigned)
	}
	for _, p := range order {
		g := PriorityGroup{
			Priority:   p,
			Total:      totals[p],
			Percentage: Percentage(totals[p], out.TotalIncidents),
			Modules:    []ModuleCount{},
		}
		for _, mod := range byCountDesc(modules[p]) {
			g.Modules = append(g.Modules, ModuleCount{
				Module:     mod,
				Count:      modules[p][mod],
				Percentage: Percentage(modules[p][mod], g.Total),
			})
		}
		out.Data = append(out.Data, g)
	}
	return out
}

type PriorityByAppRow struct {
	Application string  `json:"application"`
	Critical    int     `json:"critical"`
	High        int     `json:"high"`
	Medium      int     `json:"medium"`
	Low         int     `json:"low"`
	Unassigned  int     `json:"unassigned"`
	Total       int     `json:"total"`
	Percentage  float64 `json:"percentage"`
}

type PriorityByApp struct {
	Data           []PriorityByAppRow `json:"data"`
	TotalIncidents int                `json:"totalIncidents"`
}

func BuildPriorityByApp(records []types.NormalizedIncident, opts Options) PriorityByApp {
	records = selectRecords(records, opts)

	rows := map[string]*PriorityByAppRow{}
	totals := map[string]int{}
	for _, r := range records {
		app := applicationKey(r)
		row, ok := rows[app]
		if !ok {
			row = &PriorityByAppRow{Application: app}
			rows[app] = row
		}
		switch r.ResolvedPriority {
		case registry.PriorityCritical:
			row.Critical++
		case registry.PriorityHigh:
			row.High++
		case registry.PriorityMedium:
			row.Medium++
		case registry.PriorityLow:
			row.Low++
		default:
			row.Unassigned++
		}
		row.Total++
		totals[app]++
	}

	out := PriorityByApp{Data: []PriorityByAppRow{}, TotalIncidents: len(records)}
	for _, app := range byCountDesc(totals) {
		row := rows[app]
		row.Percentage = Percentage(row.Total, out.TotalIncidents)
		out.Data = append(out.Data, *row)
	}
	return out
}
