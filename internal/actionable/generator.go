package actionable

import (
	"fmt"
	"slices"
	"strings"

	"tisops-insights-go/internal/aggregator"
)

// ConcentrationThreshold is the share of L3 load, in percent, above which a
// single application is called out.
const ConcentrationThreshold = 40.0

type ActionCard struct {
	Insight string `json:"insight"`
	Action  string `json:"action"`
	Impact  string `json:"impact"`
}

func Generate(stability aggregator.StabilityIndicators, l3 aggregator.L3TicketsByStatus) ActionCard {
	if stability.HasUnmappedStatuses {
		var raw []string
		for _, row := range stability.Data {
			for _, s := range row.UnmappedStatuses {
				if !slices.Contains(raw, s) {
					raw = append(raw, s)
				}
			}
		}
		slices.Sort(raw)
		return ActionCard{
			Insight: fmt.Sprintf("%d tickets carry statuses missing from the status registry", stability.TotalUnmapped),
			Action:  fmt.Sprintf("Add status mappings for: %s", quoteAll(raw)),
			Impact:  "Unmapped tickets are counted as In L3 Backlog and inflate the L3 share",
		}
	}

	if len(l3.Data) == 0 {
		return ActionCard{
			Insight: "No L3 tickets in the selected window",
			Action:  "Monitor and collect more data",
			Impact:  "Low immediate intervention",
		}
	}

	top := l3.Data[0]
	if top.Percentage >= ConcentrationThreshold {
		return ActionCard{
			Insight: fmt.Sprintf("%s holds %.2f%% of the L3 load (%d of %d tickets)", top.Application, top.Percentage, top.Total, l3.TotalIncidents),
			Action:  fmt.Sprintf("Run an engineering triage for %s, starting with %s", top.Application, heaviestStatus(top, l3.StatusColumns)),
			Impact:  "Reduce the L3 backlog where it is concentrated",
		}
	}
	return ActionCard{
		Insight: fmt.Sprintf("L3 load is spread across %d applications", len(l3.Data)),
		Action:  "Review L3 backlog aging per application in the weekly sync",
		Impact:  "No single application dominates escalations",
	}
}

// heaviestStatus picks the column with the most tickets; ties go to the
// earlier column.
func heaviestStatus(row aggregator.L3Row, columns []string) string {
	best, bestCount := "", -1
	for _, c := range columns {
		if n := row.StatusCounts[c]; n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, ", ")
}
