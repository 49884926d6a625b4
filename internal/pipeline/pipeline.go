// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tisops-insights-go/internal/aggregator"
	"tisops-insights-go/internal/metrics"
	"tisops-insights-go/internal/types"
)

const (
	ReportCategoryDistribution = "category-distribution"
	ReportModuleEvolution      = "module-evolution"
	ReportStabilityIndicators  = "stability-indicators"
	ReportBusinessFlowPriority = "business-flow-priority"
	ReportPriorityByApp        = "priority-by-app"
	ReportIncidentsByWeek      = "incidents-by-week"
	ReportL3TicketsByStatus    = "l3-tickets-by-status"
)

var ReportNames = []string{
	ReportCategoryDistribution,
	ReportModuleEvolution,
	ReportStabilityIndicators,
	ReportBusinessFlowPriority,
	ReportPriorityByApp,
	ReportIncidentsByWeek,
	ReportL3TicketsByStatus,
}

type Reports struct {
	CategoryDistribution aggregator.CategoryDistribution `json:"categoryDistribution"`
	ModuleEvolution      aggregator.ModuleEvolution      `json:"moduleEvolution"`
	StabilityIndicators  aggregator.StabilityIndicators  `json:"stabilityIndicators"`
	BusinessFlowPriority aggregator.BusinessFlowPriority `json:"businessFlowPriority"`
	PriorityByApp        aggregator.PriorityByApp        `json:"priorityByApp"`
	IncidentsByWeek      aggregator.IncidentsByWeek      `json:"incidentsByWeek"`
	L3TicketsByStatus    aggregator.L3TicketsByStatus    `json:"l3TicketsByStatus"`
}

// Build runs a single named report. ok is false for an unknown name.
func Build(name string, records []types.NormalizedIncident, opts aggregator.Options) (any, bool) {
	start := time.Now()
	defer func() { metrics.ObserveAggregation(name, time.Since(start)) }()

	switch name {
	case ReportCategoryDistribution:
		return aggregator.BuildCategoryDistribution(records, opts), true
	case ReportModuleEvolution:
		return aggregator.BuildModuleEvolution(records, opts), true
	case ReportStabilityIndicators:
		return aggregator.BuildStabilityIndicators(records, opts), true
	case ReportBusinessFlowPriority:
		return aggregator.BuildBusinessFlowPriority(records, opts), true
	case ReportPriorityByApp:
		return aggregator.BuildPriorityByApp(records, opts), true
	case ReportIncidentsByWeek:
		return aggregator.BuildIncidentsByWeek(records, opts), true
	case ReportL3TicketsByStatus:
		return aggregator.BuildL3TicketsByStatus(records, opts), true
	}
	return nil, false
}

// RunAll builds every report concurrently over the same read-only snapshot.
// Each task writes only its own field of the result.
func RunAll(ctx context.Context, records []types.NormalizedIncident, opts aggregator.Options) (Reports, error) {
	var out Reports
	g, ctx := errgroup.WithContext(ctx)

	task := func(name string, assign func(any)) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, _ := Build(name, records, opts)
			assign(v)
			return nil
		})
	}

	task(ReportCategoryDistribution, func(v any) { out.CategoryDistribution = v.(aggregator.CategoryDistribution) })
	task(ReportModuleEvolution, func(v any) { out.ModuleEvolution = v.(aggregator.ModuleEvolution) })
	task(ReportStabilityIndicators, func(v any) { out.StabilityIndicators = v.(aggregator.StabilityIndicators) })
	task(ReportBusinessFlowPriority, func(v any) { out.BusinessFlowPriority = v.(aggregator.BusinessFlowPriority) })
	task(ReportPriorityByApp, func(v any) { out.PriorityByApp = v.(aggregator.PriorityByApp) })
	task(ReportIncidentsByWeek, func(v any) { out.IncidentsByWeek = v.(aggregator.IncidentsByWeek) })
	task(ReportL3TicketsByStatus, func(v any) { out.L3TicketsByStatus = v.(aggregator.L3TicketsByStatus) })

	if err := g.Wait(); err != nil {
		return Reports{}, err
	}
	return out, nil
}
