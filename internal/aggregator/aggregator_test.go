package aggregator

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tisops-insights-go/internal/registry"
	"tisops-insights-go/internal/types"
)

var tiers = types.StatusTiers{
	L2: []string{"In L2 Analysis", "Resolved by L2"},
	L3: []string{"In L3 Backlog", "Dev in Progress", "In Testing"},
}

type recOpt func(*types.NormalizedIncident)

func app(name string) recOpt {
	return func(r *types.NormalizedIncident) {
		r.Application = name
		r.ResolvedApplication = nil
		if name != "" {
			r.ResolvedApplication = &name
		}
		r.ApplicationUnmapped = name == ""
	}
}

func status(resolved string) recOpt {
	return func(r *types.NormalizedIncident) { r.Status, r.ResolvedStatus = resolved, resolved }
}

func unmappedStatus(raw string) recOpt {
	return func(r *types.NormalizedIncident) {
		r.Status, r.ResolvedStatus, r.StatusUnmapped = raw, registry.DefaultStatus, true
	}
}

func category(c string) recOpt {
	return func(r *types.NormalizedIncident) { r.ResolvedCategory = c }
}

func module(m string) recOpt {
	return func(r *types.NormalizedIncident) { r.ResolvedModule = m }
}

func priority(p string) recOpt {
	return func(r *types.NormalizedIncident) { r.ResolvedPriority = p }
}

func recurrence(v string) recOpt {
	return func(r *types.NormalizedIncident) { r.ResolvedRecurrence = v }
}

func created(y int, m time.Month, d int) recOpt {
	return func(r *types.NormalizedIncident) {
		r.CreatedAt = time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
		r.HasCreatedAt = true
	}
}

var seq int

func rec(opts ...recOpt) types.NormalizedIncident {
	seq++
	r := types.NormalizedIncident{}
	r.RequestID = fmt.Sprintf("REQ-%04d", seq)
	r.ResolvedRecurrence = registry.RecurrenceUnassigned
	r.ResolvedPriority = registry.PriorityUnassigned
	r.ResolvedStatus = registry.DefaultStatus
	r.HasCreatedAt = true
	r.CreatedAt = time.Date(2024, 10, 7, 10, 0, 0, 0, time.UTC)
	for _, o := range opts {
		o(&r)
	}
	return r
}

func sample() []types.NormalizedIncident {
	return []types.NormalizedIncident{
		rec(app("FFVV"), category("Data Error"), module("Orders"), priority(registry.PriorityHigh), recurrence(registry.RecurrenceRecurring), status("Dev in Progress")),
		rec(app("FFVV"), category("Data Error"), module("Orders"), priority(registry.PriorityCritical), recurrence(registry.RecurrenceNew), status("In L3 Backlog")),
		rec(app("FFVV"), category("Question"), module("Billing"), priority(registry.PriorityLow), status("Resolved by L2")),
		rec(app("SAP"), category("Question"), module("Orders"), priority(registry.PriorityMedium), unmappedStatus("Pendiente QA")),
		rec(app("SAP"), category("Access"), module("Login"), priority(registry.PriorityHigh), status("Closed")),
		rec(app(""), category("Access"), module("Login"), status("In Testing")),
		rec(app("CRM"), category("Data Error"), module("Billing"), priority(registry.PriorityLow), unmappedStatus("??")),
	}
}

func sumPercent[T any](rows []T, pct func(T) float64) float64 {
	sum := 0.0
	for _, r := range rows {
		sum += pct(r)
	}
	return sum
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 33.33, Percentage(1, 3))
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 12.5, Percentage(1, 8))
	assert.Equal(t, 100.0, Percentage(7, 7))
	assert.Equal(t, 0.0, Percentage(0, 0))
	assert.Equal(t, 0.0, Percentage(3, 0))
}

func TestEmptyInputYieldsEmptyReports(t *testing.T) {
	opts := Options{Tiers: tiers}
	var none []types.NormalizedIncident

	cd := BuildCategoryDistribution(none, opts)
	assert.Empty(t, cd.Data)
	assert.NotNil(t, cd.Data)
	assert.Zero(t, cd.TotalIncidents)

	assert.Empty(t, BuildModuleEvolution(none, opts).Data)
	st := BuildStabilityIndicators(none, opts)
	assert.Empty(t, st.Data)
	assert.False(t, st.HasUnmappedStatuses)
	assert.Empty(t, BuildBusinessFlowPriority(none, opts).Data)
	assert.Empty(t, BuildPriorityByApp(none, opts).Data)
	assert.Empty(t, BuildIncidentsByWeek(none, opts).Data)
	l3 := BuildL3TicketsByStatus(none, opts)
	assert.Empty(t, l3.Data)
	assert.Empty(t, l3.StatusColumns)
	assert.Zero(t, l3.TotalIncidents)
}

func TestCategoryDistribution(t *testing.T) {
	got := BuildCategoryDistribution(sample(), Options{Tiers: tiers})
	require.Equal(t, 7, got.TotalIncidents)
	require.Len(t, got.Data, 3)

	first := got.Data[0]
	assert.Equal(t, "Data Error", first.Category)
	assert.Equal(t, 3, first.Total)
	assert.Equal(t, 1, first.Recurring)
	assert.Equal(t, 1, first.New)
	assert.Equal(t, 1, first.Unassigned)
	assert.Len(t, first.UnassignedRequestIDs, 1)
	assert.Equal(t, 42.86, first.Percentage)

	sum := 0
	for _, row := range got.Data {
		sum += row.Total
		assert.Equal(t, row.Total, row.Recurring+row.New+row.Unassigned)
	}
	assert.Equal(t, got.TotalIncidents, sum)
	assert.InDelta(t, 100, sumPercent(got.Data, func(r CategoryRow) float64 { return r.Percentage }), 0.02)
}

func TestModuleEvolutionUsesTwoPercentageBases(t *testing.T) {
	got := BuildModuleEvolution(sample(), Options{Tiers: tiers})
	require.Equal(t, 7, got.TotalIncidents)
	require.NotEmpty(t, got.Data)

	orders := got.Data[0]
	assert.Equal(t, "Orders", orders.Module)
	assert.Equal(t, 3, orders.Count)
	assert.Equal(t, 42.86, orders.Percentage)

	require.Len(t, orders.Categorizations, 2)
	dataErr := orders.Categorizations[0]
	assert.Equal(t, "Data Error", dataErr.Categorization)
	assert.Equal(t, 2, dataErr.Count)
	assert.Equal(t, 66.67, dataErr.Percentage)
	require.Len(t, dataErr.Tickets, 2)
	assert.Equal(t, "Dev in Progress", dataErr.Tickets[0].Status)
	assert.Equal(t, 33.33, orders.Categorizations[1].Percentage)

	for _, m := range got.Data {
		sub := 0.0
		for _, c := range m.Categorizations {
			sub += c.Percentage
		}
		assert.InDelta(t, 100, sub, 0.02, "module %s", m.Module)
	}
}

func TestStabilityIndicators(t *testing.T) {
	got := BuildStabilityIndicators(sample(), Options{Tiers: tiers})
	require.Equal(t, 7, got.TotalIncidents)
	assert.True(t, got.HasUnmappedStatuses)
	assert.Equal(t, 2, got.TotalUnmapped)

	byApp := map[string]StabilityRow{}
	for _, row := range got.Data {
		byApp[row.Application] = row
	}
	ffvv := byApp["FFVV"]
	assert.Equal(t, 1, ffvv.L2Count)
	assert.Equal(t, 2, ffvv.L3Count)
	assert.Zero(t, ffvv.UnmappedCount)
	assert.Empty(t, ffvv.UnmappedStatuses)

	sap := byApp["SAP"]
	assert.Equal(t, 1, sap.L3Count, "unmapped status falls back to an L3 status")
	assert.Equal(t, 1, sap.OtherCount)
	assert.Equal(t, 1, sap.UnmappedCount)
	assert.Equal(t, []string{"Pendiente QA"}, sap.UnmappedStatuses)

	unassigned, ok := byApp[UnassignedApplication]
	require.True(t, ok)
	assert.Equal(t, 1, unassigned.L3Count)
}

func TestStabilityWithoutUnmapped(t *testing.T) {
	got := BuildStabilityIndicators([]types.NormalizedIncident{rec(app("FFVV"), status("In L2 Analysis"))}, Options{Tiers: tiers})
	assert.False(t, got.HasUnmappedStatuses)
	assert.Equal(t, 100.0, got.Data[0].Percentage)
}

func TestBusinessFlowPriorityFixedOrder(t *testing.T) {
	got := BuildBusinessFlowPriority(sample(), Options{Tiers: tiers})
	require.Equal(t, 7, got.TotalIncidents)

	var order []string
	sum := 0
	for _, g := range got.Data {
		order = append(order, g.Priority)
		sum += g.Total
	}
	assert.Equal(t, []string{"Critical", "High", "Medium", "Low", "Unassigned"}, order)
	assert.Equal(t, got.TotalIncidents, sum)
	assert.InDelta(t, 100, sumPercent(got.Data, func(g PriorityGroup) float64 { return g.Percentage }), 0.02)

	high := got.Data[1]
	assert.Equal(t, 2, high.Total)
	require.Len(t, high.Modules, 2)
	assert.Equal(t, 50.0, high.Modules[0].Percentage)
}

func TestBusinessFlowPriorityKeepsEmptyGroups(t *testing.T) {
	records := []types.NormalizedIncident{rec(priority(registry.PriorityLow), module("Orders"))}
	got := BuildBusinessFlowPriority(records, Options{})
	require.Len(t, got.Data, 4)
	assert.Equal(t, "Critical", got.Data[0].Priority)
	assert.Zero(t, got.Data[0].Total)
	assert.Empty(t, got.Data[0].Modules)
	assert.Equal(t, 100.0, got.Data[3].Percentage)
}

func TestPriorityByApp(t *testing.T) {
	got := BuildPriorityByApp(sample(), Options{Tiers: tiers})
	require.Equal(t, 7, got.TotalIncidents)

	sum := 0
	for _, row := range got.Data {
		assert.Equal(t, row.Total, row.Critical+row.High+row.Medium+row.Low+row.Unassigned)
		sum += row.Total
	}
	assert.Equal(t, got.TotalIncidents, sum)
	assert.Equal(t, "FFVV", got.Data[0].Application)
	assert.Equal(t, 1, got.Data[0].Critical)
	assert.InDelta(t, 100, sumPercent(got.Data, func(r PriorityByAppRow) float64 { return r.Percentage }), 0.02)
}

func TestApplicationFilter(t *testing.T) {
	got := BuildPriorityByApp(sample(), Options{Application: "SAP", Tiers: tiers})
	require.Len(t, got.Data, 1)
	assert.Equal(t, 2, got.TotalIncidents)
	assert.Equal(t, 100.0, got.Data[0].Percentage)

	none := BuildPriorityByApp(sample(), Options{Application: "Nope"})
	assert.Empty(t, none.Data)
	assert.Zero(t, none.TotalIncidents)
}

func TestIncidentsByWeekSameISOWeek(t *testing.T) {
	records := []types.NormalizedIncident{
		rec(created(2024, 10, 7)),
		rec(created(2024, 10, 13)),
	}
	got := BuildIncidentsByWeek(records, Options{})
	require.Len(t, got.Data, 1)
	b := got.Data[0]
	assert.Equal(t, 41, b.WeekNumber)
	assert.Equal(t, 2024, b.Year)
	assert.Equal(t, 2, b.Count)
	assert.Equal(t, "2024-10-07", b.StartDate)
	assert.Equal(t, "2024-10-13", b.EndDate)
	assert.Equal(t, 100.0, b.Percentage)
}

func TestIncidentsByWeekISOYearBoundary(t *testing.T) {
	records := []types.NormalizedIncident{
		rec(created(2024, 12, 30)), // ISO week 1 of 2025
		rec(created(2024, 12, 29)), // ISO week 52 of 2024
		rec(created(2025, 1, 2)),
	}
	got := BuildIncidentsByWeek(records, Options{})
	require.Len(t, got.Data, 2)
	assert.Equal(t, 2024, got.Data[0].Year)
	assert.Equal(t, 52, got.Data[0].WeekNumber)
	assert.Equal(t, 2025, got.Data[1].Year)
	assert.Equal(t, 1, got.Data[1].WeekNumber)
	assert.Equal(t, 2, got.Data[1].Count)
	assert.Equal(t, "2024-12-30", got.Data[1].StartDate)
	assert.Equal(t, "2025-01-05", got.Data[1].EndDate)
}

func TestL3TicketsByStatusScenario(t *testing.T) {
	records := []types.NormalizedIncident{
		rec(app("FFVV"), status("In L3 Backlog")),
		rec(app("FFVV"), status("Dev in Progress")),
		rec(app("FFVV"), status("In L3 Backlog")),
		rec(app("FFVV"), status("In L3 Backlog")),
		rec(app("FFVV"), status("Resolved by L2")),
	}
	for i := 0; i < 2; i++ {
		got := BuildL3TicketsByStatus(records, Options{Tiers: tiers})
		assert.Equal(t, []string{"In L3 Backlog", "Dev in Progress"}, got.StatusColumns)
		require.Len(t, got.Data, 1)
		assert.Equal(t, map[string]int{"In L3 Backlog": 3, "Dev in Progress": 1}, got.Data[0].StatusCounts)
		assert.Equal(t, 4, got.Data[0].Total)
		assert.Equal(t, 4, got.TotalIncidents)
	}
}

func TestL3ColumnsFollowTierOrderNotArrival(t *testing.T) {
	records := []types.NormalizedIncident{
		rec(app("SAP"), status("In Testing")),
		rec(app("CRM"), status("In L3 Backlog")),
	}
	got := BuildL3TicketsByStatus(records, Options{Tiers: tiers})
	assert.Equal(t, []string{"In L3 Backlog", "In Testing"}, got.StatusColumns)
	assert.False(t, math.IsNaN(got.Data[0].Percentage))
	assert.Equal(t, 50.0, got.Data[0].Percentage)
}
