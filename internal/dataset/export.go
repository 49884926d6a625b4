package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tisops-insights-go/internal/pipeline"
)

const (
	SheetCategories    = "Categories"
	SheetModules       = "Modules"
	SheetStability     = "Stability"
	SheetBusinessFlow  = "BusinessFlow"
	SheetPriorityByApp = "PriorityByApp"
	SheetWeekly        = "Weekly"
	SheetL3ByStatus    = "L3ByStatus"
)

type sheetWriter struct {
	f      *excelize.File
	bold   int
	err    error
	sheets int
}

func (w *sheetWriter) sheet(name string, header []any, rows [][]any) {
	if w.err != nil {
		return
	}
	if w.sheets == 0 {
		// reuse the default sheet so the workbook opens on the first report
		w.err = w.f.SetSheetName(w.f.GetSheetName(0), name)
	} else {
		_, w.err = w.f.NewSheet(name)
	}
	if w.err != nil {
		return
	}
	w.sheets++

	if w.err = w.f.SetSheetRow(name, "A1", &header); w.err != nil {
		return
	}
	if w.err = w.f.SetRowStyle(name, 1, 1, w.bold); w.err != nil {
		return
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			w.err = err
			return
		}
		if w.err = w.f.SetSheetRow(name, cell, &row); w.err != nil {
			return
		}
	}
}

// ExportWorkbook writes one sheet per report.
func ExportWorkbook(out io.Writer, r pipeline.Reports) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	w := &sheetWriter{f: f, bold: bold}

	var rows [][]any
	for _, c := range r.CategoryDistribution.Data {
		rows = append(rows, []any{c.Category, c.Total, c.Recurring, c.New, c.Unassigned, c.Percentage})
	}
	w.sheet(SheetCategories, []any{"Category", "Total", "Recurring", "New", "Unassigned", "Percentage"}, rows)

	rows = nil
	for _, m := range r.ModuleEvolution.Data {
		for _, c := range m.Categorizations {
			rows = append(rows, []any{m.Module, m.Count, m.Percentage, c.Categorization, c.Count, c.Percentage})
		}
	}
	w.sheet(SheetModules, []any{"Module", "Module Count", "Module %", "Categorization", "Count", "% of Module"}, rows)

	rows = nil
	for _, s := range r.StabilityIndicators.Data {
		rows = append(rows, []any{s.Application, s.L2Count, s.L3Count, s.OtherCount, s.UnmappedCount, s.Total, s.Percentage})
	}
	w.sheet(SheetStability, []any{"Application", "L2", "L3", "Other", "Unmapped", "Total", "Percentage"}, rows)

	rows = nil
	for _, g := range r.BusinessFlowPriority.Data {
		if len(g.Modules) == 0 {
			rows = append(rows, []any{g.Priority, g.Total, g.Percentage, "", 0, 0.0})
			continue
		}
		for _, m := range g.Modules {
			rows = append(rows, []any{g.Priority, g.Total, g.Percentage, m.Module, m.Count, m.Percentage})
		}
	}
	w.sheet(SheetBusinessFlow, []any{"Priority", "Total", "Percentage", "Module", "Count", "% of Priority"}, rows)

	rows = nil
	for _, p := range r.PriorityByApp.Data {
		rows = append(rows, []any{p.Application, p.Critical, p.High, p.Medium, p.Low, p.Unassigned, p.Total, p.Percentage})
	}
	w.sheet(SheetPriorityByApp, []any{"Application", "Critical", "High", "Medium", "Low", "Unassigned", "Total", "Percentage"}, rows)

	rows = nil
	for _, wk := range r.IncidentsByWeek.Data {
		rows = append(rows, []any{wk.Year, wk.WeekNumber, wk.StartDate, wk.EndDate, wk.Count, wk.Percentage})
	}
	w.sheet(SheetWeekly, []any{"Year", "Week", "Start", "End", "Count", "Percentage"}, rows)

	l3 := r.L3TicketsByStatus
	header := []any{"Application"}
	for _, s := range l3.StatusColumns {
		header = append(header, s)
	}
	header = append(header, "Total", "Percentage")
	rows = nil
	for _, row := range l3.Data {
		line := []any{row.Application}
		for _, s := range l3.StatusColumns {
			line = append(line, row.StatusCounts[s])
		}
		rows = append(rows, append(line, row.Total, row.Percentage))
	}
	w.sheet(SheetL3ByStatus, header, rows)

	if w.err != nil {
		return fmt.Errorf("build workbook: %w", w.err)
	}
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
