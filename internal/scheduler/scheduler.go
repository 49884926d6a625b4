package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"tisops-insights-go/internal/actionable"
	"tisops-insights-go/internal/dataset"
	"tisops-insights-go/internal/logger"
	"tisops-insights-go/internal/pipeline"
	"tisops-insights-go/internal/processor"
)

// Reporter builds every report for a query. *processor.Service satisfies it.
type Reporter interface {
	All(ctx context.Context, q processor.Query) (pipeline.Reports, processor.Meta, error)
}

type Notifier interface {
	Post(ctx context.Context, text string) error
}

type Scheduler struct {
	cron     *cron.Cron
	reporter Reporter
	notifier Notifier
	outDir   string
	timeout  time.Duration
	log      *logrus.Entry
}

// New returns a stopped scheduler. notifier may be nil.
func New(reporter Reporter, notifier Notifier, outDir string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		reporter: reporter,
		notifier: notifier,
		outDir:   outDir,
		timeout:  5 * time.Minute,
		log:      logger.New().WithField("component", "scheduler"),
	}
}

// Start registers the weekly job on a 5-field cron spec and starts running.
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunWeekly(ctx); err != nil {
			s.log.WithError(err).Error("weekly report failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.log.WithField("next", e.Next.Format(time.RFC3339)).Info("weekly report scheduled")
	}
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunWeekly builds the reports for the default window, writes the workbook
// and posts a summary. It returns the workbook path.
func (s *Scheduler) RunWeekly(ctx context.Context) (string, error) {
	reports, meta, err := s.reporter.All(ctx, processor.Query{})
	if err != nil {
		return "", fmt.Errorf("build reports: %w", err)
	}

	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", s.outDir, err)
	}
	path := filepath.Join(s.outDir, fmt.Sprintf("incident-report-%s.xlsx", meta.EndDate))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := dataset.ExportWorkbook(f, reports); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	s.log.WithFields(logrus.Fields{"path": path, "window": meta.StartDate + ".." + meta.EndDate}).Info("weekly report written")

	if s.notifier == nil {
		return path, nil
	}
	card := actionable.Generate(reports.StabilityIndicators, reports.L3TicketsByStatus)
	if err := s.notifier.Post(ctx, FormatWeeklySummary(meta, reports, card)); err != nil {
		// the workbook is already on disk
		s.log.WithError(err).Warn("summary not posted")
	}
	return path, nil
}

// FormatWeeklySummary renders the Slack text for one window.
func FormatWeeklySummary(meta processor.Meta, r pipeline.Reports, card actionable.ActionCard) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Incident report %s to %s*\n", meta.StartDate, meta.EndDate)
	fmt.Fprintf(&b, "Tickets in window: %d (stored: %d)\n", meta.TotalFiltered, meta.TotalRaw)

	stab := r.StabilityIndicators
	l2, l3 := 0, 0
	for _, row := range stab.Data {
		l2 += row.L2Count
		l3 += row.L3Count
	}
	fmt.Fprintf(&b, "L2: %d | L3: %d", l2, l3)
	if stab.HasUnmappedStatuses {
		fmt.Fprintf(&b, " | unmapped statuses: %d", stab.TotalUnmapped)
	}
	b.WriteString("\n")

	if len(stab.Data) > 0 {
		b.WriteString("\n*Top applications*\n")
		for i, row := range stab.Data {
			if i == 3 {
				break
			}
			fmt.Fprintf(&b, "• %s: %d (%.2f%%)\n", row.Application, row.Total, row.Percentage)
		}
	}

	if len(r.BusinessFlowPriority.Data) > 0 {
		b.WriteString("\n*By priority*\n")
		for _, g := range r.BusinessFlowPriority.Data {
			fmt.Fprintf(&b, "• %s: %d\n", g.Priority, g.Total)
		}
	}

	fmt.Fprintf(&b, "\n*%s*\n%s\n_%s_", card.Insight, card.Action, card.Impact)
	return b.String()
}
