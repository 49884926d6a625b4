package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tisops-insights-go/internal/aggregator"
	"tisops-insights-go/internal/dataset"
	"tisops-insights-go/internal/daterange"
	"tisops-insights-go/internal/logger"
	"tisops-insights-go/internal/metrics"
	"tisops-insights-go/internal/normalizer"
	"tisops-insights-go/internal/pipeline"
	"tisops-insights-go/internal/types"
)

// Source supplies registries and stored incidents. *store.Store satisfies it.
type Source interface {
	LoadRegistries(ctx context.Context) (types.Registries, error)
	ListIncidents(ctx context.Context) ([]types.RawIncident, error)
	UpsertIncidents(ctx context.Context, batch string, items []types.RawIncident) (int, error)
}

type Service struct {
	src   Source
	tiers types.StatusTiers
	loc   *time.Location
	now   func() time.Time
	log   *logrus.Entry
}

func NewService(src Source, tiers types.StatusTiers, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		src:   src,
		tiers: tiers,
		loc:   loc,
		now:   time.Now,
		log:   logger.New().WithField("component", "processor"),
	}
}

// Query narrows every report. Dates follow daterange rules.
type Query struct {
	Application string
	Range       daterange.Params
}

// ParseQuery builds a Query from request parameters. Errors wrap
// daterange.ErrInvalidFilter.
func (s *Service) ParseQuery(application, month, startDate, endDate string) (Query, error) {
	p, err := daterange.ParseParams(month, startDate, endDate, s.loc)
	if err != nil {
		return Query{}, err
	}
	return Query{Application: strings.TrimSpace(application), Range: p}, nil
}

// Meta describes the slice of data a report was built from. TotalRaw minus
// TotalFiltered is the number of stored incidents outside the window or
// without a usable creation time.
type Meta struct {
	Application   string `json:"application,omitempty"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	TotalRaw      int    `json:"totalRaw"`
	TotalFiltered int    `json:"totalFiltered"`
}

type snapshot struct {
	records []types.NormalizedIncident
	opts    aggregator.Options
	meta    Meta
}

// snapshot reads the current registries and incidents, normalizes them and
// applies the date window.
func (s *Service) snapshot(ctx context.Context, q Query) (snapshot, error) {
	w, err := daterange.Resolve(q.Range, s.now(), s.loc)
	if err != nil {
		return snapshot{}, err
	}
	reg, err := s.src.LoadRegistries(ctx)
	if err != nil {
		return snapshot{}, err
	}
	raws, err := s.src.ListIncidents(ctx)
	if err != nil {
		return snapshot{}, err
	}
	filtered := daterange.Filter(normalizer.Normalize(raws, reg, s.loc), w)
	return snapshot{
		records: filtered,
		opts:    aggregator.Options{Application: q.Application, Tiers: s.tiers},
		meta: Meta{
			Application:   q.Application,
			StartDate:     w.Start.Format(daterange.DateLayout),
			EndDate:       w.End.Format(daterange.DateLayout),
			TotalRaw:      len(raws),
			TotalFiltered: len(filtered),
		},
	}, nil
}

// Report builds one named report. The name must be one of pipeline.ReportNames.
func (s *Service) Report(ctx context.Context, name string, q Query) (any, Meta, error) {
	snap, err := s.snapshot(ctx, q)
	if err != nil {
		return nil, Meta{}, err
	}
	out, ok := pipeline.Build(name, snap.records, snap.opts)
	if !ok {
		return nil, Meta{}, fmt.Errorf("unknown report %q", name)
	}
	return out, snap.meta, nil
}

func run[T any](ctx context.Context, s *Service, q Query, build func([]types.NormalizedIncident, aggregator.Options) T) (T, Meta, error) {
	var zero T
	snap, err := s.snapshot(ctx, q)
	if err != nil {
		return zero, Meta{}, err
	}
	return build(snap.records, snap.opts), snap.meta, nil
}

func (s *Service) CategoryDistribution(ctx context.Context, q Query) (aggregator.CategoryDistribution, Meta, error) {
	return run(ctx, s, q, aggregator.BuildCategoryDistribution)
}

func (s *Service) ModuleEvolution(ctx context.Context, q Query) (aggregator.ModuleEvolution, Meta, error) {
	return run(ctx, s, q, aggregator.BuildModuleEvolution)
}

func (s *Service) StabilityIndicators(ctx context.Context, q Query) (aggregator.StabilityIndicators, Meta, error) {
	return run(ctx, s, q, aggregator.BuildStabilityIndicators)
}

func (s *Service) BusinessFlowPriority(ctx context.Context, q Query) (aggregator.BusinessFlowPriority, Meta, error) {
	return run(ctx, s, q, aggregator.BuildBusinessFlowPriority)
}

func (s *Service) PriorityByApp(ctx context.Context, q Query) (aggregator.PriorityByApp, Meta, error) {
	return run(ctx, s, q, aggregator.BuildPriorityByApp)
}

func (s *Service) IncidentsByWeek(ctx context.Context, q Query) (aggregator.IncidentsByWeek, Meta, error) {
	return run(ctx, s, q, aggregator.BuildIncidentsByWeek)
}

func (s *Service) L3TicketsByStatus(ctx context.Context, q Query) (aggregator.L3TicketsByStatus, Meta, error) {
	return run(ctx, s, q, aggregator.BuildL3TicketsByStatus)
}

// All builds every report from one snapshot.
func (s *Service) All(ctx context.Context, q Query) (pipeline.Reports, Meta, error) {
	snap, err := s.snapshot(ctx, q)
	if err != nil {
		return pipeline.Reports{}, Meta{}, err
	}
	reports, err := pipeline.RunAll(ctx, snap.records, snap.opts)
	if err != nil {
		return pipeline.Reports{}, Meta{}, err
	}
	return reports, snap.meta, nil
}

// Export writes every report for q as an xlsx workbook.
func (s *Service) Export(ctx context.Context, q Query, w io.Writer) (Meta, error) {
	reports, meta, err := s.All(ctx, q)
	if err != nil {
		return Meta{}, err
	}
	if err := dataset.ExportWorkbook(w, reports); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// ErrBadWorkbook wraps every failure to read an uploaded ticket export.
var ErrBadWorkbook = errors.New("unreadable ticket export")

type ImportResult struct {
	Batch    string         `json:"batch"`
	Stored   int            `json:"stored"`
	Unmapped map[string]int `json:"unmapped"`
}

// Import reads a ticket export, stores its rows and reports how many of them
// the current registries fail to map.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, err := dataset.LoadReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %w", ErrBadWorkbook, err)
	}
	batch := uuid.New().String()
	log := s.log.WithField("batch", batch)

	stored, err := s.src.UpsertIncidents(ctx, batch, rows)
	if err != nil {
		log.WithError(err).Error("import failed, batch rolled back")
		return ImportResult{}, err
	}
	metrics.ImportedRowsTotal.WithLabelValues("stored").Add(float64(stored))

	res := ImportResult{Batch: batch, Stored: stored, Unmapped: map[string]int{}}
	reg, err := s.src.LoadRegistries(ctx)
	if err != nil {
		// rows are stored; only the audit counts are missing
		log.WithError(err).Warn("registries unavailable, unmapped counts skipped")
		return res, nil
	}
	for _, n := range normalizer.Normalize(rows, reg, s.loc) {
		for field, unmapped := range map[string]bool{
			"application":    n.ApplicationUnmapped,
			"status":         n.StatusUnmapped,
			"categorization": n.CategoryUnmapped,
			"module":         n.ModuleUnmapped,
		} {
			if unmapped {
				res.Unmapped[field]++
			}
		}
	}
	for field, c := range res.Unmapped {
		metrics.UnmappedValuesTotal.WithLabelValues(field).Add(float64(c))
	}
	log.WithFields(logrus.Fields{"stored": stored, "unmapped": res.Unmapped}).Info("import complete")
	return res, nil
}
