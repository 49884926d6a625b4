package normalizer

import (
	"iter"
	"time"

	"tisops-insights-go/internal/registry"
	"tisops-insights-go/internal/types"
)

// Normalizer applies one registry snapshot to incident rows.
type Normalizer struct {
	classifier *registry.Classifier
	loc        *time.Location
}

// New compiles the snapshot once. Timestamps without an explicit offset are
// read in loc.
func New(reg types.Registries, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{classifier: registry.New(reg), loc: loc}
}

func (n *Normalizer) One(r types.RawIncident) types.NormalizedIncident {
	out := types.NormalizedIncident{RawIncident: r}

	app, ok := n.classifier.Application(r.Application)
	if ok {
		out.ResolvedApplication = &app
	}
	out.ApplicationUnmapped = !ok

	out.ResolvedStatus, ok = n.classifier.Status(r.Status)
	out.StatusUnmapped = !ok

	out.ResolvedCategory, ok = n.classifier.Category(r.Category)
	out.CategoryUnmapped = !ok

	out.ResolvedModule, ok = n.classifier.Module(r.Module)
	out.ModuleUnmapped = !ok

	out.ResolvedRecurrence = registry.ClassifyRecurrence(r.Recurrence)
	out.ResolvedPriority = registry.NormalizePriority(r.Priority)

	out.CreatedAt, out.HasCreatedAt = ParseCreatedTime(r.CreatedTime, n.loc)
	return out
}

func (n *Normalizer) All(records []types.RawIncident) []types.NormalizedIncident {
	out := make([]types.NormalizedIncident, 0, len(records))
	for _, r := range records {
		out = append(out, n.One(r))
	}
	return out
}

// Stream normalizes lazily as the source yields.
func (n *Normalizer) Stream(src iter.Seq[types.RawIncident]) iter.Seq[types.NormalizedIncident] {
	return func(yield func(types.NormalizedIncident) bool) {
		for r := range src {
			if !yield(n.One(r)) {
				return
			}
		}
	}
}

// Normalize is the one-shot form of New(reg, loc).All(records).
func Normalize(records []types.RawIncident, reg types.Registries, loc *time.Location) []types.NormalizedIncident {
	return New(reg, loc).All(records)
}
