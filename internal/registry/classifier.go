package registry

import (
	"sort"
	"strings"

	"tisops-insights-go/internal/types"
)

// DefaultStatus is what any status without an exact registry hit resolves to.
const DefaultStatus = "In L3 Backlog"

type pattern struct {
	key     string // lower-cased match key
	display string
}

// Classifier resolves raw field values against one registry snapshot. It is
// immutable after New and safe for concurrent use.
type Classifier struct {
	apps     []pattern
	status   map[string]string
	category map[string]string
	module   map[string]string
}

func New(reg types.Registries) *Classifier {
	return &Classifier{
		apps:     compilePatterns(reg.Applications),
		status:   compileExact(reg.Statuses),
		category: compileExact(reg.Categorizations),
		module:   compileExact(reg.Modules),
	}
}

// compilePatterns keeps active, non-empty patterns ordered by priority with
// insertion order as the tie-break, so the first substring hit is the winner.
func compilePatterns(entries []types.RegistryEntry) []pattern {
	type ranked struct {
		pattern
		priority int
		seq      int
	}
	var rs []ranked
	for i, e := range entries {
		if !e.IsActive || e.MatchKey == "" {
			continue
		}
		rs = append(rs, ranked{
			pattern:  pattern{key: strings.ToLower(e.MatchKey), display: e.DisplayValue},
			priority: e.Priority,
			seq:      i,
		})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].priority != rs[j].priority {
			return rs[i].priority < rs[j].priority
		}
		return rs[i].seq < rs[j].seq
	})
	out := make([]pattern, len(rs))
	for i, r := range rs {
		out[i] = r.pattern
	}
	return out
}

// compileExact builds the raw -> display map. When a raw value appears more
// than once, the lowest priority wins, then the earliest entry.
func compileExact(entries []types.RegistryEntry) map[string]string {
	m := make(map[string]string, len(entries))
	prio := make(map[string]int, len(entries))
	for _, e := range entries {
		if !e.IsActive {
			continue
		}
		if p, seen := prio[e.MatchKey]; seen && p <= e.Priority {
			continue
		}
		m[e.MatchKey] = e.DisplayValue
		prio[e.MatchKey] = e.Priority
	}
	return m
}

// Application returns the canonical application for free text, or false when
// no active pattern is a case-insensitive substring of it.
func (c *Classifier) Application(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	text := strings.ToLower(raw)
	for _, p := range c.apps {
		if strings.Contains(text, p.key) {
			return p.display, true
		}
	}
	return "", false
}

// Status never fails: unknown values resolve to DefaultStatus with ok=false.
func (c *Classifier) Status(raw string) (string, bool) {
	if v, ok := c.status[raw]; ok {
		return v, true
	}
	return DefaultStatus, false
}

// Category returns the raw value unchanged when it is not registered.
func (c *Classifier) Category(raw string) (string, bool) {
	return lookupOrRaw(c.category, raw)
}

// Module returns the raw value unchanged when it is not registered.
func (c *Classifier) Module(raw string) (string, bool) {
	return lookupOrRaw(c.module, raw)
}

func lookupOrRaw(m map[string]string, raw string) (string, bool) {
	if v, ok := m[raw]; ok {
		return v, true
	}
	return raw, false
}

// ClassifyApplication is the one-shot form of Classifier.Application.
func ClassifyApplication(raw string, patterns []types.RegistryEntry) (string, bool) {
	c := Classifier{apps: compilePatterns(patterns)}
	return c.Application(raw)
}

// ClassifyStatus is the one-shot form of Classifier.Status.
func ClassifyStatus(raw string, entries []types.RegistryEntry) (string, bool) {
	c := Classifier{status: compileExact(entries)}
	return c.Status(raw)
}

// ClassifyExact resolves categorization and module values.
func ClassifyExact(raw string, entries []types.RegistryEntry) (string, bool) {
	return lookupOrRaw(compileExact(entries), raw)
}
