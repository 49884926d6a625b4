package types

import "slices"

type RegistryKind string

const (
	KindApplication    RegistryKind = "application"
	KindStatus         RegistryKind = "status"
	KindCategorization RegistryKind = "categorization"
	KindModule         RegistryKind = "module"
)

var RegistryKinds = []RegistryKind{KindApplication, KindStatus, KindCategorization, KindModule}

func ParseRegistryKind(s string) (RegistryKind, bool) {
	for _, k := range RegistryKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// RegistryEntry maps a raw value (or, for applications, a substring pattern)
// to its canonical display value. Lower Priority is evaluated first.
type RegistryEntry struct {
	ID           int64        `json:"id" yaml:"-"`
	Kind         RegistryKind `json:"kind" yaml:"-"`
	MatchKey     string       `json:"matchKey" yaml:"match_key"`
	DisplayValue string       `json:"displayValue" yaml:"display_value"`
	Priority     int          `json:"priority" yaml:"priority"`
	IsActive     bool         `json:"isActive" yaml:"is_active"`
}

// Registries is an in-memory snapshot of the four lookup tables. Slice order
// is insertion order.
type Registries struct {
	Applications    []RegistryEntry `json:"applications" yaml:"applications"`
	Statuses        []RegistryEntry `json:"statuses" yaml:"statuses"`
	Categorizations []RegistryEntry `json:"categorizations" yaml:"categorizations"`
	Modules         []RegistryEntry `json:"modules" yaml:"modules"`
}

func (r Registries) Of(kind RegistryKind) []RegistryEntry {
	switch kind {
	case KindApplication:
		return r.Applications
	case KindStatus:
		return r.Statuses
	case KindCategorization:
		return r.Categorizations
	case KindModule:
		return r.Modules
	}
	return nil
}

// StatusTiers lists the canonical display statuses belonging to each
// escalation tier, in column order.
type StatusTiers struct {
	L2 []string `json:"l2" yaml:"l2"`
	L3 []string `json:"l3" yaml:"l3"`
}

func (t StatusTiers) IsL2(status string) bool { return slices.Contains(t.L2, status) }

func (t StatusTiers) IsL3(status string) bool { return slices.Contains(t.L3, status) }
