package types

import "time"

// RawIncident is one ticket row as exported by the ticketing system.
type RawIncident struct {
	RequestID         string `json:"requestId"`
	Subject           string `json:"subject"`
	Technician        string `json:"technician,omitempty"`
	Priority          string `json:"priority"`
	Status            string `json:"requestStatus"`
	Application       string `json:"aplicativos"`
	Category          string `json:"categorizacion"`
	Module            string `json:"modulo"`
	Recurrence        string `json:"recurrencia,omitempty"`
	CreatedTime       string `json:"createdTime"`
	ParentTicketID    string `json:"parentTicketId,omitempty"`
	LinkedTicketCount int    `json:"linkedTicketCount,omitempty"`
}

type Resolution struct {
	// ResolvedApplication is nil when no pattern matched.
	ResolvedApplication *string `json:"resolvedApplication"`
	ResolvedStatus      string `json:"resolvedStatus"`
	ResolvedCategory    string `json:"resolvedCategory"`
	ResolvedModule      string `json:"resolvedModule"`
	ResolvedRecurrence  string `json:"resolvedRecurrence"`
	ResolvedPriority    string `json:"resolvedPriority"`

	ApplicationUnmapped bool `json:"isApplicationUnmapped"`
	StatusUnmapped      bool `json:"isStatusUnmapped"`
	CategoryUnmapped    bool `json:"isCategoryUnmapped"`
	ModuleUnmapped      bool `json:"isModuleUnmapped"`
}

// NormalizedIncident is recomputed on every normalization pass and never stored.
type NormalizedIncident struct {
	RawIncident
	Resolution
	CreatedAt time.Time `json:"createdAt"`
	// HasCreatedAt is false when CreatedTime could not be parsed.
	HasCreatedAt bool `json:"-"`
}
