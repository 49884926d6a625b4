package registry

import "strings"

const (
	RecurrenceRecurring  = "Recurring"
	RecurrenceNew        = "New"
	RecurrenceUnassigned = "Unassigned"
)

var recurrenceMap = map[string]string{
	"Recurrente": RecurrenceRecurring,
	"Recurring":  RecurrenceRecurring,
	"Nuevo":      RecurrenceNew,
	"Nueva":      RecurrenceNew,
	"New":        RecurrenceNew,
}

// ClassifyRecurrence maps the "recurrencia" column. Anything else, blank
// included, is Unassigned.
func ClassifyRecurrence(raw string) string {
	if v, ok := recurrenceMap[strings.TrimSpace(raw)]; ok {
		return v
	}
	return RecurrenceUnassigned
}

const (
	PriorityCritical   = "Critical"
	PriorityHigh       = "High"
	PriorityMedium     = "Medium"
	PriorityLow        = "Low"
	PriorityUnassigned = "Unassigned"
)

// PriorityOrder is the fixed display order of priority groups.
var PriorityOrder = []string{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

var priorityMap = map[string]string{
	"Crítica":  PriorityCritical,
	"Critica":  PriorityCritical,
	"Critical": PriorityCritical,
	"Alta":     PriorityHigh,
	"High":     PriorityHigh,
	"Media":    PriorityMedium,
	"Medium":   PriorityMedium,
	"Baja":     PriorityLow,
	"Low":      PriorityLow,
}

// NormalizePriority translates the Spanish priority labels to English.
func NormalizePriority(raw string) string {
	if v, ok := priorityMap[strings.TrimSpace(raw)]; ok {
		return v
	}
	return PriorityUnassigned
}
