package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tisops-insights-go/internal/types"
)

// ErrInvalidFilter wraps every rejected combination of filter parameters.
var ErrInvalidFilter = errors.New("invalid filter")

const (
	MonthLayout = "2006-01"
	DateLayout  = "2006-01-02"
)

// Params selects the reporting range. Month and the explicit pair are
// mutually exclusive; neither means the default weekly window.
type Params struct {
	Month     string
	StartDate *time.Time
	EndDate   *time.Time
}

func (p Params) IsZero() bool {
	return p.Month == "" && p.StartDate == nil && p.EndDate == nil
}

// Window is inclusive on both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w Window) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// ParseParams reads the textual form used by the API: month as YYYY-MM and
// dates as YYYY-MM-DD, all optional.
func ParseParams(month, start, end string, loc *time.Location) (Params, error) {
	if loc == nil {
		loc = time.Local
	}
	p := Params{Month: strings.TrimSpace(month)}
	if s := strings.TrimSpace(start); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return Params{}, fmt.Errorf("%w: startDate %q is not YYYY-MM-DD", ErrInvalidFilter, s)
		}
		p.StartDate = &t
	}
	if s := strings.TrimSpace(end); s != "" {
		t, err := time.ParseInLocation(DateLayout, s, loc)
		if err != nil {
			return Params{}, fmt.Errorf("%w: endDate %q is not YYYY-MM-DD", ErrInvalidFilter, s)
		}
		p.EndDate = &t
	}
	return p, nil
}

// Resolve validates p and turns it into a concrete window. now is only
// consulted for the default window.
func Resolve(p Params, now time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	hasDates := p.StartDate != nil || p.EndDate != nil
	switch {
	case p.Month != "" && hasDates:
		return Window{}, fmt.Errorf("%w: month cannot be combined with startDate/endDate", ErrInvalidFilter)
	case hasDates:
		if p.StartDate == nil || p.EndDate == nil {
			return Window{}, fmt.Errorf("%w: startDate and endDate must be given together", ErrInvalidFilter)
		}
		return Between(*p.StartDate, *p.EndDate, loc)
	case p.Month != "":
		return MonthWindow(p.Month, loc)
	default:
		return DefaultWindow(now, loc), nil
	}
}

// Between spans the calendar day of start at 00:00:00 to the calendar day of
// end at 23:59:59.999.
func Between(start, end time.Time, loc *time.Location) (Window, error) {
	w := Window{Start: startOfDay(start, loc), End: endOfDay(end, loc)}
	if w.End.Before(w.Start) {
		return Window{}, fmt.Errorf("%w: startDate %s is after endDate %s", ErrInvalidFilter,
			start.Format(DateLayout), end.Format(DateLayout))
	}
	return w, nil
}

func MonthWindow(month string, loc *time.Location) (Window, error) {
	m, err := time.ParseInLocation(MonthLayout, strings.TrimSpace(month), loc)
	if err != nil {
		return Window{}, fmt.Errorf("%w: month %q is not YYYY-MM", ErrInvalidFilter, month)
	}
	first := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, loc)
	return Window{Start: first, End: first.AddDate(0, 1, 0).Add(-time.Millisecond)}, nil
}

// DefaultWindow is the last completed Friday..Thursday span. On a Thursday
// the window ends today.
func DefaultWindow(now time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	today := startOfDay(now.In(loc), loc)
	back := (int(today.Weekday()) - int(time.Thursday) + 7) % 7
	thursday := today.AddDate(0, 0, -back)
	friday := thursday.AddDate(0, 0, -6)
	return Window{Start: friday, End: endOfDay(thursday, loc)}
}

// Filter keeps records created inside w. Records without a parseable
// creation time are always dropped.
func Filter(records []types.NormalizedIncident, w Window) []types.NormalizedIncident {
	out := make([]types.NormalizedIncident, 0, len(records))
	for _, r := range records {
		if r.HasCreatedAt && w.Contains(r.CreatedAt) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByRange resolves p and filters in one step.
func FilterByRange(records []types.NormalizedIncident, p Params, now time.Time, loc *time.Location) ([]types.NormalizedIncident, Window, error) {
	w, err := Resolve(p, now, loc)
	if err != nil {
		return nil, Window{}, err
	}
	return Filter(records, w), w, nil
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return startOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
}
