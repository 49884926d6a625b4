package daterange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tisops-insights-go/internal/types"
)

var loc = time.FixedZone("UTC-5", -5*3600)

func TestDefaultWindow(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "wednesday rolls back to previous thursday",
			now:       time.Date(2025, 11, 26, 10, 0, 0, 0, loc),
			wantStart: "20251114",
			wantEnd:   "20251120",
		},
		{
			name:      "thursday ends today",
			now:       time.Date(2025, 11, 20, 8, 0, 0, 0, loc),
			wantStart: "20251114",
			wantEnd:   "20251120",
		},
		{
			name:      "friday starts a new week but window is the completed one",
			now:       time.Date(2025, 11, 21, 0, 0, 1, 0, loc),
			wantStart: "20251114",
			wantEnd:   "20251120",
		},
		{
			name:      "year boundary",
			now:       time.Date(2026, 1, 2, 12, 0, 0, 0, loc),
			wantStart: "20251226",
			wantEnd:   "20260101",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DefaultWindow(tt.now, loc)
			assert.Equal(t, tt.wantStart, w.Start.Format("20060102"))
			assert.Equal(t, tt.wantEnd, w.End.Format("20060102"))
			assert.Equal(t, time.Friday, w.Start.Weekday())
			assert.Equal(t, time.Thursday, w.End.Weekday())
			assert.Equal(t, "00:00:00", w.Start.Format("15:04:05"))
			assert.Equal(t, "23:59:59", w.End.Format("15:04:05"))
		})
	}
}

func TestDefaultWindowUsesReportingTimezone(t *testing.T) {
	// 03:00 UTC Friday is still Thursday evening in UTC-5.
	now := time.Date(2025, 11, 21, 3, 0, 0, 0, time.UTC)
	w := DefaultWindow(now, loc)
	assert.Equal(t, "20251120", w.End.Format("20060102"))
}

func TestResolveValidation(t *testing.T) {
	d := time.Date(2024, 10, 7, 0, 0, 0, 0, loc)
	later := d.AddDate(0, 0, 3)
	tests := []struct {
		name string
		p    Params
	}{
		{"month and dates", Params{Month: "2024-10", StartDate: &d, EndDate: &later}},
		{"month and start only", Params{Month: "2024-10", StartDate: &d}},
		{"start without end", Params{StartDate: &d}},
		{"end without start", Params{EndDate: &d}},
		{"start after end", Params{StartDate: &later, EndDate: &d}},
		{"bad month", Params{Month: "10-2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.p, time.Now(), loc)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestResolveExplicitDatesInclusive(t *testing.T) {
	p, err := ParseParams("", "2024-10-07", "2024-10-13", loc)
	require.NoError(t, err)
	w, err := Resolve(p, time.Now(), loc)
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2024, 10, 7, 0, 0, 0, 0, loc)))
	assert.True(t, w.Contains(time.Date(2024, 10, 13, 23, 59, 59, 0, loc)))
	assert.False(t, w.Contains(time.Date(2024, 10, 6, 23, 59, 59, 0, loc)))
	assert.False(t, w.Contains(time.Date(2024, 10, 14, 0, 0, 0, 0, loc)))
}

func TestParseParamsRejectsBadDates(t *testing.T) {
	_, err := ParseParams("", "07/10/2024", "", loc)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = ParseParams("", "", "2024-13-01", loc)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestMonthWindow(t *testing.T) {
	w, err := MonthWindow("2024-02", loc)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-01 00:00", w.Start.Format("2006-01-02 15:04"))
	assert.Equal(t, "2024-02-29 23:59:59", w.End.Format("2006-01-02 15:04:05"))
}

func TestFilterDropsUnparsableTimestamps(t *testing.T) {
	w, err := MonthWindow("2024-10", loc)
	require.NoError(t, err)
	records := []types.NormalizedIncident{
		{RawIncident: types.RawIncident{RequestID: "in"}, CreatedAt: time.Date(2024, 10, 31, 23, 0, 0, 0, loc), HasCreatedAt: true},
		{RawIncident: types.RawIncident{RequestID: "out"}, CreatedAt: time.Date(2024, 11, 1, 0, 0, 0, 0, loc), HasCreatedAt: true},
		{RawIncident: types.RawIncident{RequestID: "nodate"}},
	}
	got := Filter(records, w)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].RequestID)
}

func TestFilterByRangeDefaultsToWeeklyWindow(t *testing.T) {
	now := time.Date(2025, 11, 26, 10, 0, 0, 0, loc)
	records := []types.NormalizedIncident{
		{RawIncident: types.RawIncident{RequestID: "fri"}, CreatedAt: time.Date(2025, 11, 14, 9, 0, 0, 0, loc), HasCreatedAt: true},
		{RawIncident: types.RawIncident{RequestID: "thu"}, CreatedAt: time.Date(2025, 11, 20, 18, 0, 0, 0, loc), HasCreatedAt: true},
		{RawIncident: types.RawIncident{RequestID: "current"}, CreatedAt: time.Date(2025, 11, 21, 9, 0, 0, 0, loc), HasCreatedAt: true},
	}
	got, w, err := FilterByRange(records, Params{}, now, loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-11-14..2025-11-20", w.String())
	assert.Len(t, got, 2)
}
