package normalizer

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Layouts seen in ticket exports. Day-first for slashed dates.
var createdTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
	"Jan 2, 2006 03:04 PM",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

// Serial bounds accepted as dates: 1970-01-01 through 9999-12-31. Smaller
// or larger numbers are ids or compact dates like 20241007, not serials.
const (
	minSerial = 25569
	maxSerial = 2958465
)

// ParseCreatedTime accepts an Excel serial date or one of the known textual
// layouts. The result is always in loc, also for inputs carrying their own
// offset. ok is false when nothing matches.
func ParseCreatedTime(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minSerial || serial > maxSerial {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		// serials carry wall-clock time only
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), true
	}
	for _, layout := range createdTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}
