package aggregator

import (
	"sort"
	"time"

	"tisops-insights-go/internal/types"
)

type WeekBucket struct {
	WeekNumber int     `json:"weekNumber"`
	Year       int     `json:"year"`
	Count      int     `json:"count"`
	StartDate  string  `json:"startDate"`
	EndDate    string  `json:"endDate"`
	Percentage float64 `json:"percentage"`
}

type IncidentsByWeek struct {
	Data           []WeekBucket `json:"data"`
	TotalIncidents int          `json:"totalIncidents"`
}

type isoWeek struct{ year, week int }

// BuildIncidentsByWeek buckets by ISO week of the creation time, Monday to
// Sunday. Records without a creation time are skipped.
func BuildIncidentsByWeek(records []types.NormalizedIncident, opts Options) IncidentsByWeek {
	records = selectRecords(records, opts)

	buckets := map[isoWeek]*WeekBucket{}
	total := 0
	for _, r := range records {
		if !r.HasCreatedAt {
			continue
		}
		total++
		y, w := r.CreatedAt.ISOWeek()
		key := isoWeek{y, w}
		b, ok := buckets[key]
		if !ok {
			monday := mondayOf(r.CreatedAt)
			b = &WeekBucket{
				WeekNumber: w,
				Year:       y,
				StartDate:  monday.Format("2006-01-02"),
				EndDate:    monday.AddDate(0, 0, 6).Format("2006-01-02"),
			}
			buckets[key] = b
		}
		b.Count++
	}

	keys := make([]isoWeek, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].week < keys[j].week
	})

	out := IncidentsByWeek{Data: []WeekBucket{}, TotalIncidents: total}
	for _, k := range keys {
		b := buckets[k]
		b.Percentage = Percentage(b.Count, total)
		out.Data = append(out.Data, *b)
	}
	return out
}

func mondayOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
