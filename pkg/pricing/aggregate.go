package pricing

import (
	"fmt"
	"time"

	"github.com/coopernico/coopernico/pkg/types"
)

// Aggregates are the per-run statistics derived from the composed series.
// Everything is recomputed from the full series on every run; there is no
// incremental state.
type Aggregates struct {
	// Current is the latest composed retail price at or before now, nil if
	// every interval is still in the future.
	Current *float64

	// Hourly maps always carry all 24 hour keys; hours without ticks are nil.
	HourlyToday    map[string]*float64
	HourlyTomorrow map[string]*float64

	// Interval maps only carry keys for intervals that were observed.
	Interval15Today    map[string]float64
	Interval15Tomorrow map[string]float64

	DailyAverageToday    *float64
	DailyAverageTomorrow *float64
}

// Aggregate derives all downstream views from the composed series. Today and
// tomorrow are relative to now's date in Lisbon.
func Aggregate(composed []types.ComposedPrice, now time.Time) Aggregates {
	now = now.In(types.LisbonTZ)
	today := midnight(now)
	tomorrow := today.AddDate(0, 0, 1)

	var current *float64
	var currentTS time.Time

	days := map[time.Time]*dayStats{
		today:    {intervals: make(map[string]float64)},
		tomorrow: {intervals: make(map[string]float64)},
	}

	for _, cp := range composed {
		ts := cp.TS.In(types.LisbonTZ)
		if !ts.After(now) && (current == nil || ts.After(currentTS)) {
			v := cp.RetailEURPerKWH
			current = &v
			currentTS = ts
		}

		stats, ok := days[midnight(ts)]
		if !ok {
			continue
		}
		h := ts.Hour()
		stats.hourSum[h] += cp.RetailEURPerKWH
		stats.hourCount[h]++
		stats.totalSum += cp.RetailEURPerKWH
		stats.totalCount++
		stats.intervals[intervalKey(ts)] = cp.RetailEURPerKWH
	}

	agg := Aggregates{
		Current:            current,
		HourlyToday:        hourlyMap(days[today]),
		HourlyTomorrow:     hourlyMap(days[tomorrow]),
		Interval15Today:    days[today].intervals,
		Interval15Tomorrow: days[tomorrow].intervals,
	}
	if days[today].totalCount > 0 {
		v := days[today].totalSum / float64(days[today].totalCount)
		agg.DailyAverageToday = &v
	}
	if days[tomorrow].totalCount > 0 {
		v := days[tomorrow].totalSum / float64(days[tomorrow].totalCount)
		agg.DailyAverageTomorrow = &v
	}
	return agg
}

type dayStats struct {
	hourSum    [24]float64
	hourCount  [24]int
	intervals  map[string]float64
	totalSum   float64
	totalCount int
}

func hourlyMap(stats *dayStats) map[string]*float64 {
	m := make(map[string]*float64, 24)
	for h := 0; h < 24; h++ {
		key := fmt.Sprintf("H%02d", h)
		if stats.hourCount[h] == 0 {
			m[key] = nil
			continue
		}
		v := stats.hourSum[h] / float64(stats.hourCount[h])
		m[key] = &v
	}
	return m
}

// intervalKey renders the 15-minute bucket of a timestamp, flooring the
// minute to 0, 15, 30 or 45.
func intervalKey(ts time.Time) string {
	return fmt.Sprintf("H%02dM%02d", ts.Hour(), ts.Minute()-ts.Minute()%15)
}
