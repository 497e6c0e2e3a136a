// Package sensor is the presentation fan-out over a price snapshot: one
// stateless reader per exposed value (current price, daily averages, hourly
// and quarter-hour buckets). Sensors hold no data themselves; they know
// which key of the snapshot to read and how to label it.
package sensor

import (
	"fmt"
	"math"

	"github.com/coopernico/coopernico/pkg/types"
)

// Unit is the display unit for every price sensor.
const Unit = "EUR/kWh"

// Day selects which rolling day a sensor reads.
type Day string

const (
	DayToday    Day = "today"
	DayTomorrow Day = "tomorrow"
)

func (d Day) label() string {
	if d == DayTomorrow {
		return "Tomorrow"
	}
	return "Today"
}

// Kind is the sensor family.
type Kind string

const (
	KindCurrent      Kind = "current"
	KindDailyAverage Kind = "daily_average"
	KindHourly       Kind = "hourly"
	KindQuarterHour  Kind = "quarter_hour"
)

// Sensor is a stateless reader keyed by (day, hour, minute). Values are
// looked up in a snapshot at read time and rounded to 4 decimal places for
// display; a missing key reads as unknown, never as an error.
type Sensor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Day  Day    `json:"day,omitempty"`
	Hour int    `json:"hour,omitempty"`
	// Minute is the floored quarter-hour offset (0, 15, 30, 45) for
	// quarter-hour sensors.
	Minute int `json:"minute,omitempty"`
}

// Value reads the sensor's value out of the snapshot. The second return is
// false when the snapshot has no value for this sensor.
func (s Sensor) Value(snap types.Snapshot) (float64, bool) {
	switch s.Kind {
	case KindCurrent:
		if snap.CurrentPrice == nil {
			return 0, false
		}
		return round4(*snap.CurrentPrice), true
	case KindDailyAverage:
		avg := snap.DailyAverageToday
		if s.Day == DayTomorrow {
			avg = snap.DailyAverageTomorrow
		}
		if avg == nil {
			return 0, false
		}
		return round4(*avg), true
	case KindHourly:
		hourly := snap.HourlyToday
		if s.Day == DayTomorrow {
			hourly = snap.HourlyTomorrow
		}
		v, ok := hourly[fmt.Sprintf("H%02d", s.Hour)]
		if !ok || v == nil {
			return 0, false
		}
		return round4(*v), true
	case KindQuarterHour:
		intervals := snap.Interval15Today
		if s.Day == DayTomorrow {
			intervals = snap.Interval15Tomorrow
		}
		v, ok := intervals[fmt.Sprintf("H%02dM%02d", s.Hour, s.Minute)]
		if !ok {
			return 0, false
		}
		return round4(v), true
	}
	return 0, false
}

// Catalog returns every sensor the integration exposes: the current price,
// two daily averages, 24 hourly sensors per day and 96 quarter-hour sensors
// per day.
func Catalog() []Sensor {
	sensors := []Sensor{
		{ID: "current_price", Name: "Coopernico Current Price", Kind: KindCurrent},
		{ID: "daily_today", Name: "Coopernico Daily Average (Today)", Kind: KindDailyAverage, Day: DayToday},
		{ID: "daily_tomorrow", Name: "Coopernico Daily Average (Tomorrow)", Kind: KindDailyAverage, Day: DayTomorrow},
	}

	for _, day := range []Day{DayToday, DayTomorrow} {
		for hour := 0; hour < 24; hour++ {
			sensors = append(sensors, Sensor{
				ID:   fmt.Sprintf("hourly_%s_H%02d", day, hour),
				Name: fmt.Sprintf("Coopernico Hourly %s H%02d", day.label(), hour),
				Kind: KindHourly,
				Day:  day,
				Hour: hour,
			})
		}
	}
	for _, day := range []Day{DayToday, DayTomorrow} {
		for hour := 0; hour < 24; hour++ {
			for _, minute := range []int{0, 15, 30, 45} {
				sensors = append(sensors, Sensor{
					ID:     fmt.Sprintf("q15_%s_H%02dM%02d", day, hour, minute),
					Name:   fmt.Sprintf("Coopernico 15min %s %02d:%02d", day.label(), hour, minute),
					Kind:   KindQuarterHour,
					Day:    day,
					Hour:   hour,
					Minute: minute,
				})
			}
		}
	}
	return sensors
}

// Reading is one sensor's value against a snapshot, as served by the API.
// Value is nil when the snapshot has no data for the sensor.
type Reading struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Unit       string   `json:"unit"`
	Value      *float64 `json:"value"`
	LastUpdate string   `json:"lastUpdate"`
}

// Readings evaluates the whole catalog against a snapshot.
func Readings(snap types.Snapshot) []Reading {
	catalog := Catalog()
	readings := make([]Reading, 0, len(catalog))
	for _, s := range catalog {
		r := Reading{
			ID:         s.ID,
			Name:       s.Name,
			Unit:       Unit,
			LastUpdate: snap.LastUpdate,
		}
		if v, ok := s.Value(snap); ok {
			r.Value = &v
		}
		readings = append(readings, r)
	}
	return readings
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
