package types

// Snapshot is the full output of one pipeline run. It is rebuilt from
// scratch on every run; consumers diff by value, never by reference.
//
// Hourly maps always carry all 24 hour keys (H00..H23) with nil for hours
// that had no ticks. Interval maps only carry keys (H{hh}M{mm}, mm floored
// to 0/15/30/45) for intervals that were actually observed.
type Snapshot struct {
	CurrentPrice *float64 `json:"currentPrice"`
	// CurrentTS is the RFC3339 Europe/Lisbon timestamp the run was
	// evaluated at.
	CurrentTS string `json:"currentTS"`

	HourlyToday    map[string]*float64 `json:"hourlyToday"`
	HourlyTomorrow map[string]*float64 `json:"hourlyTomorrow"`

	Interval15Today    map[string]float64 `json:"interval15Today"`
	Interval15Tomorrow map[string]float64 `json:"interval15Tomorrow"`

	DailyAverageToday    *float64 `json:"dailyAverageToday"`
	DailyAverageTomorrow *float64 `json:"dailyAverageTomorrow"`

	LastUpdate string `json:"lastUpdate"`
}
