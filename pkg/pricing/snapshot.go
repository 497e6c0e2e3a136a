package pricing

import (
	"time"

	"github.com/coopernico/coopernico/pkg/types"
)

// Assemble packages the aggregates with run metadata into the snapshot
// exposed to consumers. Pure assembly; both timestamps derive from the
// trigger time so two runs over the same inputs produce identical values.
func Assemble(agg Aggregates, now time.Time) types.Snapshot {
	ts := now.In(types.LisbonTZ).Format(time.RFC3339)
	return types.Snapshot{
		CurrentPrice:         agg.Current,
		CurrentTS:            ts,
		HourlyToday:          agg.HourlyToday,
		HourlyTomorrow:       agg.HourlyTomorrow,
		Interval15Today:      agg.Interval15Today,
		Interval15Tomorrow:   agg.Interval15Tomorrow,
		DailyAverageToday:    agg.DailyAverageToday,
		DailyAverageTomorrow: agg.DailyAverageTomorrow,
		LastUpdate:           ts,
	}
}
