package pricing

import (
	"time"

	"github.com/coopernico/coopernico/pkg/types"
)

const mergeKeyLayout = "2006-01-02T15:04"

// floor15 floors a timestamp to the start of its 15-minute interval.
func floor15(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()-t.Minute()%15, 0, 0, t.Location())
}

// mergeKey renders the floored interval as a wall-clock key. Both series are
// normalized to Lisbon wall time, so keying on the rendered clock joins them
// without caring about the offset the source carried.
func mergeKey(t time.Time) string {
	return floor15(t).Format(mergeKeyLayout)
}

// Compose aligns the wholesale series with the loss-factor series and
// applies the billing formula per interval.
//
// When loss data covers the requested window, the join runs FROM the loss
// series: loss intervals without a wholesale tick are dropped and the output
// is clipped to the latest available wholesale interval, so the loss profile
// bounds the output range. When no loss data is available (absent table, or
// nothing inside the window) every wholesale tick is composed with a zero
// loss factor instead; missing loss data degrades the result, it never
// fails the run.
func (p *Params) Compose(ticks []types.Tick, losses []types.LossFactor, dayStart, dayEnd time.Time) []types.ComposedPrice {
	if len(ticks) == 0 {
		return nil
	}

	windowStart := midnight(dayStart)
	windowEnd := midnight(dayEnd).AddDate(0, 0, 1)
	var filtered []types.LossFactor
	for _, lf := range losses {
		if !lf.TS.Before(windowStart) && lf.TS.Before(windowEnd) {
			filtered = append(filtered, lf)
		}
	}
	if len(filtered) == 0 {
		return p.composeZeroLoss(ticks)
	}

	byKey := make(map[string]types.Tick, len(ticks))
	var latest time.Time
	for _, tick := range ticks {
		interval := floor15(tick.TS)
		byKey[interval.Format(mergeKeyLayout)] = tick
		if interval.After(latest) {
			latest = interval
		}
	}

	composed := make([]types.ComposedPrice, 0, len(filtered))
	for _, lf := range filtered {
		if lf.TS.After(latest) {
			continue
		}
		tick, ok := byKey[mergeKey(lf.TS)]
		if !ok {
			continue
		}
		composed = append(composed, types.ComposedPrice{
			TS:                 lf.TS,
			WholesaleEURPerKWH: tick.EURPerKWH,
			RetailEURPerKWH:    p.Retail(tick.EURPerKWH, lf.Factor),
		})
	}
	if len(composed) == 0 {
		return p.composeZeroLoss(ticks)
	}
	return composed
}

func (p *Params) composeZeroLoss(ticks []types.Tick) []types.ComposedPrice {
	composed := make([]types.ComposedPrice, 0, len(ticks))
	for _, tick := range ticks {
		composed = append(composed, types.ComposedPrice{
			TS:                 tick.TS,
			WholesaleEURPerKWH: tick.EURPerKWH,
			RetailEURPerKWH:    p.Retail(tick.EURPerKWH, 0),
		})
	}
	return composed
}

func midnight(t time.Time) time.Time {
	t = t.In(types.LisbonTZ)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, types.LisbonTZ)
}
