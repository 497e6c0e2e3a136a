package pricing

import (
	"sort"
	"strings"

	"github.com/coopernico/coopernico/pkg/types"
)

// Normalize turns raw day-ahead rows into the canonical wholesale series:
// one tick per timestamp, Lisbon time, EUR/kWh, sorted ascending. Rows are
// expected in fetch order; a later row for the same timestamp replaces the
// earlier one. An empty result means the Portuguese price column could not
// be resolved or the source carried no usable rows.
func Normalize(rows []types.MarketRow) []types.Tick {
	col := resolvePriceColumn(columnNames(rows))
	if col == "" {
		return nil
	}

	seen := make(map[int64]int, len(rows))
	ticks := make([]types.Tick, 0, len(rows))
	for _, row := range rows {
		v, ok := row.Values[col]
		if !ok {
			continue
		}
		tick := types.Tick{
			TS: row.Start.In(types.LisbonTZ),
			// EUR/MWh to EUR/kWh
			EURPerKWH: v / 1000.0,
		}
		if i, dup := seen[tick.TS.Unix()]; dup {
			ticks[i] = tick
			continue
		}
		seen[tick.TS.Unix()] = len(ticks)
		ticks = append(ticks, tick)
	}

	sort.Slice(ticks, func(i, j int) bool {
		return ticks[i].TS.Before(ticks[j].TS)
	})
	return ticks
}

// columnNames returns the sorted union of column names across all rows so
// column resolution is deterministic regardless of map iteration order.
func columnNames(rows []types.MarketRow) []string {
	set := make(map[string]struct{})
	for _, row := range rows {
		for name := range row.Values {
			set[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolvePriceColumn finds the Portuguese marginal price column in an
// unknown schema. Preference order: a marginal-price column naming Portugal,
// then any column naming Portugal, then any generic price column that is not
// a period-boundary column. Returns "" when nothing matches.
func resolvePriceColumn(names []string) string {
	for _, name := range names {
		l := strings.ToLower(name)
		if (strings.Contains(l, "marginal") || strings.Contains(l, "precio")) &&
			(strings.Contains(l, "portugal") || strings.Contains(l, "portugus") || strings.Contains(l, "portugués")) {
			return name
		}
	}
	for _, name := range names {
		l := strings.ToLower(name)
		if strings.Contains(l, "portugal") || (strings.Contains(l, "pt") && strings.Contains(l, "price")) {
			return name
		}
	}
	for _, name := range names {
		l := strings.ToLower(name)
		if strings.Contains(l, "price") && !strings.Contains(l, "start") && !strings.Contains(l, "end") {
			return name
		}
	}
	return ""
}
