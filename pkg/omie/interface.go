package omie

import (
	"context"
	"time"

	"github.com/coopernico/coopernico/pkg/types"
)

// Source defines the interface for fetching day-ahead wholesale market
// results. One call covers one calendar day; a day with no published results
// returns an empty slice, not an error.
type Source interface {
	// FetchDay returns the settlement-period rows for the given calendar
	// day. Row schemas vary between sources; prices are in EUR/MWh.
	FetchDay(ctx context.Context, day time.Time) ([]types.MarketRow, error)
}
