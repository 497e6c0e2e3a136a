package coordinator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coopernico/coopernico/pkg/pricing"
	"github.com/coopernico/coopernico/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceFunc func(ctx context.Context, day time.Time) ([]types.MarketRow, error)

func (f sourceFunc) FetchDay(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
	return f(ctx, day)
}

type profileFunc func(ctx context.Context) ([]types.LossFactor, bool)

func (f profileFunc) Load(ctx context.Context) ([]types.LossFactor, bool) {
	return f(ctx)
}

func noProfile() profileFunc {
	return func(ctx context.Context) ([]types.LossFactor, bool) { return nil, false }
}

func lisbon(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, types.LisbonTZ)
}

func testCoordinator(src sourceFunc, profile ProfileLoader, now time.Time) *Coordinator {
	c := New(src, profile, pricing.NewParams(0.009, 0.001, true, types.TariffSimple, true))
	c.nowFn = func() time.Time { return now }
	return c
}

func TestRefresh(t *testing.T) {
	now := lisbon(2026, 3, 10, 10, 30)
	today := lisbon(2026, 3, 10, 0, 0)

	t.Run("PublishesSnapshot", func(t *testing.T) {
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			if !day.Equal(today) {
				return nil, nil
			}
			return []types.MarketRow{
				{Start: lisbon(2026, 3, 10, 10, 0), Values: map[string]float64{"Marginal price Portugal": 50}},
				{Start: lisbon(2026, 3, 10, 10, 15), Values: map[string]float64{"Marginal price Portugal": 60}},
			}, nil
		})
		c := testCoordinator(src, noProfile(), now)

		snap, err := c.Refresh(context.Background())
		require.NoError(t, err)

		require.NotNil(t, snap.CurrentPrice)
		// latest tick at or before 10:30 is 10:15: 0.06 + 0.009 + 0.001
		assert.InDelta(t, 0.070, *snap.CurrentPrice, 1e-9)

		latest, ok := c.Latest()
		require.True(t, ok)
		assert.Equal(t, snap, latest)
	})

	t.Run("FetchesOnePerDayInWindow", func(t *testing.T) {
		var days []string
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			days = append(days, day.Format("2006-01-02"))
			return []types.MarketRow{
				{Start: day.Add(10 * time.Hour), Values: map[string]float64{"pt_price": 40}},
			}, nil
		})
		c := testCoordinator(src, noProfile(), now)

		_, err := c.Refresh(context.Background())
		require.NoError(t, err)

		require.Len(t, days, 8)
		assert.Equal(t, "2026-03-10", days[0])
		assert.Equal(t, "2026-03-17", days[7])
	})

	t.Run("NoDataFailsRun", func(t *testing.T) {
		empty := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			return nil, nil
		})
		c := testCoordinator(empty, noProfile(), now)

		_, err := c.Refresh(context.Background())
		require.ErrorIs(t, err, ErrNoData)

		_, ok := c.Latest()
		assert.False(t, ok)
	})

	t.Run("FailedRunKeepsPreviousSnapshot", func(t *testing.T) {
		var fail bool
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			if fail {
				return nil, errors.New("upstream down")
			}
			return []types.MarketRow{
				{Start: day.Add(10 * time.Hour), Values: map[string]float64{"pt_price": 40}},
			}, nil
		})
		c := testCoordinator(src, noProfile(), now)

		first, err := c.Refresh(context.Background())
		require.NoError(t, err)

		fail = true
		_, err = c.Refresh(context.Background())
		require.ErrorIs(t, err, ErrNoData)

		latest, ok := c.Latest()
		require.True(t, ok)
		assert.Equal(t, first, latest, "stale snapshot must survive a failed run")
	})

	t.Run("UnresolvableSchemaFailsRun", func(t *testing.T) {
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			return []types.MarketRow{
				{Start: day.Add(10 * time.Hour), Values: map[string]float64{"volume": 40}},
			}, nil
		})
		c := testCoordinator(src, noProfile(), now)

		_, err := c.Refresh(context.Background())
		require.ErrorIs(t, err, ErrNoPriceColumn)
	})

	t.Run("PerDayFailuresAreTolerated", func(t *testing.T) {
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			if !day.Equal(today) {
				return nil, fmt.Errorf("day %s not published", day.Format("2006-01-02"))
			}
			return []types.MarketRow{
				{Start: lisbon(2026, 3, 10, 10, 0), Values: map[string]float64{"pt_price": 40}},
			}, nil
		})
		c := testCoordinator(src, noProfile(), now)

		snap, err := c.Refresh(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap.CurrentPrice)
	})

	t.Run("LossProfileApplied", func(t *testing.T) {
		src := sourceFunc(func(ctx context.Context, day time.Time) ([]types.MarketRow, error) {
			if !day.Equal(today) {
				return nil, nil
			}
			return []types.MarketRow{
				{Start: lisbon(2026, 3, 10, 10, 0), Values: map[string]float64{"pt_price": 50}},
			}, nil
		})
		profile := profileFunc(func(ctx context.Context) ([]types.LossFactor, bool) {
			return []types.LossFactor{{TS: lisbon(2026, 3, 10, 10, 0), Factor: 0.1}}, true
		})
		c := testCoordinator(src, profile, now)

		snap, err := c.Refresh(context.Background())
		require.NoError(t, err)
		require.NotNil(t, snap.CurrentPrice)
		assert.InDelta(t, (0.05+0.009)*1.1+0.001, *snap.CurrentPrice, 1e-9)
	})
}

func TestValidate(t *testing.T) {
	c := testCoordinator(nil, noProfile(), time.Now())
	require.NoError(t, c.Validate())

	c.schedule = "not a schedule"
	require.Error(t, c.Validate())

	c.schedule = "0 * * * *"
	c.lookaheadDays = -1
	require.Error(t, c.Validate())
}
