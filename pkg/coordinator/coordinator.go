// Package coordinator drives the price pipeline: it fetches the wholesale
// window, runs normalization, composition and aggregation, and publishes the
// resulting snapshot for consumers. Runs are triggered on a cron schedule
// and recompute everything from scratch; a failed run never replaces the
// previously published snapshot.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/coopernico/coopernico/pkg/log"
	"github.com/coopernico/coopernico/pkg/omie"
	"github.com/coopernico/coopernico/pkg/pricing"
	"github.com/coopernico/coopernico/pkg/types"
	"github.com/levenlabs/go-lflag"
	"github.com/robfig/cron/v3"
)

var (
	// ErrNoData means the wholesale source returned no rows for any day in
	// the lookahead window.
	ErrNoData = errors.New("no wholesale data for any day in the window")
	// ErrNoPriceColumn means the source returned rows but the Portuguese
	// price column could not be resolved from their schema.
	ErrNoPriceColumn = errors.New("could not resolve a price column from the source schema")
)

// ProfileLoader supplies the loss-factor series, or reports that none is
// available.
type ProfileLoader interface {
	Load(ctx context.Context) ([]types.LossFactor, bool)
}

// Coordinator owns one pipeline instance and its published snapshot.
type Coordinator struct {
	source  omie.Source
	profile ProfileLoader
	params  *pricing.Params

	lookaheadDays int
	schedule      string
	runTimeout    time.Duration
	nowFn         func() time.Time

	mu     sync.RWMutex
	latest *types.Snapshot

	// deferred construction error, surfaced by Validate
	err error
}

// Configured sets up flags for the coordinator and returns the instance.
func Configured(src omie.Source, profile ProfileLoader, params *pricing.Params) *Coordinator {
	c := New(src, profile, params)
	schedule := lflag.String("refresh-schedule", "0 * * * *", "cron schedule for pipeline refreshes")
	lookahead := lflag.String("lookahead-days", "7", "days beyond today to request from the wholesale source")

	lflag.Do(func() {
		c.schedule = *schedule
		days, err := strconv.Atoi(*lookahead)
		if err != nil {
			c.err = fmt.Errorf("invalid lookahead-days (%s): %w", *lookahead, err)
			return
		}
		c.lookaheadDays = days
	})

	return c
}

// New builds a coordinator with the default hourly schedule and a 7-day
// lookahead window.
func New(src omie.Source, profile ProfileLoader, params *pricing.Params) *Coordinator {
	return &Coordinator{
		source:        src,
		profile:       profile,
		params:        params,
		lookaheadDays: 7,
		schedule:      "0 * * * *",
		runTimeout:    10 * time.Minute,
		nowFn:         time.Now,
	}
}

// Validate ensures the configuration is valid.
func (c *Coordinator) Validate() error {
	if c.err != nil {
		return c.err
	}
	if c.lookaheadDays < 0 {
		return fmt.Errorf("lookahead-days must not be negative: %d", c.lookaheadDays)
	}
	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid refresh-schedule (%s): %w", c.schedule, err)
	}
	return nil
}

// Latest returns the most recently published snapshot, if any run has
// succeeded yet.
func (c *Coordinator) Latest() (types.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.latest == nil {
		return types.Snapshot{}, false
	}
	return *c.latest, true
}

// Refresh runs the full pipeline once and publishes the snapshot on
// success. On failure the previously published snapshot stays in place.
func (c *Coordinator) Refresh(ctx context.Context) (types.Snapshot, error) {
	now := c.nowFn().In(types.LisbonTZ)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, types.LisbonTZ)
	dayEnd := dayStart.AddDate(0, 0, c.lookaheadDays)

	var rows []types.MarketRow
	for d := 0; d <= c.lookaheadDays; d++ {
		day := dayStart.AddDate(0, 0, d)
		dayRows, err := c.source.FetchDay(ctx, day)
		if err != nil {
			// a missing day degrades coverage, it does not fail the run
			log.Ctx(ctx).WarnContext(
				ctx,
				"failed to fetch wholesale data for day",
				slog.String("day", day.Format("2006-01-02")),
				slog.Any("error", err),
			)
			continue
		}
		rows = append(rows, dayRows...)
	}
	if len(rows) == 0 {
		return types.Snapshot{}, ErrNoData
	}

	ticks := pricing.Normalize(rows)
	if len(ticks) == 0 {
		return types.Snapshot{}, ErrNoPriceColumn
	}

	losses, ok := c.profile.Load(ctx)
	if !ok {
		log.Ctx(ctx).InfoContext(ctx, "loss profile unavailable, composing with zero loss factors")
	}

	composed := c.params.Compose(ticks, losses, dayStart, dayEnd)
	snap := pricing.Assemble(pricing.Aggregate(composed, now), now)

	c.mu.Lock()
	c.latest = &snap
	c.mu.Unlock()

	log.Ctx(ctx).InfoContext(
		ctx,
		"published price snapshot",
		slog.Int("ticks", len(ticks)),
		slog.Int("composed", len(composed)),
		slog.Bool("lossProfile", ok),
	)
	return snap, nil
}

// Run performs an immediate refresh and then refreshes on the configured
// schedule until the context is canceled. Scheduled runs never overlap; cron
// job invocations for one entry are serialized by the runner.
func (c *Coordinator) Run(ctx context.Context) error {
	c.refreshLogged(ctx)

	// the scheduler contract is that runs never overlap; skip a firing if
	// the previous refresh is somehow still going
	cr := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := cr.AddFunc(c.schedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), c.runTimeout)
		defer cancel()
		c.refreshLogged(log.With(runCtx, log.Ctx(ctx)))
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	cr.Start()
	log.Ctx(ctx).InfoContext(ctx, "refresh scheduler started", slog.String("schedule", c.schedule))

	<-ctx.Done()
	stopped := cr.Stop()
	// wait for an in-flight refresh to finish
	<-stopped.Done()
	log.Ctx(ctx).InfoContext(ctx, "refresh scheduler stopped")
	return nil
}

func (c *Coordinator) refreshLogged(ctx context.Context) {
	start := time.Now()
	if _, err := c.Refresh(ctx); err != nil {
		// the stale snapshot stays published; consumers keep the last
		// successful run
		log.Ctx(ctx).ErrorContext(ctx, "pipeline refresh failed", slog.Any("error", err))
		return
	}
	log.Ctx(ctx).InfoContext(ctx, "pipeline refresh finished", slog.Duration("duration", time.Since(start)))
}
