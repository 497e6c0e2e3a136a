package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/coopernico/coopernico/pkg/coordinator"
	"github.com/coopernico/coopernico/pkg/log"
	"github.com/coopernico/coopernico/pkg/lossprofile"
	"github.com/coopernico/coopernico/pkg/omie"
	"github.com/coopernico/coopernico/pkg/pricing"
	"github.com/coopernico/coopernico/pkg/server"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	src := omie.Configured()
	profile := lossprofile.Configured()
	params := pricing.Configured()
	coord := coordinator.Configured(src, profile, params)
	srv := server.Configured(coord)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)
	slog.SetDefault(log.Default())
	slog.Debug("logger configured", slog.String("level", level.String()))

	for name, v := range map[string]interface{ Validate() error }{
		"omie":        src,
		"pricing":     params,
		"coordinator": coord,
	} {
		if err := v.Validate(); err != nil {
			slog.Error("invalid configuration", slog.String("component", name), slog.Any("error", err))
			os.Exit(1)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// the coordinator refreshes on its own schedule; the server just reads
	// whatever snapshot it last published
	coordDone := make(chan error, 1)
	go func() {
		coordDone <- coord.Run(ctx)
	}()

	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	if err := <-coordDone; err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "coordinator failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}
