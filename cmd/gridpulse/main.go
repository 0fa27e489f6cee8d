package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridpulse/gridpulse/pkg/coordinator"
	"github.com/gridpulse/gridpulse/pkg/log"
	"github.com/gridpulse/gridpulse/pkg/server"
	"github.com/gridpulse/gridpulse/pkg/sources"
	"github.com/gridpulse/gridpulse/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	src := sources.Configured()
	db := storage.Configured()
	coord := coordinator.Configured(src, db)

	// init server
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

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	if err := src.Validate(); err != nil {
		slog.Error("invalid source configuration", "error", err)
		os.Exit(1)
	}
	if err := coord.Validate(); err != nil {
		slog.Error("invalid coordinator configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// the refresh loop and the API run side by side; either one failing
	// takes the process down
	errChan := make(chan error, 2)
	go func() {
		errChan <- coord.Run(ctx)
	}()
	go func() {
		errChan <- srv.Run(ctx)
	}()

	var failed bool
	for i := 0; i < 2; i++ {
		if err := <-errChan; err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "run failed", "error", err)
			failed = true
			cancel()
		}
	}
	if failed {
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "exited cleanly")
}
