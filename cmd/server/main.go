// Command server runs the lineage engine's HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dota/internal/api"
	"dota/internal/config"
	"dota/internal/depindex"
	"dota/internal/service/lineage"
	"dota/internal/snapshot"
	"dota/internal/source/sqlitesrc"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	source, err := sqlitesrc.Open(cfg.CatalogDBPath)
	if err != nil {
		return err
	}
	defer source.Close()

	store := snapshot.NewStore(source, logger)
	idx := depindex.New(cfg.MaxRoutineScan)
	svc := lineage.NewService(store, idx, cfg.DefaultSchema, cfg.LineageMaxDepth, logger)

	// Warm the first snapshot; a cold mirror is not fatal, requests
	// retry the refresh lazily.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial catalog refresh failed", "error", err)
	}
	cancel()

	handler := api.NewHandler(svc, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
