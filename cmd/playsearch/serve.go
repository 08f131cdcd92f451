package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/playsearch/internal/config"
	"github.com/kailas-cloud/playsearch/internal/tracing"
	chiTransport "github.com/kailas-cloud/playsearch/internal/transport/chi"
	"github.com/kailas-cloud/playsearch/internal/version"
)

func newServeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := g.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g.env, cfg, logger)
		},
	}
}

// initTracing is swapped in tests.
var initTracing = tracing.Init

func serve(ctx context.Context, env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting playsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_backend", cfg.VectorIndex.Backend),
		zap.String("llm_provider", cfg.LLM.Provider),
	)

	shutdownTracing, err := initTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Exporter:    cfg.Tracing.Exporter,
		Environment: env,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	// runs on every exit path, including a failed buildApp
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Tracing shutdown failed", zap.Error(err))
		}
	}()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server := chiTransport.NewServer(a.search, a.identity, a.health, chiTransport.Limits{
		SearchPerMinute: cfg.RateLimit.SearchPerMinute,
		LoginPerMinute:  cfg.RateLimit.LoginPerMinute,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Catalog.Watch {
		g.Go(func() error {
			// the last good snapshot keeps serving without the watcher
			if err := a.holder.Watch(gctx, cfg.Catalog.Path); err != nil {
				logger.Error("Catalog watcher stopped", zap.Error(err))
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
