package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"WeeklyTop/internal/config"
	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/infrastructure/fetcher"
	"WeeklyTop/internal/infrastructure/llm"
	"WeeklyTop/internal/infrastructure/parser"
	"WeeklyTop/internal/infrastructure/storage"
	"WeeklyTop/internal/logging"
	"WeeklyTop/internal/metrics"
	"WeeklyTop/internal/server"
	"WeeklyTop/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	metrics  *metrics.Manager
	store    storage.Store
	pipeline *usecase.Pipeline
}

// New validates the configuration, opens storage and builds the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return newWithStore(cfg, baseLogger, store), nil
}

func newWithStore(cfg config.Config, baseLogger *slog.Logger, store storage.Store) *Application {
	m := metrics.NewManager()

	f := fetcher.New(
		fetcher.WithClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		fetcher.WithUserAgent(cfg.Fetch.UserAgent),
		fetcher.WithMaxBodyBytes(cfg.Fetch.MaxBodyBytes),
		fetcher.WithHostInterval(cfg.Fetch.HostInterval),
	)
	registry := parser.NewRegistry(f, baseLogger.With("component", "scanner"))
	source := parser.NewStrategySource(registry, cfg.Sources, cfg.Fetch.Concurrency, baseLogger.With("component", "source"), m)

	if cfg.Enrichment.APIKey == "" {
		baseLogger.Warn("no enrichment api key configured, lists will be published without text")
	}
	enricher := llm.NewChatGPTClient(cfg.Enrichment, baseLogger, m)

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Enricher: enricher,
		Store:    store,
		Weights:  cfg.Weights(),
		Limit:    cfg.Ranking.Limit,
		Logger:   baseLogger,
		Metrics:  m,
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		metrics:  m,
		store:    store,
		pipeline: pipeline,
	}
}

// Refresh performs a single pipeline execution.
func (a *Application) Refresh(ctx context.Context) (usecase.RefreshResult, error) {
	return a.pipeline.Refresh(ctx, time.Now())
}

// Current returns the stored list or the placeholder.
func (a *Application) Current(ctx context.Context) domain.WeeklySnapshot {
	return a.pipeline.Current(ctx)
}

// Serve runs the HTTP API until ctx is done, then drains within the
// configured shutdown timeout.
func (a *Application) Serve(ctx context.Context) error {
	srv := server.New(server.Deps{
		Pipeline: a.pipeline,
		CronKey:  a.cfg.Server.CronKey,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
	if a.cfg.Server.CronKey == "" {
		a.logger.Warn("no cron key configured, refresh endpoint is open")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(a.cfg.Server.Addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// Close releases the storage connection.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
