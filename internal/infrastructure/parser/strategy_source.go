package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"WeeklyTop/internal/config"
	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/metrics"
	"WeeklyTop/internal/ports"
	"WeeklyTop/internal/scanner"
)

// StrategySource implements CandidateSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	sources     []config.SourceConfig
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Manager
}

var _ ports.CandidateSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, concurrency int, log *slog.Logger, m *metrics.Manager) *StrategySource {
	if concurrency < 1 {
		concurrency = 1
	}
	return &StrategySource{
		registry:    reg,
		sources:     sources,
		concurrency: concurrency,
		logger:      log,
		metrics:     m,
	}
}

// Collect scans every source in parallel. A failing source is logged and
// skipped; results keep configuration order so merging stays deterministic.
func (s *StrategySource) Collect(ctx context.Context) []domain.RawExtraction {
	s.debug("collect", "sources", len(s.sources))

	slots := make([][]domain.RawExtraction, len(s.sources))
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, src := range s.sources {
		g.Go(func() error {
			results, err := s.scanSource(ctx, src)
			if err != nil {
				s.warn("source skipped", "source", src.Label, "url", src.URL, "error", err)
				s.metrics.RecordSourceFailure(src.Label)
				return nil
			}
			s.debug("source produced extractions", "source", src.Label, "count", len(results))
			s.metrics.RecordExtractions(src.Label, len(results))
			slots[i] = results
			return nil
		})
	}
	_ = g.Wait()

	var aggregated []domain.RawExtraction
	for _, results := range slots {
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_extractions", len(aggregated))
	return aggregated
}

func (s *StrategySource) scanSource(ctx context.Context, src config.SourceConfig) ([]domain.RawExtraction, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(src.Kind)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", src.Label, err)
	}

	results, err := strategy.Scan(ctx, scanner.Request{
		Signal:  src.Signal(),
		URL:     src.URL,
		Options: src.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", src.Label, err)
	}

	for i := range results {
		if results[i].SignalLabel == "" {
			results[i].SignalLabel = src.Label
		}
		if results[i].SourceURL == "" {
			results[i].SourceURL = src.URL
		}
	}
	return results, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
