package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/metrics"
	"WeeklyTop/internal/ports"
	"WeeklyTop/internal/ranking"
	"WeeklyTop/internal/snapshot"
)

// NoteNoCandidates accompanies a run that found nothing to rank.
const NoteNoCandidates = "no candidates"

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.CandidateSource
	Enricher ports.Enricher
	Store    ports.SnapshotStore
	Weights  map[string]float64
	Limit    int
	Logger   *slog.Logger
	Metrics  *metrics.Manager
}

// Pipeline implements the weekly refresh workflow.
type Pipeline struct {
	source   ports.CandidateSource
	enricher ports.Enricher
	store    ports.SnapshotStore
	weights  map[string]float64
	limit    int
	logger   *slog.Logger
	metrics  *metrics.Manager
}

// RefreshResult summarizes a completed run.
type RefreshResult struct {
	WeekID string
	Count  int
	Note   string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger != nil {
		logger = logger.With("component", "pipeline")
	}
	return &Pipeline{
		source:   deps.Source,
		enricher: deps.Enricher,
		store:    deps.Store,
		weights:  deps.Weights,
		limit:    deps.Limit,
		logger:   logger,
		metrics:  deps.Metrics,
	}
}

// Refresh collects, ranks, enriches and persists the list for the week of now.
// Source and enrichment failures degrade the result; only a persistence failure
// fails the run.
func (p *Pipeline) Refresh(ctx context.Context, now time.Time) (RefreshResult, error) {
	if p.store == nil {
		return RefreshResult{}, fmt.Errorf("pipeline has no snapshot store")
	}
	started := time.Now()
	log := p.runLogger()

	var extractions []domain.RawExtraction
	if p.source != nil {
		extractions = p.source.Collect(ctx)
	}
	candidates := ranking.Merge(extractions, p.weights)
	ranked := ranking.Rank(candidates, p.weights, p.limit)
	p.metrics.SetCandidates(len(candidates))
	p.metrics.SetRanked(len(ranked))
	p.info(log, "ranked", "extractions", len(extractions), "candidates", len(candidates), "ranked", len(ranked))

	enrichments := p.enrich(ctx, log, ranked)
	snap := snapshot.Build(now, ranked, enrichments)

	if err := p.store.Save(ctx, snap); err != nil {
		p.metrics.RecordRun(metrics.OutcomePersistError, time.Since(started))
		if log != nil {
			log.Error("persist snapshot", "week_id", snap.WeekID, "error", err)
		}
		return RefreshResult{}, fmt.Errorf("persist snapshot: %w", err)
	}

	result := RefreshResult{WeekID: snap.WeekID, Count: len(snap.Items)}
	outcome := metrics.OutcomeSuccess
	if result.Count == 0 {
		result.Note = NoteNoCandidates
		outcome = metrics.OutcomeEmpty
	}
	p.metrics.RecordRun(outcome, time.Since(started))
	p.info(log, "refresh complete", "week_id", result.WeekID, "count", result.Count, "took", time.Since(started))
	return result, nil
}

// Current returns the stored snapshot or the placeholder when none is readable.
func (p *Pipeline) Current(ctx context.Context) domain.WeeklySnapshot {
	if p.store == nil {
		return domain.PlaceholderSnapshot()
	}
	snap, found, err := p.store.Current(ctx)
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("read snapshot", "error", err)
		}
		return domain.PlaceholderSnapshot()
	}
	if !found {
		return domain.PlaceholderSnapshot()
	}
	return snap
}

func (p *Pipeline) enrich(ctx context.Context, log *slog.Logger, ranked []domain.RankedItem) []domain.Enrichment {
	if len(ranked) == 0 || p.enricher == nil {
		return nil
	}

	requests := make([]domain.EnrichmentRequest, 0, len(ranked))
	for _, item := range ranked {
		requests = append(requests, domain.EnrichmentRequest{
			Rank:       item.Rank,
			ArtistName: item.ArtistName,
			AlbumName:  item.AlbumName,
			Signals:    item.Signals,
		})
	}

	enrichments, err := p.enricher.Enrich(ctx, requests)
	if err != nil {
		reason := failureReason(err)
		p.metrics.RecordEnrichmentFailure(reason)
		if log != nil {
			log.Warn("enrichment unavailable, publishing without text", "reason", reason, "error", err)
		}
		return nil
	}
	return enrichments
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ports.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (p *Pipeline) runLogger() *slog.Logger {
	if p.logger == nil {
		return nil
	}
	return p.logger.With("run_id", uuid.NewString())
}

func (p *Pipeline) info(log *slog.Logger, msg string, args ...any) {
	if log == nil {
		return
	}
	log.Info(msg, args...)
}
