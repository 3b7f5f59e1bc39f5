package ports

import (
	"context"
	"errors"

	"WeeklyTop/internal/domain"
)

// Fetcher retrieves raw page or feed bytes.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CandidateSource pulls album mentions from every configured editorial source.
// Individual source failures are contained; only the aggregate is returned.
type CandidateSource interface {
	Collect(ctx context.Context) []domain.RawExtraction
}

// Enricher asks a text-generation service for summaries of the ranked list.
type Enricher interface {
	Enrich(ctx context.Context, items []domain.EnrichmentRequest) ([]domain.Enrichment, error)
}

// SnapshotStore persists the single current weekly snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot domain.WeeklySnapshot) error
	// Current reports found=false when no snapshot was ever written.
	Current(ctx context.Context) (domain.WeeklySnapshot, bool, error)
}

// Enricher failure classes. Implementations wrap these so callers can tell a
// misconfiguration from a transient outage.
var (
	ErrMissingCredential = errors.New("enrichment api key is not configured")
	ErrRateLimited       = errors.New("enrichment service rate limited")
	ErrMalformedResponse = errors.New("malformed enrichment response")
)
