package parser

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"WeeklyTop/internal/config"
	"WeeklyTop/internal/domain"
	"WeeklyTop/internal/ports"
	"WeeklyTop/internal/scanner"
)

const (
	defaultLinkSelector = `a[href*="/reviews/albums/"]`
	defaultMaxPages     = 24
)

// FeedScanner reads RSS/Atom feeds and splits item titles.
type FeedScanner struct {
	fetcher ports.Fetcher
}

// NewFeedScanner wires the shared fetcher.
func NewFeedScanner(f ports.Fetcher) *FeedScanner {
	return &FeedScanner{fetcher: f}
}

// Name identifies the strategy inside the registry.
func (s *FeedScanner) Name() string { return config.KindFeed }

// Scan fetches and parses one feed.
func (s *FeedScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawExtraction, error) {
	body, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	return ParseFeed(body, req.URL, req.Signal.Label)
}

// PageScanner reads a single album review page.
type PageScanner struct {
	fetcher ports.Fetcher
}

// NewPageScanner wires the shared fetcher.
func NewPageScanner(f ports.Fetcher) *PageScanner {
	return &PageScanner{fetcher: f}
}

// Name identifies the strategy inside the registry.
func (s *PageScanner) Name() string { return config.KindPage }

// Scan fetches the page; an unparseable page yields no extraction, not an error.
func (s *PageScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawExtraction, error) {
	body, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	extraction, ok, err := ParsePage(body, req.URL, req.Signal.Label)
	if err != nil || !ok {
		return nil, err
	}
	return []domain.RawExtraction{extraction}, nil
}

// ListingScanner follows review links from an index page.
type ListingScanner struct {
	fetcher ports.Fetcher
	logger  *slog.Logger
}

// NewListingScanner wires the shared fetcher; log may be nil.
func NewListingScanner(f ports.Fetcher, log *slog.Logger) *ListingScanner {
	return &ListingScanner{fetcher: f, logger: log}
}

// Name identifies the strategy inside the registry.
func (s *ListingScanner) Name() string { return config.KindListing }

// Scan walks the index page and parses each linked review. A review page that
// fails is skipped; only the index page failing fails the source.
func (s *ListingScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.RawExtraction, error) {
	maxPages, err := strconv.Atoi(req.Option("maxPages", strconv.Itoa(defaultMaxPages)))
	if err != nil || maxPages < 1 {
		return nil, fmt.Errorf("listing %s: invalid maxPages option %q", req.Signal.Label, req.Options["maxPages"])
	}

	index, err := s.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	links, err := ListingLinks(index, req.URL, req.Option("linkSelector", defaultLinkSelector), maxPages)
	if err != nil {
		return nil, err
	}
	s.debug("listing links", "source", req.Signal.Label, "links", len(links))

	results := make([]domain.RawExtraction, 0, len(links))
	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := s.fetcher.Fetch(ctx, link)
		if err != nil {
			s.warn("review page skipped", "source", req.Signal.Label, "url", link, "error", err)
			continue
		}

		extraction, ok, err := ParsePage(body, link, req.Signal.Label)
		if err != nil {
			s.warn("review page unparseable", "source", req.Signal.Label, "url", link, "error", err)
			continue
		}
		if !ok {
			s.debug("review page without album", "source", req.Signal.Label, "url", link)
			continue
		}
		results = append(results, extraction)
	}

	return results, nil
}

func (s *ListingScanner) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *ListingScanner) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// NewRegistry registers the feed, page and listing strategies on one fetcher.
func NewRegistry(f ports.Fetcher, log *slog.Logger) *scanner.Registry {
	reg := scanner.NewRegistry()
	reg.Register(NewFeedScanner(f))
	reg.Register(NewPageScanner(f))
	reg.Register(NewListingScanner(f, log))
	return reg
}
