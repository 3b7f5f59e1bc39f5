// Package snapshot assembles the persisted weekly record from ranked items and
// generated text. Everything here is pure.
package snapshot

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"WeeklyTop/internal/domain"
)

const (
	youTubeMusicSearch = "https://music.youtube.com/search?q=%s"
	soundCloudSearch   = "https://soundcloud.com/search?q=%s"
)

// Build merges ranked items with enrichments matched by rank. Missing
// enrichments become empty strings. Ranks must be dense from 1.
func Build(at time.Time, ranked []domain.RankedItem, enrichments []domain.Enrichment) domain.WeeklySnapshot {
	byRank := make(map[int]domain.Enrichment, len(enrichments))
	for _, e := range enrichments {
		if _, dup := byRank[e.Rank]; !dup {
			byRank[e.Rank] = e
		}
	}

	items := make([]domain.WeeklyItem, 0, len(ranked))
	for i, r := range ranked {
		if r.Rank != i+1 {
			panic(fmt.Sprintf("snapshot: rank %d at position %d", r.Rank, i))
		}

		e := byRank[r.Rank]
		artist := r.ArtistName
		if r.HasUnknownArtist() {
			if proposed := strings.TrimSpace(e.ArtistName); proposed != "" {
				artist = proposed
			}
		}

		items = append(items, domain.WeeklyItem{
			Rank:            r.Rank,
			ArtistName:      artist,
			AlbumName:       r.AlbumName,
			Signals:         nonNil(r.Signals),
			ArtistSummary:   strings.TrimSpace(e.ArtistSummary),
			EditorialReview: strings.TrimSpace(e.EditorialReview),
			Links:           SearchLinks(artist, r.AlbumName),
			SourceLinks:     nonNilLinks(r.SourceLinks),
		})
	}

	return domain.WeeklySnapshot{WeekID: domain.WeekID(at), Items: items}
}

// SearchLinks derives streaming search URLs from artist and album alone.
func SearchLinks(artist, album string) domain.Links {
	q := searchQuery(artist, album)
	return domain.Links{
		YouTubeMusic: fmt.Sprintf(youTubeMusicSearch, q),
		SoundCloud:   fmt.Sprintf(soundCloudSearch, q),
	}
}

func searchQuery(artist, album string) string {
	parts := make([]string, 0, 2)
	if a := strings.TrimSpace(artist); a != "" && a != domain.UnknownArtist {
		parts = append(parts, a)
	}
	if a := strings.TrimSpace(album); a != "" {
		parts = append(parts, a)
	}
	joined := strings.TrimSpace(strings.Join(parts, " "))
	// QueryEscape turns spaces into '+'; literal '+' is already %2B.
	return strings.ReplaceAll(url.QueryEscape(joined), "+", "%20")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilLinks(s []domain.SourceLink) []domain.SourceLink {
	if s == nil {
		return []domain.SourceLink{}
	}
	return s
}
