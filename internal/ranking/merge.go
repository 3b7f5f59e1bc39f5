// Package ranking merges album mentions across sources and orders them by
// weighted editorial signal.
package ranking

import (
	"sort"
	"strings"

	"WeeklyTop/internal/domain"
)

type weightedLink struct {
	link   domain.SourceLink
	weight float64
}

type group struct {
	candidate domain.Candidate
	signals   map[string]struct{}
	urls      map[string]struct{}
	links     []weightedLink
}

// Merge groups extractions by case-insensitive (artist, album) identity. Output
// follows first-encounter order; signals keep first-seen order; links are
// ordered by source weight (stable) and capped at domain.MaxSourceLinks.
func Merge(extractions []domain.RawExtraction, weights map[string]float64) []domain.Candidate {
	index := make(map[string]int, len(extractions))
	groups := make([]*group, 0, len(extractions))

	for _, ex := range extractions {
		artist := strings.TrimSpace(ex.ArtistName)
		album := strings.TrimSpace(ex.AlbumName)
		if artist == "" || album == "" {
			continue
		}

		key := domain.IdentityKey(artist, album)
		pos, ok := index[key]
		if !ok {
			pos = len(groups)
			index[key] = pos
			groups = append(groups, &group{
				candidate: domain.Candidate{ArtistName: artist, AlbumName: album},
				signals:   map[string]struct{}{},
				urls:      map[string]struct{}{},
			})
		}
		g := groups[pos]

		label := strings.TrimSpace(ex.SignalLabel)
		if label != "" {
			if _, seen := g.signals[label]; !seen {
				g.signals[label] = struct{}{}
				g.candidate.Signals = append(g.candidate.Signals, label)
			}
		}

		link := strings.TrimSpace(ex.SourceURL)
		if link != "" {
			if _, seen := g.urls[link]; !seen {
				g.urls[link] = struct{}{}
				g.links = append(g.links, weightedLink{
					link:   domain.SourceLink{Label: label, URL: link},
					weight: weights[label],
				})
			}
		}
	}

	candidates := make([]domain.Candidate, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.links, func(i, j int) bool {
			return g.links[i].weight > g.links[j].weight
		})
		n := min(len(g.links), domain.MaxSourceLinks)
		g.candidate.SourceLinks = make([]domain.SourceLink, 0, n)
		for _, wl := range g.links[:n] {
			g.candidate.SourceLinks = append(g.candidate.SourceLinks, wl.link)
		}
		if g.candidate.Signals == nil {
			g.candidate.Signals = []string{}
		}
		candidates = append(candidates, g.candidate)
	}

	return candidates
}
