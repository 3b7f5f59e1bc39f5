package domain

import "strings"

const (
	// UnknownArtist marks feed titles that could not be split into artist and album.
	// Items carrying it are low-confidence, not empty.
	UnknownArtist = "Unknown Artist"

	// NotGeneratedWeekID is reported by the read path before the first successful run.
	NotGeneratedWeekID = "not generated"

	// MaxRanked is the size of the weekly list.
	MaxRanked = 20

	// MaxSourceLinks caps the source links kept per candidate.
	MaxSourceLinks = 3
)

// SourceSignal identifies one editorial source and its contribution to scoring.
type SourceSignal struct {
	Label  string
	Weight float64
}

// RawExtraction is one parsed album mention from one source page or feed item.
type RawExtraction struct {
	ArtistName  string
	AlbumName   string
	SourceURL   string
	SignalLabel string
}

// SourceLink points back to the page an album was found on.
type SourceLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Candidate is a merged album across all sources.
type Candidate struct {
	ArtistName  string
	AlbumName   string
	Signals     []string
	SourceLinks []SourceLink
	Score       float64
}

// Key returns the case-insensitive identity of the candidate.
func (c Candidate) Key() string {
	return IdentityKey(c.ArtistName, c.AlbumName)
}

// HasUnknownArtist reports whether the artist is the low-confidence sentinel.
func (c Candidate) HasUnknownArtist() bool {
	return c.ArtistName == UnknownArtist
}

// RankedItem is a candidate with its position in the weekly list.
type RankedItem struct {
	Rank int
	Candidate
}

// EnrichmentRequest is what the text-generation service sees for one ranked item.
type EnrichmentRequest struct {
	Rank       int      `json:"rank"`
	ArtistName string   `json:"artistName"`
	AlbumName  string   `json:"albumName"`
	Signals    []string `json:"signals"`
}

// Enrichment carries generated text for one rank. ArtistName is only set when the
// service proposes a correction.
type Enrichment struct {
	Rank            int    `json:"rank"`
	ArtistName      string `json:"artistName"`
	ArtistSummary   string `json:"artistSummary"`
	EditorialReview string `json:"editorialReview"`
}

// Links holds derived search URLs.
type Links struct {
	YouTubeMusic string `json:"youtubeMusic"`
	SoundCloud   string `json:"soundcloud"`
}

// WeeklyItem is the persisted per-entry record.
type WeeklyItem struct {
	Rank            int          `json:"rank"`
	ArtistName      string       `json:"artistName"`
	AlbumName       string       `json:"albumName"`
	Signals         []string     `json:"signals"`
	ArtistSummary   string       `json:"artistSummary"`
	EditorialReview string       `json:"editorialReview"`
	Links           Links        `json:"links"`
	SourceLinks     []SourceLink `json:"sourceLinks"`
}

// WeeklySnapshot is the single live list.
type WeeklySnapshot struct {
	WeekID string       `json:"weekId"`
	Items  []WeeklyItem `json:"items"`
}

// PlaceholderSnapshot is returned when nothing has been generated yet.
func PlaceholderSnapshot() WeeklySnapshot {
	return WeeklySnapshot{WeekID: NotGeneratedWeekID, Items: []WeeklyItem{}}
}

// IdentityKey normalizes an (artist, album) pair for grouping.
func IdentityKey(artist, album string) string {
	return normalize(artist) + "\x00" + normalize(album)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
