package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"WeeklyTop/internal/domain"
)

const (
	musicAlbumType    = "MusicAlbum"
	reviewTitleSuffix = "album review"
)

// Ordered by preference: the first one that splits a title into two
// non-empty parts wins.
var titleSeparators = []string{":", "–", "-", "—"}

// Keys under which JSON-LD documents nest the reviewed entity.
var nestedEntityKeys = []string{"@graph", "itemReviewed", "mainEntity", "about"}

var textPolicy = bluemonday.StrictPolicy()

// ParseFeed turns every feed item title into an (artist, album) mention.
func ParseFeed(content []byte, feedURL, label string) ([]domain.RawExtraction, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	results := make([]domain.RawExtraction, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		title := cleanText(item.Title)
		if title == "" {
			continue
		}

		artist, album := SplitTitle(title)
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = feedURL
		}

		results = append(results, domain.RawExtraction{
			ArtistName:  artist,
			AlbumName:   album,
			SourceURL:   link,
			SignalLabel: label,
		})
	}

	return results, nil
}

// SplitTitle splits a feed title into artist and album. Titles without a usable
// separator keep the whole text as album and carry the UnknownArtist sentinel.
func SplitTitle(title string) (string, string) {
	title = cleanText(title)
	for _, sep := range titleSeparators {
		idx := strings.Index(title, sep)
		if idx < 0 {
			continue
		}
		artist := strings.TrimSpace(title[:idx])
		album := strings.TrimSpace(title[idx+len(sep):])
		if artist != "" && album != "" {
			return artist, album
		}
	}
	return domain.UnknownArtist, title
}

// ParsePage extracts one album from a review page, preferring embedded JSON-LD
// over the <title> pattern. ok is false when neither yields artist and album.
func ParsePage(content []byte, pageURL, label string) (domain.RawExtraction, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return domain.RawExtraction{}, false, fmt.Errorf("parse document %s: %w", pageURL, err)
	}

	artist, album, ok := albumFromJSONLD(doc)
	if !ok {
		artist, album, ok = ParsePageTitle(doc.Find("title").First().Text())
	}
	if !ok {
		return domain.RawExtraction{}, false, nil
	}

	return domain.RawExtraction{
		ArtistName:  artist,
		AlbumName:   album,
		SourceURL:   pageURL,
		SignalLabel: label,
	}, true, nil
}

// ParsePageTitle handles "Artist: Album Album Review | Site".
func ParsePageTitle(title string) (string, string, bool) {
	t := cleanText(title)
	if idx := strings.LastIndex(t, " | "); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimSpace(t)
	if n := len(t) - len(reviewTitleSuffix); n >= 0 && strings.EqualFold(t[n:], reviewTitleSuffix) {
		t = strings.TrimSpace(t[:n])
	}

	idx := strings.Index(t, ":")
	if idx < 0 {
		return "", "", false
	}
	artist := strings.TrimSpace(t[:idx])
	album := strings.TrimSpace(t[idx+1:])
	if artist == "" || album == "" {
		return "", "", false
	}
	return artist, album, true
}

// ListingLinks collects review links from an index page in document order.
func ListingLinks(content []byte, pageURL, selector string, limit int) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing url %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", pageURL, err)
	}

	var links []string
	seen := map[string]struct{}{base.String(): {}}
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return limit <= 0 || len(links) < limit
	})

	return links, nil
}

func albumFromJSONLD(doc *goquery.Document) (string, string, bool) {
	var artist, album string
	var found bool

	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return true
		}
		artist, album, found = findAlbum(payload)
		return !found
	})

	return artist, album, found
}

func findAlbum(v any) (string, string, bool) {
	switch node := v.(type) {
	case []any:
		for _, child := range node {
			if artist, album, ok := findAlbum(child); ok {
				return artist, album, true
			}
		}
	case map[string]any:
		if isAlbumType(node["@type"]) {
			album := cleanText(stringValue(node["name"]))
			artist := cleanText(artistValue(node["byArtist"]))
			if artist != "" && album != "" {
				return artist, album, true
			}
		}
		for _, key := range nestedEntityKeys {
			if child, ok := node[key]; ok {
				if artist, album, ok := findAlbum(child); ok {
					return artist, album, true
				}
			}
		}
	}
	return "", "", false
}

func isAlbumType(v any) bool {
	switch t := v.(type) {
	case string:
		return t == musicAlbumType
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == musicAlbumType {
				return true
			}
		}
	}
	return false
}

func artistValue(v any) string {
	switch a := v.(type) {
	case string:
		return a
	case map[string]any:
		return stringValue(a["name"])
	case []any:
		names := make([]string, 0, len(a))
		for _, item := range a {
			if name := strings.TrimSpace(artistValue(item)); name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

// cleanText strips markup, decodes entities and collapses whitespace.
func cleanText(s string) string {
	s = html.UnescapeString(textPolicy.Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}
