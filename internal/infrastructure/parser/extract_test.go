package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WeeklyTop/internal/domain"
)

func TestSplitTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title  string
		artist string
		album  string
	}{
		{"Ratboys: Singin' to an Empty Chair", "Ratboys", "Singin' to an Empty Chair"},
		{"Ratboys — Singin' to an Empty Chair", "Ratboys", "Singin' to an Empty Chair"},
		{"Rosalía – LUX", "Rosalía", "LUX"},
		{"Big Thief - Double Infinity", "Big Thief", "Double Infinity"},
		{"Jay-Z: Reasonable Doubt", "Jay-Z", "Reasonable Doubt"},
		{"Sufjan Stevens - Javelin: Deluxe", "Sufjan Stevens - Javelin", "Deluxe"},
		{"Untitled Record", domain.UnknownArtist, "Untitled Record"},
		{"Trailing:", domain.UnknownArtist, "Trailing:"},
		{"  <b>Wednesday</b>:   Bleeds ", "Wednesday", "Bleeds"},
		{"Tom &amp; Jerry: Songs", "Tom & Jerry", "Songs"},
	}

	for _, tc := range cases {
		artist, album := SplitTitle(tc.title)
		assert.Equal(t, tc.artist, artist, tc.title)
		assert.Equal(t, tc.album, album, tc.title)
	}
}

func TestParseFeed(t *testing.T) {
	t.Parallel()

	rss := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Album Reviews</title>
    <item>
      <title>Ratboys: Singin' to an Empty Chair</title>
      <link>https://pitchfork.com/reviews/albums/ratboys-singin-to-an-empty-chair/</link>
    </item>
    <item>
      <title>A Title Without Separator</title>
      <link>https://pitchfork.com/reviews/albums/mystery/</link>
    </item>
    <item>
      <title>   </title>
      <link>https://pitchfork.com/reviews/albums/blank/</link>
    </item>
    <item>
      <title>Deftones – Private Music</title>
    </item>
  </channel>
</rss>`

	got, err := ParseFeed([]byte(rss), "https://pitchfork.com/rss", "Pitchfork Reviews")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, domain.RawExtraction{
		ArtistName:  "Ratboys",
		AlbumName:   "Singin' to an Empty Chair",
		SourceURL:   "https://pitchfork.com/reviews/albums/ratboys-singin-to-an-empty-chair/",
		SignalLabel: "Pitchfork Reviews",
	}, got[0])
	assert.Equal(t, domain.UnknownArtist, got[1].ArtistName)
	assert.Equal(t, "A Title Without Separator", got[1].AlbumName)
	assert.Equal(t, "Deftones", got[2].ArtistName)
	assert.Equal(t, "https://pitchfork.com/rss", got[2].SourceURL)
}

func TestParseFeedAtom(t *testing.T) {
	t.Parallel()

	atom := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Reviews</title>
  <entry>
    <title>Geese: Getting Killed</title>
    <link href="https://example.org/geese"/>
  </entry>
</feed>`

	got, err := ParseFeed([]byte(atom), "https://example.org/atom", "Atom")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Geese", got[0].ArtistName)
	assert.Equal(t, "Getting Killed", got[0].AlbumName)
	assert.Equal(t, "https://example.org/geese", got[0].SourceURL)
}

func TestParseFeedInvalid(t *testing.T) {
	t.Parallel()

	_, err := ParseFeed([]byte("not a feed"), "https://example.org/rss", "x")
	assert.Error(t, err)
}

func TestParsePageJSONLD(t *testing.T) {
	t.Parallel()

	page := `<html><head>
	<title>Wrong: Title | Pitchfork</title>
	<script type="application/ld+json">{"@context":"https://schema.org","@type":"WebSite","name":"Pitchfork"}</script>
	<script type="application/ld+json">
	{"@context":"https://schema.org","@type":"Review",
	 "itemReviewed":{"@type":"MusicAlbum","name":"LUX","byArtist":{"@type":"MusicGroup","name":"Rosalía"}}}
	</script>
	</head><body></body></html>`

	got, ok, err := ParsePage([]byte(page), "https://pitchfork.com/reviews/albums/rosalia-lux/", "Best New")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Rosalía", got.ArtistName)
	assert.Equal(t, "LUX", got.AlbumName)
	assert.Equal(t, "https://pitchfork.com/reviews/albums/rosalia-lux/", got.SourceURL)
	assert.Equal(t, "Best New", got.SignalLabel)
}

func TestParsePageJSONLDGraphAndArtistList(t *testing.T) {
	t.Parallel()

	page := `<html><head><script type="application/ld+json">
	{"@graph":[{"@type":"Person","name":"Critic"},
	 {"@type":["Product","MusicAlbum"],"name":"Collab","byArtist":[{"name":"A"},{"name":"B"}]}]}
	</script></head></html>`

	got, ok, err := ParsePage([]byte(page), "https://example.org/p", "x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A, B", got.ArtistName)
	assert.Equal(t, "Collab", got.AlbumName)
}

func TestParsePageTitleFallback(t *testing.T) {
	t.Parallel()

	page := `<html><head>
	<script type="application/ld+json">{ broken json</script>
	<title>Ratboys: Singin’ to an Empty Chair Album Review | Pitchfork</title>
	</head></html>`

	got, ok, err := ParsePage([]byte(page), "https://example.org/p", "x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ratboys", got.ArtistName)
	assert.Equal(t, "Singin’ to an Empty Chair", got.AlbumName)
}

func TestParsePageSkipsUnrecognized(t *testing.T) {
	t.Parallel()

	page := `<html><head><title>Best New Albums | Pitchfork</title></head></html>`

	_, ok, err := ParsePage([]byte(page), "https://example.org/p", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParsePageTitle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		title, artist, album string
		ok                   bool
	}{
		{"Ratboys: Singin' to an Empty Chair Album Review | Pitchfork", "Ratboys", "Singin' to an Empty Chair", true},
		{"Big Thief: Double Infinity | Site | Pitchfork", "Big Thief", "Double Infinity | Site", true},
		{"No colon here | Pitchfork", "", "", false},
		{": Missing artist | Pitchfork", "", "", false},
		{"Artist: | Pitchfork", "", "", false},
	}

	for _, tc := range cases {
		artist, album, ok := ParsePageTitle(tc.title)
		assert.Equal(t, tc.ok, ok, tc.title)
		assert.Equal(t, tc.artist, artist, tc.title)
		assert.Equal(t, tc.album, album, tc.title)
	}
}

func TestListingLinks(t *testing.T) {
	t.Parallel()

	listing := `<html><body>
	<a href="/reviews/albums/one/">One</a>
	<a href="/reviews/albums/one/#comments">One again</a>
	<a href="https://pitchfork.com/reviews/albums/two/">Two</a>
	<a href="/news/not-a-review/">News</a>
	<a href="/reviews/albums/three/">Three</a>
	</body></html>`

	links, err := ListingLinks([]byte(listing), "https://pitchfork.com/reviews/best/albums/", defaultLinkSelector, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://pitchfork.com/reviews/albums/one/",
		"https://pitchfork.com/reviews/albums/two/",
	}, links)

	all, err := ListingLinks([]byte(listing), "https://pitchfork.com/reviews/best/albums/", defaultLinkSelector, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
