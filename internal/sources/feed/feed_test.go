package feed

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/utils"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>GBA Homebrew</title>
  <item>
    <title>Super Puzzle Quest v1.2</title>
    <link>https://example.com/puzzle</link>
    <guid>puzzle-12</guid>
    <category>Homebrew</category>
    <category>Puzzle</category>
    <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
    <enclosure url="https://files.example.com/puzzle.zip" length="1024" type="application/zip"/>
  </item>
  <item>
    <title>Quest Tracker</title>
    <link>https://example.com/tracker.gba</link>
  </item>
  <item>
    <title>Racing Demo</title>
    <link>https://example.com/racing.gba</link>
  </item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>NES Releases</title>
  <entry>
    <title>Puzzle Quest NES</title>
    <id>urn:nes:1</id>
    <link href="https://example.com/nes-puzzle.nes"/>
    <updated>2021-05-01T00:00:00Z</updated>
  </entry>
</feed>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gba.xml":
			fmt.Fprint(w, rssFeed)
		case "/nes.xml":
			fmt.Fprint(w, atomFeed)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchMatchesAllKeywords(t *testing.T) {
	srv := newServer(t)
	s := New(utils.NewRomHTTPClient(utils.HTTPClientConfig{}), map[string][]string{
		"gba": {srv.URL + "/gba.xml", srv.URL + "/missing.xml"},
		"nes": {srv.URL + "/nes.xml"},
	})
	assert.Equal(t, []string{"gba", "nes"}, s.Platforms())

	var all []sources.SearchResult
	err := s.Search(t.Context(), sources.SearchRequest{Query: "puzzle QUEST"}, func(b []sources.SearchResult) {
		all = append(all, b...)
	})
	require.NoError(t, err)
	require.Len(t, all, 2)

	gba := all[0]
	assert.Equal(t, "feed:puzzle-12", gba.ID)
	assert.Equal(t, "gba", gba.Platform)
	assert.Equal(t, []string{"homebrew", "puzzle"}, gba.Tags)
	assert.Equal(t, "2023", gba.Meta.ReleaseYear)
	assert.Equal(t, "https://files.example.com/puzzle.zip", gba.Extra["url"])

	nes := all[1]
	assert.Equal(t, "nes", nes.Platform)
	assert.Equal(t, "https://example.com/nes-puzzle.nes", nes.Extra["url"])

	info, err := s.ResolveDownload(t.Context(), gba)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/puzzle.zip", info.URL)
}

func TestSearchRestrictsPlatforms(t *testing.T) {
	srv := newServer(t)
	s := New(utils.NewRomHTTPClient(utils.HTTPClientConfig{}), map[string][]string{
		"gba": {srv.URL + "/gba.xml"},
		"nes": {srv.URL + "/nes.xml"},
	})
	var all []sources.SearchResult
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "puzzle", Platforms: []string{"nes"}}, func(b []sources.SearchResult) {
		all = append(all, b...)
	}))
	require.Len(t, all, 1)
	assert.Equal(t, "nes", all[0].Platform)
}

func TestSearchFailsWhenEveryFeedFails(t *testing.T) {
	srv := newServer(t)
	s := New(utils.NewRomHTTPClient(utils.HTTPClientConfig{}), map[string][]string{"gba": {srv.URL + "/missing.xml"}})
	err := s.Search(t.Context(), sources.SearchRequest{Query: "x"}, func([]sources.SearchResult) {})
	assert.ErrorContains(t, err, "404")
}

func TestResolveWithoutURL(t *testing.T) {
	info, err := New(nil, nil).ResolveDownload(t.Context(), sources.SearchResult{})
	assert.NoError(t, err)
	assert.Nil(t, info)
}
