// Package feed turns RSS and Atom feeds of ROM releases into a searchable
// source. Feeds are not queryable, so every configured feed is pulled and
// filtered locally by keyword.
package feed

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/utils"
)

const ID = "feed"

type Source struct {
	client utils.HTTPDoer
	feeds  map[string][]string // platform id -> feed urls
}

func New(client utils.HTTPDoer, feeds map[string][]string) *Source {
	return &Source{client: client, feeds: feeds}
}

func (s *Source) ID() string   { return ID }
func (s *Source) Name() string { return "Release Feeds" }
func (s *Source) Icon() string { return "" }

func (s *Source) Platforms() []string {
	out := make([]string, 0, len(s.feeds))
	for p := range s.feeds {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Search emits one batch per feed. A feed that cannot be fetched is skipped;
// the search only fails when every feed failed.
func (s *Source) Search(ctx context.Context, req sources.SearchRequest, emit func([]sources.SearchResult)) error {
	keywords := strings.Fields(strings.ToLower(req.Query))
	if len(keywords) == 0 {
		return nil
	}
	parser := gofeed.NewParser()
	var attempted, failed int
	var lastErr error
	for _, platform := range s.Platforms() {
		if len(req.Platforms) > 0 && !slices.Contains(req.Platforms, platform) {
			continue
		}
		for _, feedURL := range s.feeds[platform] {
			if err := ctx.Err(); err != nil {
				return err
			}
			attempted++
			feed, err := s.fetch(ctx, parser, feedURL)
			if err != nil {
				failed++
				lastErr = err
				log.Warn().Str("op", "feed/search").Err(err).Msgf("skipping feed %s", feedURL)
				continue
			}
			if results := matchItems(feed, platform, keywords); len(results) > 0 {
				emit(results)
			}
		}
	}
	if attempted > 0 && failed == attempted {
		return lastErr
	}
	return nil
}

func (s *Source) ResolveDownload(_ context.Context, result sources.SearchResult) (*sources.DownloadInfo, error) {
	target := result.Extra["url"]
	if target == "" {
		return nil, nil
	}
	return &sources.DownloadInfo{URL: target}, nil
}

func (s *Source) fetch(ctx context.Context, parser *gofeed.Parser, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing feed: %v", err)
	}
	return feed, nil
}

func matchItems(feed *gofeed.Feed, platform string, keywords []string) []sources.SearchResult {
	var out []sources.SearchResult
	for _, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		if !matchesAllKeywords(strings.ToLower(title), keywords) {
			continue
		}
		target := downloadTarget(it)
		if target == "" {
			continue
		}
		key := it.GUID
		if key == "" {
			key = target
		}
		r := sources.SearchResult{
			ID:       ID + ":" + key,
			SourceID: ID,
			Name:     title,
			Platform: platform,
			Extra:    map[string]string{"url": target},
		}
		for _, c := range it.Categories {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				r.Tags = append(r.Tags, c)
			}
		}
		if it.Image != nil {
			r.Image = it.Image.URL
		}
		r.Meta.Description = strings.TrimSpace(it.Description)
		if it.PublishedParsed != nil {
			r.Meta.ReleaseYear = strconv.Itoa(it.PublishedParsed.Year())
		}
		out = append(out, r)
	}
	return out
}

// downloadTarget prefers the first enclosure over the item link.
func downloadTarget(it *gofeed.Item) string {
	for _, enc := range it.Enclosures {
		if enc != nil && enc.URL != "" {
			return enc.URL
		}
	}
	return strings.TrimSpace(it.Link)
}

func matchesAllKeywords(title string, keywords []string) bool {
	for _, k := range keywords {
		if !strings.Contains(title, k) {
			return false
		}
	}
	return true
}
