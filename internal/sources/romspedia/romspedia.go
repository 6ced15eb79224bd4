// Package romspedia scrapes the RomsPedia search and detail pages.
package romspedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/platforms"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/utils"
)

const (
	ID              = "romspedia"
	DefaultSiteURL  = "https://www.romspedia.com"
	DefaultFilesURL = "https://downloads.romspedia.com/roms"
	DefaultMaxPages = 10
)

// site slug for each platform id
var platformSlugs = map[string]string{
	platforms.PSP:       "playstation-portable",
	platforms.GBA:       "gameboy-advance",
	platforms.PS2:       "playstation-2",
	platforms.NDS:       "nintendo-ds",
	platforms.ThreeDS:   "nintendo-3ds",
	platforms.Wii:       "nintendo-wii",
	platforms.GameCube:  "nintendo-gamecube",
	platforms.N64:       "nintendo-64",
	platforms.SNES:      "super-nintendo",
	platforms.PS3:       "playstation-3",
	platforms.PS1:       "playstation-1",
	platforms.NES:       "nintendo",
	platforms.GBC:       "gameboy-color",
	platforms.Genesis:   "sega-genesis",
	platforms.Dreamcast: "sega-dreamcast",
	platforms.GameBoy:   "gameboy",
	platforms.Famicom:   "famicom",
	platforms.Xbox:      "xbox",
	platforms.Xbox360:   "xboxone",
}

var slugPlatforms = func() map[string]string {
	m := make(map[string]string, len(platformSlugs))
	for id, slug := range platformSlugs {
		m[slug] = id
	}
	return m
}()

var supported = []string{
	platforms.Dreamcast, platforms.Famicom, platforms.GameBoy, platforms.GameCube,
	platforms.GBA, platforms.GBC, platforms.Genesis, platforms.N64,
	platforms.NDS, platforms.NES, platforms.PS2, platforms.PS3,
	platforms.PSP, platforms.SNES, platforms.ThreeDS, platforms.Wii,
}

type Source struct {
	client   utils.HTTPDoer
	siteURL  string
	filesURL string
	maxPages int
}

func New(client utils.HTTPDoer) *Source {
	return &Source{
		client:   client,
		siteURL:  DefaultSiteURL,
		filesURL: DefaultFilesURL,
		maxPages: DefaultMaxPages,
	}
}

// WithURLs points the scraper at a mirror.
func (s *Source) WithURLs(siteURL, filesURL string) *Source {
	s.siteURL = strings.TrimSuffix(siteURL, "/")
	s.filesURL = strings.TrimSuffix(filesURL, "/")
	return s
}

func (s *Source) WithMaxPages(n int) *Source {
	if n > 0 {
		s.maxPages = n
	}
	return s
}

func (s *Source) ID() string          { return ID }
func (s *Source) Name() string        { return "RomsPedia" }
func (s *Source) Icon() string        { return DefaultSiteURL + "/favicon.ico" }
func (s *Source) Platforms() []string { return supported }

// Search walks the paginated result listing and emits one batch per page.
func (s *Source) Search(ctx context.Context, req sources.SearchRequest, emit func([]sources.SearchResult)) error {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil
	}
	doc, err := s.fetch(ctx, s.searchURL(query, 1))
	if err != nil {
		return err
	}
	pages := min(pageCount(doc), s.maxPages)
	log.Debug().Str("op", "romspedia/search").Msgf("%d result pages for %q", pages, query)
	if results := s.parsePage(doc); len(results) > 0 {
		emit(results)
	}
	for page := 2; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := s.fetch(ctx, s.searchURL(query, page))
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if results := s.parsePage(doc); len(results) > 0 {
			emit(results)
		}
	}
	return nil
}

// ResolveDownload reads the file name from the detail page.
func (s *Source) ResolveDownload(ctx context.Context, result sources.SearchResult) (*sources.DownloadInfo, error) {
	detail := result.Extra["detail_page"]
	if detail == "" {
		return nil, nil
	}
	doc, err := s.fetch(ctx, detail)
	if err != nil {
		return nil, err
	}
	details := make(map[string]string)
	doc.Find(".view-emulator-detail").Each(func(_ int, sel *goquery.Selection) {
		name := strings.ToLower(strings.TrimSpace(sel.Find(".view-emulator-detail-name").Text()))
		name = strings.TrimSpace(strings.Trim(name, ":"))
		details[name] = strings.TrimSpace(sel.Find(".view-emulator-detail-value").Text())
	})
	fileName := details["file name"]
	if fileName == "" {
		log.Debug().Str("op", "romspedia/resolve").Msgf("no file name on %s", detail)
		return nil, nil
	}
	return &sources.DownloadInfo{
		URL:      s.filesURL + "/" + url.PathEscape(fileName),
		Filename: fileName,
		Headers:  map[string]string{"Referer": detail},
	}, nil
}

func (s *Source) searchURL(query string, page int) string {
	v := url.Values{}
	v.Set("currentpage", strconv.Itoa(page))
	v.Set("search_term_string", query)
	return s.siteURL + "/search.php?" + v.Encode()
}

func (s *Source) fetch(ctx context.Context, target string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", target, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, target)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", target, err)
	}
	return doc, nil
}

// pageCount reads currentpage from the last pagination link. A listing
// without pagination has one page.
func pageCount(doc *goquery.Document) int {
	href, ok := doc.Find(".pagination li.page-item a.page-link").Last().Attr("href")
	if !ok {
		return 1
	}
	_, rawQuery, _ := strings.Cut(href, "?")
	v, err := url.ParseQuery(rawQuery)
	if err != nil {
		return 1
	}
	n, err := strconv.Atoi(v.Get("currentpage"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (s *Source) parsePage(doc *goquery.Document) []sources.SearchResult {
	var results []sources.SearchResult
	doc.Find(".single-rom").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a[href]").First()
		href, _ := link.Attr("href")
		detail := s.absolute(href)
		if detail == "" {
			return
		}
		platformSlug, gameSlug := slugsFromPath(detail)
		if gameSlug == "" {
			return
		}
		name := strings.TrimSpace(card.Find(".rom-title").Text())
		if name == "" {
			name = strings.TrimSpace(link.AttrOr("title", gameSlug))
		}
		r := sources.SearchResult{
			ID:       ID + ":" + platformSlug + "/" + gameSlug,
			SourceID: ID,
			Name:     name,
			Platform: slugPlatforms[platformSlug],
			Extra:    map[string]string{"detail_page": detail},
		}
		img := card.Find("img").First()
		if src := img.AttrOr("data-src", img.AttrOr("src", "")); src != "" {
			r.Image = s.absolute(src)
		}
		card.Find(".rom-tag").Each(func(_ int, tag *goquery.Selection) {
			if t := strings.ToLower(strings.TrimSpace(tag.Text())); t != "" {
				r.Tags = append(r.Tags, t)
			}
		})
		if raw, ok := card.Find("[data-rating]").Attr("data-rating"); ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				r.Meta.Rating = sources.Rating(v / 5)
			}
		}
		r.Meta.Genre = strings.TrimSpace(card.Find(".rom-genre").Text())
		results = append(results, r)
	})
	return results
}

func (s *Source) absolute(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(s.siteURL + "/")
	if err != nil {
		return ""
	}
	u, err := base.Parse(ref)
	if err != nil {
		return ""
	}
	return u.String()
}

// slugsFromPath splits /roms/<platform>/<game>.
func slugsFromPath(detail string) (string, string) {
	u, err := url.Parse(detail)
	if err != nil {
		return "", ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "roms" {
		return "", ""
	}
	return parts[1], parts[2]
}
