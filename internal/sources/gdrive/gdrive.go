// Package gdrive searches Google Drive folders holding one platform each.
package gdrive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/utils"
	"golang.org/x/oauth2"
)

const (
	ID          = "gdrive"
	DriveAPIURL = "https://www.googleapis.com/drive/v3/files"
	folderMime  = "application/vnd.google-apps.folder"
)

type Settings struct {
	Folders     map[string]string // platform id -> folder id
	APIKey      string
	Credentials string
	Token       string
}

type driveFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     string `json:"size"`
	MimeType string `json:"mimeType"`
}

type listResponse struct {
	NextPageToken string      `json:"nextPageToken"`
	Files         []driveFile `json:"files"`
}

type Source struct {
	client  utils.HTTPDoer
	folders map[string]string
	apiKey  string
	tokens  oauth2.TokenSource
	apiURL  string
}

// New builds the source. tokens may be nil when an API key is used; with a
// token source, client is expected to authorize its requests.
func New(client utils.HTTPDoer, settings Settings, tokens oauth2.TokenSource) *Source {
	return &Source{
		client:  client,
		folders: settings.Folders,
		apiKey:  settings.APIKey,
		tokens:  tokens,
		apiURL:  DriveAPIURL,
	}
}

func (s *Source) WithAPIURL(u string) *Source {
	s.apiURL = strings.TrimSuffix(u, "/")
	return s
}

func (s *Source) ID() string   { return ID }
func (s *Source) Name() string { return "Google Drive" }
func (s *Source) Icon() string { return "" }

func (s *Source) Platforms() []string {
	out := make([]string, 0, len(s.folders))
	for p := range s.folders {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Search lists each platform folder and emits one batch per listing page.
func (s *Source) Search(ctx context.Context, req sources.SearchRequest, emit func([]sources.SearchResult)) error {
	keywords := strings.Fields(strings.ToLower(req.Query))
	if len(keywords) == 0 {
		return nil
	}
	for _, platform := range s.Platforms() {
		if len(req.Platforms) > 0 && !slices.Contains(req.Platforms, platform) {
			continue
		}
		folderID := s.folders[platform]
		pageToken := ""
		for {
			page, err := s.list(ctx, folderID, pageToken)
			if err != nil {
				return fmt.Errorf("error listing folder for %s: %w", platform, err)
			}
			if batch := matchFiles(page.Files, platform, keywords); len(batch) > 0 {
				emit(batch)
			}
			if page.NextPageToken == "" {
				break
			}
			pageToken = page.NextPageToken
		}
	}
	return nil
}

func (s *Source) ResolveDownload(ctx context.Context, result sources.SearchResult) (*sources.DownloadInfo, error) {
	fileID := result.Extra["file_id"]
	if fileID == "" {
		return nil, nil
	}
	v := url.Values{}
	v.Set("alt", "media")
	info := &sources.DownloadInfo{Filename: result.Extra["name"]}
	if s.tokens != nil {
		tok, err := s.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("error getting OAuth token: %v", err)
		}
		info.Headers = map[string]string{"Authorization": tok.Type() + " " + tok.AccessToken}
	} else if s.apiKey != "" {
		v.Set("key", s.apiKey)
	}
	info.URL = s.apiURL + "/" + url.PathEscape(fileID) + "?" + v.Encode()
	return info, nil
}

func (s *Source) list(ctx context.Context, folderID, pageToken string) (*listResponse, error) {
	v := url.Values{}
	v.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	v.Set("fields", "nextPageToken,files(id,name,size,mimeType)")
	v.Set("pageSize", "1000")
	if pageToken != "" {
		v.Set("pageToken", pageToken)
	}
	if s.tokens == nil && s.apiKey != "" {
		v.Set("key", s.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+v.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list folder contents: %d", resp.StatusCode)
	}
	var out listResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("error decoding folder listing: %v", err)
	}
	log.Debug().Str("op", "gdrive/list").Msgf("%d files in folder %s", len(out.Files), folderID)
	return &out, nil
}

func matchFiles(files []driveFile, platform string, keywords []string) []sources.SearchResult {
	var out []sources.SearchResult
	for _, f := range files {
		if f.MimeType == folderMime || f.ID == "" {
			continue
		}
		lower := strings.ToLower(f.Name)
		matched := true
		for _, k := range keywords {
			if !strings.Contains(lower, k) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}
		r := sources.SearchResult{
			ID:       ID + ":" + f.ID,
			SourceID: ID,
			Name:     strings.TrimSuffix(f.Name, path.Ext(f.Name)),
			Platform: platform,
			Extra:    map[string]string{"file_id": f.ID, "name": f.Name},
		}
		if f.Size != "" {
			r.Extra["size"] = f.Size
		}
		out = append(out, r)
	}
	return out
}
