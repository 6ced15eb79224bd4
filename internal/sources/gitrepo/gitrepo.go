// Package gitrepo exposes a homebrew catalog kept in a git repository. The
// repository is cloned into memory once and its <platform>/ folders are
// searched by file name.
package gitrepo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/platforms"
	"github.com/tanq16/rominator/internal/sources"
)

const ID = "git"

type Settings struct {
	URL     string
	RawBase string
	Ref     string
	Token   string
	SSHKey  string
}

type Source struct {
	settings Settings
	rawBase  string
	open     func(ctx context.Context) (*git.Repository, error)

	mu     sync.Mutex
	files  []string
	loaded bool
}

func New(settings Settings) *Source {
	s := &Source{settings: settings, rawBase: rawBaseFor(settings)}
	s.open = s.clone
	return s
}

func (s *Source) ID() string          { return ID }
func (s *Source) Name() string        { return "Git Catalog" }
func (s *Source) Icon() string        { return "" }
func (s *Source) Platforms() []string { return nil }

func (s *Source) Search(ctx context.Context, req sources.SearchRequest, emit func([]sources.SearchResult)) error {
	keywords := strings.Fields(strings.ToLower(req.Query))
	if len(keywords) == 0 {
		return nil
	}
	files, err := s.load(ctx)
	if err != nil {
		return err
	}
	var batch []sources.SearchResult
	for _, f := range files {
		if r, ok := match(f, keywords); ok {
			batch = append(batch, r)
		}
	}
	if len(batch) > 0 {
		emit(batch)
	}
	return nil
}

func (s *Source) ResolveDownload(_ context.Context, result sources.SearchResult) (*sources.DownloadInfo, error) {
	p := result.Extra["path"]
	if p == "" || s.rawBase == "" {
		return nil, nil
	}
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return &sources.DownloadInfo{
		URL:      s.rawBase + "/" + strings.Join(segments, "/"),
		Filename: path.Base(p),
	}, nil
}

// load reads the tree once. A failed clone is retried on the next search.
func (s *Source) load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.files, nil
	}
	repo, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("error reading HEAD: %v", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("error reading commit: %v", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("error reading tree: %v", err)
	}
	var files []string
	err = tree.Files().ForEach(func(f *object.File) error {
		files = append(files, f.Name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking tree: %v", err)
	}
	log.Debug().Str("op", "gitrepo/load").Msgf("indexed %d files at %s", len(files), head.Hash())
	s.files = files
	s.loaded = true
	return files, nil
}

func (s *Source) clone(ctx context.Context) (*git.Repository, error) {
	auth, err := authMethod(s.settings)
	if err != nil {
		log.Debug().Str("op", "gitrepo/clone").Msgf("cloning without auth: %v", err)
	}
	opts := &git.CloneOptions{
		URL:   s.settings.URL,
		Depth: 1,
		Auth:  auth,
	}
	if s.settings.Ref != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.settings.Ref)
		opts.SingleBranch = true
	}
	repo, err := git.CloneContext(ctx, memory.NewStorage(), nil, opts)
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %v", err)
	}
	return repo, nil
}

// authMethod picks a token for the known forges, then an SSH key.
func authMethod(settings Settings) (transport.AuthMethod, error) {
	token := settings.Token
	if token == "" {
		token = os.Getenv("GIT_TOKEN")
	}
	if token != "" {
		switch {
		case strings.Contains(settings.URL, "github.com"), strings.Contains(settings.URL, "gitlab.com"):
			return &http.BasicAuth{Username: "oauth2", Password: token}, nil
		case strings.Contains(settings.URL, "bitbucket.org"):
			return &http.BasicAuth{Username: "x-token-auth", Password: token}, nil
		}
	}
	if settings.SSHKey != "" {
		keys, err := ssh.NewPublicKeysFromFile("git", settings.SSHKey, "")
		if err != nil {
			return nil, fmt.Errorf("couldn't load SSH key: %v", err)
		}
		return keys, nil
	}
	return nil, fmt.Errorf("no authentication method found")
}

// rawBaseFor derives the raw file host for GitHub repositories when none is
// configured.
func rawBaseFor(settings Settings) string {
	if settings.RawBase != "" {
		return strings.TrimSuffix(settings.RawBase, "/")
	}
	u, err := url.Parse(settings.URL)
	if err != nil || u.Host != "github.com" {
		return ""
	}
	repoPath := strings.TrimSuffix(strings.Trim(u.Path, "/"), ".git")
	ref := settings.Ref
	if ref == "" {
		ref = "HEAD"
	}
	return "https://raw.githubusercontent.com/" + repoPath + "/" + ref
}

func match(file string, keywords []string) (sources.SearchResult, bool) {
	platform, rest, ok := strings.Cut(file, "/")
	if !ok || !platforms.Known(platform) {
		return sources.SearchResult{}, false
	}
	base := path.Base(rest)
	lower := strings.ToLower(base)
	for _, k := range keywords {
		if !strings.Contains(lower, k) {
			return sources.SearchResult{}, false
		}
	}
	r := sources.SearchResult{
		ID:       ID + ":" + file,
		SourceID: ID,
		Name:     strings.TrimSuffix(base, path.Ext(base)),
		Platform: platform,
		Tags:     []string{"homebrew"},
		Extra:    map[string]string{"path": file},
	}
	if dir := path.Dir(rest); dir != "." {
		for _, t := range strings.Split(dir, "/") {
			r.Tags = append(r.Tags, strings.ToLower(t))
		}
	}
	return r, true
}
