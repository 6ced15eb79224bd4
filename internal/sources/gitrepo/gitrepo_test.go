package gitrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/rominator/internal/sources"
)

func catalogRepo(t *testing.T, files ...string) *git.Repository {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for _, f := range files {
		require.NoError(t, util.WriteFile(fs, f, []byte(f), 0644))
		_, err := wt.Add(f)
		require.NoError(t, err)
	}
	_, err = wt.Commit("catalog", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return repo
}

func newTestSource(t *testing.T, settings Settings, repo *git.Repository) (*Source, *int) {
	s := New(settings)
	opens := 0
	s.open = func(context.Context) (*git.Repository, error) {
		opens++
		return repo, nil
	}
	return s, &opens
}

func TestSearch(t *testing.T) {
	repo := catalogRepo(t,
		"README.md",
		"gba/Tiny Space Shooter.gba",
		"gba/puzzles/Space Blocks.gba",
		"nes/Space Trek.nes",
		"tools/space-tool.zip",
	)
	s, opens := newTestSource(t, Settings{URL: "https://github.com/acme/homebrew.git"}, repo)

	var all []sources.SearchResult
	emit := func(b []sources.SearchResult) { all = append(all, b...) }
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "space"}, emit))
	require.Len(t, all, 3)

	byID := map[string]sources.SearchResult{}
	for _, r := range all {
		byID[r.ID] = r
	}
	shooter := byID["git:gba/Tiny Space Shooter.gba"]
	assert.Equal(t, "Tiny Space Shooter", shooter.Name)
	assert.Equal(t, "gba", shooter.Platform)
	assert.Equal(t, []string{"homebrew"}, shooter.Tags)
	assert.Equal(t, []string{"homebrew", "puzzles"}, byID["git:gba/puzzles/Space Blocks.gba"].Tags)
	assert.Equal(t, "nes", byID["git:nes/Space Trek.nes"].Platform)

	all = nil
	require.NoError(t, s.Search(t.Context(), sources.SearchRequest{Query: "trek space"}, emit))
	require.Len(t, all, 1)
	assert.Equal(t, 1, *opens)
}

func TestLoadRetriesAfterFailure(t *testing.T) {
	s := New(Settings{})
	calls := 0
	s.open = func(context.Context) (*git.Repository, error) {
		calls++
		return nil, errors.New("unreachable")
	}
	emit := func([]sources.SearchResult) {}
	assert.Error(t, s.Search(t.Context(), sources.SearchRequest{Query: "x"}, emit))
	assert.Error(t, s.Search(t.Context(), sources.SearchRequest{Query: "x"}, emit))
	assert.Equal(t, 2, calls)
}

func TestResolveDownload(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		want     string
	}{
		{"github default", Settings{URL: "https://github.com/acme/homebrew.git"}, "https://raw.githubusercontent.com/acme/homebrew/HEAD/gba/Tiny%20Space%20Shooter.gba"},
		{"github ref", Settings{URL: "https://github.com/acme/homebrew", Ref: "main"}, "https://raw.githubusercontent.com/acme/homebrew/main/gba/Tiny%20Space%20Shooter.gba"},
		{"raw base", Settings{URL: "https://git.example/x.git", RawBase: "https://files.example/raw/"}, "https://files.example/raw/gba/Tiny%20Space%20Shooter.gba"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := New(tt.settings).ResolveDownload(t.Context(), sources.SearchResult{Extra: map[string]string{"path": "gba/Tiny Space Shooter.gba"}})
			require.NoError(t, err)
			require.NotNil(t, info)
			assert.Equal(t, tt.want, info.URL)
			assert.Equal(t, "Tiny Space Shooter.gba", info.Filename)
		})
	}

	info, err := New(Settings{URL: "https://git.example/x.git"}).ResolveDownload(t.Context(), sources.SearchResult{Extra: map[string]string{"path": "gba/a.gba"}})
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestAuthMethod(t *testing.T) {
	t.Setenv("GIT_TOKEN", "")
	_, err := authMethod(Settings{URL: "https://github.com/a/b"})
	assert.Error(t, err)

	auth, err := authMethod(Settings{URL: "https://bitbucket.org/a/b", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "http-basic-auth", auth.Name())
}
