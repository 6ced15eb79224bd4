// Package sources holds the content source contract, the registry of known
// sources and the aggregator that fans a search out across them.
package sources

import (
	"context"
	"errors"
	"slices"
)

// ErrNoDownload is recorded on jobs whose source had nothing to download.
var ErrNoDownload = errors.New("source returned no download")

// Source is one pluggable content catalog.
//
// Search emits zero or more batches through emit while it runs and returns
// once the catalog is exhausted. ResolveDownload turns one of the source's own
// results into a fetchable location; it returns (nil, nil) when the result has
// nothing to download.
type Source interface {
	ID() string
	Name() string
	Icon() string
	Platforms() []string
	Search(ctx context.Context, req SearchRequest, emit func([]SearchResult)) error
	ResolveDownload(ctx context.Context, result SearchResult) (*DownloadInfo, error)
}

type SearchRequest struct {
	Query     string
	Platforms []string
	Tags      []string
}

type Meta struct {
	Rating      *float64 `yaml:"rating,omitempty"` // 0 to 1
	Description string   `yaml:"description,omitempty"`
	Genre       string   `yaml:"genre,omitempty"`
	ReleaseYear string   `yaml:"release_year,omitempty"`
}

type SearchResult struct {
	ID       string   `yaml:"id"`
	SourceID string   `yaml:"source"`
	Name     string   `yaml:"name"`
	Platform string   `yaml:"platform,omitempty"`
	Image    string   `yaml:"image,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
	Meta     Meta     `yaml:"meta,omitempty"`
	// Extra is private to the producing source and handed back to its
	// ResolveDownload untouched.
	Extra map[string]string `yaml:"-"`
}

func (r SearchResult) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

type DownloadInfo struct {
	URL      string
	Filename string
	Headers  map[string]string
}

// Rating is a helper for sources building Meta values.
func Rating(v float64) *float64 {
	v = max(0, min(v, 1))
	return &v
}
