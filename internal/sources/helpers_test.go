package sources

import (
	"context"
	"errors"
	"time"
)

type fakeSource struct {
	id        string
	platforms []string
	batches   [][]SearchResult
	delay     time.Duration
	err       error
	panicMsg  string
	block     bool
	resolve   func(SearchResult) (*DownloadInfo, error)
}

func (f *fakeSource) ID() string          { return f.id }
func (f *fakeSource) Name() string        { return "Fake " + f.id }
func (f *fakeSource) Icon() string        { return "" }
func (f *fakeSource) Platforms() []string { return f.platforms }

func (f *fakeSource) Search(ctx context.Context, _ SearchRequest, emit func([]SearchResult)) error {
	if f.block {
		<-make(chan struct{})
	}
	for _, batch := range f.batches {
		if f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		emit(batch)
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.err
}

func (f *fakeSource) ResolveDownload(_ context.Context, r SearchResult) (*DownloadInfo, error) {
	if f.resolve != nil {
		return f.resolve(r)
	}
	return nil, errors.New("not implemented")
}

func result(id, platform string, tags ...string) SearchResult {
	return SearchResult{ID: id, Name: id, Platform: platform, Tags: tags}
}

func ids(results []SearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}
