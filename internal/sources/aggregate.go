package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultSourceTimeout = 60 * time.Second

// Aggregator fans a search out across the enabled sources of a registry.
type Aggregator struct {
	registry *Registry
	// SourceTimeout bounds one source's whole search. Zero means
	// DefaultSourceTimeout.
	SourceTimeout time.Duration
	// OnSourceDone, when set, is told how every queried source settled.
	OnSourceDone func(sourceID string, err error)
}

func NewAggregator(registry *Registry) *Aggregator {
	return &Aggregator{registry: registry}
}

func (a *Aggregator) Registry() *Registry {
	return a.registry
}

// Candidates returns the enabled sources that serve any of platforms.
func (a *Aggregator) Candidates(platforms []string) []Source {
	var out []Source
	for _, src := range a.registry.ListAll() {
		if a.registry.IsEnabled(src.ID()) && SourceMatches(src, platforms) {
			out = append(out, src)
		}
	}
	return out
}

// Search queries every candidate source concurrently and forwards filtered
// batches to onResult as they arrive. onResult is never called concurrently
// and sees each source's batches in the order that source emitted them.
// Search returns once every source has settled and every batch has been
// delivered. Source failures are logged and otherwise ignored, and batches a
// source emitted before failing are still delivered; the only error returned
// is the caller's context error.
func (a *Aggregator) Search(ctx context.Context, query string, platforms, tags []string, onResult func([]SearchResult)) error {
	req := SearchRequest{Query: query, Platforms: platforms, Tags: tags}
	candidates := a.Candidates(platforms)
	log.Debug().Str("op", "sources/aggregate").Msgf("searching %q across %d sources", query, len(candidates))

	batches := make(chan []SearchResult)
	var wg sync.WaitGroup
	for _, src := range candidates {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			err := a.runSource(ctx, src, req, batches)
			if err != nil {
				log.Warn().Str("op", "sources/aggregate").Str("source", src.ID()).Err(err).Msg("source search failed")
			} else {
				log.Debug().Str("op", "sources/aggregate").Str("source", src.ID()).Msg("source search settled")
			}
			if a.OnSourceDone != nil {
				a.OnSourceDone(src.ID(), err)
			}
		}(src)
	}
	go func() {
		wg.Wait()
		close(batches)
	}()
	for batch := range batches {
		if onResult != nil {
			onResult(batch)
		}
	}
	return ctx.Err()
}

func (a *Aggregator) timeout() time.Duration {
	if a.SourceTimeout > 0 {
		return a.SourceTimeout
	}
	return DefaultSourceTimeout
}

// runSource runs one source's search. Once it settles (or times out) any
// further emits from that source are dropped, so a misbehaving source can
// neither block the aggregate nor write to a closed channel.
func (a *Aggregator) runSource(ctx context.Context, src Source, req SearchRequest, out chan<- []SearchResult) error {
	srcCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	var mu sync.Mutex
	settled := false
	emit := func(batch []SearchResult) {
		filtered := FilterResults(batch, req.Platforms, req.Tags)
		if len(filtered) == 0 {
			return
		}
		for i := range filtered {
			if filtered[i].SourceID == "" {
				filtered[i].SourceID = src.ID()
			}
		}
		mu.Lock()
		defer mu.Unlock()
		if settled {
			return
		}
		out <- filtered
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("source panicked: %v", r)
			}
		}()
		done <- src.Search(srcCtx, req, emit)
	}()

	var err error
	select {
	case err = <-done:
	case <-srcCtx.Done():
		err = fmt.Errorf("search abandoned: %w", srcCtx.Err())
	}
	mu.Lock()
	settled = true
	mu.Unlock()
	return err
}
