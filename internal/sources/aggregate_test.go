package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	batches [][]SearchResult
}

func (c *collector) add(batch []SearchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

func (c *collector) all() []SearchResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []SearchResult
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func TestSearchStreamsFastSourceFirst(t *testing.T) {
	a := &fakeSource{id: "a", batches: [][]SearchResult{{result("a1", "")}}}
	b := &fakeSource{id: "b", delay: 50 * time.Millisecond, batches: [][]SearchResult{{result("b1", "")}}}
	agg := NewAggregator(NewRegistry(a, b))

	var c collector
	set := NewResultSet()
	err := agg.Search(context.Background(), "mario", nil, nil, func(batch []SearchResult) {
		c.add(batch)
		set.Add(batch)
	})
	require.NoError(t, err)
	require.Len(t, c.batches, 2)
	assert.Equal(t, "a1", c.batches[0][0].ID)
	assert.Equal(t, "b1", c.batches[1][0].ID)
	assert.ElementsMatch(t, []string{"a1", "b1"}, ids(set.All()))
}

func TestSearchToleratesFailures(t *testing.T) {
	for _, total := range []int{1, 3, 6} {
		for failing := 0; failing <= total; failing++ {
			t.Run(fmt.Sprintf("%d_of_%d_fail", failing, total), func(t *testing.T) {
				var srcs []Source
				var want []string
				for i := range total {
					id := fmt.Sprintf("s%d", i)
					if i < failing {
						src := &fakeSource{id: id, err: errors.New("boom")}
						if i%2 == 1 {
							src.err = nil
							src.panicMsg = "kaboom"
						}
						srcs = append(srcs, src)
						continue
					}
					rid := id + "-r"
					want = append(want, rid)
					srcs = append(srcs, &fakeSource{id: id, batches: [][]SearchResult{{result(rid, "")}}})
				}
				agg := NewAggregator(NewRegistry(srcs...))
				var mu sync.Mutex
				settled := map[string]error{}
				agg.OnSourceDone = func(id string, err error) {
					mu.Lock()
					settled[id] = err
					mu.Unlock()
				}
				var c collector
				err := agg.Search(context.Background(), "q", nil, nil, c.add)
				require.NoError(t, err)
				assert.ElementsMatch(t, want, ids(c.all()))
				assert.Len(t, settled, total)
				failed := 0
				for _, err := range settled {
					if err != nil {
						failed++
					}
				}
				assert.Equal(t, failing, failed)
			})
		}
	}
}

func TestSearchForwardsBatchesEmittedBeforeFailure(t *testing.T) {
	flaky := &fakeSource{id: "flaky", batches: [][]SearchResult{{result("f1", "")}}, err: errors.New("page 2 failed")}
	ok := &fakeSource{id: "ok", batches: [][]SearchResult{{result("ok1", "")}}}
	agg := NewAggregator(NewRegistry(flaky, ok))
	var mu sync.Mutex
	settled := map[string]error{}
	agg.OnSourceDone = func(id string, err error) {
		mu.Lock()
		settled[id] = err
		mu.Unlock()
	}

	var c collector
	require.NoError(t, agg.Search(context.Background(), "q", nil, nil, c.add))
	assert.ElementsMatch(t, []string{"f1", "ok1"}, ids(c.all()))
	assert.EqualError(t, settled["flaky"], "page 2 failed")
	assert.NoError(t, settled["ok"])
}

func TestSearchSkipsDisabledAndNonMatchingSources(t *testing.T) {
	gba := &fakeSource{id: "gba-only", platforms: []string{"gba"}, batches: [][]SearchResult{{result("g1", "gba")}}}
	psp := &fakeSource{id: "psp-only", platforms: []string{"psp"}, batches: [][]SearchResult{{result("p1", "psp")}}}
	all := &fakeSource{id: "all", batches: [][]SearchResult{{result("x1", "gba"), result("x2", "nds")}}}
	off := &fakeSource{id: "off", batches: [][]SearchResult{{result("o1", "gba")}}}
	reg := NewRegistry(gba, psp, all, off)
	reg.SetEnabled("off", false)
	agg := NewAggregator(reg)

	assert.Equal(t, []string{"gba-only", "all"}, sourceIDs(agg.Candidates([]string{"gba"})))

	var c collector
	require.NoError(t, agg.Search(context.Background(), "q", []string{"gba"}, nil, c.add))
	assert.ElementsMatch(t, []string{"g1", "x1"}, ids(c.all()))
}

func TestSearchAppliesTagFilter(t *testing.T) {
	src := &fakeSource{id: "a", batches: [][]SearchResult{
		{result("r1", "gba", "rpg"), result("r2", "gba", "racing")},
		{result("r3", "gba")},
	}}
	agg := NewAggregator(NewRegistry(src))
	var c collector
	require.NoError(t, agg.Search(context.Background(), "q", nil, []string{"rpg"}, c.add))
	assert.Equal(t, []string{"r1"}, ids(c.all()))
	// the second batch filtered to nothing and is not forwarded
	assert.Len(t, c.batches, 1)
	assert.Equal(t, "a", c.batches[0][0].SourceID)
}

func TestSearchPreservesPerSourceOrder(t *testing.T) {
	var batches [][]SearchResult
	for i := range 20 {
		batches = append(batches, []SearchResult{result(fmt.Sprintf("a%02d", i), "")})
	}
	a := &fakeSource{id: "a", batches: batches}
	b := &fakeSource{id: "b", batches: [][]SearchResult{{result("b1", "")}, {result("b2", "")}}}
	agg := NewAggregator(NewRegistry(a, b))
	var c collector
	require.NoError(t, agg.Search(context.Background(), "q", nil, nil, c.add))

	var fromA []string
	for _, r := range c.all() {
		if r.SourceID == "a" {
			fromA = append(fromA, r.ID)
		}
	}
	require.Len(t, fromA, 20)
	for i := range fromA {
		assert.Equal(t, fmt.Sprintf("a%02d", i), fromA[i])
	}
}

func TestSearchAbandonsHangingSource(t *testing.T) {
	hang := &fakeSource{id: "hang", block: true}
	ok := &fakeSource{id: "ok", batches: [][]SearchResult{{result("ok1", "")}}}
	agg := NewAggregator(NewRegistry(hang, ok))
	agg.SourceTimeout = 50 * time.Millisecond

	var c collector
	start := time.Now()
	require.NoError(t, agg.Search(context.Background(), "q", nil, nil, c.add))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"ok1"}, ids(c.all()))
}

func TestSearchReturnsCallerCancellation(t *testing.T) {
	slow := &fakeSource{id: "slow", delay: time.Second, batches: [][]SearchResult{{result("s1", "")}}}
	agg := NewAggregator(NewRegistry(slow))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var c collector
	err := agg.Search(ctx, "q", nil, nil, c.add)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, c.all())
}

type leakySource struct {
	fakeSource
	release chan struct{}
	emitted chan struct{}
}

func (l *leakySource) Search(_ context.Context, _ SearchRequest, emit func([]SearchResult)) error {
	go func() {
		<-l.release
		emit([]SearchResult{result("late", "")})
		close(l.emitted)
	}()
	return nil
}

func TestSearchDropsEmitsAfterSettle(t *testing.T) {
	src := &leakySource{fakeSource: fakeSource{id: "leaky"}, release: make(chan struct{}), emitted: make(chan struct{})}
	agg := NewAggregator(NewRegistry(src))
	var c collector
	require.NoError(t, agg.Search(context.Background(), "q", nil, nil, c.add))
	close(src.release)
	select {
	case <-src.emitted:
	case <-time.After(time.Second):
		t.Fatal("late emit did not return")
	}
	assert.Empty(t, c.all())
}

func TestSearchWithNoCandidates(t *testing.T) {
	agg := NewAggregator(NewRegistry())
	called := false
	require.NoError(t, agg.Search(context.Background(), "q", nil, nil, func([]SearchResult) { called = true }))
	assert.False(t, called)
}

func sourceIDs(srcs []Source) []string {
	out := make([]string, 0, len(srcs))
	for _, s := range srcs {
		out = append(out, s.ID())
	}
	return out
}
