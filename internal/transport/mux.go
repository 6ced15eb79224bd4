package transport

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const progressInterval = 500 * time.Millisecond

// Fetcher downloads req.URL into outputPath, reporting byte counts through
// progress. total is -1 when unknown.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, outputPath string, progress func(downloaded, total int64)) (string, error)
}

// Mux routes requests to a Fetcher by URL scheme and owns the event channel.
// Transfers run under the Mux's base context; Close cancels it so that no
// transfer outlives the consumer of Events.
type Mux struct {
	fetchers map[string]Fetcher
	events   chan Event
	base     context.Context
	stop     context.CancelFunc

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewMux() *Mux {
	base, stop := context.WithCancel(context.Background())
	return &Mux{
		fetchers: make(map[string]Fetcher),
		events:   make(chan Event, 256),
		base:     base,
		stop:     stop,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Handle registers f for every scheme in schemes.
func (m *Mux) Handle(f Fetcher, schemes ...string) {
	for _, s := range schemes {
		m.fetchers[strings.ToLower(s)] = f
	}
}

func (m *Mux) Events() <-chan Event {
	return m.events
}

// Start launches the transfer in the background; it never blocks on I/O.
func (m *Mux) Start(req Request) {
	ctx, cancel := context.WithCancel(m.base)
	m.mu.Lock()
	m.cancels[req.JobID] = cancel
	m.mu.Unlock()
	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.cancels, req.JobID)
			m.mu.Unlock()
			cancel()
		}()
		m.run(ctx, req)
	}()
}

// Cancel aborts a running transfer. Unknown ids are ignored.
func (m *Mux) Cancel(jobID string) {
	m.mu.Lock()
	cancel, ok := m.cancels[jobID]
	m.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close aborts every running transfer. Events still pending are dropped
// once their transfer is canceled.
func (m *Mux) Close() {
	m.stop()
}

func (m *Mux) run(ctx context.Context, req Request) {
	fetcher, err := m.fetcherFor(req.URL)
	if err != nil {
		m.fail(ctx, req.JobID, err)
		return
	}
	if err := os.MkdirAll(req.Directory, 0755); err != nil {
		m.fail(ctx, req.JobID, fmt.Errorf("error creating destination directory: %v", err))
		return
	}
	outputPath := outputPathFor(req)
	reporter := newProgressReporter(ctx, req.JobID, m.events)
	log.Debug().Str("op", "transport/mux").Msgf("starting transfer %s -> %s", req.URL, outputPath)
	finalPath, err := fetcher.Fetch(ctx, req, outputPath, reporter.report)
	if err != nil {
		m.fail(ctx, req.JobID, err)
		return
	}
	log.Info().Str("op", "transport/mux").Msgf("transfer complete for %s", finalPath)
	send(ctx, m.events, Event{JobID: req.JobID, Kind: EventProgress, Percentage: 100})
	send(ctx, m.events, Event{JobID: req.JobID, Kind: EventComplete, Percentage: 100, Path: finalPath})
}

func (m *Mux) fail(ctx context.Context, jobID string, err error) {
	log.Error().Str("op", "transport/mux").Str("job", jobID).Err(err).Msg("transfer failed")
	send(ctx, m.events, Event{JobID: jobID, Kind: EventFailed, Err: err})
}

// send delivers ev unless the transfer was canceled while the channel is full.
// A free slot always wins over cancellation.
func send(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	default:
	}
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (m *Mux) fetcherFor(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}
	f, ok := m.fetchers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("unsupported scheme: %q", u.Scheme)
	}
	return f, nil
}

// progressReporter turns byte counts into throttled percentage events. When
// the size is unknown it emits activity events instead, so a transfer that is
// still receiving data is not mistaken for a stalled one. It is safe for
// fetchers that report from several goroutines.
type progressReporter struct {
	mu        sync.Mutex
	ctx       context.Context
	jobID     string
	events    chan<- Event
	last      time.Time
	lastPct   float64
	lastBytes int64
	interval  time.Duration
}

func newProgressReporter(ctx context.Context, jobID string, events chan<- Event) *progressReporter {
	return &progressReporter{ctx: ctx, jobID: jobID, events: events, interval: progressInterval}
}

func (p *progressReporter) report(downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.last) < p.interval {
		return
	}
	if total <= 0 {
		if downloaded <= p.lastBytes {
			return
		}
		p.last = time.Now()
		p.lastBytes = downloaded
		send(p.ctx, p.events, Event{JobID: p.jobID, Kind: EventActivity})
		return
	}
	pct := min(float64(downloaded)*100/float64(total), 100)
	if pct <= p.lastPct {
		return
	}
	p.last = time.Now()
	p.lastPct = pct
	p.lastBytes = downloaded
	send(p.ctx, p.events, Event{JobID: p.jobID, Kind: EventProgress, Percentage: pct})
}
