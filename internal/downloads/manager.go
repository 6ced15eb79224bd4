package downloads

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/rominator/internal/sources"
	"github.com/tanq16/rominator/internal/transport"
	"github.com/tanq16/rominator/internal/utils"
)

const (
	DefaultMaxRunning   = 4
	DefaultTickInterval = 500 * time.Millisecond
)

// Transport starts admitted jobs and reports on their progress.
type Transport interface {
	Start(req transport.Request)
	Events() <-chan transport.Event
}

// Canceler is implemented by transports that can abort a running transfer.
type Canceler interface {
	Cancel(jobID string)
}

type Options struct {
	MaxRunning   int
	TickInterval time.Duration
	// StallTimeout moves a downloading job to error when neither progress nor
	// activity arrived for that long. Zero disables it.
	StallTimeout time.Duration
	DownloadsDir string
}

// Manager is the download orchestrator. Jobs are created by AddJob, resolved
// by their source in the background, admitted by Tick and finished by
// transport events.
type Manager struct {
	store     *store
	transport Transport
	opts      Options
	tickMu    sync.Mutex
	resolving sync.WaitGroup
	now       func() time.Time
}

func NewManager(t Transport, opts Options) *Manager {
	if opts.MaxRunning <= 0 {
		opts.MaxRunning = DefaultMaxRunning
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	return &Manager{
		store:     newStore(),
		transport: t,
		opts:      opts,
		now:       time.Now,
	}
}

func (m *Manager) Options() Options {
	return m.opts
}

// AddJob registers a new job for result and asks src to resolve it in the
// background. The returned copy is still initializing.
func (m *Manager) AddJob(ctx context.Context, result sources.SearchResult, src sources.Source) Job {
	now := m.now()
	job := Job{
		ID:        uuid.NewString(),
		Result:    result,
		SourceID:  src.ID(),
		Status:    StatusInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.store.insert(job)
	log.Debug().Str("op", "downloads/manager").Str("job", job.ID).Msgf("job created for %s", result.ID)
	m.resolving.Add(1)
	go func() {
		defer m.resolving.Done()
		m.resolve(ctx, job.ID, result, src)
	}()
	return job.clone()
}

func (m *Manager) resolve(ctx context.Context, id string, result sources.SearchResult, src sources.Source) {
	info, err := safeResolve(ctx, src, result)
	if err == nil && (info == nil || info.URL == "") {
		err = sources.ErrNoDownload
	}
	m.store.update(id, func(j *Job) {
		if j.Status != StatusInitializing {
			return
		}
		j.UpdatedAt = m.now()
		if err != nil {
			j.Status = StatusError
			j.Error = err.Error()
			j.FinishedAt = j.UpdatedAt
			return
		}
		j.URL = info.URL
		j.Headers = info.Headers
		j.Filename = info.Filename
		if j.Filename == "" {
			j.Filename = filenameFromURL(info.URL)
		}
		j.Status = StatusQueued
	})
	if err != nil {
		log.Warn().Str("op", "downloads/manager").Str("job", id).Err(err).Msgf("could not resolve %s", result.ID)
		return
	}
	log.Debug().Str("op", "downloads/manager").Str("job", id).Msgf("job queued for %s", info.URL)
}

func safeResolve(ctx context.Context, src sources.Source, result sources.SearchResult) (info *sources.DownloadInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panicked: %v", r)
		}
	}()
	return src.ResolveDownload(ctx, result)
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "download"
	}
	name, err := url.PathUnescape(path.Base(u.Path))
	if err != nil {
		name = path.Base(u.Path)
	}
	return utils.SanitizeFilename(name)
}

// Tick runs one scheduling pass: it fails stalled transfers, then promotes
// queued jobs in insertion order while fewer than MaxRunning are downloading.
// Ticks never overlap.
func (m *Manager) Tick() {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	now := m.now()
	var toStart []transport.Request
	var stalled []string
	running := 0
	m.store.scan(func(j *Job) {
		if j.Status != StatusDownloading {
			return
		}
		if m.opts.StallTimeout > 0 && now.Sub(j.UpdatedAt) > m.opts.StallTimeout {
			j.Status = StatusError
			j.Error = fmt.Sprintf("stalled: no progress for %s", m.opts.StallTimeout)
			j.FinishedAt = now
			j.UpdatedAt = now
			stalled = append(stalled, j.ID)
			return
		}
		running++
	})
	m.store.scan(func(j *Job) {
		if j.Status != StatusQueued || running >= m.opts.MaxRunning {
			return
		}
		running++
		j.Status = StatusDownloading
		j.StartedAt = now
		j.UpdatedAt = now
		toStart = append(toStart, transport.Request{
			JobID:     j.ID,
			URL:       j.URL,
			Headers:   j.clone().Headers,
			Directory: transport.DestinationDir(m.opts.DownloadsDir, j.Result.Platform),
			Filename:  j.Filename,
		})
	})

	if c, ok := m.transport.(Canceler); ok {
		for _, id := range stalled {
			c.Cancel(id)
		}
	}
	for _, id := range stalled {
		log.Warn().Str("op", "downloads/manager").Str("job", id).Msg("download stalled")
	}
	for _, req := range toStart {
		log.Info().Str("op", "downloads/manager").Str("job", req.JobID).Msgf("starting download of %s", req.Filename)
		m.transport.Start(req)
	}
}

// Run ticks every TickInterval and feeds transport events into the job
// collection until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()
	events := m.transport.Events()
	m.Tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			m.HandleEvent(ev)
		}
	}
}

func (m *Manager) HandleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventProgress:
		m.HandleProgress(ev.JobID, ev.Percentage)
	case transport.EventActivity:
		m.HandleActivity(ev.JobID)
	case transport.EventComplete:
		m.HandleComplete(ev.JobID)
	case transport.EventFailed:
		m.HandleFailure(ev.JobID, ev.Err)
	}
}

// HandleProgress records a percentage in [0, 100]. Progress never moves
// backwards and terminal jobs are left alone. Unknown ids are ignored.
func (m *Manager) HandleProgress(id string, percentage float64) {
	p := max(0, min(percentage/100, 1))
	m.store.update(id, func(j *Job) {
		if j.Status.IsTerminal() {
			return
		}
		if p > j.Progress {
			j.Progress = p
		}
		j.UpdatedAt = m.now()
	})
}

// HandleActivity notes that a downloading job of unknown size is still
// receiving data. It keeps the job clear of the stall timeout without moving
// its progress.
func (m *Manager) HandleActivity(id string) {
	m.store.update(id, func(j *Job) {
		if j.Status != StatusDownloading {
			return
		}
		j.UpdatedAt = m.now()
	})
}

// HandleComplete finishes a downloading job. Repeated completions are no-ops.
func (m *Manager) HandleComplete(id string) {
	m.store.update(id, func(j *Job) {
		if j.Status != StatusDownloading {
			return
		}
		now := m.now()
		j.Status = StatusDone
		j.Progress = 1
		j.FinishedAt = now
		j.UpdatedAt = now
	})
}

// HandleFailure moves a downloading job to error.
func (m *Manager) HandleFailure(id string, err error) {
	m.store.update(id, func(j *Job) {
		if j.Status != StatusDownloading {
			return
		}
		now := m.now()
		j.Status = StatusError
		j.Error = "transfer failed"
		if err != nil {
			j.Error = err.Error()
		}
		j.FinishedAt = now
		j.UpdatedAt = now
	})
}

// Jobs returns copies of every job in insertion order.
func (m *Manager) Jobs() []Job {
	return m.store.snapshot()
}

func (m *Manager) Get(id string) (Job, bool) {
	return m.store.get(id)
}

// Counts tallies jobs per status.
func (m *Manager) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, j := range m.store.snapshot() {
		counts[j.Status]++
	}
	return counts
}

// Idle reports whether every job is terminal.
func (m *Manager) Idle() bool {
	for _, j := range m.store.snapshot() {
		if !j.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Wait blocks until every job is terminal or ctx is done. Run must be active
// for jobs to make progress.
func (m *Manager) Wait(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.TickInterval)
	defer ticker.Stop()
	for !m.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	m.resolving.Wait()
	return nil
}

func (m *Manager) Len() int {
	return m.store.len()
}
