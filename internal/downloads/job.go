// Package downloads owns the live collection of download jobs and the
// scheduler that admits queued jobs into a bounded number of active slots.
package downloads

import (
	"maps"
	"time"

	"github.com/tanq16/rominator/internal/sources"
)

// Status is the state of one job.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusQueued       Status = "queued"
	StatusDownloading  Status = "downloading"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// IsActive reports whether a transfer slot is taken.
func (s Status) IsActive() bool {
	return s == StatusDownloading
}

// Job is a point-in-time copy of one download. Only the Manager mutates the
// stored original.
type Job struct {
	ID         string
	Result     sources.SearchResult
	SourceID   string
	Status     Status
	Progress   float64 // 0.0 to 1.0
	URL        string
	Headers    map[string]string
	Filename   string
	Error      string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
	UpdatedAt  time.Time
}

func (j Job) clone() Job {
	j.Headers = maps.Clone(j.Headers)
	return j
}

// Percent returns progress as an integer percentage.
func (j Job) Percent() int {
	return int(j.Progress * 100)
}

// DisplayName prefers the result name, then the resolved filename.
func (j Job) DisplayName() string {
	if j.Result.Name != "" {
		return j.Result.Name
	}
	if j.Filename != "" {
		return j.Filename
	}
	return j.ID
}
