// Package transport performs the network fetch of admitted download jobs and
// reports progress and completion on a process-wide event channel.
package transport

import (
	"path/filepath"

	"github.com/tanq16/rominator/internal/platforms"
)

type Request struct {
	JobID     string
	URL       string
	Headers   map[string]string
	Directory string
	Filename  string
}

type EventKind string

const (
	EventProgress EventKind = "progress"
	// EventActivity reports received bytes for a transfer of unknown size.
	EventActivity EventKind = "activity"
	EventComplete EventKind = "complete"
	EventFailed   EventKind = "failed"
)

// Event is tagged with the job it belongs to. Percentage is in [0, 100].
type Event struct {
	JobID      string
	Kind       EventKind
	Percentage float64
	Path       string // final file path, set on completion
	Err        error
}

// DestinationDir returns <root>/<vendor>/<platform>. Unknown platforms land
// in unbranded/<id> and results without a platform in unbranded/generic.
func DestinationDir(root, platformID string) string {
	vendor := "unbranded"
	folder := "generic"
	if platformID != "" {
		folder = platformID
		if p, ok := platforms.Get(platformID); ok {
			vendor = p.Vendor
		}
	}
	return filepath.Join(root, vendor, folder)
}
