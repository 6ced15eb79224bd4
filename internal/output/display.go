package output

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tanq16/rominator/internal/downloads"
)

const (
	displayTick   = 300 * time.Millisecond
	maxShownDone  = 8
	progressWidth = 30
)

// JobLister is satisfied by downloads.Manager.
type JobLister interface {
	Jobs() []downloads.Job
}

// Display redraws the job list in place on a terminal. Without a terminal it
// prints one line per finished job instead.
type Display struct {
	jobs        JobLister
	interactive bool
	numLines    int
	reported    map[string]bool
	doneCh      chan struct{}
	wg          sync.WaitGroup
}

func NewDisplay(jobs JobLister, interactive bool) *Display {
	return &Display{
		jobs:        jobs,
		interactive: interactive,
		reported:    make(map[string]bool),
		doneCh:      make(chan struct{}),
	}
}

func (d *Display) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(displayTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.update()
			case <-d.doneCh:
				d.update()
				d.printSummary()
				return
			}
		}
	}()
}

func (d *Display) Stop() {
	close(d.doneCh)
	d.wg.Wait()
}

func (d *Display) update() {
	jobs := d.jobs.Jobs()
	if !d.interactive {
		for _, line := range d.finishedLines(jobs) {
			fmt.Fprintln(Out, line)
		}
		return
	}
	if d.numLines > 0 {
		fmt.Fprintf(Out, "\033[%dA\033[J", d.numLines)
	}
	lines := Render(jobs, getTerminalWidth(), getTerminalHeight()-3)
	for _, line := range lines {
		fmt.Fprintln(Out, line)
	}
	d.numLines = len(lines)
}

// finishedLines returns a line for every job that turned terminal since the
// previous call.
func (d *Display) finishedLines(jobs []downloads.Job) []string {
	var out []string
	for _, j := range jobs {
		if !j.Status.IsTerminal() || d.reported[j.ID] {
			continue
		}
		d.reported[j.ID] = true
		out = append(out, jobLine(j, 0))
	}
	return out
}

// Render lays out jobs as active, then waiting, then finished, dropping the
// oldest finished jobs first when maxLines is exceeded.
func Render(jobs []downloads.Job, width, maxLines int) []string {
	if maxLines <= 0 {
		maxLines = 21
	}
	var active, waiting, finished []downloads.Job
	for _, j := range jobs {
		switch {
		case j.Status.IsActive():
			active = append(active, j)
		case j.Status.IsTerminal():
			finished = append(finished, j)
		default:
			waiting = append(waiting, j)
		}
	}
	var lines []string
	for _, group := range [][]downloads.Job{active, waiting} {
		for _, j := range group {
			lines = append(lines, jobLine(j, width))
		}
	}
	room := max(0, maxLines-len(lines))
	if len(finished) > maxShownDone {
		hidden := len(finished) - maxShownDone
		finished = finished[hidden:]
		if room > 0 {
			lines = append(lines, FInfo(fmt.Sprintf("  %d earlier downloads finished ...", hidden)))
			room--
		}
	}
	if len(finished) > room {
		finished = finished[len(finished)-room:]
	}
	for _, j := range finished {
		lines = append(lines, jobLine(j, width))
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func jobLine(j downloads.Job, width int) string {
	nameWidth := 40
	if width > 0 {
		nameWidth = max(12, width-progressWidth-20)
	}
	name := truncate(j.DisplayName(), nameWidth)
	indent := strings.Repeat(" ", 2)
	switch j.Status {
	case downloads.StatusDownloading:
		return fmt.Sprintf("%s%s %s %s", indent, pendingStyle.Render(StyleSymbols["pending"]), name, ProgressBar(j.Progress, progressWidth))
	case downloads.StatusDone:
		elapsed := j.FinishedAt.Sub(j.StartedAt).Round(time.Second)
		return fmt.Sprintf("%s%s %s %s", indent, successStyle.Render(StyleSymbols["pass"]), successStyle.Render(name), FDebug(elapsed.String()))
	case downloads.StatusError:
		return fmt.Sprintf("%s%s %s %s", indent, errorStyle.Render(StyleSymbols["fail"]), errorStyle.Render(name), FDebug(j.Error))
	case downloads.StatusQueued:
		return fmt.Sprintf("%s%s %s %s", indent, streamStyle.Render(StyleSymbols["queued"]), name, FDebug("queued"))
	default:
		return fmt.Sprintf("%s%s %s %s", indent, streamStyle.Render(StyleSymbols["queued"]), name, FDebug("resolving"))
	}
}

// Summary counts finished jobs and lists every failure.
func Summary(jobs []downloads.Job) []string {
	var done, failed int
	var failures []downloads.Job
	for _, j := range jobs {
		switch j.Status {
		case downloads.StatusDone:
			done++
		case downloads.StatusError:
			failed++
			failures = append(failures, j)
		}
	}
	lines := []string{success2Style.Render(fmt.Sprintf("  Completed %d of %d", done, len(jobs)))}
	if failed == 0 {
		return lines
	}
	lines = append(lines, errorStyle.Render(fmt.Sprintf("  Failed %d of %d", failed, len(jobs))))
	lines = append(lines, "", errorStyle.Bold(true).Render("  Errors:"))
	for i, j := range failures {
		lines = append(lines,
			fmt.Sprintf("    %s %s", errorStyle.Render(fmt.Sprintf("%d.", i+1)), errorStyle.Render(j.DisplayName())),
			fmt.Sprintf("      %s", errorStyle.Render("Error: "+j.Error)),
		)
	}
	return lines
}

func (d *Display) printSummary() {
	fmt.Fprintln(Out)
	for _, line := range Summary(d.jobs.Jobs()) {
		fmt.Fprintln(Out, line)
	}
	fmt.Fprintln(Out)
}
