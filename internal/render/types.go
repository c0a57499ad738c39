// Package render hands exported timelines to an external render engine and
// records what became of each job.
package render

import (
	"context"
	"time"
)

const (
	StatusRunning     = "running"
	StatusSucceeded   = "succeeded"
	StatusFailed      = "failed"
	StatusInterrupted = "interrupted"
)

// Engine renders the clips listed in a timeline file into outputDir and
// returns the paths it produced.
type Engine interface {
	Render(ctx context.Context, timelineFile, outputDir string) ([]string, error)
}

// Job is one dispatched render.
type Job struct {
	ID           string     `json:"id"`
	TimelineFile string     `json:"timeline_file"`
	OutputDir    string     `json:"output_dir"`
	Status       string     `json:"status"`
	Outputs      []string   `json:"outputs"`
	Error        string     `json:"error,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// Event reports a job starting or finishing. Events for one job arrive in
// order.
type Event struct {
	Job Job
	Err error
}

// Finished reports whether the event closes out its job.
func (e Event) Finished() bool {
	return e.Job.Status != StatusRunning
}
