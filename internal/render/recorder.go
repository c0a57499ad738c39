package render

import (
	"context"
	"log/slog"

	"github.com/heimdex/clip-agent/internal/logging"
)

// Recorder drains dispatcher events into the log and the job history.
type Recorder struct {
	history History
	logger  *slog.Logger
}

func NewRecorder(history History, logger *slog.Logger) *Recorder {
	return &Recorder{
		history: history,
		logger:  logging.WithComponent(logging.OrDiscard(logger), "render"),
	}
}

// Run records events until ctx is done or events is closed.
func (r *Recorder) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.record(ctx, ev)
		}
	}
}

func (r *Recorder) record(ctx context.Context, ev Event) {
	job := ev.Job
	switch {
	case !ev.Finished():
		r.logger.Info("render started", "job_id", job.ID)
	case ev.Err != nil:
		r.logger.Warn("render failed", "job_id", job.ID, "status", job.Status, "error", ev.Err)
	default:
		r.logger.Info("render completed", "job_id", job.ID, "outputs", job.Outputs)
	}

	if r.history == nil {
		return
	}
	if err := r.history.Save(ctx, job); err != nil {
		r.logger.Error("failed to record render job", "job_id", job.ID, "status", job.Status, "error", err)
	}
}
