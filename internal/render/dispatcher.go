package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heimdex/clip-agent/internal/apperrors"
	"github.com/heimdex/clip-agent/internal/export"
	"github.com/heimdex/clip-agent/internal/logging"
	"github.com/heimdex/clip-agent/internal/metrics"
)

const (
	defaultWorkers     = 2
	defaultJobTimeout  = 2 * time.Hour
	defaultEventBuffer = 64
)

type Options struct {
	Engine     Engine
	Workers    int
	JobTimeout time.Duration

	Clock   clockwork.Clock
	Metrics *metrics.Engine
	Logger  *slog.Logger
}

// Dispatcher launches render jobs in the background. Callers get no handle
// on a job: it cannot be cancelled, is never retried, and its outcome is
// only visible on the Events channel.
type Dispatcher struct {
	engine     Engine
	jobTimeout time.Duration
	sem        chan struct{}
	events     chan Event

	clock   clockwork.Clock
	metrics *metrics.Engine
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = defaultJobTimeout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	logger := logging.WithComponent(logging.OrDiscard(opts.Logger), "render")
	if opts.Engine == nil {
		opts.Engine = &StubEngine{Logger: logger}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		engine:     opts.Engine,
		jobTimeout: opts.JobTimeout,
		sem:        make(chan struct{}, opts.Workers),
		events:     make(chan Event, defaultEventBuffer),
		clock:      opts.Clock,
		metrics:    opts.Metrics,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Events delivers a started and a finished event for every dispatched job.
func (d *Dispatcher) Events() <-chan Event {
	return d.events
}

// Dispatch validates the paths and starts the job. It returns as soon as the
// job is scheduled.
func (d *Dispatcher) Dispatch(timelineFile, outputDir string) error {
	if err := export.ValidateInputFile("json_file", timelineFile); err != nil {
		return err
	}
	if err := export.ValidateOutputDir("output_directory", outputDir); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return apperrors.Unavailable("render dispatcher is shutting down", nil)
	}

	job := Job{
		ID:           uuid.NewString(),
		TimelineFile: timelineFile,
		OutputDir:    outputDir,
		Status:       StatusRunning,
		Outputs:      []string{},
		StartedAt:    d.clock.Now().UTC(),
	}

	d.wg.Add(1)
	go d.run(job)

	d.metrics.ObserveRenderDispatch()
	d.logger.Info("render dispatched",
		"job_id", job.ID,
		"timeline", logging.SanitizePath(timelineFile),
		"output_dir", logging.SanitizePath(outputDir),
	)
	return nil
}

func (d *Dispatcher) run(job Job) {
	defer d.wg.Done()

	select {
	case d.sem <- struct{}{}:
	case <-d.ctx.Done():
		d.finish(job, nil, d.ctx.Err())
		return
	}
	defer func() { <-d.sem }()

	d.emit(Event{Job: job})

	ctx, cancel := context.WithTimeout(d.ctx, d.jobTimeout)
	defer cancel()

	outputs, err := d.render(ctx, job)
	d.finish(job, outputs, err)
}

// render calls the engine, turning a panic into a failed job.
func (d *Dispatcher) render(ctx context.Context, job Job) (outputs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("render engine panicked", "job_id", job.ID, "panic", r)
			outputs, err = nil, fmt.Errorf("render engine panicked: %v", r)
		}
	}()
	return d.engine.Render(ctx, job.TimelineFile, job.OutputDir)
}

func (d *Dispatcher) finish(job Job, outputs []string, err error) {
	finished := d.clock.Now().UTC()
	job.FinishedAt = &finished

	switch {
	case err == nil:
		job.Status = StatusSucceeded
		if outputs != nil {
			job.Outputs = outputs
		}
	case d.ctx.Err() != nil:
		job.Status = StatusInterrupted
		job.Error = err.Error()
	default:
		job.Status = StatusFailed
		job.Error = err.Error()
	}

	d.metrics.ObserveRenderCompletion(err)
	d.emit(Event{Job: job, Err: err})
}

// emit hands an event to the recorder. Once shutdown has begun an event may
// be dropped; the row is then closed out as interrupted on next start.
func (d *Dispatcher) emit(ev Event) {
	select {
	case d.events <- ev:
	case <-d.ctx.Done():
		d.logger.Warn("render event dropped during shutdown", "job_id", ev.Job.ID, "status", ev.Job.Status)
	}
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to
// return or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
