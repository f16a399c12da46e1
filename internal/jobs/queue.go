// Package jobs runs pipeline jobs on a fixed pool of background workers and
// keeps a registry of their status.
package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"time"

	apperrors "location-reconciler/internal/errors"
	"location-reconciler/internal/pipeline"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var (
	// ErrQueueFull is returned when no more tasks can be buffered.
	ErrQueueFull   = errors.New("jobs: queue full")
	// ErrQueueClosed is returned by Submit after Stop.
	ErrQueueClosed = errors.New("jobs: queue closed")
)

// Task is the work for one job.
type Task struct {
	ID      string
	Inputs  pipeline.Inputs
	Options pipeline.Options
}

// Job is a snapshot of a job's state.
type Job struct {
	ID        string           `json:"id"`
	Status    Status           `json:"status"`
	Stage     string           `json:"stage,omitempty"`
	Progress  int              `json:"progress"`
	Error     map[string]any   `json:"error,omitempty"`
	Result    *pipeline.Result `json:"result,omitempty"`
	Files     []string         `json:"files,omitempty"`
	OutputDir string           `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Outcome is delivered once on a job's result channel.
type Outcome struct {
	JobID  string
	Result *pipeline.Result
	Err    error
}

// RunFunc executes one task, reporting progress as it goes.
type RunFunc func(ctx context.Context, task Task, progress pipeline.ProgressFunc) (*pipeline.Result, error)

// PipelineRunner runs tasks through pipeline.RunFiles with a shared
// resolver.
func PipelineRunner(resolver pipeline.Enricher) RunFunc {
	return func(ctx context.Context, task Task, progress pipeline.ProgressFunc) (*pipeline.Result, error) {
		opts := task.Options
		opts.Progress = progress
		return pipeline.RunFiles(ctx, task.Inputs, opts, resolver)
	}
}

// Option configures a Queue.
type Option func(*Queue)

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

// WithTimeout bounds a single job.
func WithTimeout(d time.Duration) Option {
	return func(q *Queue) {
		q.timeout = d
	}
}

// WithCapacity sets how many tasks may wait for a worker.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithOutputRoot places each job's output under root/<job id> unless the
// task names its own output directory.
func WithOutputRoot(root string) Option {
	return func(q *Queue) {
		q.outputRoot = root
	}
}

type queued struct {
	task    Task
	results chan Outcome
}

// Queue owns the job registry and the worker pool.
type Queue struct {
	run        RunFunc
	workers    int
	capacity   int
	timeout    time.Duration
	outputRoot string

	mu     sync.RWMutex
	jobs   map[string]*Job
	tasks  chan queued
	closed bool

	group  *errgroup.Group
	cancel context.CancelFunc
	done   <-chan struct{}
}

// NewQueue creates a Queue. Call Start before submitting work.
func NewQueue(run RunFunc, opts ...Option) *Queue {
	q := &Queue{
		run:        run,
		workers:    2,
		capacity:   64,
		timeout:    30 * time.Minute,
		outputRoot: "outputs",
		jobs:       make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan queued, q.capacity)
	return q
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.group, ctx = errgroup.WithContext(ctx)
	q.mu.Lock()
	q.done = ctx.Done()
	q.mu.Unlock()
	for i := 0; i < q.workers; i++ {
		worker := i
		q.group.Go(func() error {
			q.work(ctx, worker)
			return nil
		})
	}
	log.Info().Int("workers", q.workers).Msg("job workers started")
}

// Stop stops accepting tasks, lets queued tasks drain and waits for the
// workers. When the workers' context was cancelled first, tasks that never
// started are marked failed and still receive their Outcome.
func (q *Queue) Stop() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	if q.group == nil {
		q.drain(ErrQueueClosed)
		return nil
	}
	err := q.group.Wait()
	q.cancel()
	q.drain(ErrQueueClosed)
	return err
}

// Submit registers a job and queues its task. The returned channel receives
// exactly one Outcome.
func (q *Queue) Submit(task Task) (Job, <-chan Outcome, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Options.OutputDir == "" {
		task.Options.OutputDir = filepath.Join(q.outputRoot, task.ID)
	}

	now := time.Now().UTC()
	job := &Job{
		ID:        task.ID,
		Status:    StatusQueued,
		OutputDir: task.Options.OutputDir,
		CreatedAt: now,
		UpdatedAt: now,
	}
	results := make(chan Outcome, 1)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || q.stopping() {
		return Job{}, nil, ErrQueueClosed
	}
	if _, exists := q.jobs[task.ID]; exists {
		return Job{}, nil, eris.Errorf("jobs: duplicate job id %s", task.ID)
	}

	select {
	case q.tasks <- queued{task: task, results: results}:
	default:
		return Job{}, nil, ErrQueueFull
	}
	q.jobs[task.ID] = job

	log.Info().Str("job_id", task.ID).Msg("job queued")
	return *job, results, nil
}

// stopping reports whether the workers' context is done. q.mu must be held.
func (q *Queue) stopping() bool {
	if q.done == nil {
		return false
	}
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Get returns a snapshot of one job.
func (q *Queue) Get(id string) (Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return Job{}, apperrors.ErrJobNotFound
	}
	return *job, nil
}

// List returns every job, newest first.
func (q *Queue) List() []Job {
	q.mu.RLock()
	out := make([]Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, *job)
	}
	q.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (q *Queue) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			q.drain(ctx.Err())
			return
		case item, ok := <-q.tasks:
			if !ok {
				return
			}
			if err := ctx.Err(); err != nil {
				q.abandon(item, err)
				continue
			}
			q.process(ctx, worker, item)
		}
	}
}

// drain fails every buffered task without blocking.
func (q *Queue) drain(cause error) {
	for {
		select {
		case item, ok := <-q.tasks:
			if !ok {
				return
			}
			q.abandon(item, cause)
		default:
			return
		}
	}
}

// abandon answers a task that will never run.
func (q *Queue) abandon(item queued, cause error) {
	id := item.task.ID
	err := eris.Wrap(cause, "jobs: queue shut down before the job started")
	q.update(id, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errorPayload(j.Stage, err)
	})
	log.Warn().Str("job_id", id).Err(cause).Msg("job abandoned")

	item.results <- Outcome{JobID: id, Err: err}
	close(item.results)
}

func (q *Queue) process(ctx context.Context, worker int, item queued) {
	id := item.task.ID
	logger := log.With().Str("job_id", id).Int("worker", worker).Logger()

	q.update(id, func(j *Job) {
		j.Status = StatusProcessing
	})
	logger.Info().Msg("job started")

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	progress := func(stage string, percent int) {
		q.update(id, func(j *Job) {
			j.Stage = stage
			j.Progress = percent
		})
	}

	result, err := q.run(ctx, item.task, progress)
	if err != nil {
		q.update(id, func(j *Job) {
			j.Status = StatusFailed
			j.Error = errorPayload(j.Stage, err)
		})
		logger.Error().Err(err).Msg("job failed")
	} else {
		q.update(id, func(j *Job) {
			j.Status = StatusCompleted
			j.Progress = 100
			j.Result = result
			j.Files = archiveNames(result)
		})
		logger.Info().Int("archives", len(result.Archives)).Msg("job completed")
	}

	item.results <- Outcome{JobID: id, Result: result, Err: err}
	close(item.results)
}

func (q *Queue) update(id string, fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok {
		fn(job)
		job.UpdatedAt = time.Now().UTC()
	}
}

func errorPayload(stage string, err error) map[string]any {
	var perr *apperrors.ProcessingError
	if errors.As(err, &perr) {
		return perr.AsMap()
	}
	return map[string]any{"stage": stage, "message": err.Error()}
}

func archiveNames(result *pipeline.Result) []string {
	if result == nil {
		return nil
	}
	names := make([]string, 0, len(result.Archives)+1)
	for _, path := range result.Archives {
		names = append(names, filepath.Base(path))
	}
	sort.Strings(names)
	if result.ReportPath != "" {
		names = append(names, filepath.Base(result.ReportPath))
	}
	return names
}
