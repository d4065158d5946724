package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/config"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ IExecutionQueue = (*ExecutionQueue)(nil)

const (
	progressStarted = 10
	progressDone    = 100
)

type Options struct {
	PoolSize      int
	LaneCapacity  int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	KeepCompleted int
	KeepFailed    int
}

func OptionsFromConfig(cfg *config.QueueConfig) Options {
	return Options{
		PoolSize:      cfg.PoolSize,
		LaneCapacity:  cfg.LaneCapacity,
		MaxAttempts:   cfg.MaxAttempts,
		BackoffBase:   cfg.BackoffBase,
		BackoffMax:    cfg.BackoffMax,
		KeepCompleted: cfg.KeepCompleted,
		KeepFailed:    cfg.KeepFailed,
	}
}

func (o *Options) withDefaults() {
	if o.PoolSize <= 0 {
		o.PoolSize = 5
	}
	if o.LaneCapacity <= 0 {
		o.LaneCapacity = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = o.BackoffBase
	}
	if o.KeepCompleted <= 0 {
		o.KeepCompleted = 100
	}
	if o.KeepFailed <= 0 {
		o.KeepFailed = 50
	}
}

type jobRecord struct {
	job  *domain.Job
	done chan struct{}
}

// ExecutionQueue feeds two buffered lanes into a fixed pool of workers.
// A job's fields change only under mu, and only the worker that dequeued it
// moves it past Queued.
type ExecutionQueue struct {
	backend secondary.SandboxBackend
	logger  primary.Logger
	opts    Options

	high   chan *jobRecord
	normal chan *jobRecord

	mu        sync.RWMutex
	jobs      map[uuid.UUID]*jobRecord
	completed []uuid.UUID
	failed    []uuid.UUID
	closed    bool

	cancel context.CancelFunc
	wg     sync.WaitGroup

	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutionQueue(backend secondary.SandboxBackend, opts Options, logger primary.Logger) *ExecutionQueue {
	opts.withDefaults()
	return &ExecutionQueue{
		backend: backend,
		logger:  logger,
		opts:    opts,
		high:    make(chan *jobRecord, opts.LaneCapacity),
		normal:  make(chan *jobRecord, opts.LaneCapacity),
		jobs:    make(map[uuid.UUID]*jobRecord),
		sleep:   sleepCtx,
	}
}

// Start launches the worker pool. Workers stop when ctx ends or Stop is called.
func (q *ExecutionQueue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(q.opts.PoolSize)
	for i := 0; i < q.opts.PoolSize; i++ {
		go func(worker int) {
			defer q.wg.Done()
			q.work(ctx, worker)
		}(i)
	}
	q.logger.Info("Execution queue started", "poolSize", q.opts.PoolSize, "backend", q.backend.Name())
}

// Stop cancels the workers, waits for them, and fails jobs that never started.
// Queued jobs are failed even when ctx ends before the workers exit.
func (q *ExecutionQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}

	stopped := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(stopped)
	}()

	var err error
	select {
	case <-stopped:
	case <-ctx.Done():
		err = fmt.Errorf("waiting for queue workers: %w", ctx.Err())
	}

	abandoned := q.abandonQueued()
	q.logger.Info("Execution queue stopped", "abandonedJobs", abandoned)
	return err
}

func (q *ExecutionQueue) abandonQueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	abandoned := 0
	for _, rec := range q.jobs {
		if rec.job.Status == domain.JobStatusQueued {
			rec.job.Error = "queue stopped before the job started"
			q.finishLocked(rec, domain.JobStatusFailed, nil)
			abandoned++
		}
	}
	return abandoned
}

func (q *ExecutionQueue) Submit(_ context.Context, payload domain.JobPayload, priority domain.JobPriority) (uuid.UUID, error) {
	rec, err := q.enqueue(payload, priority)
	if err != nil {
		return uuid.Nil, err
	}
	return rec.job.ID, nil
}

// Run holds the record itself, so retention trimming cannot lose the job
func (q *ExecutionQueue) Run(ctx context.Context, payload domain.JobPayload, priority domain.JobPriority) (*domain.Job, error) {
	rec, err := q.enqueue(payload, priority)
	if err != nil {
		return nil, err
	}
	select {
	case <-rec.done:
		return q.snapshot(rec), nil
	case <-ctx.Done():
		q.mu.Lock()
		if rec.job.Status == domain.JobStatusQueued {
			q.finishLocked(rec, domain.JobStatusCancelled, nil)
		}
		q.mu.Unlock()
		return nil, ctx.Err()
	}
}

func (q *ExecutionQueue) enqueue(payload domain.JobPayload, priority domain.JobPriority) (*jobRecord, error) {
	rec := &jobRecord{
		job:  domain.NewJob(payload, priority, q.opts.MaxAttempts),
		done: make(chan struct{}),
	}
	lane := q.normal
	if priority == domain.PriorityHigh {
		lane = q.high
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, errs.ErrQueueClosed
	}
	select {
	case lane <- rec:
	default:
		q.logger.Warn("Execution queue lane full", "priority", priority.String(), "capacity", q.opts.LaneCapacity)
		return nil, errs.ErrQueueFull
	}
	q.jobs[rec.job.ID] = rec

	q.logger.Debug("Job queued", "jobId", rec.job.ID, "priority", priority.String(), "language", payload.Language)
	return rec, nil
}

func (q *ExecutionQueue) lookup(jobID uuid.UUID) (*jobRecord, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	rec, ok := q.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}
	return rec, nil
}

func (q *ExecutionQueue) snapshot(rec *jobRecord) *domain.Job {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return rec.job.Snapshot()
}

func (q *ExecutionQueue) Status(_ context.Context, jobID uuid.UUID) (*domain.Job, error) {
	rec, err := q.lookup(jobID)
	if err != nil {
		return nil, err
	}
	return q.snapshot(rec), nil
}

func (q *ExecutionQueue) Wait(ctx context.Context, jobID uuid.UUID) (*domain.Job, error) {
	rec, err := q.lookup(jobID)
	if err != nil {
		return nil, err
	}
	select {
	case <-rec.done:
		return q.snapshot(rec), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *ExecutionQueue) Cancel(_ context.Context, jobID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.jobs[jobID]
	if !ok {
		return false, fmt.Errorf("%w: %s", errs.ErrJobNotFound, jobID)
	}
	if rec.job.Status != domain.JobStatusQueued {
		return false, nil
	}
	q.finishLocked(rec, domain.JobStatusCancelled, nil)
	q.logger.Info("Job cancelled", "jobId", jobID)
	return true, nil
}

func (q *ExecutionQueue) Stats(_ context.Context) domain.QueueStats {
	q.mu.RLock()
	defer q.mu.RUnlock()

	stats := domain.QueueStats{PoolSize: q.opts.PoolSize}
	for _, rec := range q.jobs {
		switch rec.job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusActive:
			stats.Active++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		case domain.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// next prefers the high lane; the second select only blocks when it is empty
func (q *ExecutionQueue) next(ctx context.Context) (*jobRecord, bool) {
	select {
	case rec := <-q.high:
		return rec, true
	default:
	}
	select {
	case rec := <-q.high:
		return rec, true
	case rec := <-q.normal:
		return rec, true
	case <-ctx.Done():
		return nil, false
	}
}

func (q *ExecutionQueue) work(ctx context.Context, worker int) {
	for {
		rec, ok := q.next(ctx)
		if !ok {
			return
		}
		if !q.activate(rec) {
			continue
		}
		q.run(ctx, worker, rec)
	}
}

// activate claims a queued job; cancelled jobs are skipped
func (q *ExecutionQueue) activate(rec *jobRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec.job.Status != domain.JobStatusQueued {
		return false
	}
	now := time.Now()
	rec.job.Status = domain.JobStatusActive
	rec.job.StartedAt = &now
	rec.job.Progress = progressStarted
	return true
}

func (q *ExecutionQueue) run(ctx context.Context, worker int, rec *jobRecord) {
	payload := rec.job.Payload
	schedule := q.newBackoff()

	for attempt := 1; ; attempt++ {
		q.mu.Lock()
		rec.job.Attempts = attempt
		q.mu.Unlock()

		result, err := q.backend.Execute(ctx, payload.Language, payload.Code, payload.Stdin)
		if err != nil {
			q.logger.Error("Job rejected by sandbox backend", "jobId", rec.job.ID, "worker", worker, "error", err)
			q.finish(rec, domain.JobStatusFailed, nil, err.Error())
			return
		}
		if !result.Transient() {
			q.finish(rec, domain.JobStatusCompleted, result, "")
			return
		}
		if attempt >= q.opts.MaxAttempts {
			q.logger.Error("Job failed after retries", "jobId", rec.job.ID, "attempts", attempt, "reason", result.Message)
			q.finish(rec, domain.JobStatusFailed, result, result.Message)
			return
		}

		delay := schedule.NextBackOff()
		q.logger.Warn("Sandbox unavailable, retrying job",
			"jobId", rec.job.ID,
			"attempt", attempt,
			"delay", delay,
			"reason", result.Message)
		if err := q.sleep(ctx, delay); err != nil {
			q.finish(rec, domain.JobStatusFailed, result, "queue stopped during retry backoff")
			return
		}
	}
}

func (q *ExecutionQueue) newBackoff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     q.opts.BackoffBase,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         q.opts.BackoffMax,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return b
}

func (q *ExecutionQueue) finish(rec *jobRecord, status domain.JobStatus, result *domain.ExecutionResult, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	rec.job.Error = reason
	q.finishLocked(rec, status, result)
}

// finishLocked moves a job to a terminal state and reclaims the oldest
// finished records beyond the retention bound. Callers hold mu.
func (q *ExecutionQueue) finishLocked(rec *jobRecord, status domain.JobStatus, result *domain.ExecutionResult) {
	if rec.job.Status.Terminal() {
		return
	}
	now := time.Now()
	rec.job.Status = status
	rec.job.Result = result
	rec.job.FinishedAt = &now
	rec.job.Progress = progressDone
	close(rec.done)

	if status == domain.JobStatusCompleted {
		q.completed = q.retain(q.completed, rec.job.ID, q.opts.KeepCompleted)
		return
	}
	q.failed = q.retain(q.failed, rec.job.ID, q.opts.KeepFailed)
}

func (q *ExecutionQueue) retain(ids []uuid.UUID, id uuid.UUID, keep int) []uuid.UUID {
	ids = append(ids, id)
	for len(ids) > keep {
		delete(q.jobs, ids[0])
		ids = ids[1:]
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
