package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

type stubBackend struct {
	executeFn func(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error)
	calls     atomic.Int32
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error) {
	s.calls.Add(1)
	return s.executeFn(ctx, language, code, stdin)
}

func (s *stubBackend) HealthCheck(context.Context) domain.BackendHealth {
	return domain.BackendHealth{Backend: "stub", Reachable: true}
}

func (s *stubBackend) SupportedLanguages() []domain.Language {
	return domain.DefaultLanguages().List()
}

func echoBackend() *stubBackend {
	return &stubBackend{executeFn: func(_ context.Context, _, code, _ string) (*domain.ExecutionResult, error) {
		return &domain.ExecutionResult{Success: true, Stdout: code}, nil
	}}
}

func newQueue(t *testing.T, backend *stubBackend, opts Options) *ExecutionQueue {
	t.Helper()
	q := NewExecutionQueue(backend, opts, logging.NewNopLogger())
	q.sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Stop(ctx)
	})
	return q
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func payload(code string) domain.JobPayload {
	return domain.JobPayload{Language: "python", Code: code}
}

func TestQueueCompletesJob(t *testing.T) {
	ctx := waitCtx(t)
	q := newQueue(t, echoBackend(), Options{PoolSize: 2})
	q.Start(ctx)

	id, err := q.Submit(ctx, payload("hello"), domain.PriorityNormal)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	job, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.JobStatusCompleted || job.Progress != 100 || job.Attempts != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.Result == nil || job.Result.Stdout != "hello" {
		t.Fatalf("unexpected result %+v", job.Result)
	}
	if job.StartedAt == nil || job.FinishedAt == nil {
		t.Fatalf("expected timestamps to be recorded")
	}
}

func TestQueueHighPriorityFirst(t *testing.T) {
	ctx := waitCtx(t)
	var mu sync.Mutex
	var order []string
	backend := &stubBackend{executeFn: func(_ context.Context, _, code, _ string) (*domain.ExecutionResult, error) {
		mu.Lock()
		order = append(order, code)
		mu.Unlock()
		return &domain.ExecutionResult{Success: true}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 1})

	var ids []uuid.UUID
	for _, sub := range []struct {
		code     string
		priority domain.JobPriority
	}{
		{"normal-1", domain.PriorityNormal},
		{"normal-2", domain.PriorityNormal},
		{"high-1", domain.PriorityHigh},
		{"high-2", domain.PriorityHigh},
	} {
		id, err := q.Submit(ctx, payload(sub.code), sub.priority)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, id)
	}

	q.Start(ctx)
	for _, id := range ids {
		if _, err := q.Wait(ctx, id); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	want := []string{"high-1", "high-2", "normal-1", "normal-2"}
	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestQueueNeverExceedsPoolSize(t *testing.T) {
	ctx := waitCtx(t)
	var current, peak atomic.Int32
	backend := &stubBackend{executeFn: func(context.Context, string, string, string) (*domain.ExecutionResult, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		current.Add(-1)
		return &domain.ExecutionResult{Success: true}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 3, KeepCompleted: 100})
	q.Start(ctx)

	ids := make([]uuid.UUID, 0, 40)
	for i := 0; i < 40; i++ {
		priority := domain.PriorityNormal
		if i%3 == 0 {
			priority = domain.PriorityHigh
		}
		id, err := q.Submit(ctx, payload("x"), priority)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		if _, err := q.Wait(ctx, id); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	if p := peak.Load(); p > 3 || p < 1 {
		t.Fatalf("expected at most 3 concurrent executions, saw %d", p)
	}
}

func TestQueueRetriesBackendUnavailable(t *testing.T) {
	ctx := waitCtx(t)
	backend := &stubBackend{executeFn: func(context.Context, string, string, string) (*domain.ExecutionResult, error) {
		return domain.Unavailable("piston returned HTTP 503"), nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 1, MaxAttempts: 3, BackoffBase: 2 * time.Second, BackoffMax: time.Minute})

	var mu sync.Mutex
	var delays []time.Duration
	q.sleep = func(_ context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return nil
	}
	q.Start(ctx)

	id, _ := q.Submit(ctx, payload("x"), domain.PriorityNormal)
	job, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.JobStatusFailed || job.Attempts != 3 {
		t.Fatalf("expected failed after 3 attempts, got %+v", job)
	}
	if job.Result == nil || job.Result.ErrorKind != domain.ErrorKindBackendUnavailable {
		t.Fatalf("expected backend unavailable result, got %+v", job.Result)
	}
	if backend.calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", backend.calls.Load())
	}

	mu.Lock()
	defer mu.Unlock()
	if len(delays) != 2 || delays[0] != 2*time.Second || delays[1] != 4*time.Second {
		t.Fatalf("expected exponential delays [2s 4s], got %v", delays)
	}
}

func TestQueueRecoversAfterTransientFailure(t *testing.T) {
	ctx := waitCtx(t)
	var attempts atomic.Int32
	backend := &stubBackend{executeFn: func(context.Context, string, string, string) (*domain.ExecutionResult, error) {
		if attempts.Add(1) == 1 {
			return domain.Unavailable("connection refused"), nil
		}
		return &domain.ExecutionResult{Success: true, Stdout: "ok"}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 1, MaxAttempts: 3})
	q.Start(ctx)

	id, _ := q.Submit(ctx, payload("x"), domain.PriorityNormal)
	job, _ := q.Wait(ctx, id)
	if job.Status != domain.JobStatusCompleted || job.Attempts != 2 || job.Result.Stdout != "ok" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestQueueDoesNotRetryProgramErrors(t *testing.T) {
	ctx := waitCtx(t)
	for _, kind := range []domain.ErrorKind{domain.ErrorKindCompile, domain.ErrorKindRuntime, domain.ErrorKindTimeout} {
		backend := &stubBackend{executeFn: func(context.Context, string, string, string) (*domain.ExecutionResult, error) {
			return &domain.ExecutionResult{ErrorKind: kind}, nil
		}}
		q := newQueue(t, backend, Options{PoolSize: 1, MaxAttempts: 3})
		q.Start(ctx)

		id, _ := q.Submit(ctx, payload("x"), domain.PriorityNormal)
		job, _ := q.Wait(ctx, id)
		if job.Status != domain.JobStatusCompleted || job.Attempts != 1 || job.Result.ErrorKind != kind {
			t.Fatalf("%v: unexpected job %+v", kind, job)
		}
		if backend.calls.Load() != 1 {
			t.Fatalf("%v: expected a single call, got %d", kind, backend.calls.Load())
		}
	}
}

func TestQueueBackendRejectionFailsWithoutRetry(t *testing.T) {
	ctx := waitCtx(t)
	backend := &stubBackend{executeFn: func(context.Context, string, string, string) (*domain.ExecutionResult, error) {
		return nil, errs.ErrUnsupportedLanguage
	}}
	q := newQueue(t, backend, Options{PoolSize: 1, MaxAttempts: 3})
	q.Start(ctx)

	id, _ := q.Submit(ctx, payload("x"), domain.PriorityNormal)
	job, _ := q.Wait(ctx, id)
	if job.Status != domain.JobStatusFailed || job.Error == "" || backend.calls.Load() != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestQueueCancelQueuedJob(t *testing.T) {
	ctx := waitCtx(t)
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &stubBackend{executeFn: func(_ context.Context, _, code, _ string) (*domain.ExecutionResult, error) {
		if code == "blocker" {
			close(started)
			<-release
		}
		return &domain.ExecutionResult{Success: true}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 1})
	q.Start(ctx)

	blocker, _ := q.Submit(ctx, payload("blocker"), domain.PriorityNormal)
	<-started
	queued, _ := q.Submit(ctx, payload("queued"), domain.PriorityNormal)

	if ok, err := q.Cancel(ctx, blocker); err != nil || ok {
		t.Fatalf("active job must not be cancellable, got %v %v", ok, err)
	}
	if ok, err := q.Cancel(ctx, queued); err != nil || !ok {
		t.Fatalf("expected queued job to be cancelled, got %v %v", ok, err)
	}
	if ok, _ := q.Cancel(ctx, queued); ok {
		t.Fatalf("cancelling twice must report false")
	}
	close(release)

	job, _ := q.Wait(ctx, queued)
	if job.Status != domain.JobStatusCancelled || job.StartedAt != nil {
		t.Fatalf("unexpected cancelled job %+v", job)
	}
	if job, _ := q.Wait(ctx, blocker); job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected blocker to complete, got %s", job.Status)
	}

	// the next submission runs after the worker has skipped the cancelled job
	last, _ := q.Submit(ctx, payload("last"), domain.PriorityNormal)
	if _, err := q.Wait(ctx, last); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if calls := backend.calls.Load(); calls != 2 {
		t.Fatalf("cancelled job must never reach the backend, saw %d calls", calls)
	}
}

func TestQueueRetention(t *testing.T) {
	ctx := waitCtx(t)
	q := newQueue(t, echoBackend(), Options{PoolSize: 1, KeepCompleted: 2})
	q.Start(ctx)

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		id, _ := q.Submit(ctx, payload("x"), domain.PriorityNormal)
		if _, err := q.Wait(ctx, id); err != nil {
			t.Fatalf("wait: %v", err)
		}
		ids = append(ids, id)
	}

	if _, err := q.Status(ctx, ids[0]); !errors.Is(err, errs.ErrJobNotFound) {
		t.Fatalf("expected oldest job to be reclaimed, got %v", err)
	}
	if job, err := q.Status(ctx, ids[3]); err != nil || job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected newest job to be retained, got %v %v", job, err)
	}
	if stats := q.Stats(ctx); stats.Completed != 2 || stats.PoolSize != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestQueueFullLane(t *testing.T) {
	ctx := waitCtx(t)
	q := newQueue(t, echoBackend(), Options{PoolSize: 1, LaneCapacity: 1})

	if _, err := q.Submit(ctx, payload("a"), domain.PriorityNormal); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := q.Submit(ctx, payload("b"), domain.PriorityNormal); !errors.Is(err, errs.ErrQueueFull) {
		t.Fatalf("expected queue full, got %v", err)
	}
	if _, err := q.Submit(ctx, payload("c"), domain.PriorityHigh); err != nil {
		t.Fatalf("high lane has its own capacity: %v", err)
	}
	if stats := q.Stats(ctx); stats.Queued != 2 {
		t.Fatalf("expected 2 queued, got %+v", stats)
	}
}

func TestQueueStopFailsPendingJobs(t *testing.T) {
	ctx := waitCtx(t)
	q := NewExecutionQueue(echoBackend(), Options{PoolSize: 1}, logging.NewNopLogger())

	id, _ := q.Submit(ctx, payload("never"), domain.PriorityNormal)
	if err := q.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	job, err := q.Wait(ctx, id)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.JobStatusFailed {
		t.Fatalf("expected pending job to fail on stop, got %s", job.Status)
	}
	if _, err := q.Submit(ctx, payload("late"), domain.PriorityNormal); !errors.Is(err, errs.ErrQueueClosed) {
		t.Fatalf("expected closed queue, got %v", err)
	}
}

func TestQueueStopTimeoutStillFailsPendingJobs(t *testing.T) {
	ctx := waitCtx(t)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	backend := &stubBackend{executeFn: func(_ context.Context, _, code, _ string) (*domain.ExecutionResult, error) {
		if code == "stuck" {
			close(started)
			<-release
		}
		return &domain.ExecutionResult{Success: true}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 1})
	q.Start(ctx)

	if _, err := q.Submit(ctx, payload("stuck"), domain.PriorityNormal); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	pending, _ := q.Submit(ctx, payload("pending"), domain.PriorityNormal)

	stopCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Stop(stopCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected stop to time out on the stuck worker, got %v", err)
	}

	job, err := q.Wait(ctx, pending)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != domain.JobStatusFailed || job.Error == "" {
		t.Fatalf("expected pending job to fail on stop, got %+v", job)
	}
}

func TestQueueRunOutlivesRetention(t *testing.T) {
	ctx := waitCtx(t)
	started := make(chan struct{})
	release := make(chan struct{})
	backend := &stubBackend{executeFn: func(_ context.Context, _, code, _ string) (*domain.ExecutionResult, error) {
		if code == "slow" {
			close(started)
			<-release
		}
		return &domain.ExecutionResult{Success: true, Stdout: code}, nil
	}}
	q := newQueue(t, backend, Options{PoolSize: 2, KeepCompleted: 1})
	q.Start(ctx)

	type outcome struct {
		job *domain.Job
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		job, err := q.Run(ctx, payload("slow"), domain.PriorityNormal)
		done <- outcome{job, err}
	}()
	<-started
	close(release)

	// a burst of later jobs pushes the slow one out of the retained set
	for i := 0; i < 3; i++ {
		if _, err := q.Run(ctx, payload("fast"), domain.PriorityNormal); err != nil {
			t.Fatalf("run: %v", err)
		}
	}

	got := <-done
	if got.err != nil {
		t.Fatalf("run: %v", got.err)
	}
	if got.job.Status != domain.JobStatusCompleted || got.job.Result.Stdout != "slow" {
		t.Fatalf("unexpected job %+v", got.job)
	}
	if _, err := q.Status(ctx, got.job.ID); !errors.Is(err, errs.ErrJobNotFound) {
		t.Fatalf("expected the slow job to be reclaimed, got %v", err)
	}
}

func TestQueueRunCancelsQueuedJobWhenCallerLeaves(t *testing.T) {
	ctx := waitCtx(t)
	backend := echoBackend()
	q := newQueue(t, backend, Options{PoolSize: 1})

	runCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := q.Run(runCtx, payload("x"), domain.PriorityNormal); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	if stats := q.Stats(ctx); stats.Cancelled != 1 || stats.Queued != 0 {
		t.Fatalf("expected the abandoned job to be cancelled, got %+v", stats)
	}

	q.Start(ctx)
	if job, err := q.Run(ctx, payload("y"), domain.PriorityNormal); err != nil || job.Status != domain.JobStatusCompleted {
		t.Fatalf("run: %v %v", job, err)
	}
	if calls := backend.calls.Load(); calls != 1 {
		t.Fatalf("cancelled job must never reach the backend, saw %d calls", calls)
	}
}
