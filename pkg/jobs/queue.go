package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job[T any] struct {
	ID       string
	Type     string
	Payload  T
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler[T any] func(context.Context, Job[T]) error

// DeadLetter is invoked once a job has exhausted its retries.
type DeadLetter[T any] func(Job[T], error)

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
// Failed jobs are retried with a doubling delay.
type Queue[T any] struct {
	name    string
	handler Handler[T]
	dead    DeadLetter[T]

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	pendingMu sync.Mutex
	pending   int
	waiters   []chan struct{}
}

// NewQueue builds a new queue with the provided handler.
func NewQueue[T any](name string, handler Handler[T], cfg QueueConfig) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue[T]{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job[T], cfg.BufferSize),
	}
}

// OnDeadLetter registers a callback for jobs that exceeded their retries.
// Must be called before Start.
func (q *Queue[T]) OnDeadLetter(fn DeadLetter[T]) {
	q.dead = fn
}

// Name returns the queue name used in logs.
func (q *Queue[T]) Name() string { return q.name }

// Start begins worker consumption. Safe to call once.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit. Jobs still buffered are dropped.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()

	dropped := 0
	for {
		select {
		case <-q.jobs:
			dropped++
			q.track(-1)
		default:
			if dropped > 0 {
				q.logger.Sugar().Warnw("queue stopped with pending jobs", "queue", q.name, "dropped", dropped)
			}
			q.logger.Sugar().Infow("queue stopped", "queue", q.name)
			return
		}
	}
}

// Enqueue pushes a job onto the queue.
func (q *Queue[T]) Enqueue(job Job[T]) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	q.track(1)
	if err := q.push(job); err != nil {
		q.track(-1)
		return err
	}
	return nil
}

// Wait blocks until every enqueued job has either succeeded or been given up on.
func (q *Queue[T]) Wait(ctx context.Context) error {
	q.pendingMu.Lock()
	if q.pending == 0 {
		q.pendingMu.Unlock()
		return nil
	}
	done := make(chan struct{})
	q.waiters = append(q.waiters, done)
	q.pendingMu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports jobs that are queued, running or waiting for a retry.
func (q *Queue[T]) Pending() int {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	return q.pending
}

func (q *Queue[T]) push(job Job[T]) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue[T]) track(delta int) {
	q.pendingMu.Lock()
	defer q.pendingMu.Unlock()
	q.pending += delta
	if q.pending <= 0 {
		q.pending = 0
		for _, w := range q.waiters {
			close(w)
		}
		q.waiters = nil
	}
}

func (q *Queue[T]) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
				continue
			}
			q.track(-1)
		}
	}
}

func (q *Queue[T]) handleFailure(job Job[T], err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempts", job.Attempt, "error", err)
		if q.dead != nil {
			q.dead(job, err)
		}
		q.track(-1)
		return
	}
	delay := q.retryDelay << (job.Attempt - 1)
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "delay", delay, "error", err)

	go func(j Job[T]) {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.track(-1)
			return
		case <-timer.C:
			if err := q.push(j); err != nil {
				q.logger.Sugar().Errorw("failed to requeue job", "queue", q.name, "job_id", j.ID, "error", err)
				q.track(-1)
			}
		}
	}(job)
}
