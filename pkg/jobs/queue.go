package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueFull is returned by TryEnqueue when every buffer slot is taken.
var ErrQueueFull = errors.New("queue is full")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler. A negative
// MaxRetries disables retries entirely.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	switch {
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Drain removes and returns the jobs still buffered. Call it after Stop to
// settle work that no worker will pick up.
func (q *Queue) Drain() []Job {
	var out []Job
	for {
		select {
		case job := <-q.jobs:
			out = append(out, job)
		default:
			return out
		}
	}
}

// Pending returns the number of buffered jobs not yet picked up by a worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

// Enqueue pushes a job onto the queue, blocking until a slot frees up, the
// caller's context ends or the queue stops.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	qctx, err := q.runningContext()
	if err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-qctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, qctx.Err())
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	}
}

// TryEnqueue pushes a job without blocking.
func (q *Queue) TryEnqueue(job Job) error {
	qctx, err := q.runningContext()
	if err != nil {
		return err
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-qctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, qctx.Err())
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) runningContext() (context.Context, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started {
		return nil, fmt.Errorf("queue %s not started", q.name)
	}
	return q.ctx, nil
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.handleFailure(job, err)
			}
		}
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	fields := []zap.Field{zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err)}
	if IsPermanent(err) {
		q.logger.Debug("job failed permanently", fields...)
		return
	}

	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Error("job exceeded retries", fields...)
		return
	}
	q.logger.Warn("job failed, retrying", append(fields, zap.Int("attempt", job.Attempt))...)

	go func(j Job) {
		timer := time.NewTimer(q.retryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(q.ctx, j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("queue", q.name), zap.String("job_id", j.ID), zap.Error(err))
			}
		}
	}(job)
}
