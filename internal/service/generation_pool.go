package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/scheduler"
	"github.com/Omgp9308/timetable-scheduler/pkg/jobs"
)

const generationJobType = "timetable.generate"

// ErrGenerationPoolStopped is reported to searches still queued when the pool stops.
var ErrGenerationPoolStopped = errors.New("generation pool stopped")

type generationOutcome struct {
	result *scheduler.Result
	err    error
}

type generationRequest struct {
	ctx    context.Context
	domain *scheduler.Domain
	opts   scheduler.Options
	done   chan generationOutcome
}

// GenerationPool runs allocator searches on a bounded set of workers so that
// concurrent requests cannot saturate every CPU.
type GenerationPool struct {
	queue    *jobs.Queue
	inflight int64
	metrics  *MetricsService
	logger   *zap.Logger
}

// GenerationPoolConfig sizes the pool.
type GenerationPoolConfig struct {
	Workers   int
	QueueSize int
}

// NewGenerationPool builds a pool; call Start before Run.
func NewGenerationPool(cfg GenerationPoolConfig, metrics *MetricsService, logger *zap.Logger) *GenerationPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &GenerationPool{metrics: metrics, logger: logger}
	p.queue = jobs.NewQueue("timetable-generation", p.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		MaxRetries: -1,
		Logger:     logger,
	})
	return p
}

// Start launches the workers.
func (p *GenerationPool) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop waits for running searches to finish and fails the ones still queued.
func (p *GenerationPool) Stop() {
	p.queue.Stop()
	p.failQueued(p.queue.Drain())
}

func (p *GenerationPool) failQueued(queued []jobs.Job) {
	for _, job := range queued {
		if req, ok := job.Payload.(*generationRequest); ok {
			p.finish(req, generationOutcome{err: ErrGenerationPoolStopped})
		}
	}
	if len(queued) > 0 {
		p.logger.Warn("queued generations dropped on shutdown", zap.Int("count", len(queued)))
	}
}

// InFlight returns the number of queued or running searches.
func (p *GenerationPool) InFlight() int {
	return int(atomic.LoadInt64(&p.inflight))
}

// Run queues a search and waits for its outcome or for ctx to end. A queued
// search whose ctx ended is skipped; one that already started keeps running
// to its own budget.
func (p *GenerationPool) Run(ctx context.Context, domain *scheduler.Domain, opts scheduler.Options) (*scheduler.Result, error) {
	req := &generationRequest{ctx: ctx, domain: domain, opts: opts, done: make(chan generationOutcome, 1)}
	job := jobs.Job{ID: uuid.NewString(), Type: generationJobType, Payload: req}

	p.track(1)
	if err := p.queue.Enqueue(ctx, job); err != nil {
		p.track(-1)
		return nil, fmt.Errorf("enqueue generation: %w", err)
	}

	select {
	case out := <-req.done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *GenerationPool) handle(_ context.Context, job jobs.Job) error {
	req, ok := job.Payload.(*generationRequest)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T", job.Payload))
	}
	if err := req.ctx.Err(); err != nil {
		p.finish(req, generationOutcome{err: err})
		return nil
	}
	result, err := scheduler.Allocate(req.domain, req.opts)
	p.finish(req, generationOutcome{result: result, err: err})
	if err != nil {
		return jobs.Permanent(err)
	}
	return nil
}

func (p *GenerationPool) finish(req *generationRequest, out generationOutcome) {
	p.track(-1)
	req.done <- out
}

func (p *GenerationPool) track(delta int64) {
	n := atomic.AddInt64(&p.inflight, delta)
	p.metrics.SetGenerationsInFlight(int(n))
}
