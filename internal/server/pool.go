package server

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of request work submitted to the Pool.
type Job func(ctx context.Context) error

// Pool is a fixed-size worker pool draining a single long-lived job
// channel, generalized from the teacher's per-zoom-level job channel
// (internal/tile/generator.go: one `jobs` channel + `sync.WaitGroup` per
// batch, closed once fed) to one channel for the whole server lifetime,
// closed at shutdown instead of after a batch (spec §5 "fixed-size pool of
// N worker tasks ... processes requests"). Workers are tracked with a
// sync.WaitGroup; each job's error travels back to the HTTP handler that
// submitted it on a per-job channel, and its cancellation comes from the
// ctx given to Submit. golang.org/x/sync/errgroup is used only by RunAll.
type Pool struct {
	jobs chan poolJob
	wg   sync.WaitGroup
}

type poolJob struct {
	ctx  context.Context
	fn   Job
	done chan error
}

// NewPool starts n worker goroutines draining a shared job queue.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{jobs: make(chan poolJob, n*4)}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		job.done <- runJob(job.ctx, job.fn)
	}
}

func runJob(ctx context.Context, fn Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("server: worker job panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Submit hands fn to the pool and blocks until it completes, ctx is
// cancelled, or the pool is shut down — whichever comes first. The pool
// applies no timeout of its own; the only deadline is whatever ctx
// carries. When ctx ends first, Submit returns ctx.Err() but fn keeps
// running in its worker until fn itself returns.
func (p *Pool) Submit(ctx context.Context, fn Job) error {
	done := make(chan error, 1)
	select {
	case p.jobs <- poolJob{ctx: ctx, fn: fn, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown closes the job queue and waits for in-flight workers to drain.
func (p *Pool) Shutdown() {
	close(p.jobs)
	p.wg.Wait()
}

// RunAll submits a batch of jobs concurrently and waits for all to
// complete, returning the first error encountered (errgroup semantics),
// without going through the pool's own queue — used for startup-time
// catalogue warmup rather than per-request dispatch.
func RunAll(ctx context.Context, limit int, jobs []Job) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, job := range jobs {
		job := job
		g.Go(func() error { return job(ctx) })
	}
	return g.Wait()
}
