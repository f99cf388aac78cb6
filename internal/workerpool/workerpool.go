// Package workerpool implements the bounded, FIFO-queued worker pool that
// node implementations delegate expensive per-item work to. Each worker
// runs one job at a time in its own goroutine so a panic or a long-running
// job in one worker cannot corrupt or stall the coordinating pipeline.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Job is an opaque unit of work. Workload names the dispatcher-recognized
// workload (e.g. "xslt-compile", "xslt-transform"); Payload is whatever that
// workload needs.
type Job struct {
	Workload string
	Payload  interface{}
}

// Dispatcher performs the work named by a Job's Workload field and returns
// its result. Implementations select behavior by Workload, mirroring the
// reference XSLT engine's own dispatch-by-job-type design.
type Dispatcher func(ctx context.Context, job Job) (interface{}, error)

// Future is the handle returned by Execute; Wait blocks until the job
// completes or ctx is cancelled.
type Future struct {
	done  chan struct{}
	once  sync.Once
	value interface{}
	err   error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(value interface{}, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Wait blocks for the job's result, or returns ctx.Err() if ctx is done
// first (the job itself keeps running to completion either way).
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type task struct {
	job    Job
	ctx    context.Context
	future *Future
}

// Pool is a fixed-size worker pool. A zero Pool is not usable; construct one
// with New.
type Pool struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []*task
	active     map[int]Job
	dispatch   Dispatcher
	size       int
	terminated bool
	wg         sync.WaitGroup
}

// New starts size worker goroutines, each dispatching jobs via dispatch.
func New(size int, dispatch Dispatcher) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		dispatch: dispatch,
		active:   make(map[int]Job, size),
		size:     size,
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.terminated {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.terminated {
			p.mu.Unlock()
			return
		}
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.active[id] = t.job
		p.mu.Unlock()

		value, err := p.runSafely(t.ctx, t.job)

		p.mu.Lock()
		delete(p.active, id)
		p.mu.Unlock()

		t.future.resolve(value, err)
	}
}

func (p *Pool) runSafely(ctx context.Context, job Job) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = kilnerrors.NewWorkloadError(job.Workload, fmt.Errorf("panic: %v", r))
		}
	}()
	return p.dispatch(ctx, job)
}

// ClosureFunc is the payload shape ClosureDispatcher expects: a unit of work
// that has already captured everything it needs.
type ClosureFunc func(ctx context.Context) (interface{}, error)

// NewClosureJob builds a Job whose Payload is fn, for use with
// ClosureDispatcher. Workload remains a plain label used for logging and
// ActiveJobs reporting, not for dispatch — the closure is its own workload
// module.
func NewClosureJob(workload string, fn ClosureFunc) Job {
	return Job{Workload: workload, Payload: fn}
}

// ClosureDispatcher invokes a Job's ClosureFunc payload directly. Pools
// constructed with this dispatcher let callers supply arbitrary per-item
// work without a central workload registry.
func ClosureDispatcher(ctx context.Context, job Job) (interface{}, error) {
	fn, ok := job.Payload.(ClosureFunc)
	if !ok {
		return nil, kilnerrors.NewWorkloadError(job.Workload, fmt.Errorf("payload is not a ClosureFunc"))
	}
	return fn(ctx)
}

// Execute enqueues job and returns a Future for its result. If an idle
// worker is available the job starts immediately; otherwise it queues FIFO
// behind whatever is already waiting.
func (p *Pool) Execute(ctx context.Context, job Job) *Future {
	future := newFuture()

	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		future.resolve(nil, kilnerrors.NewWorkloadError(job.Workload, errors.New("worker pool has been terminated")))
		return future
	}
	p.queue = append(p.queue, &task{job: job, ctx: ctx, future: future})
	p.mu.Unlock()

	p.cond.Signal()
	return future
}

// ActiveJobs returns a snapshot of the worker-id-to-job mapping, for
// supervision.
func (p *Pool) ActiveJobs() map[int]Job {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[int]Job, len(p.active))
	for k, v := range p.active {
		out[k] = v
	}
	return out
}

// QueueDepth reports how many jobs are queued but not yet started.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Size reports the number of worker goroutines.
func (p *Pool) Size() int { return p.size }

// Terminate stops all workers: in-flight jobs are allowed to finish, but any
// job still queued (not yet assigned to a worker) is failed immediately.
// Terminate blocks until every worker goroutine has exited. Safe to call
// more than once.
func (p *Pool) Terminate() {
	p.mu.Lock()
	if p.terminated {
		p.mu.Unlock()
		return
	}
	p.terminated = true
	pending := p.queue
	p.queue = nil
	p.mu.Unlock()

	p.cond.Broadcast()
	p.wg.Wait()

	for _, t := range pending {
		t.future.resolve(nil, kilnerrors.NewWorkloadError(t.job.Workload, errors.New("worker pool terminated before job started")))
	}
}
