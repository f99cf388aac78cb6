// Package pipeline implements the orchestrator: DAG construction over node
// dependencies, three execution strategies, the per-run Context nodes
// receive, and a periodic supervisor for operator visibility.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/logging"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/workerpool"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Strategy selects one of the three execution strategies from spec.md
// §4.3.
type Strategy int

const (
	// Sequential processes nodes in topological order, one at a time.
	Sequential Strategy = iota
	// WaveParallel runs all nodes at the same dependency depth concurrently,
	// advancing wave by wave.
	WaveParallel
	// DynamicReady greedily starts every node whose dependencies have all
	// completed, without waiting for a whole wave to finish. Preferred
	// default: strictly at least as parallel as WaveParallel.
	DynamicReady
)

// Options configures a new Pipeline.
type Options struct {
	BuildDir       string
	CacheDir       string
	Strategy       Strategy
	WorkerPoolSize int
	Logger         logging.Logger
	SupervisorTick time.Duration

	// OnNodeStart and OnNodeComplete, if set, are called around each node's
	// Run, letting a caller forward progress to a live view (see
	// internal/tui). They must not block.
	OnNodeStart    func(name string, start time.Time)
	OnNodeComplete func(name string, err error, elapsed time.Duration)
}

// Pipeline owns the DAG, per-node output snapshots, per-node elapsed times,
// the build/cache directories, and the shared worker pool.
type Pipeline struct {
	graph          *graph
	buildDir       string
	store          *cachestore.Store
	pool           *workerpool.Pool
	ownsPool       bool
	logger         logging.Logger
	strategy       Strategy
	supervisorTick time.Duration

	mu      sync.RWMutex
	outputs map[string]map[string][]string
	ran     map[string]bool
	elapsed map[string]time.Duration

	onNodeStart    func(name string, start time.Time)
	onNodeComplete func(name string, err error, elapsed time.Duration)
}

// New constructs a Pipeline. The worker pool is owned by the pipeline and
// terminated when Run finishes.
func New(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp{}
	}

	size := opts.WorkerPoolSize
	if size < 1 {
		size = 4
	}

	tick := opts.SupervisorTick
	if tick <= 0 {
		tick = 3 * time.Second
	}

	return &Pipeline{
		graph:          newGraph(),
		buildDir:       opts.BuildDir,
		store:          cachestore.New(opts.CacheDir, logger.With("component", "cachestore")),
		pool:           workerpool.New(size, workerpool.ClosureDispatcher),
		ownsPool:       true,
		logger:         logger,
		strategy:       opts.Strategy,
		supervisorTick: tick,
		outputs:        make(map[string]map[string][]string),
		ran:            make(map[string]bool),
		elapsed:        make(map[string]time.Duration),
		onNodeStart:    opts.OnNodeStart,
		onNodeComplete: opts.OnNodeComplete,
	}
}

// NodeNames returns every node name registered in the DAG, sorted by name;
// callers needing declaration order should track it themselves
// (config.Document preserves YAML order).
func (p *Pipeline) NodeNames() []string {
	return p.graph.names()
}

// AddNode registers n in the DAG. If n implements node.PipelineAdder, its
// OnAddedToPipeline hook fires immediately, letting composite nodes inject
// sub-nodes before DAG construction.
func (p *Pipeline) AddNode(n node.Node) error {
	if err := p.graph.addNode(n); err != nil {
		return err
	}
	if adder, ok := n.(node.PipelineAdder); ok {
		if err := adder.OnAddedToPipeline(p.AddNode); err != nil {
			return err
		}
	}
	return nil
}

// BuildDir implements input.Snapshot / node.Snapshot.
func (p *Pipeline) BuildDir() string { return p.buildDir }

// Store returns the pipeline's shared cache store, for node constructors
// that build a noderuntime.Envelope.
func (p *Pipeline) Store() *cachestore.Store { return p.store }

// Pool returns the pipeline's shared worker pool.
func (p *Pipeline) Pool() *workerpool.Pool { return p.pool }

// Outputs implements input.Snapshot / node.Snapshot.
func (p *Pipeline) Outputs(name string) (map[string][]string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.ran[name] {
		return nil, false
	}
	return p.outputs[name], true
}

// NodeOutputsOf implements node.Snapshot.
func (p *Pipeline) NodeOutputsOf(name string) (map[string][]string, bool) {
	return p.Outputs(name)
}

func (p *Pipeline) recordResult(name string, merged map[string][]string, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outputs[name] = merged
	p.ran[name] = true
	p.elapsed[name] = elapsed
}

// Elapsed returns how long name's run took, or 0 if it has not completed.
func (p *Pipeline) Elapsed(name string) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.elapsed[name]
}

// ActiveJobs exposes the shared worker pool's in-flight jobs, for
// supervision.
func (p *Pipeline) ActiveJobs() map[int]workerpool.Job { return p.pool.ActiveJobs() }

// Run builds the DAG and executes every node under the configured
// Strategy. On the first node error, already-running nodes are allowed to
// finish but no new node is started; the first captured error is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.graph.build(); err != nil {
		return err
	}
	if p.ownsPool {
		defer p.pool.Terminate()
	}

	supervisorDone := p.startSupervisor(ctx)
	defer close(supervisorDone)

	switch p.strategy {
	case Sequential:
		return p.runSequential(ctx)
	case WaveParallel:
		return p.runWaveParallel(ctx)
	default:
		return p.runDynamicReady(ctx)
	}
}

func (p *Pipeline) runNode(ctx context.Context, name string) error {
	n := p.graph.nodeFor(name)
	if n == nil {
		return kilnerrors.NewConfigurationError(name, "node not found in graph", nil)
	}

	start := time.Now()
	nodeLogger := p.logger.With("node", name)
	nodeCtx := node.NewContext(ctx, p, nodeLogger, p.pool, p.buildDir)

	if p.onNodeStart != nil {
		p.onNodeStart(name, start)
	}

	nodeLogger.Info(ctx, "node starting")
	outputs, err := n.Run(nodeCtx)
	if err != nil {
		nodeLogger.Error(ctx, "node failed", "error", err)
		if p.onNodeComplete != nil {
			p.onNodeComplete(name, err, time.Since(start))
		}
		return kilnerrors.NewExecutionError(name, err)
	}

	merged := mergeOutputs(outputs)
	elapsed := time.Since(start)
	p.recordResult(name, merged, elapsed)
	nodeLogger.Info(ctx, "node finished", "elapsed_ms", elapsed.Milliseconds())
	if p.onNodeComplete != nil {
		p.onNodeComplete(name, nil, elapsed)
	}
	return nil
}

func mergeOutputs(outputs []node.Output) map[string][]string {
	merged := make(map[string][]string)
	for _, o := range outputs {
		for key, paths := range o.Values {
			merged[key] = append(merged[key], paths...)
		}
	}
	return merged
}

// runSequential processes nodes in topological order, one at a time.
func (p *Pipeline) runSequential(ctx context.Context) error {
	for _, level := range p.graph.levels {
		for _, name := range level {
			if err := p.runNode(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// runWaveParallel runs every node within a depth-level concurrently, and
// advances to the next wave only once the current one finishes. First error
// in a wave aborts further waves; already-started nodes in that wave are
// allowed to finish.
func (p *Pipeline) runWaveParallel(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, level := range p.graph.levels {
		var wg sync.WaitGroup
		var once sync.Once
		var levelErr error

		for _, name := range level {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				if err := p.runNode(runCtx, name); err != nil {
					once.Do(func() {
						levelErr = err
						cancel()
					})
				}
			}(name)
		}
		wg.Wait()

		if levelErr != nil {
			return levelErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// runDynamicReady maintains a ready set of nodes whose dependencies have
// all completed and starts all of them immediately, without waiting for an
// entire wave. A completion callback re-evaluates readiness. This yields
// strictly >= the parallelism of WaveParallel.
func (p *Pipeline) runDynamicReady(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	names := p.graph.names()
	completed := make(map[string]bool, len(names))
	started := make(map[string]bool, len(names))

	var mu sync.Mutex
	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	done := make(chan string, len(names))

	isReady := func(name string) bool {
		for _, dep := range p.graph.dependencies(name) {
			if !completed[dep] {
				return false
			}
		}
		return true
	}

	start := func(name string) {
		started[name] = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := p.runNode(runCtx, name)
			mu.Lock()
			if err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
			mu.Unlock()
			done <- name
		}()
	}

	mu.Lock()
	aborted := false
	for _, name := range names {
		if !started[name] && isReady(name) {
			start(name)
		}
	}
	mu.Unlock()

	remaining := len(names)
	for remaining > 0 {
		finished := <-done
		mu.Lock()
		completed[finished] = true
		remaining--
		aborted = firstErr != nil
		if !aborted {
			for _, name := range names {
				if !started[name] && isReady(name) {
					start(name)
				}
			}
		}
		mu.Unlock()
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// startSupervisor launches the periodic background reporter described in
// spec.md §4.3: while the pipeline runs, it logs the worker pool's active
// jobs for operator visibility. It never affects scheduling correctness.
func (p *Pipeline) startSupervisor(ctx context.Context) chan struct{} {
	doneCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(p.supervisorTick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				active := p.pool.ActiveJobs()
				if len(active) == 0 {
					continue
				}
				p.logger.Info(ctx, "pipeline supervisor", "active_jobs", len(active), "queue_depth", p.pool.QueueDepth())
			case <-doneCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return doneCh
}
