// Package node defines the contract every pipeline node implements: a
// stable name, a config map that feeds the content signature, an optional
// output-shaping config, optional explicit dependencies, and a run
// operation against a Context.
package node

import (
	"context"

	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/logging"
	"github.com/kilnbuild/kiln/internal/outputshape"
	"github.com/kilnbuild/kiln/internal/workerpool"
)

// Output is one emitted record: a mapping from output name to the ordered
// list of paths produced under that name. A node may emit several Output
// records (typically one per processed item); downstream consumers flatten
// them by output name.
type Output struct {
	NodeName string
	Values   map[string][]string
}

// Snapshot exposes other nodes' emitted outputs and the pipeline's build
// directory, satisfying input.Snapshot so resolveInput can serve node-output
// references.
type Snapshot interface {
	input.Snapshot
	NodeOutputsOf(name string) (map[string][]string, bool)
	Store() *cachestore.Store
}

// Context is the per-run environment passed to Run. It is a read-only view
// from the node's perspective: nodes never mutate pipeline state directly,
// only through their returned Output records.
type Context struct {
	ctx      context.Context
	snapshot Snapshot
	logger   logging.Logger
	pool     *workerpool.Pool
	buildDir string
}

// NewContext builds a Context for one node's run. Pipelines construct one
// per node invocation; nodes never construct their own.
func NewContext(ctx context.Context, snapshot Snapshot, logger logging.Logger, pool *workerpool.Pool, buildDir string) *Context {
	return &Context{ctx: ctx, snapshot: snapshot, logger: logger, pool: pool, buildDir: buildDir}
}

// Done returns the underlying context.Context for cancellation-aware work.
func (c *Context) Done() context.Context { return c.ctx }

// ResolveInput resolves in against the pipeline's current output snapshot.
func (c *Context) ResolveInput(in input.Input) ([]string, error) {
	return input.Resolve(in, c.snapshot)
}

// Log returns a logger scoped to this node's run.
func (c *Context) Log() logging.Logger { return c.logger }

// Pool returns the shared worker pool nodes dispatch per-item work to.
func (c *Context) Pool() *workerpool.Pool { return c.pool }

// BuildDir returns the pipeline's staging directory for intermediate
// artifacts.
func (c *Context) BuildDir() string { return c.buildDir }

// BuildPathFor computes the default build-directory path for an input under
// nodeName's namespace, optionally replacing the extension.
func (c *Context) BuildPathFor(nodeName, inputPath, ext string) string {
	cfg := outputshape.Config{}
	if ext != "" {
		cfg.Extension = ext
	}
	return outputshape.Resolve(inputPath, nodeName, c.buildDir, cfg)
}

// StripBuildPrefix removes buildDir/<someNode>/ from path if path lies
// inside the build directory; otherwise it returns path relative to the
// process working directory. This is the same "cleaned input path" rule
// output-path shaping applies internally, exposed directly to nodes.
func (c *Context) StripBuildPrefix(path string) string {
	return outputshape.Clean(path, c.buildDir)
}

// NodeOutputsOf returns the flattened outputs of a previously-run node, for
// nodes that need direct access beyond what resolveInput's node-output-
// reference variant provides.
func (c *Context) NodeOutputsOf(name string) (map[string][]string, bool) {
	return c.snapshot.NodeOutputsOf(name)
}

// Store returns the pipeline's shared cache store, for nodes that build a
// noderuntime.Envelope.
func (c *Context) Store() *cachestore.Store {
	return c.snapshot.Store()
}

// Node is the contract every pipeline vertex implements.
type Node interface {
	// Name uniquely identifies this node within a pipeline; it doubles as
	// the cache-directory segment and the default build-subdirectory name.
	Name() string

	// Config returns the processing parameters that feed the content
	// signature (spec.md §4.2.1). It must not include output-shaping
	// parameters — those belong to OutputConfig.
	Config() map[string]interface{}

	// OutputConfig returns destination-shaping parameters, excluded from
	// the content signature. Nodes with no shaping needs may return nil.
	OutputConfig() map[string]interface{}

	// ExplicitDependencies lists node names this node depends on beyond
	// what its Config's node-output references already induce.
	ExplicitDependencies() []string

	// Run executes the node against ctx and returns its emitted outputs in
	// item order.
	Run(ctx *Context) ([]Output, error)
}

// PipelineAdder is implemented by composite/fan-out nodes that need to
// inject additional sub-nodes once attached to a pipeline. The pipeline
// detects this via type assertion and invokes it exactly once, before DAG
// construction. adder returns an error if the injected node is rejected
// (e.g. a duplicate name), which the hook should propagate.
type PipelineAdder interface {
	OnAddedToPipeline(adder func(Node) error) error
}
