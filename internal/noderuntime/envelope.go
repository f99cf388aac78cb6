package noderuntime

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/pathsafe"
	"github.com/kilnbuild/kiln/internal/workerpool"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// WorkResult is what a node's doWork function produces for one item.
type WorkResult struct {
	Outputs        map[string][]string
	DiscoveredDeps []string
}

// DoWorkFunc performs the actual per-item transform. It is dispatched to the
// worker pool for every cache miss.
type DoWorkFunc func(ctx context.Context, item string) (WorkResult, error)

// PathForOutputFunc computes the expected path for one (item, outputName)
// pair. A false second return means the output's path cannot be predicted
// deterministically (secondary, structure-discovered outputs); the envelope
// falls back to rebasing the cached path under the current output directory.
type PathForOutputFunc func(item, outputName string) (string, bool)

// Envelope wraps one node type's doWork with the shared base: signature
// computation, cache lookup, parallel miss dispatch, and ordered result
// assembly, per spec.md §4.2.2.
type Envelope struct {
	NodeName      string
	NodeTypeTag   string
	Config        map[string]interface{}
	Store         *cachestore.Store
	KeyOf         func(item string) string
	OutputDirFn   func() string
	PathForOutput PathForOutputFunc
	DoWork        DoWorkFunc
}

type itemOutcome struct {
	item    string
	outputs map[string][]string
	err     error
}

// Run executes the envelope over items, in order, wrapping the pipeline's
// node.Context for logging, pool access, and upstream-output lookups.
func (e *Envelope) Run(ctx *node.Context, items []string) ([]node.Output, error) {
	logger := ctx.Log().With("node", e.NodeName)

	signature, err := Signature(e.NodeTypeTag, e.Config)
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(e.NodeName, "compute content signature", err)
	}

	configDepPaths := CollectFileRefs(e.Config)
	upstreamSigs, err := e.collectUpstreamSignatures(ctx)
	if err != nil {
		return nil, err
	}

	outcomes := make([]itemOutcome, len(items))
	var misses []int

	for i, item := range items {
		cacheKey := e.KeyOf(item)
		entry, hit, err := e.Store.Get(signature, cacheKey)
		if err != nil {
			logger.Warn(ctx.Done(), "cache read failed, treating as miss", "item", item, "error", err)
			hit = false
		}
		if !hit || entry == nil {
			misses = append(misses, i)
			continue
		}

		outputs, ok, err := e.reuseFromCache(ctx, item, entry, upstreamSigs)
		if err != nil {
			return nil, err
		}
		if !ok {
			misses = append(misses, i)
			continue
		}
		outcomes[i] = itemOutcome{item: item, outputs: outputs}
	}

	if len(misses) > 0 {
		if err := e.dispatchMisses(ctx, items, misses, outcomes, signature, configDepPaths, upstreamSigs); err != nil {
			return nil, err
		}
	}

	results := make([]node.Output, 0, len(items))
	for _, oc := range outcomes {
		if oc.err != nil {
			return nil, kilnerrors.NewWorkloadError(e.NodeName, oc.err)
		}
		results = append(results, node.Output{NodeName: e.NodeName, Values: oc.outputs})
	}
	return results, nil
}

func (e *Envelope) collectUpstreamSignatures(ctx *node.Context) (map[string]cachestore.UpstreamSignature, error) {
	refs := CollectNodeRefs(e.Config)
	if len(refs) == 0 {
		return nil, nil
	}

	sigs := make(map[string]cachestore.UpstreamSignature, len(refs))
	for _, ref := range refs {
		outputs, ok := ctx.NodeOutputsOf(ref.Producer)
		if !ok {
			return nil, kilnerrors.NewResolutionError(e.NodeName, fmt.Sprintf("upstream node %q has not run", ref.Producer), nil)
		}
		paths := outputs[ref.Output]
		if ref.Glob != "" {
			paths = filterByGlob(paths, ref.Glob)
		}
		sigs[ref.Producer] = cachestore.UpstreamSignature{
			Signature: cachestore.ComputeOutputSignature(paths),
			OutputKey: ref.Output,
			Glob:      ref.Glob,
		}
	}
	return sigs, nil
}

// reuseFromCache recomputes expected output paths for a cache hit,
// validates the entry, and copies cached artifacts into place when the
// recalculated path differs from where the entry was originally built.
func (e *Envelope) reuseFromCache(ctx *node.Context, item string, entry *cachestore.Entry, upstreamSigs map[string]cachestore.UpstreamSignature) (map[string][]string, bool, error) {
	resolver := nodeOutputResolver{ctx: ctx}

	recalculated := make(map[string][]string, len(entry.OutputsByKey))
	currentBase := e.OutputDirFn()

	for name, cachedPaths := range entry.OutputsByKey {
		paths := make([]string, len(cachedPaths))
		for i, cachedPath := range cachedPaths {
			if path, ok := e.PathForOutput(item, name); ok {
				paths[i] = path
				continue
			}
			rebased, err := cachestore.Rebase(cachedPath, entry.OutputBaseDir, currentBase)
			if err != nil {
				return nil, false, kilnerrors.NewEscapeError(currentBase, cachedPath)
			}
			paths[i] = rebased
		}
		recalculated[name] = paths
	}

	if !e.Store.Validate(entry, resolver) {
		return nil, false, nil
	}

	for name, cachedPaths := range entry.OutputsByKey {
		for i, cachedPath := range cachedPaths {
			want := recalculated[name][i]
			if want == cachedPath {
				continue
			}
			if err := pathsafe.EnsureUnder(currentBase, want); err != nil {
				return nil, false, err
			}
			if err := cachestore.CopyTo(cachedPath, want); err != nil {
				return nil, false, kilnerrors.NewCacheIOError(want, err)
			}
		}
	}

	return recalculated, true, nil
}

func (e *Envelope) dispatchMisses(ctx *node.Context, items []string, misses []int, outcomes []itemOutcome, signature string, configDepPaths []string, upstreamSigs map[string]cachestore.UpstreamSignature) error {
	pool := ctx.Pool()

	futures := make([]*workerpool.Future, len(misses))
	for idx, i := range misses {
		item := items[i]
		futures[idx] = pool.Execute(ctx.Done(), workerpool.NewClosureJob(
			fmt.Sprintf("%s:item", e.NodeTypeTag),
			func(c context.Context) (interface{}, error) {
				return e.DoWork(c, item)
			},
		))
	}

	var wg sync.WaitGroup
	built := make([]*cachestore.Entry, len(misses))
	wg.Add(len(misses))
	for idx, i := range misses {
		idx, i := idx, i
		go func() {
			defer wg.Done()
			item := items[i]

			value, err := futures[idx].Wait(ctx.Done())
			if err != nil {
				outcomes[i] = itemOutcome{item: item, err: err}
				return
			}
			work := value.(WorkResult)

			entry, err := e.Store.Build(cachestore.BuildParams{
				Items:              []string{item},
				OutputsByKey:       work.Outputs,
				OutputBaseDir:      e.OutputDirFn(),
				CacheKey:           e.KeyOf(item),
				ConfigDepPaths:     configDepPaths,
				DiscoveredDepPaths: work.DiscoveredDeps,
				UpstreamSignatures: upstreamSigs,
			})
			if err != nil {
				outcomes[i] = itemOutcome{item: item, err: err}
				return
			}

			built[idx] = entry
			outcomes[i] = itemOutcome{item: item, outputs: work.Outputs}
		}()
	}
	wg.Wait()

	for idx, i := range misses {
		entry := built[idx]
		if entry == nil {
			continue
		}
		if err := e.Store.Put(signature, e.KeyOf(items[i]), entry); err != nil {
			return err
		}
	}
	return nil
}

type nodeOutputResolver struct {
	ctx *node.Context
}

func (r nodeOutputResolver) NodeOutputs(name string) (map[string][]string, bool) {
	return r.ctx.NodeOutputsOf(name)
}

func filterByGlob(paths []string, pattern string) []string {
	var out []string
	for _, p := range paths {
		if ok, _ := filepath.Match(pattern, filepath.Base(p)); ok {
			out = append(out, p)
		}
	}
	return out
}
