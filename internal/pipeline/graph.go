package pipeline

import (
	"sort"
	"strings"

	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/noderuntime"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

type vertex struct {
	name       string
	node       node.Node
	dependsOn  map[string]bool
	dependents map[string]bool
}

// graph is the pipeline's DAG: vertices keyed by node name, edges induced
// from node-output references in config plus explicit dependencies.
type graph struct {
	vertices map[string]*vertex
	order    []string
	levels   [][]string
}

func newGraph() *graph {
	return &graph{vertices: make(map[string]*vertex)}
}

func (g *graph) addNode(n node.Node) error {
	name := n.Name()
	if name == "" {
		return kilnerrors.NewConfigurationError("", "node name must not be empty", nil)
	}
	if _, exists := g.vertices[name]; exists {
		return kilnerrors.NewConfigurationError(name, "duplicate node name", nil)
	}

	g.vertices[name] = &vertex{
		name:       name,
		node:       n,
		dependsOn:  make(map[string]bool),
		dependents: make(map[string]bool),
	}
	g.order = append(g.order, name)
	return nil
}

func (g *graph) addEdge(consumer, producer string) error {
	if _, ok := g.vertices[consumer]; !ok {
		return kilnerrors.NewConfigurationError(consumer, "unknown node", nil)
	}
	target, ok := g.vertices[producer]
	if !ok {
		return kilnerrors.NewConfigurationError(consumer, "depends on unknown node \""+producer+"\"", nil)
	}

	g.vertices[consumer].dependsOn[producer] = true
	target.dependents[consumer] = true
	return nil
}

// build walks every node's config for node-output references and explicit
// dependencies, detects cycles, and computes topological levels. Must run
// once, before the first node executes (spec.md §4.3's dependency
// resolution step).
func (g *graph) build() error {
	for _, name := range g.order {
		v := g.vertices[name]

		for _, ref := range noderuntime.CollectNodeRefs(v.node.Config()) {
			if err := g.addEdge(name, ref.Producer); err != nil {
				return err
			}
		}
		for _, dep := range v.node.ExplicitDependencies() {
			if err := g.addEdge(name, dep); err != nil {
				return err
			}
		}
	}

	if cycle := g.detectCycle(); cycle != nil {
		return kilnerrors.NewConfigurationError(strings.Join(cycle, " -> "), "dependency cycle detected", nil)
	}

	return g.computeLevels()
}

// detectCycle runs a deterministic DFS (nodes visited in sorted name order)
// and returns the first cycle found as an ordered path, or nil if acyclic.
func (g *graph) detectCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string
	var cycle []string

	var dfs func(name string) bool
	dfs = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		path = append(path, name)

		deps := make([]string, 0, len(g.vertices[name].dependsOn))
		for dep := range g.vertices[name].dependsOn {
			deps = append(deps, dep)
		}
		sort.Strings(deps)

		for _, dep := range deps {
			if !visited[dep] {
				if dfs(dep) {
					return true
				}
			} else if onStack[dep] {
				idx := len(path) - 1
				for idx >= 0 && path[idx] != dep {
					idx--
				}
				if idx >= 0 {
					cycle = append([]string{}, path[idx:]...)
					cycle = append(cycle, dep)
					return true
				}
			}
		}

		onStack[name] = false
		path = path[:len(path)-1]
		return false
	}

	names := append([]string(nil), g.order...)
	sort.Strings(names)
	for _, name := range names {
		if !visited[name] {
			if dfs(name) {
				break
			}
		}
	}
	return cycle
}

// computeLevels assigns each node a depth of 1 + max(depth of deps), leaves
// at depth 0, via Kahn's algorithm over the dependsOn/dependents edges.
func (g *graph) computeLevels() error {
	indegree := make(map[string]int, len(g.vertices))
	for name, v := range g.vertices {
		indegree[name] = len(v.dependsOn)
	}

	var queue []string
	for name, degree := range indegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	processed := 0
	var levels [][]string

	for len(queue) > 0 {
		level := append([]string(nil), queue...)
		levels = append(levels, level)

		var next []string
		for _, name := range level {
			processed++
			for dependent := range g.vertices[name].dependents {
				indegree[dependent]--
				if indegree[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		sort.Strings(next)
		queue = next
	}

	if processed != len(g.vertices) {
		return kilnerrors.NewConfigurationError("", "cycle detected while computing levels", nil)
	}

	g.levels = levels
	return nil
}

func (g *graph) dependencies(name string) []string {
	v, ok := g.vertices[name]
	if !ok {
		return nil
	}
	deps := make([]string, 0, len(v.dependsOn))
	for dep := range v.dependsOn {
		deps = append(deps, dep)
	}
	sort.Strings(deps)
	return deps
}

func (g *graph) names() []string {
	names := append([]string(nil), g.order...)
	sort.Strings(names)
	return names
}

func (g *graph) nodeFor(name string) node.Node {
	v, ok := g.vertices[name]
	if !ok {
		return nil
	}
	return v.node
}
