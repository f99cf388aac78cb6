// Package input implements the polymorphic Input descriptor: a pure,
// deterministic way to turn a glob, a literal list, a file reference, or a
// reference to another node's emitted output into a concrete list of
// filesystem paths.
package input

import (
	"fmt"
	"path/filepath"
	"strings"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Kind discriminates the Input variants.
type Kind int

const (
	// KindGlob expands a single glob pattern on demand.
	KindGlob Kind = iota
	// KindList resolves and concatenates a list of descriptors, in order.
	KindList
	// KindNodeRef yields a producer's emitted paths under one output name,
	// optionally intersected with a glob filter.
	KindNodeRef
	// KindFileRef is a literal path, used verbatim, never globbed.
	KindFileRef
)

// NodeRef names a producer node, the output key to read, and an optional
// glob filter applied to the flattened output list.
type NodeRef struct {
	Producer string
	Output   string
	Glob     string // empty means "no filter"
}

// Input is the tagged variant described in spec.md §3. Only the field(s)
// matching Kind are populated.
type Input struct {
	Kind    Kind
	Pattern string // KindGlob
	Items   []Input
	Ref     NodeRef // KindNodeRef
	Path    string  // KindFileRef
}

// Glob constructs a glob-variant Input.
func Glob(pattern string) Input { return Input{Kind: KindGlob, Pattern: pattern} }

// List constructs a list-variant Input resolving each item in order.
func List(items ...Input) Input { return Input{Kind: KindList, Items: items} }

// FromNode constructs a node-output reference with no glob filter.
func FromNode(producer, output string) Input {
	return Input{Kind: KindNodeRef, Ref: NodeRef{Producer: producer, Output: output}}
}

// FromNodeGlob constructs a node-output reference filtered by glob.
func FromNodeGlob(producer, output, glob string) Input {
	return Input{Kind: KindNodeRef, Ref: NodeRef{Producer: producer, Output: output, Glob: glob}}
}

// File constructs a literal file reference: used verbatim, tracked for cache
// invalidation, never globbed.
func File(path string) Input { return Input{Kind: KindFileRef, Path: path} }

// Snapshot exposes the pipeline's per-node output table, as it stands at
// resolution time. Implementations must be safe for concurrent reads.
type Snapshot interface {
	// Outputs returns the producer's emitted output map (output name to
	// ordered path list) and whether the producer has run at all. A
	// producer that ran but emitted nothing still reports ok=true with an
	// empty map.
	Outputs(nodeName string) (outputs map[string][]string, ok bool)
	// BuildDir returns the pipeline's build directory, used to decide how
	// to build a glob-filter candidate pattern for node-output references.
	BuildDir() string
}

// Resolve turns in into a concrete, ordered list of paths. Resolution never
// mutates the filesystem or the snapshot and is deterministic given snap's
// current state.
func Resolve(in Input, snap Snapshot) ([]string, error) {
	switch in.Kind {
	case KindGlob:
		return resolveGlob(in.Pattern)
	case KindList:
		return resolveList(in.Items, snap)
	case KindNodeRef:
		return resolveNodeRef(in.Ref, snap)
	case KindFileRef:
		return []string{in.Path}, nil
	default:
		return nil, kilnerrors.NewConfigurationError("", fmt.Sprintf("unknown input kind %d", in.Kind), nil)
	}
}

func resolveGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, kilnerrors.NewResolutionError("", fmt.Sprintf("invalid glob pattern %q", pattern), err)
	}
	if len(matches) == 0 {
		return nil, kilnerrors.NewResolutionError("", fmt.Sprintf("glob %q matched no files", pattern), nil)
	}
	return matches, nil
}

func resolveList(items []Input, snap Snapshot) ([]string, error) {
	var out []string
	for _, item := range items {
		resolved, err := Resolve(item, snap)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved...)
	}
	return out, nil
}

func resolveNodeRef(ref NodeRef, snap Snapshot) ([]string, error) {
	outputs, ok := snap.Outputs(ref.Producer)
	if !ok {
		return nil, kilnerrors.NewResolutionError(ref.Producer,
			fmt.Sprintf("node %q has not run yet", ref.Producer), nil)
	}

	paths, exists := outputs[ref.Output]
	if !exists {
		return nil, kilnerrors.NewConfigurationError(ref.Producer,
			fmt.Sprintf("node %q never emits output %q", ref.Producer, ref.Output), nil)
	}

	if ref.Glob == "" {
		return append([]string(nil), paths...), nil
	}

	candidatePattern := ref.Glob
	if underBuildDir(paths, snap.BuildDir()) {
		candidatePattern = filepath.Join(snap.BuildDir(), "*", ref.Glob)
	}

	matches, err := filepath.Glob(candidatePattern)
	if err != nil {
		return nil, kilnerrors.NewResolutionError(ref.Producer, fmt.Sprintf("invalid glob filter %q", ref.Glob), err)
	}
	matchSet := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		matchSet[m] = struct{}{}
	}

	var filtered []string
	for _, p := range paths {
		if _, ok := matchSet[p]; ok {
			filtered = append(filtered, p)
		}
	}

	if len(filtered) == 0 {
		return nil, kilnerrors.NewResolutionError(ref.Producer,
			fmt.Sprintf("glob filter %q matched none of node %q's %q outputs", ref.Glob, ref.Producer, ref.Output), nil)
	}

	return filtered, nil
}

func underBuildDir(paths []string, buildDir string) bool {
	if buildDir == "" || len(paths) == 0 {
		return false
	}
	prefix := strings.TrimSuffix(buildDir, string(filepath.Separator)) + string(filepath.Separator)
	for _, p := range paths {
		if !strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}
