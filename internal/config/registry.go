package config

import (
	"fmt"
	"sync"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"

	"github.com/kilnbuild/kiln/internal/node"
)

// Factory builds a live node.Node from its parsed definition entry.
type Factory func(n Node) (node.Node, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// RegisterFactory adds a node-type factory. Called from each nodes/*
// package's init, mirroring how plugin types register themselves.
func RegisterFactory(nodeType string, f Factory) error {
	if f == nil {
		return kilnerrors.NewConfigurationError(nodeType, "factory is nil", nil)
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[nodeType]; exists {
		return kilnerrors.NewConfigurationError(nodeType, "factory already registered", nil)
	}

	registry[nodeType] = f
	return nil
}

// BuildNode looks up n.Type's factory and constructs the live node.Node, then
// merges n.DependsOn (the YAML-level explicit-dependency declaration) into
// whatever dependencies the node itself reports.
func BuildNode(n Node) (node.Node, error) {
	registryMu.RLock()
	f, ok := registry[n.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, kilnerrors.NewConfigurationError(n.Name, fmt.Sprintf("no factory registered for node type %q", n.Type), nil)
	}

	built, err := f(n)
	if err != nil {
		return nil, err
	}
	if len(n.DependsOn) == 0 {
		return built, nil
	}
	return withExplicitDependencies{Node: built, extra: n.DependsOn}, nil
}

// withExplicitDependencies decorates a node.Node to add dependencies
// declared in the pipeline definition's dependsOn field, alongside whatever
// the node itself reports (typically none — nodes report dependencies their
// own config doesn't already express as node-output references).
type withExplicitDependencies struct {
	node.Node
	extra []string
}

func (w withExplicitDependencies) ExplicitDependencies() []string {
	return append(append([]string(nil), w.Node.ExplicitDependencies()...), w.extra...)
}

// ResetRegistry clears all factory registrations. Exposed for tests.
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Factory)
}
