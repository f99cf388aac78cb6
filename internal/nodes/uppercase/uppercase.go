// Package uppercase implements the trivial "U" reference node type from
// spec.md §8's end-to-end scenarios: it reads each source file's bytes,
// uppercases them, and writes the result under its output directory.
package uppercase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	kilnconfig "github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/nodedecode"
	"github.com/kilnbuild/kiln/internal/noderuntime"
	"github.com/kilnbuild/kiln/internal/outputshape"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Type is the node-type tag nodes of this kind register under.
const Type = "uppercase"

// Config is the uppercase node's processing config, per spec.md §8:
// config.prefix plus the item source.
type Config struct {
	Prefix      string
	SourceFiles input.Input
	Output      outputshape.Config
}

// Node uppercases each resolved source file's bytes, prefixed by
// config.prefix, into its own build-directory output.
type Node struct {
	name   string
	config Config
}

// New constructs an uppercase Node.
func New(name string, cfg Config) *Node {
	return &Node{name: name, config: cfg}
}

func (n *Node) Name() string { return n.name }

func (n *Node) Config() map[string]interface{} {
	return map[string]interface{}{
		"prefix":      n.config.Prefix,
		"sourceFiles": n.config.SourceFiles,
	}
}

func (n *Node) OutputConfig() map[string]interface{} {
	return map[string]interface{}{"output": n.config.Output}
}

func (n *Node) ExplicitDependencies() []string { return nil }

func (n *Node) Run(ctx *node.Context) ([]node.Output, error) {
	items, err := ctx.ResolveInput(n.config.SourceFiles)
	if err != nil {
		return nil, err
	}

	env := &noderuntime.Envelope{
		NodeName:    n.name,
		NodeTypeTag: Type,
		Config:      n.Config(),
		Store:       ctx.Store(),
		KeyOf: func(item string) string {
			return ctx.StripBuildPrefix(item)
		},
		OutputDirFn: func() string {
			return outputshape.BaseDir(n.name, ctx.BuildDir(), n.config.Output)
		},
		PathForOutput: func(item, outputName string) (string, bool) {
			return outputshape.Resolve(item, n.name, ctx.BuildDir(), n.config.Output), true
		},
		DoWork: func(workCtx context.Context, item string) (noderuntime.WorkResult, error) {
			return n.transform(ctx, item)
		},
	}

	return env.Run(ctx, items)
}

func (n *Node) transform(ctx *node.Context, item string) (noderuntime.WorkResult, error) {
	data, err := os.ReadFile(item)
	if err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}

	upper := n.config.Prefix + strings.ToUpper(string(data))
	outPath := outputshape.Resolve(item, n.name, ctx.BuildDir(), n.config.Output)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}
	if err := os.WriteFile(outPath, []byte(upper), 0o644); err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}

	return noderuntime.WorkResult{Outputs: map[string][]string{"out": {outPath}}}, nil
}

func init() {
	_ = kilnconfig.RegisterFactory(Type, buildNode)
}

func buildNode(n kilnconfig.Node) (node.Node, error) {
	prefix, _ := n.Config["prefix"].(string)

	sourceFiles, err := nodedecode.Input(n.Config["sourceFiles"])
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(n.Name, "decode sourceFiles", err)
	}

	return New(n.Name, Config{
		Prefix:      prefix,
		SourceFiles: sourceFiles,
		Output:      nodedecode.OutputConfig(n.OutputConfig),
	}), nil
}
