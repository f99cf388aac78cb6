// Package xsltnode implements a reference per-item transform node whose
// actual transform engine is out of scope (see DESIGN.md): each item's work
// is still dispatched through the shared worker pool via noderuntime's
// cache envelope, exercising the same isolation contract a real XSLT engine
// would need (spec.md §9's "isolate each transform in a worker" note), with
// a deterministic placeholder standing in for the engine itself.
package xsltnode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	kilnconfig "github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/nodedecode"
	"github.com/kilnbuild/kiln/internal/noderuntime"
	"github.com/kilnbuild/kiln/internal/outputshape"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Type is the node-type tag xslt nodes register under.
const Type = "xsltnode"

// Config is the xslt node's processing config: a stylesheet dependency
// (tracked as a FileRef config dep so edits to it invalidate every item)
// plus the item source.
type Config struct {
	SourceXML  input.Input
	Stylesheet string // path to the stylesheet; tracked, never transformed here
	Output     outputshape.Config
}

// Node transforms each resolved XML item. The transform body is a stand-in:
// it wraps the source bytes in a comment naming the stylesheet, so tests can
// assert the per-item dispatch and caching behavior without a real XSLT
// engine.
type Node struct {
	name   string
	config Config
}

// New constructs an xslt Node.
func New(name string, cfg Config) *Node {
	return &Node{name: name, config: cfg}
}

func (n *Node) Name() string { return n.name }

func (n *Node) Config() map[string]interface{} {
	cfg := map[string]interface{}{"sourceXml": n.config.SourceXML}
	if n.config.Stylesheet != "" {
		cfg["stylesheet"] = noderuntime.FileRef(n.config.Stylesheet)
	}
	return cfg
}

func (n *Node) OutputConfig() map[string]interface{} {
	return map[string]interface{}{"output": n.config.Output}
}

func (n *Node) ExplicitDependencies() []string { return nil }

func (n *Node) Run(ctx *node.Context) ([]node.Output, error) {
	items, err := ctx.ResolveInput(n.config.SourceXML)
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

// transform is the stand-in workload: the real XSLT engine isn't available
// in this module's dependency surface, so this wraps the source bytes in a
// marker comment naming the stylesheet it would have been run through.
func (n *Node) transform(ctx *node.Context, item string) (noderuntime.WorkResult, error) {
	data, err := os.ReadFile(item)
	if err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}

	transformed := fmt.Sprintf("<!-- transformed via %s -->\n%s", n.config.Stylesheet, data)
	outPath := outputshape.Resolve(item, n.name, ctx.BuildDir(), n.config.Output)

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}
	if err := os.WriteFile(outPath, []byte(transformed), 0o644); err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}

	return noderuntime.WorkResult{
		Outputs: map[string][]string{"transformed": {outPath}},
	}, nil
}

func init() {
	_ = kilnconfig.RegisterFactory(Type, buildNode)
}

func buildNode(n kilnconfig.Node) (node.Node, error) {
	sourceXML, err := nodedecode.Input(n.Config["sourceXml"])
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(n.Name, "decode sourceXml", err)
	}
	stylesheet, _ := n.Config["stylesheet"].(string)

	return New(n.Name, Config{
		SourceXML:  sourceXML,
		Stylesheet: stylesheet,
		Output:     nodedecode.OutputConfig(n.OutputConfig),
	}), nil
}
