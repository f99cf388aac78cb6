// Package copynode implements a reference "copy" node: it resolves a set of
// source files and copies each one through its output directory, byte for
// byte, demonstrating the per-item 1:1 node shape driven entirely by
// noderuntime's cache envelope.
package copynode

import (
	"context"
	"fmt"
	"io"
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

// Type is the node-type tag copy nodes register under.
const Type = "copynode"

// Config is the copy node's processing config.
type Config struct {
	SourceFiles input.Input
	Output      outputshape.Config
}

// Node copies each resolved source file into its output directory.
type Node struct {
	name   string
	config Config
}

// New constructs a copy Node.
func New(name string, cfg Config) *Node {
	return &Node{name: name, config: cfg}
}

func (n *Node) Name() string { return n.name }

func (n *Node) Config() map[string]interface{} {
	return map[string]interface{}{"sourceFiles": n.config.SourceFiles}
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
			return n.copyOne(ctx, item)
		},
	}

	return env.Run(ctx, items)
}

func (n *Node) copyOne(ctx *node.Context, item string) (noderuntime.WorkResult, error) {
	info, err := os.Stat(item)
	if err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}
	if info.IsDir() {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, fmt.Errorf("copynode does not support directory sources; glob individual files instead: %s", item))
	}

	dst := outputshape.Resolve(item, n.name, ctx.BuildDir(), n.config.Output)
	if err := copyFile(item, dst); err != nil {
		return noderuntime.WorkResult{}, kilnerrors.NewWorkloadError(n.name, err)
	}

	return noderuntime.WorkResult{Outputs: map[string][]string{"copied": {dst}}}, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}

func init() {
	_ = kilnconfig.RegisterFactory(Type, buildNode)
}

func buildNode(n kilnconfig.Node) (node.Node, error) {
	sourceFiles, err := nodedecode.Input(n.Config["sourceFiles"])
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(n.Name, "decode sourceFiles", err)
	}

	return New(n.Name, Config{
		SourceFiles: sourceFiles,
		Output:      nodedecode.OutputConfig(n.OutputConfig),
	}), nil
}
