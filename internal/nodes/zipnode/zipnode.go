// Package zipnode implements a reference archive-aggregation node: it zips
// every resolved source file into one archive output, demonstrating an
// N-inputs-to-1-output node shape distinct from noderuntime.Envelope's
// per-item 1:1 shape (see DESIGN.md).
package zipnode

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"

	kilnconfig "github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/nodedecode"
	"github.com/kilnbuild/kiln/internal/noderuntime"
	"github.com/kilnbuild/kiln/internal/outputshape"
	"github.com/kilnbuild/kiln/internal/pathsafe"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Type is the node-type tag zip nodes register under.
const Type = "zipnode"

const cacheKey = "archive"

// Config is the zip node's processing config.
type Config struct {
	SourceFiles input.Input
	ArchiveName string // defaults to "archive.zip"
	Output      outputshape.Config
}

// Node zips all resolved source files into one archive per run.
type Node struct {
	name   string
	config Config
}

// New constructs a zip Node.
func New(name string, cfg Config) *Node {
	return &Node{name: name, config: cfg}
}

func (n *Node) Name() string { return n.name }

func (n *Node) archiveName() string {
	if n.config.ArchiveName != "" {
		return n.config.ArchiveName
	}
	return "archive.zip"
}

func (n *Node) Config() map[string]interface{} {
	return map[string]interface{}{
		"sourceFiles": n.config.SourceFiles,
		"archiveName": n.archiveName(),
	}
}

func (n *Node) OutputConfig() map[string]interface{} {
	return map[string]interface{}{"output": n.config.Output}
}

func (n *Node) ExplicitDependencies() []string { return nil }

func (n *Node) outputPath(buildDir string) string {
	return filepath.Join(outputshape.BaseDir(n.name, buildDir, n.config.Output), n.archiveName())
}

func (n *Node) Run(ctx *node.Context) ([]node.Output, error) {
	items, err := ctx.ResolveInput(n.config.SourceFiles)
	if err != nil {
		return nil, err
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)

	store := ctx.Store()
	// The resolved item set must participate in the signature: the cache
	// key is otherwise constant ("archive"), so a config-only signature
	// would keep reporting a hit against a stale entry.ItemFiles list after
	// a source file is added or removed, silently omitting it from the
	// archive. n.Config() itself stays item-set-free since the pipeline
	// graph also calls it to collect node-ref edges.
	sigConfig := n.Config()
	sigConfig["resolvedItems"] = sorted
	signature, err := noderuntime.Signature(Type, sigConfig)
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(n.name, "compute content signature", err)
	}

	outPath := n.outputPath(ctx.BuildDir())

	if entry, hit, err := store.Get(signature, cacheKey); err == nil && hit && store.Validate(entry, nil) {
		cached := entry.OutputsByKey["archive"][0]
		if cached != outPath {
			if err := pathsafe.EnsureUnder(filepath.Dir(outPath), outPath); err != nil {
				return nil, err
			}
			if err := cachestore.CopyTo(cached, outPath); err != nil {
				return nil, kilnerrors.NewCacheIOError(outPath, err)
			}
		}
		return []node.Output{{NodeName: n.name, Values: map[string][]string{"archive": {outPath}}}}, nil
	}

	if err := writeZip(sorted, outPath); err != nil {
		return nil, kilnerrors.NewWorkloadError(n.name, err)
	}

	built, err := store.Build(cachestore.BuildParams{
		Items:         sorted,
		OutputsByKey:  map[string][]string{"archive": {outPath}},
		OutputBaseDir: filepath.Dir(outPath),
		CacheKey:      cacheKey,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Put(signature, cacheKey, built); err != nil {
		return nil, err
	}

	return []node.Output{{NodeName: n.name, Values: map[string][]string{"archive": {outPath}}}}, nil
}

func writeZip(files []string, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for _, path := range files {
		if err := addToZip(w, path); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}

func addToZip(w *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := w.Create(filepath.Base(path))
	if err != nil {
		return err
	}

	_, err = io.Copy(dst, src)
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
	archiveName, _ := n.Config["archiveName"].(string)

	return New(n.Name, Config{
		SourceFiles: sourceFiles,
		ArchiveName: archiveName,
		Output:      nodedecode.OutputConfig(n.OutputConfig),
	}), nil
}
