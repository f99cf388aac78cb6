// Package gitsource implements a reference input-source node: it checks out
// a git ref into the pipeline's build directory and emits the checked-out
// files as its output, giving downstream nodes git-managed content (for
// example, a content submodule feeding a static-site pipeline).
package gitsource

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	kilnconfig "github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/node"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Type is the node-type tag gitsource nodes register under.
const Type = "gitsource"

// Config is the gitsource node's processing config.
type Config struct {
	URL   string
	Ref   string // branch name; empty means the remote's default branch
	Depth int    // 0 means full history
}

// Node clones or reuses a git checkout under the pipeline's build directory.
type Node struct {
	name   string
	config Config
}

// New constructs a gitsource Node.
func New(name string, cfg Config) *Node {
	return &Node{name: name, config: cfg}
}

func (n *Node) Name() string { return n.name }

func (n *Node) Config() map[string]interface{} {
	return map[string]interface{}{
		"url":   n.config.URL,
		"ref":   n.config.Ref,
		"depth": n.config.Depth,
	}
}

func (n *Node) OutputConfig() map[string]interface{} { return nil }

func (n *Node) ExplicitDependencies() []string { return nil }

func (n *Node) Run(ctx *node.Context) ([]node.Output, error) {
	dest := filepath.Join(ctx.BuildDir(), n.name)
	logger := ctx.Log().With("node", n.name)

	if n.upToDate(dest) {
		logger.Debug(ctx.Done(), "checkout already at desired ref, skipping clone", "url", n.config.URL, "ref", n.config.Ref)
	} else {
		if err := os.RemoveAll(dest); err != nil {
			return nil, kilnerrors.NewWorkloadError(n.name, err)
		}

		opts := &git.CloneOptions{URL: n.config.URL}
		if n.config.Depth > 0 {
			opts.Depth = n.config.Depth
		}
		if n.config.Ref != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(n.config.Ref)
			opts.SingleBranch = true
		}

		logger.Info(ctx.Done(), "cloning repository", "url", n.config.URL, "ref", n.config.Ref)
		if _, err := git.PlainClone(dest, false, opts); err != nil {
			return nil, kilnerrors.NewWorkloadError(n.name, err)
		}
	}

	files, err := listCheckedOutFiles(dest)
	if err != nil {
		return nil, kilnerrors.NewWorkloadError(n.name, err)
	}

	return []node.Output{{NodeName: n.name, Values: map[string][]string{"files": files}}}, nil
}

// upToDate reports whether dest already holds a git checkout whose origin
// URL is the configured URL and, when a ref is configured, whose HEAD is on
// that branch, avoiding a redundant clone. Working-tree changes are not
// inspected.
func (n *Node) upToDate(dest string) bool {
	info, err := os.Stat(filepath.Join(dest, ".git"))
	if err != nil || !info.IsDir() {
		return false
	}

	repo, err := git.PlainOpen(dest)
	if err != nil {
		return false
	}

	remote, err := repo.Remote("origin")
	if err != nil || len(remote.Config().URLs) == 0 || remote.Config().URLs[0] != n.config.URL {
		return false
	}

	if n.config.Ref == "" {
		return true
	}

	head, err := repo.Head()
	if err != nil {
		return false
	}
	return head.Name().Short() == n.config.Ref
}

func listCheckedOutFiles(dest string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dest, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func init() {
	_ = kilnconfig.RegisterFactory(Type, buildNode)
}

func buildNode(n kilnconfig.Node) (node.Node, error) {
	url, _ := n.Config["url"].(string)
	if url == "" {
		return nil, kilnerrors.NewConfigurationError(n.Name, "gitsource requires config.url", nil)
	}
	ref, _ := n.Config["ref"].(string)

	depth := 0
	switch v := n.Config["depth"].(type) {
	case int:
		depth = v
	case float64:
		depth = int(v)
	}

	return New(n.Name, Config{URL: url, Ref: ref, Depth: depth}), nil
}
