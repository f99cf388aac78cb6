package node

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/logging"
	"github.com/stretchr/testify/require"
)

type stubSnapshot struct {
	buildDir string
	outputs  map[string]map[string][]string
	ran      map[string]bool
	store    *cachestore.Store
}

func (s *stubSnapshot) Outputs(nodeName string) (map[string][]string, bool) {
	if !s.ran[nodeName] {
		return nil, false
	}
	return s.outputs[nodeName], true
}

func (s *stubSnapshot) BuildDir() string { return s.buildDir }

func (s *stubSnapshot) NodeOutputsOf(name string) (map[string][]string, bool) {
	return s.Outputs(name)
}

func (s *stubSnapshot) Store() *cachestore.Store { return s.store }

func TestContextResolveInputDelegatesToInputPackage(t *testing.T) {
	t.Parallel()

	snap := &stubSnapshot{
		ran:     map[string]bool{"fetch": true},
		outputs: map[string]map[string][]string{"fetch": {"html": {"a.html", "b.html"}}},
	}
	ctx := NewContext(context.Background(), snap, logging.NoOp{}, nil, "build")

	got, err := ctx.ResolveInput(input.FromNode("fetch", "html"))
	require.NoError(t, err)
	require.Equal(t, []string{"a.html", "b.html"}, got)
}

func TestContextBuildPathForDefaultsUnderNodeName(t *testing.T) {
	t.Parallel()

	ctx := NewContext(context.Background(), &stubSnapshot{}, logging.NoOp{}, nil, "build")
	got := ctx.BuildPathFor("render", filepath.Join("content", "a.md"), "")
	require.Equal(t, filepath.Join("build", "render", "content", "a.md"), got)
}

func TestContextBuildPathForReplacesExtension(t *testing.T) {
	t.Parallel()

	ctx := NewContext(context.Background(), &stubSnapshot{}, logging.NoOp{}, nil, "build")
	got := ctx.BuildPathFor("render", "a.md", ".html")
	require.Equal(t, filepath.Join("build", "render", "a.html"), got)
}

func TestContextStripBuildPrefixInsideBuildDir(t *testing.T) {
	t.Parallel()

	ctx := NewContext(context.Background(), &stubSnapshot{}, logging.NoOp{}, nil, "build")
	got := ctx.StripBuildPrefix(filepath.Join("build", "fetch", "posts", "a.md"))
	require.Equal(t, filepath.Join("posts", "a.md"), got)
}

func TestContextNodeOutputsOfReflectsSnapshot(t *testing.T) {
	t.Parallel()

	snap := &stubSnapshot{
		ran:     map[string]bool{"fetch": true},
		outputs: map[string]map[string][]string{"fetch": {"html": {"a.html"}}},
	}
	ctx := NewContext(context.Background(), snap, logging.NoOp{}, nil, "build")

	outputs, ok := ctx.NodeOutputsOf("fetch")
	require.True(t, ok)
	require.Equal(t, []string{"a.html"}, outputs["html"])

	_, ok = ctx.NodeOutputsOf("missing")
	require.False(t, ok)
}
