package copynode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilnbuild/kiln/internal/cachestore"
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/logging"
	"github.com/kilnbuild/kiln/internal/node"
	"github.com/kilnbuild/kiln/internal/workerpool"
)

type fakeSnapshot struct {
	buildDir string
	store    *cachestore.Store
}

func (f *fakeSnapshot) Outputs(string) (map[string][]string, bool)        { return nil, false }
func (f *fakeSnapshot) BuildDir() string                                  { return f.buildDir }
func (f *fakeSnapshot) NodeOutputsOf(string) (map[string][]string, bool)  { return nil, false }
func (f *fakeSnapshot) Store() *cachestore.Store                          { return f.store }

func newTestContext(t *testing.T, buildDir string) *node.Context {
	t.Helper()
	pool := workerpool.New(2, workerpool.ClosureDispatcher)
	t.Cleanup(pool.Terminate)
	store := cachestore.New(t.TempDir(), nil)
	snap := &fakeSnapshot{buildDir: buildDir, store: store}
	return node.NewContext(context.Background(), snap, logging.NoOp{}, pool, buildDir)
}

func TestCopyNodeCopiesEachSourceFile(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	buildDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0o644))

	n := New("cp", Config{SourceFiles: input.Glob(filepath.Join(srcDir, "*.txt"))})
	outputs, err := n.Run(newTestContext(t, buildDir))
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	content, err := os.ReadFile(outputs[0].Values["copied"][0])
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))
}

func TestCopyNodeRejectsDirectorySource(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	buildDir := t.TempDir()
	subdir := filepath.Join(srcDir, "sub")
	require.NoError(t, os.Mkdir(subdir, 0o755))

	n := New("cp", Config{SourceFiles: input.File(subdir)})
	_, err := n.Run(newTestContext(t, buildDir))
	require.Error(t, err)
}
