package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSnapshot struct {
	buildDir string
	outputs  map[string]map[string][]string
	ran      map[string]bool
}

func (f *fakeSnapshot) Outputs(nodeName string) (map[string][]string, bool) {
	if !f.ran[nodeName] {
		return nil, false
	}
	return f.outputs[nodeName], true
}

func (f *fakeSnapshot) BuildDir() string { return f.buildDir }

func TestResolveGlobMatchesFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0o644))

	got, err := Resolve(Glob(filepath.Join(dir, "*.txt")), &fakeSnapshot{})
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestResolveGlobEmptyIsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Resolve(Glob(filepath.Join(dir, "*.nope")), &fakeSnapshot{})
	require.Error(t, err)
}

func TestResolveListPreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()

	got, err := Resolve(List(File("a"), File("b"), File("a")), &fakeSnapshot{})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "a"}, got)
}

func TestResolveFileRefIsVerbatim(t *testing.T) {
	t.Parallel()

	got, err := Resolve(File("/literal/path.xml"), &fakeSnapshot{})
	require.NoError(t, err)
	require.Equal(t, []string{"/literal/path.xml"}, got)
}

func TestResolveNodeRefErrorsWhenProducerHasNotRun(t *testing.T) {
	t.Parallel()

	snap := &fakeSnapshot{ran: map[string]bool{}}
	_, err := Resolve(FromNode("render", "html"), snap)
	require.Error(t, err)
}

func TestResolveNodeRefErrorsOnUnknownOutputName(t *testing.T) {
	t.Parallel()

	snap := &fakeSnapshot{
		ran:     map[string]bool{"render": true},
		outputs: map[string]map[string][]string{"render": {"html": {"a.html"}}},
	}
	_, err := Resolve(FromNode("render", "css"), snap)
	require.Error(t, err)
}

func TestResolveNodeRefFlattensWithoutFilter(t *testing.T) {
	t.Parallel()

	snap := &fakeSnapshot{
		ran:     map[string]bool{"render": true},
		outputs: map[string]map[string][]string{"render": {"html": {"a.html", "b.html"}}},
	}
	got, err := Resolve(FromNode("render", "html"), snap)
	require.NoError(t, err)
	require.Equal(t, []string{"a.html", "b.html"}, got)
}

func TestResolveNodeRefGlobFilterUnderBuildDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nodeDir := filepath.Join(dir, "render")
	require.NoError(t, os.MkdirAll(nodeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nodeDir, "a.html"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nodeDir, "a.xml"), []byte("a"), 0o644))

	snap := &fakeSnapshot{
		buildDir: dir,
		ran:      map[string]bool{"render": true},
		outputs: map[string]map[string][]string{
			"render": {"all": {filepath.Join(nodeDir, "a.html"), filepath.Join(nodeDir, "a.xml")}},
		},
	}

	got, err := Resolve(FromNodeGlob("render", "all", "*.html"), snap)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(nodeDir, "a.html")}, got)
}

func TestResolveNodeRefGlobFilterEmptyIsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	snap := &fakeSnapshot{
		buildDir: dir,
		ran:      map[string]bool{"render": true},
		outputs:  map[string]map[string][]string{"render": {"all": {filepath.Join(dir, "render", "a.html")}}},
	}

	_, err := Resolve(FromNodeGlob("render", "all", "*.nope"), snap)
	require.Error(t, err)
}
