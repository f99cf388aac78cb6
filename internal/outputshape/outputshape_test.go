package outputshape

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveDefaultsOutputDirToBuildDirSlashNode(t *testing.T) {
	t.Parallel()

	got := Resolve(filepath.Join("content", "posts", "a.md"), "render", "build", Config{})
	require.Equal(t, filepath.Join("build", "render", "content", "posts", "a.md"), got)
}

func TestResolveCleansPathsInsideBuildDir(t *testing.T) {
	t.Parallel()

	input := filepath.Join("build", "fetch", "posts", "a.md")
	got := Resolve(input, "render", "build", Config{})
	require.Equal(t, filepath.Join("build", "render", "posts", "a.md"), got)
}

func TestResolveFlattenToBasenameWins(t *testing.T) {
	t.Parallel()

	input := filepath.Join("content", "posts", "a.md")
	got := Resolve(input, "render", "build", Config{FlattenToBasename: true})
	require.Equal(t, filepath.Join("build", "render", "a.md"), got)
}

func TestResolveStripPathPrefix(t *testing.T) {
	t.Parallel()

	input := filepath.Join("content", "posts", "a.md")
	got := Resolve(input, "render", "build", Config{StripPathPrefix: "content"})
	require.Equal(t, filepath.Join("build", "render", "posts", "a.md"), got)
}

func TestResolveStripPathPrefixNoMatchKeepsPath(t *testing.T) {
	t.Parallel()

	input := filepath.Join("other", "a.md")
	got := Resolve(input, "render", "build", Config{StripPathPrefix: "content"})
	require.Equal(t, filepath.Join("build", "render", "other", "a.md"), got)
}

func TestResolveFlattenWinsOverPathMapping(t *testing.T) {
	t.Parallel()

	cfg := Config{
		FlattenToBasename: true,
		PathMapping: func(cleaned string) string {
			return "mapped/" + filepath.Base(cleaned)
		},
	}
	input := filepath.Join("content", "a.md")
	got := Resolve(input, "render", "build", cfg)
	require.Equal(t, filepath.Join("build", "render", "a.md"), got)
}

func TestResolveOutputFilenameWinsOverExtensionAndSuffix(t *testing.T) {
	t.Parallel()

	cfg := Config{
		OutputFilename: "index.html",
		Extension:      ".txt",
		FilenameSuffix: "-ignored",
	}
	got := Resolve("a.md", "render", "build", cfg)
	require.Equal(t, filepath.Join("build", "render", "index.html"), got)
}

func TestResolveExtensionAndSuffixCombine(t *testing.T) {
	t.Parallel()

	cfg := Config{Extension: "html", FilenameSuffix: ".min"}
	got := Resolve("a.md", "render", "build", cfg)
	require.Equal(t, filepath.Join("build", "render", "a.min.html"), got)
}

func TestResolveOutputFilenameFnOverridesPerItem(t *testing.T) {
	t.Parallel()

	cfg := Config{
		OutputFilenameFn: func(cleaned string) string {
			return filepath.Base(cleaned) + ".out"
		},
	}
	got := Resolve("a.md", "render", "build", cfg)
	require.Equal(t, filepath.Join("build", "render", "a.md.out"), got)
}

func TestResolveOutputDirOverride(t *testing.T) {
	t.Parallel()

	got := Resolve("a.md", "render", "build", Config{OutputDir: "custom"})
	require.Equal(t, filepath.Join("custom", "a.md"), got)
}

func TestMergeOverrideWinsOverBase(t *testing.T) {
	t.Parallel()

	base := Config{OutputDir: "base-dir", Extension: ".html"}
	override := Config{Extension: ".xml"}

	merged, err := Merge(base, override)
	require.NoError(t, err)
	require.Equal(t, "base-dir", merged.OutputDir)
	require.Equal(t, ".xml", merged.Extension)
}

func TestMergeEmptyOverrideKeepsBase(t *testing.T) {
	t.Parallel()

	base := Config{OutputDir: "base-dir", FlattenToBasename: true}
	merged, err := Merge(base, Config{})
	require.NoError(t, err)
	require.Equal(t, "base-dir", merged.OutputDir)
	require.True(t, merged.FlattenToBasename)
}
