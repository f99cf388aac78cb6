package nodedecode

import (
	"testing"

	"github.com/kilnbuild/kiln/internal/input"
	"github.com/stretchr/testify/require"
)

func TestInputDecodesBareGlobString(t *testing.T) {
	t.Parallel()

	in, err := Input("content/*.md")
	require.NoError(t, err)
	require.Equal(t, input.Glob("content/*.md"), in)
}

func TestInputDecodesGlobMap(t *testing.T) {
	t.Parallel()

	in, err := Input(map[string]interface{}{"glob": "content/*.md"})
	require.NoError(t, err)
	require.Equal(t, input.Glob("content/*.md"), in)
}

func TestInputDecodesNodeRefWithoutFilter(t *testing.T) {
	t.Parallel()

	in, err := Input(map[string]interface{}{"from": "fetch", "output": "html"})
	require.NoError(t, err)
	require.Equal(t, input.FromNode("fetch", "html"), in)
}

func TestInputDecodesNodeRefWithFilter(t *testing.T) {
	t.Parallel()

	in, err := Input(map[string]interface{}{"from": "fetch", "output": "html", "filter": "*.html"})
	require.NoError(t, err)
	require.Equal(t, input.FromNodeGlob("fetch", "html", "*.html"), in)
}

func TestInputDecodesFileRef(t *testing.T) {
	t.Parallel()

	in, err := Input(map[string]interface{}{"file": "config/site.yaml"})
	require.NoError(t, err)
	require.Equal(t, input.File("config/site.yaml"), in)
}

func TestInputDecodesList(t *testing.T) {
	t.Parallel()

	in, err := Input([]interface{}{"a/*.md", map[string]interface{}{"file": "b.md"}})
	require.NoError(t, err)
	require.Equal(t, input.List(input.Glob("a/*.md"), input.File("b.md")), in)
}

func TestInputRejectsUnrecognizedShape(t *testing.T) {
	t.Parallel()

	_, err := Input(map[string]interface{}{"nonsense": true})
	require.Error(t, err)
}

func TestOutputConfigDecodesRecognizedKeys(t *testing.T) {
	t.Parallel()

	cfg := OutputConfig(map[string]interface{}{
		"outputDir":         "dist",
		"flattenToBasename": true,
		"extension":         "html",
		"filenameSuffix":    ".min",
	})
	require.Equal(t, "dist", cfg.OutputDir)
	require.True(t, cfg.FlattenToBasename)
	require.Equal(t, "html", cfg.Extension)
	require.Equal(t, ".min", cfg.FilenameSuffix)
}

func TestOutputConfigNilReturnsZeroValue(t *testing.T) {
	t.Parallel()

	cfg := OutputConfig(nil)
	require.Equal(t, "", cfg.OutputDir)
	require.False(t, cfg.FlattenToBasename)
}
