// Package nodedecode turns the generic map[string]interface{} a YAML
// pipeline definition hands each node factory into the typed input.Input and
// outputshape.Config values node implementations work with. Shared across
// internal/nodes/* so every node factory decodes the same shapes the same
// way.
package nodedecode

import (
	"github.com/kilnbuild/kiln/internal/input"
	"github.com/kilnbuild/kiln/internal/outputshape"
	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Input decodes a sourceFiles/sourceXml config value into an input.Input.
// Accepted shapes:
//
//	"some/glob/*.md"                          -> Glob
//	{glob: "some/glob/*.md"}                  -> Glob
//	{from: node, output: key}                 -> NodeRef
//	{from: node, output: key, filter: glob}   -> NodeRef with glob filter
//	{file: "literal/path"}                    -> FileRef
//	[ <any of the above>, ... ]               -> List
func Input(raw interface{}) (input.Input, error) {
	switch v := raw.(type) {
	case string:
		return input.Glob(v), nil
	case []interface{}:
		items := make([]input.Input, 0, len(v))
		for _, item := range v {
			decoded, err := Input(item)
			if err != nil {
				return input.Input{}, err
			}
			items = append(items, decoded)
		}
		return input.List(items...), nil
	case map[string]interface{}:
		if glob, ok := v["glob"].(string); ok {
			return input.Glob(glob), nil
		}
		if producer, ok := v["from"].(string); ok {
			output, _ := v["output"].(string)
			if glob, ok := v["filter"].(string); ok && glob != "" {
				return input.FromNodeGlob(producer, output, glob), nil
			}
			return input.FromNode(producer, output), nil
		}
		if path, ok := v["file"].(string); ok {
			return input.File(path), nil
		}
	}
	return input.Input{}, kilnerrors.NewConfigurationError("", "unrecognized input shape", nil)
}

// OutputConfig decodes an outputConfig map into an outputshape.Config. Nil
// or unrecognized keys are left at their zero value.
func OutputConfig(raw map[string]interface{}) outputshape.Config {
	var cfg outputshape.Config
	if raw == nil {
		return cfg
	}
	if dir, ok := raw["outputDir"].(string); ok {
		cfg.OutputDir = dir
	}
	if flatten, ok := raw["flattenToBasename"].(bool); ok {
		cfg.FlattenToBasename = flatten
	}
	if prefix, ok := raw["stripPathPrefix"].(string); ok {
		cfg.StripPathPrefix = prefix
	}
	if filename, ok := raw["outputFilename"].(string); ok {
		cfg.OutputFilename = filename
	}
	if ext, ok := raw["extension"].(string); ok {
		cfg.Extension = ext
	}
	if suffix, ok := raw["filenameSuffix"].(string); ok {
		cfg.FilenameSuffix = suffix
	}
	return cfg
}
