// Package outputshape computes an output path for one input item according
// to the output-path-shaping options of spec.md §4.2.3: a per-pipeline
// default merged with a per-node override, then applied in a fixed order.
package outputshape

import (
	"path/filepath"
	"strings"

	"dario.cat/mergo"
)

// PathMapper rewrites a cleaned relative path into a new relative path.
// Nodes that need structural reshaping beyond stripPathPrefix/
// flattenToBasename supply one of these.
type PathMapper func(cleaned string) string

// FilenameFunc computes an output filename from a cleaned relative path.
// Used when outputFilename needs to vary per item rather than being fixed.
type FilenameFunc func(cleaned string) string

// Config is one output-config: the seven recognized shaping options, all
// optional. Zero value means "apply no shaping at this level."
type Config struct {
	OutputDir         string
	FlattenToBasename bool
	StripPathPrefix   string
	PathMapping       PathMapper
	OutputFilename    string
	OutputFilenameFn  FilenameFunc
	Extension         string
	FilenameSuffix    string
}

// Merge overlays override onto base: any field override sets takes
// precedence, any field it leaves zero falls back to base. Mirrors the
// defaults-over-explicit-struct idiom the teacher applies when a step's
// config is merged over pipeline-level defaults.
func Merge(base, override Config) (Config, error) {
	merged := override
	if err := mergo.Merge(&merged, base); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// BaseDir returns the output base directory a node's OutputDirFn should
// report: cfg.OutputDir when set, otherwise <buildDir>/<nodeName>.
func BaseDir(nodeName, buildDir string, cfg Config) string {
	if cfg.OutputDir != "" {
		return cfg.OutputDir
	}
	return filepath.Join(buildDir, nodeName)
}

// Resolve computes the output path for inputPath given a node name, the
// pipeline's build directory, and a shaping config. outputDir defaults to
// <buildDir>/<nodeName> when cfg.OutputDir is empty.
func Resolve(inputPath, nodeName, buildDir string, cfg Config) string {
	outputDir := BaseDir(nodeName, buildDir, cfg)

	cleaned := Clean(inputPath, buildDir)
	relPath := applyStructural(cleaned, cfg)
	filename := applyFilename(relPath, cfg)

	dir := filepath.Dir(relPath)
	if dir == "." {
		return filepath.Join(outputDir, filename)
	}
	return filepath.Join(outputDir, dir, filename)
}

// Clean strips buildDir/<someNode>/ from paths that live inside the
// pipeline's build directory; otherwise it makes the path relative to the
// process working directory. Exported so callers like the node Context's
// StripBuildPrefix can reuse the exact same rule outside of Resolve.
func Clean(inputPath, buildDir string) string {
	absInput, err := filepath.Abs(inputPath)
	if err != nil {
		return inputPath
	}
	absBuild, err := filepath.Abs(buildDir)
	if err != nil {
		return inputPath
	}

	if rel, err := filepath.Rel(absBuild, absInput); err == nil && !strings.HasPrefix(rel, "..") {
		segments := strings.SplitN(filepath.ToSlash(rel), "/", 2)
		if len(segments) == 2 {
			return segments[1]
		}
		return segments[0]
	}

	cwd, err := filepath.Abs(".")
	if err != nil {
		return inputPath
	}
	if rel, err := filepath.Rel(cwd, absInput); err == nil {
		return rel
	}
	return inputPath
}

// applyStructural applies the mutually-exclusive structural manipulations in
// the order the spec lists them: flattenToBasename, then stripPathPrefix,
// then pathMapping. The first one configured wins; otherwise the cleaned
// path is preserved unchanged.
func applyStructural(cleaned string, cfg Config) string {
	switch {
	case cfg.FlattenToBasename:
		return filepath.Base(cleaned)
	case cfg.StripPathPrefix != "":
		if stripped, ok := stripPrefix(cleaned, cfg.StripPathPrefix); ok {
			return stripped
		}
		return cleaned
	case cfg.PathMapping != nil:
		return cfg.PathMapping(cleaned)
	default:
		return cleaned
	}
}

func stripPrefix(cleaned, prefix string) (string, bool) {
	cleanedSlash := filepath.ToSlash(cleaned)
	prefixSlash := strings.TrimSuffix(filepath.ToSlash(prefix), "/")

	if cleanedSlash == prefixSlash {
		return "", true
	}
	if strings.HasPrefix(cleanedSlash, prefixSlash+"/") {
		return filepath.FromSlash(strings.TrimPrefix(cleanedSlash, prefixSlash+"/")), true
	}
	return cleaned, false
}

// applyFilename applies the mutually-exclusive filename transforms:
// outputFilename (fixed or per-item function) wins over extension +
// filenameSuffix.
func applyFilename(relPath string, cfg Config) string {
	base := filepath.Base(relPath)

	switch {
	case cfg.OutputFilenameFn != nil:
		return cfg.OutputFilenameFn(relPath)
	case cfg.OutputFilename != "":
		return cfg.OutputFilename
	}

	if cfg.Extension == "" && cfg.FilenameSuffix == "" {
		return base
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if cfg.FilenameSuffix != "" {
		stem += cfg.FilenameSuffix
	}
	if cfg.Extension != "" {
		ext = normalizeExtension(cfg.Extension)
	}

	return stem + ext
}

func normalizeExtension(ext string) string {
	if ext == "" {
		return ext
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}
