package main

import (
	"fmt"
	"os"

	"github.com/kilnbuild/kiln/internal/pipeline"
)

// validateConfigPath checks that path refers to a readable, regular file
// before kiln spends any time parsing it.
func validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("pipeline definition path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("pipeline definition %q: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("pipeline definition %q is a directory", path)
	}
	return nil
}

// resolveStrategy maps the settings.strategy string onto the pipeline
// package's Strategy enum, defaulting to DynamicReady (strictly at least
// as parallel as the other two strategies) when unset.
func resolveStrategy(name string) (pipeline.Strategy, error) {
	switch name {
	case "", "dynamic":
		return pipeline.DynamicReady, nil
	case "sequential":
		return pipeline.Sequential, nil
	case "wave":
		return pipeline.WaveParallel, nil
	default:
		return 0, fmt.Errorf("unknown strategy %q", name)
	}
}
