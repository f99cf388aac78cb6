package config

import (
	"os"

	"gopkg.in/yaml.v3"

	kilnerrors "github.com/kilnbuild/kiln/pkg/errors"
)

// Parse loads a pipeline definition from disk, validates it, and returns the
// resulting Document.
func Parse(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, kilnerrors.NewConfigurationError(path, "failed to read pipeline definition", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, kilnerrors.NewConfigurationError(path, "failed to parse pipeline definition", err)
	}

	if err := ValidateDocument(&doc); err != nil {
		return nil, err
	}

	return &doc, nil
}
