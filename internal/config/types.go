// Package config defines the YAML pipeline-definition schema and the
// node-type factory registry that turns a parsed document into live
// node.Node values.
package config

// Document is the full YAML pipeline definition.
type Document struct {
	Version  string   `yaml:"version" validate:"required,semver"`
	Name     string   `yaml:"name" validate:"required,min=1,max=100"`
	Settings Settings `yaml:"settings,omitempty"`
	Nodes    []Node   `yaml:"nodes" validate:"required,min=1,dive"`
}

// Settings holds pipeline-wide execution parameters.
type Settings struct {
	BuildDir       string `yaml:"buildDir,omitempty"`
	CacheDir       string `yaml:"cacheDir,omitempty"`
	Strategy       string `yaml:"strategy,omitempty" validate:"omitempty,oneof=sequential wave dynamic"`
	WorkerPoolSize int    `yaml:"workerPoolSize,omitempty" validate:"omitempty,min=1,max=256"`
	LogLevel       string `yaml:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// Node is one pipeline-definition entry: the node's declared type, its
// processing config, its output-shaping config, and any explicit
// dependencies beyond what its config's node-output references induce.
type Node struct {
	Name         string                 `yaml:"name" validate:"required,node_name"`
	Type         string                 `yaml:"type" validate:"required"`
	Config       map[string]interface{} `yaml:"config,omitempty"`
	OutputConfig map[string]interface{} `yaml:"outputConfig,omitempty"`
	DependsOn    []string               `yaml:"dependsOn,omitempty"`
}
