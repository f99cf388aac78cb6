package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/pipeline"
)

func newRunCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "run a pipeline definition once, non-interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, app, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "kiln.yaml", "path to the pipeline definition")

	return cmd
}

func runPipeline(cmd *cobra.Command, app *AppContext, configPath string) error {
	if err := validateConfigPath(configPath); err != nil {
		return err
	}

	ctx, logger := app.CommandContext("run")

	doc, err := config.Parse(configPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", configPath, err)
	}

	strategy, err := resolveStrategy(doc.Settings.Strategy)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Options{
		BuildDir:       doc.Settings.BuildDir,
		CacheDir:       doc.Settings.CacheDir,
		Strategy:       strategy,
		WorkerPoolSize: doc.Settings.WorkerPoolSize,
		Logger:         logger,
	})

	if err := buildAndAddNodes(p, doc); err != nil {
		return err
	}

	start := time.Now()
	runErr := p.Run(ctx)
	elapsed := time.Since(start)

	printRunSummary(cmd, doc.Name, p, runErr, elapsed)

	return runErr
}

// buildAndAddNodes turns every declared node into a node.Node via the
// registered factory and adds it to the pipeline's DAG.
func buildAndAddNodes(p *pipeline.Pipeline, doc *config.Document) error {
	for _, decl := range doc.Nodes {
		n, err := config.BuildNode(decl)
		if err != nil {
			return fmt.Errorf("build node %q: %w", decl.Name, err)
		}
		if err := p.AddNode(n); err != nil {
			return fmt.Errorf("add node %q: %w", decl.Name, err)
		}
	}
	return nil
}

func printRunSummary(cmd *cobra.Command, pipelineName string, p *pipeline.Pipeline, runErr error, elapsed time.Duration) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "pipeline %q finished in %s\n", pipelineName, elapsed.Round(time.Millisecond))
	for _, name := range p.NodeNames() {
		status := "ok"
		if _, ran := p.Outputs(name); !ran {
			status = "skipped"
		}
		fmt.Fprintf(out, "  %-24s %-8s %s\n", name, status, p.Elapsed(name).Round(time.Millisecond))
	}
	if runErr != nil {
		fmt.Fprintf(out, "run failed: %v\n", runErr)
	}
}
