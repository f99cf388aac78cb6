package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kilnbuild/kiln/internal/config"
	"github.com/kilnbuild/kiln/internal/pipeline"
	"github.com/kilnbuild/kiln/internal/tui"
)

func newDashboardCmd(root *rootFlags, app *AppContext) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "run a pipeline with a live progress view",
		RunE: func(cmd *cobra.Command, args []string) error {
			nonInteractive := !term.IsTerminal(int(os.Stdout.Fd()))
			return runDashboard(cmd, app, configPath, nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "kiln.yaml", "path to the pipeline definition")

	return cmd
}

func runDashboard(cmd *cobra.Command, app *AppContext, configPath string, nonInteractive bool) error {
	if err := validateConfigPath(configPath); err != nil {
		return err
	}

	doc, err := config.Parse(configPath)
	if err != nil {
		return fmt.Errorf("load %s: %w", configPath, err)
	}

	strategy, err := resolveStrategy(doc.Settings.Strategy)
	if err != nil {
		return err
	}

	ctx, logger := app.CommandContext("dashboard")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interactive := !nonInteractive

	var program *tea.Program
	var modelState tui.Model

	p := pipeline.New(pipeline.Options{
		BuildDir:       doc.Settings.BuildDir,
		CacheDir:       doc.Settings.CacheDir,
		Strategy:       strategy,
		WorkerPoolSize: doc.Settings.WorkerPoolSize,
		Logger:         logger,
		OnNodeStart: func(name string, start time.Time) {
			dispatchTuiMessage(interactive, program, &modelState, tui.NodeStartMsg{Name: name, Time: start})
		},
		OnNodeComplete: func(name string, nodeErr error, elapsed time.Duration) {
			status := tui.StatusSuccess
			msg := ""
			if nodeErr != nil {
				status = tui.StatusFailed
				msg = nodeErr.Error()
			}
			dispatchTuiMessage(interactive, program, &modelState, tui.NodeCompleteMsg{
				Name:     name,
				Status:   status,
				Message:  msg,
				Duration: elapsed,
			})
		},
	})

	if err := buildAndAddNodes(p, doc); err != nil {
		return err
	}

	modelState = tui.NewModel(doc.Name, p.NodeNames(), nonInteractive)

	var programErr error
	done := make(chan struct{})

	if interactive {
		program = tea.NewProgram(modelState)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	runErr := p.Run(ctx)

	if interactive {
		program.Send(tea.QuitMsg{})
		<-done
		if programErr != nil {
			return programErr
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), modelState.View())
	}

	return runErr
}

func dispatchTuiMessage(interactive bool, program *tea.Program, state *tui.Model, msg tea.Msg) {
	if interactive {
		if program != nil {
			program.Send(msg)
		}
		return
	}

	updated, _ := state.Update(msg)
	if m, ok := updated.(tui.Model); ok {
		*state = m
	}
}
