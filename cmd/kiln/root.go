package main

import (
	"github.com/spf13/cobra"

	"github.com/kilnbuild/kiln/internal/logging"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "kiln",
		Short:         "kiln builds static-site pipelines from a declarative node graph",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !flags.verbose || app == nil {
				return nil
			}
			logger, err := logging.New(logging.Options{Level: "debug", Component: "cli"})
			if err != nil {
				return err
			}
			app.Logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd(flags, app))
	cmd.AddCommand(newDashboardCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
