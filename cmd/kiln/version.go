package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilnbuild/kiln/internal/components"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			cardData := components.CardData{
				Title:       "kiln",
				Description: "incremental, content-addressed static-site build orchestrator",
				Icon:        "🔥",
				Metadata: map[string]string{
					"Version": version,
					"Commit":  commit,
					"Built":   date,
				},
			}

			card := components.StatusCard(cardData, "info")
			fmt.Fprintln(cmd.OutOrStdout(), card.View())
			return nil
		},
	}

	return cmd
}
