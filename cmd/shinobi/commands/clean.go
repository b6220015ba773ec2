package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/shinobi/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove declared outputs and the command log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			return c.app.Clean(cmd.Context(), app.CleanOptions{File: file})
		},
	}
}
