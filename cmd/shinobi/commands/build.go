package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/shinobi/internal/app"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Bring the named targets up to date",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			jobs, _ := cmd.Flags().GetInt("jobs")
			keepGoing, _ := cmd.Flags().GetInt("keep-going")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			logFile, _ := cmd.Flags().GetString("log-file")

			return c.app.Run(cmd.Context(), args, app.RunOptions{
				File:      file,
				LogFile:   logFile,
				Jobs:      jobs,
				KeepGoing: keepGoing,
				DryRun:    dryRun,
			})
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Number of parallel jobs (default: number of CPUs)")
	cmd.Flags().IntP("keep-going", "k", 1, "Number of failures tolerated before stopping")
	cmd.Flags().BoolP("dry-run", "n", false, "Print what would run without executing or logging")
	cmd.Flags().String("log-file", "", "Path of the command log (default: "+app.DefaultLogFile+")")
	return cmd
}
