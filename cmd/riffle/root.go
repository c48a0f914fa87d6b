package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var socketFlag string
	var configFlag string

	ctx := newCommandContext(&socketFlag, &configFlag)

	rootCmd := &cobra.Command{
		Use:           "riffle",
		Short:         "Control a running riffled daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Path to the riffled control socket")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPagesCommand(ctx))
	rootCmd.AddCommand(newMoveCommand(ctx))
	rootCmd.AddCommand(newNextArchiveCommand(ctx))
	rootCmd.AddCommand(newPreviousArchiveCommand(ctx))
	rootCmd.AddCommand(newMangaCommand(ctx))
	rootCmd.AddCommand(newUpscalingCommand(ctx))
	rootCmd.AddCommand(newFitCommand(ctx))
	rootCmd.AddCommand(newModeCommand(ctx))
	rootCmd.AddCommand(newResolutionCommand(ctx))
	rootCmd.AddCommand(newExecCommand(ctx))
	rootCmd.AddCommand(newPingCommand(ctx))
	rootCmd.AddCommand(newShutdownCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
