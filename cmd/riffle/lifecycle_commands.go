package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that riffled answers on the socket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ping()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "riffled is running (pid %d, session %s)\n",
					resp.PID, resp.SessionID)
				return nil
			})
		},
	}
}

func newShutdownCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Stop the riffled daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Shutdown()
				if err != nil {
					return err
				}
				if resp.Stopping {
					fmt.Fprintln(cmd.OutOrStdout(), "Shutdown requested")
				}
				return nil
			})
		},
	}
}
