package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newExecCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Run a command in the daemon with the page environment",
		Long: `Run a command from the daemon process with the RIFFLE_* environment
describing the current page. Flags for the command go after the
terminator:

  riffle exec notify-send "current page"
  riffle exec -- my-script --verbose`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Execute(args)
				if err != nil {
					return err
				}
				if resp.Stdout != "" {
					fmt.Fprint(cmd.OutOrStdout(), resp.Stdout)
				}
				if resp.Stderr != "" {
					fmt.Fprint(cmd.ErrOrStderr(), resp.Stderr)
				}
				if resp.Error != "" {
					return errors.New(resp.Error)
				}
				return nil
			})
		},
	}
}
