package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <page|+n|-n>",
		Short: "Go to a page: absolute number, or +n/-n relative to the current page",
		Long: `Go to a page. A bare number jumps to that page, +n moves forward and -n
moves backward. Backward moves need the flag terminator:

  riffle move 12
  riffle move +3
  riffle move -- -3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			direction, pages, err := parseMoveArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Move(direction, pages)
				return err
			})
		},
	}
}

// parseMoveArg maps "+n" to a forward move, "-n" to a backward move, and a
// bare number to an absolute jump.
func parseMoveArg(arg string) (string, int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", 0, errors.New("move needs a page number")
	}

	direction := "absolute"
	digits := arg
	switch arg[0] {
	case '+':
		direction = "forwards"
		digits = arg[1:]
	case '-':
		direction = "backwards"
		digits = arg[1:]
	}

	pages, err := strconv.Atoi(digits)
	if err != nil || pages < 0 {
		return "", 0, fmt.Errorf("move amount %q is not a page count", arg)
	}
	if direction == "absolute" && pages == 0 {
		return "", 0, errors.New("page numbers start at 1")
	}
	return direction, pages, nil
}

func newNextArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "next-archive",
		Short: "Jump to the first page of the next sibling archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.NextArchive()
				return err
			})
		},
	}
}

func newPreviousArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "prev-archive",
		Aliases: []string{"previous-archive"},
		Short:   "Jump to the first page of the previous sibling archive",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.PreviousArchive()
				return err
			})
		},
	}
}
