package main

import (
	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newMangaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "manga [on|off|toggle]",
		Short: "Switch manga mode (reversed page order for dual layouts)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Manga(toggleArg(args))
				return err
			})
		},
	}
}

func newUpscalingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upscaling [on|off|toggle]",
		Short: "Switch upscaling through the configured external upscaler",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Upscaling(toggleArg(args))
				return err
			})
		},
	}
}

func toggleArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return "toggle"
}

func newFitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fit <container|height|width|fullsize>",
		Short: "Select how pages are fit to the target resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Fit(args[0])
				return err
			})
		},
	}
}

func newModeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mode <single|verticalstrip|horizontalstrip|dualpage|dualpagereversed>",
		Short: "Select the display mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Mode(args[0])
				return err
			})
		},
	}
}

func newResolutionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolution <WxH>",
		Short: "Retarget page fitting to a new resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				_, err := client.Resolution(args[0])
				return err
			})
		},
	}
}
