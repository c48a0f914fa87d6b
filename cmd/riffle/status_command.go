package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"riffle/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current archive, page, and modes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Env)
				}
				renderStatus(cmd.OutOrStdout(), resp.Env)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the raw page environment as JSON")
	return cmd
}

func renderStatus(out io.Writer, env map[string]string) {
	colorize := shouldColorize(out)
	value := func(key string) string {
		if v := env[key]; v != "" {
			return v
		}
		return "-"
	}

	fmt.Fprintln(out, renderSectionHeader("Archive", colorize))
	fmt.Fprintln(out, renderStatusLine("Archive", statusInfo, value("RIFFLE_ARCHIVE"), colorize))
	fmt.Fprintln(out, renderStatusLine("Type", statusInfo, value("RIFFLE_ARCHIVE_TYPE"), colorize))
	fmt.Fprintln(out, renderStatusLine("Page", statusOK,
		fmt.Sprintf("%s of %s", value("RIFFLE_PAGE_NUMBER"), value("RIFFLE_PAGE_COUNT")), colorize))
	fmt.Fprintln(out, renderStatusLine("File", statusInfo, value("RIFFLE_RELATIVE_FILE_PATH"), colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Modes", colorize))
	fmt.Fprintln(out, renderStatusLine("Display", statusInfo, value("RIFFLE_DISPLAY_MODE"), colorize))
	fmt.Fprintln(out, renderStatusLine("Fit", statusInfo, value("RIFFLE_FIT_MODE"), colorize))
	fmt.Fprintln(out, renderStatusLine("Manga", modeKind(env["RIFFLE_MANGA_MODE"]), onOff(env["RIFFLE_MANGA_MODE"]), colorize))
	fmt.Fprintln(out, renderStatusLine("Upscaling", modeKind(env["RIFFLE_UPSCALING_ENABLED"]), onOff(env["RIFFLE_UPSCALING_ENABLED"]), colorize))
	fmt.Fprintln(out)

	fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
	fmt.Fprintln(out, renderStatusLine("PID", statusInfo, value("RIFFLE_PID"), colorize))
	fmt.Fprintln(out, renderStatusLine("Session", statusInfo, value("RIFFLE_SESSION_ID"), colorize))
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, value("RIFFLE_SOCKET"), colorize))
}

func onOff(value string) string {
	if value == "true" {
		return "on"
	}
	return "off"
}

func modeKind(value string) statusKind {
	if value == "true" {
		return statusOK
	}
	return statusInfo
}
