package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"riffle/internal/config"
	"riffle/internal/daemon"
	"riffle/internal/files"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var socketFlag string
	var page int
	var fileSet bool
	var manga bool
	var upscale bool
	var logLevel string
	var showSupported bool

	cmd := &cobra.Command{
		Use:   "riffled [flags] file...",
		Short: "Archive page daemon",
		Long: `riffled opens the given archives, directories, or image files and keeps
their pages extracted, decoded, and scaled in the background. It exposes a
control socket that riffle (or any JSON-RPC client) drives; riffled itself
draws nothing.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if showSupported {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showSupported {
				printSupported(cmd.OutOrStdout())
				return nil
			}
			if page < 0 {
				return fmt.Errorf("page %d is negative", page)
			}

			cfg, _, _, err := config.Load(strings.TrimSpace(configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if manga {
				cfg.Display.Manga = true
			}
			if upscale {
				cfg.Display.Upscaling = true
			}
			if level := strings.TrimSpace(logLevel); level != "" {
				cfg.Logging.Level = level
			}

			return daemon.Run(cmd.Context(), cfg, daemon.Options{
				Files:   args,
				FileSet: fileSet,
				Page:    page,
				Socket:  strings.TrimSpace(socketFlag),
			})
		},
	}

	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&socketFlag, "socket", "", "Control socket path (lock and pid files follow it)")
	cmd.Flags().IntVarP(&page, "page", "p", 0, "1-based page to show first, overriding any stored position")
	cmd.Flags().BoolVar(&fileSet, "fileset", false, "Treat the arguments as one ad-hoc page set")
	cmd.Flags().BoolVarP(&manga, "manga", "m", false, "Start in manga mode")
	cmd.Flags().BoolVarP(&upscale, "upscale", "u", false, "Start with upscaling enabled")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&showSupported, "show-supported", false, "Print the supported file formats and exit")

	return cmd
}

func printSupported(w io.Writer) {
	images, videos, archives := files.Formats()
	fmt.Fprintf(w, "Supported image formats: %s\n", strings.Join(images, ", "))
	fmt.Fprintf(w, "Supported animated image formats: %s\n", strings.Join([]string{"gif", "png", "apng"}, ", "))
	fmt.Fprintf(w, "Supported video formats: %s\n", strings.Join(videos, ", "))
	fmt.Fprintf(w, "Supported archive formats: %s\n", strings.Join(archives, ", "))
}
