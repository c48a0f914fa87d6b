package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"riffle/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite an existing configuration")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return err
			}

			source := resolved
			if !exists {
				source = "built-in defaults"
			}

			upscaler := strings.TrimSpace(cfg.Upscaling.Command)
			if upscaler == "" {
				upscaler = "not configured"
			}
			session := "disabled"
			if cfg.Session.Enabled {
				session = cfg.Session.Path
			}

			rows := [][]string{
				{"Config file", source},
				{"Socket", cfg.SocketPath()},
				{"Temp dir", cfg.Paths.TempDir},
				{"Log dir", orDash(cfg.Paths.LogDir)},
				{"Session store", session},
				{"Target resolution", cfg.Display.TargetResolution},
				{"Minimum resolution", orDash(cfg.Display.MinimumResolution)},
				{"Fit", cfg.Display.Fit},
				{"Display mode", cfg.Display.Mode},
				{"Manga", onOff(strconv.FormatBool(cfg.Display.Manga))},
				{"Upscaler", upscaler},
				{"Preload ahead", strconv.Itoa(cfg.Preload.Ahead)},
				{"Preload behind", strconv.Itoa(cfg.Preload.Behind)},
				{"Loading threads", strconv.Itoa(cfg.LoadingThreads())},
				{"Extraction threads", strconv.Itoa(cfg.ExtractionThreads())},
				{"Log level", cfg.Logging.Level},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows))
			return nil
		},
	}
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
