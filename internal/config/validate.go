package config

import (
	"errors"
	"fmt"

	"riffle/internal/display"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDisplay(); err != nil {
		return err
	}
	if err := c.validatePreload(); err != nil {
		return err
	}
	if err := c.validatePools(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDisplay() error {
	if _, err := display.ParseRes(c.Display.TargetResolution); err != nil {
		return fmt.Errorf("display.target_resolution: %w", err)
	}
	if _, err := display.ParseRes(c.Display.MinimumResolution); err != nil {
		return fmt.Errorf("display.minimum_resolution: %w", err)
	}
	if _, err := display.ParseFit(c.Display.Fit); err != nil {
		return fmt.Errorf("display.fit: %w", err)
	}
	if _, err := display.ParseDisplayMode(c.Display.Mode); err != nil {
		return fmt.Errorf("display.mode: %w", err)
	}
	return nil
}

func (c *Config) validatePreload() error {
	if c.Preload.Ahead < 0 {
		return errors.New("preload.ahead must not be negative")
	}
	if c.Preload.Behind < 0 {
		return errors.New("preload.behind must not be negative")
	}
	if c.Preload.Prescale < 0 {
		return errors.New("preload.prescale must not be negative")
	}
	if c.Preload.IdleTimeout < 0 {
		return errors.New("preload.idle_timeout must not be negative")
	}
	return nil
}

func (c *Config) validatePools() error {
	if c.Extraction.Threads < 0 {
		return errors.New("extraction.threads must not be negative")
	}
	if c.Extraction.Threads == 1 {
		return errors.New("extraction.threads must be at least 2: one reader plus one writer")
	}
	if c.Loading.Threads < 0 {
		return errors.New("loading.threads must not be negative")
	}
	if c.Downscaling.Threads < 0 {
		return errors.New("downscaling.threads must not be negative")
	}
	if c.Downscaling.BackgroundJobs < 1 {
		return errors.New("downscaling.background_jobs must be at least 1")
	}
	if c.UpscalingAvailable() && c.Upscaling.Threads < 1 {
		return errors.New("upscaling.threads must be at least 1 when a command is set")
	}
	if c.Upscaling.Timeout < 0 {
		return errors.New("upscaling.timeout must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
