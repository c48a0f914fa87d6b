package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	c.normalizeUpscaling()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketDir) == "" {
		c.Paths.SocketDir = defaultSocketDir()
	}
	if c.Paths.SocketDir, err = expandPath(c.Paths.SocketDir); err != nil {
		return fmt.Errorf("paths.socket_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
			return fmt.Errorf("paths.log_dir: %w", err)
		}
	} else {
		c.Paths.LogDir = ""
	}
	return nil
}

func defaultSocketDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); strings.TrimSpace(dir) != "" {
		return filepath.Join(dir, "riffle")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("riffle-%d", os.Getuid()))
}

func (c *Config) normalizeSession() error {
	if strings.TrimSpace(c.Session.Path) == "" {
		c.Session.Path = defaultSessionPath
	}
	var err error
	if c.Session.Path, err = expandPath(c.Session.Path); err != nil {
		return fmt.Errorf("session.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpscaling() {
	c.Upscaling.Command = strings.TrimSpace(c.Upscaling.Command)
	if c.Upscaling.Threads <= 0 {
		c.Upscaling.Threads = defaultUpscalingThreads
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
