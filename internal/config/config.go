package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"riffle/internal/display"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	TempDir   string `toml:"temp_dir"`
	SocketDir string `toml:"socket_dir"`
	LogDir    string `toml:"log_dir"`
}

// Preload controls how many pages around the current one stay warm.
type Preload struct {
	Ahead    int `toml:"ahead"`
	Behind   int `toml:"behind"`
	Prescale int `toml:"prescale"`
	// IdleTimeout is the seconds of inactivity before out-of-range pages
	// are unloaded; 0 disables idle cleanup.
	IdleTimeout int `toml:"idle_timeout"`
}

// Display contains the startup view settings.
type Display struct {
	TargetResolution  string `toml:"target_resolution"`
	MinimumResolution string `toml:"minimum_resolution"`
	Fit               string `toml:"fit"`
	Mode              string `toml:"mode"`
	Manga             bool   `toml:"manga"`
	Upscaling         bool   `toml:"upscaling"`
}

// Extraction contains settings for pulling files out of compressed archives.
type Extraction struct {
	Threads                 int  `toml:"threads"`
	AllowExternalExtractors bool `toml:"allow_external_extractors"`
}

// Loading contains settings for the decode pool.
type Loading struct {
	Threads int `toml:"threads"`
}

// Downscaling contains settings for the resample pool.
type Downscaling struct {
	Threads int `toml:"threads"`
	// BackgroundJobs bounds concurrent downscales for pages other than
	// the current one.
	BackgroundJobs int `toml:"background_jobs"`
}

// Upscaling configures the external upscaler. The feature is unavailable
// until a command is set.
type Upscaling struct {
	Command string `toml:"command"`
	Threads int    `toml:"threads"`
	Timeout int    `toml:"timeout"`
}

// Session configures the resume store.
type Session struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for riffle.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Preload     Preload     `toml:"preload"`
	Display     Display     `toml:"display"`
	Extraction  Extraction  `toml:"extraction"`
	Loading     Loading     `toml:"loading"`
	Downscaling Downscaling `toml:"downscaling"`
	Upscaling   Upscaling   `toml:"upscaling"`
	Session     Session     `toml:"session"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/riffle/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("riffle.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.SocketDir}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		dirs = append(dirs, c.Paths.LogDir)
	}
	if c.Session.Enabled {
		dirs = append(dirs, filepath.Dir(c.Session.Path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// TargetRes returns the parsed fit target. Validate guarantees the fields
// parse, so errors here are ignored.
func (c *Config) TargetRes() display.TargetRes {
	res, _ := display.ParseRes(c.Display.TargetResolution)
	min, _ := display.ParseRes(c.Display.MinimumResolution)
	fit, _ := display.ParseFit(c.Display.Fit)
	return display.TargetRes{Res: res, Fit: fit, Min: min}
}

// StartModes returns the modes the manager starts in.
func (c *Config) StartModes() display.Modes {
	fit, _ := display.ParseFit(c.Display.Fit)
	mode, _ := display.ParseDisplayMode(c.Display.Mode)
	return display.Modes{
		Manga:     c.Display.Manga,
		Upscaling: c.Display.Upscaling && c.UpscalingAvailable(),
		Fit:       fit,
		Display:   mode,
	}
}

// UpscalingAvailable reports whether an upscaler command is configured.
func (c *Config) UpscalingAvailable() bool {
	return strings.TrimSpace(c.Upscaling.Command) != ""
}

// LoadingThreads resolves the decode pool size.
func (c *Config) LoadingThreads() int {
	if c.Loading.Threads > 0 {
		return c.Loading.Threads
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

// DownscalingThreads resolves the resample pool size.
func (c *Config) DownscalingThreads() int {
	if c.Downscaling.Threads > 0 {
		return c.Downscaling.Threads
	}
	return c.LoadingThreads()
}

// ExtractionThreads resolves the per-archive extraction permit count.
func (c *Config) ExtractionThreads() int {
	if c.Extraction.Threads > 0 {
		return c.Extraction.Threads
	}
	return defaultExtractionThreads
}

// SocketPath returns the control socket path inside the socket directory.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.SocketDir, "riffled.sock")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.SocketDir, "riffled.lock")
}

// IdleTimeout returns the idle cleanup delay, 0 when disabled.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Preload.IdleTimeout) * time.Second
}

// UpscaleTimeout returns the per-job upscale timeout, 0 when unlimited.
func (c *Config) UpscaleTimeout() time.Duration {
	return time.Duration(c.Upscaling.Timeout) * time.Second
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	return filepath.Abs(trimmed)
}
