package config

const (
	defaultSessionPath       = "~/.local/share/riffle/session.db"
	defaultTargetResolution  = "0x0"
	defaultMinimumResolution = "0x0"
	defaultFit               = "container"
	defaultDisplayMode       = "single"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultPreloadAhead      = 2
	defaultPreloadBehind     = 1
	defaultPrescale          = 4
	defaultIdleTimeout       = 60
	defaultExtractionThreads = 4
	defaultDownscalingJobs   = 2
	defaultUpscalingThreads  = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Preload: Preload{
			Ahead:       defaultPreloadAhead,
			Behind:      defaultPreloadBehind,
			Prescale:    defaultPrescale,
			IdleTimeout: defaultIdleTimeout,
		},
		Display: Display{
			TargetResolution:  defaultTargetResolution,
			MinimumResolution: defaultMinimumResolution,
			Fit:               defaultFit,
			Mode:              defaultDisplayMode,
		},
		Extraction: Extraction{
			Threads: defaultExtractionThreads,
		},
		Downscaling: Downscaling{
			BackgroundJobs: defaultDownscalingJobs,
		},
		Upscaling: Upscaling{
			Threads: defaultUpscalingThreads,
		},
		Session: Session{
			Enabled: true,
			Path:    defaultSessionPath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
