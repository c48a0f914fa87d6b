package preflight

import (
	"path/filepath"

	"riffle/internal/config"
)

// Result reports the outcome of a single preflight check. A passed result
// can carry a warning; the daemon logs those and keeps going.
type Result struct {
	Name    string
	Passed  bool
	Warning bool
	Detail  string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Temp directory", cfg.Paths.TempDir))
	results = append(results, CheckDirectoryAccess("Socket directory", cfg.Paths.SocketDir))

	if cfg.Session.Enabled {
		results = append(results, CheckDirectoryAccess("Session directory", filepath.Dir(cfg.Session.Path)))
	}

	results = append(results, CheckTempSpace(cfg.Paths.TempDir))

	if cfg.Extraction.AllowExternalExtractors {
		results = append(results, CheckCommand("unrar", "unrar"))
	}

	if cfg.UpscalingAvailable() {
		results = append(results, CheckCommand("Upscaler", cfg.Upscaling.Command))
	}

	return results
}

// Failed filters results down to hard failures, ignoring warnings.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
