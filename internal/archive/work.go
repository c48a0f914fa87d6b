package archive

import "riffle/internal/display"

// workLevel orders the pipeline stages a page can be asked to reach.
// Each level includes everything below it except upscaling, which is a
// detour gated separately.
type workLevel int

const (
	levelScan workLevel = iota
	levelUpscale
	levelLoad
	levelDownscale
	levelFinalize
)

// Work is one instruction from the scheduler: how far this page should
// progress right now and under which policy.
type Work struct {
	level     workLevel
	upscaling bool
	params    display.WorkParams
}

// ScanWork asks for classification only.
func ScanWork(target display.TargetRes) Work {
	return Work{level: levelScan, params: display.WorkParams{Target: target}}
}

// UpscaleWork asks for the upscaled file on disk without decoding it.
func UpscaleWork(target display.TargetRes) Work {
	return Work{level: levelUpscale, params: display.WorkParams{Target: target}}
}

// LoadWork asks for decoded pixels, possibly still at original size.
func LoadWork(upscaling bool, params display.WorkParams) Work {
	return Work{level: levelLoad, upscaling: upscaling, params: params}
}

// DownscaleWork asks for pixels resampled to fit the target.
func DownscaleWork(upscaling bool, params display.WorkParams) Work {
	return Work{level: levelDownscale, upscaling: upscaling, params: params}
}

// FinalizeWork asks for everything the page will ever need.
func FinalizeWork(upscaling bool, params display.WorkParams) Work {
	return Work{level: levelFinalize, upscaling: upscaling, params: params}
}

func (w Work) String() string {
	switch w.level {
	case levelScan:
		return "scan"
	case levelUpscale:
		return "upscale"
	case levelLoad:
		return "load"
	case levelDownscale:
		return "downscale"
	default:
		return "finalize"
	}
}

// finalize reports whether in-flight units should be awaited rather than
// merely started.
func (w Work) finalize() bool {
	return w.level == levelFinalize
}

// downscale reports whether pixels must end up fitted to the target.
func (w Work) downscale() bool {
	return w.level >= levelDownscale
}

// load reports whether pixels should be decoded at all.
func (w Work) load() bool {
	return w.level >= levelLoad
}

// upscale reports whether the upscaled variant is the one being worked on.
// Load and above follow the manager's upscaling toggle; the dedicated
// upscale pass always works the upscaled side, writing files ahead of the
// reader.
func (w Work) upscale() bool {
	if w.level == levelUpscale {
		return true
	}
	return w.level >= levelLoad && w.upscaling
}

// extractEarly reports whether this page may jump the extraction queue.
func (w Work) extractEarly() bool {
	return w.level >= levelLoad && w.params.ExtractEarly
}

// loadDuringScan reports whether a scan started for this work should keep
// the decoded pixels instead of just the measurements.
func (w Work) loadDuringScan() bool {
	return w.load()
}

// workParams returns the scheduling policy. Only meaningful for load
// level and above; scans and upscales carry no policy of their own.
func (w Work) workParams() (display.WorkParams, bool) {
	if w.level < levelLoad {
		return display.WorkParams{}, false
	}
	return w.params, true
}

// fitTarget is the resolution pages should fit themselves to. Valid at
// every level.
func (w Work) fitTarget() display.TargetRes {
	return w.params.Target
}

// Progress is what one Step call achieved.
type Progress int

const (
	// Parked: the page deferred to higher priority work and started nothing.
	Parked Progress = iota
	// Waiting: a unit is in flight; the returned channel closes when it
	// settles.
	Waiting
	// StartedScan: a scan was submitted.
	StartedScan
	// Scanned: a scan result was applied.
	Scanned
	// More: a unit finished or started; call again to continue.
	More
)

func (p Progress) String() string {
	switch p {
	case Parked:
		return "parked"
	case Waiting:
		return "waiting"
	case StartedScan:
		return "started-scan"
	case Scanned:
		return "scanned"
	case More:
		return "more"
	default:
		return "unknown"
	}
}
