package display

// WorkParams carries the per-unit policy the scheduler attaches to page work.
type WorkParams struct {
	// ParkBeforeScale makes background downscales yield until the current
	// page has finished its own scaling.
	ParkBeforeScale bool
	// JumpDownscalingQueue lets the current page bypass the background
	// downscale limit and queue.
	JumpDownscalingQueue bool
	// ExtractEarly pulls the page ahead of sequential archive extraction.
	ExtractEarly bool
	Target       TargetRes
}

// ShouldUpscale reports whether a page at res r is worth sending to the
// upscaler. A zero target disables upscaling regardless of the minimum.
func (t TargetRes) ShouldUpscale(r Res) bool {
	if t.Res.IsZero() {
		return false
	}
	return ((r.W < t.Res.W || t.Res.W == 0) && (r.H < t.Res.H || t.Res.H == 0)) ||
		r.W < t.Min.W || r.H < t.Min.H
}
