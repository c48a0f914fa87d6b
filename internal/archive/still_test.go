package archive

import (
	"testing"

	"riffle/internal/display"
)

func targetOf(w, h uint32) display.TargetRes {
	return display.TargetRes{Res: display.Res{W: w, H: h}, Fit: display.FitContainer}
}

func stillAt(state stillState, original display.Res) *stillImage {
	return &stillImage{res: original, state: state}
}

func withCurrent(s *stillImage, res display.Res) *stillImage {
	s.current = &display.Still{Res: res}
	return s
}

func TestStillHasWork(t *testing.T) {
	original := display.Res{W: 100, H: 80}
	fitted := display.Res{W: 50, H: 40} // 100x80 into a 50x50 container
	fit := display.WorkParams{Target: targetOf(50, 50)}
	identity := display.WorkParams{Target: display.TargetRes{}}

	cases := []struct {
		name string
		img  *stillImage
		work Work
		want bool
	}{
		{"scan work never touches pixels", stillAt(stillUnloaded, original),
			ScanWork(targetOf(50, 50)), false},
		{"unloaded wants a load", stillAt(stillUnloaded, original),
			LoadWork(false, fit), true},
		{"loading satisfies plain load", stillAt(stillLoading, original),
			LoadWork(false, fit), false},
		{"loading must be awaited to fit", stillAt(stillLoading, original),
			DownscaleWork(false, fit), true},
		{"loading already the right size", stillAt(stillLoading, original),
			DownscaleWork(false, identity), false},
		{"loading awaited by finalize", stillAt(stillLoading, original),
			FinalizeWork(false, fit), true},
		{"loaded full needs fitting", withCurrent(stillAt(stillLoaded, original), original),
			DownscaleWork(false, fit), true},
		{"loaded full satisfies plain load", withCurrent(stillAt(stillLoaded, original), original),
			LoadWork(false, fit), false},
		{"loaded full with identity target", withCurrent(stillAt(stillLoaded, original), original),
			FinalizeWork(false, identity), false},
		{"scaling toward the right size", scalingStill(original, fitted),
			DownscaleWork(false, fit), false},
		{"scaling awaited by finalize", scalingStill(original, fitted),
			FinalizeWork(false, fit), true},
		{"scaling toward a stale size", scalingStill(original, display.Res{W: 25, H: 20}),
			DownscaleWork(false, fit), true},
		{"scaled at the right size", withCurrent(stillAt(stillScaled, original), fitted),
			FinalizeWork(false, fit), false},
		{"scaled needs a retarget", withCurrent(stillAt(stillScaled, original), fitted),
			DownscaleWork(false, display.WorkParams{Target: targetOf(30, 30)}), true},
		{"reloading satisfies plain load", withCurrent(stillAt(stillReloading, original), fitted),
			LoadWork(false, fit), false},
		{"reloading has fitting ahead", withCurrent(stillAt(stillReloading, original), fitted),
			DownscaleWork(false, fit), true},
		{"failed is out", stillAt(stillFailed, original),
			FinalizeWork(false, fit), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.img.hasWork(tc.work); got != tc.want {
				t.Errorf("hasWork = %v, want %v", got, tc.want)
			}
		})
	}
}

func scalingStill(original, scalingFor display.Res) *stillImage {
	s := stillAt(stillScaling, original)
	s.current = &display.Still{Res: original}
	s.scalingFor = scalingFor
	return s
}

func TestStillRetargetWhileScalingFallsBack(t *testing.T) {
	original := display.Res{W: 100, H: 80}
	s := scalingStill(original, display.Res{W: 50, H: 40})

	progress, wait := s.step(DownscaleWork(false, display.WorkParams{Target: targetOf(30, 30)}))
	if progress != More || wait != nil {
		t.Fatalf("step = %v, %v; want More and no wait", progress, wait)
	}
	if s.state != stillLoaded {
		t.Errorf("state = %v, want %v", s.state, stillLoaded)
	}
}

func TestStillReloadCancelsWhenStaleSatisfies(t *testing.T) {
	original := display.Res{W: 100, H: 80}
	stale := display.Res{W: 50, H: 40}
	s := withCurrent(stillAt(stillReloading, original), stale)

	progress, wait := s.step(DownscaleWork(false, display.WorkParams{Target: targetOf(50, 50)}))
	if progress != More || wait != nil {
		t.Fatalf("step = %v, %v; want More and no wait", progress, wait)
	}
	if s.state != stillScaled {
		t.Errorf("state = %v, want %v", s.state, stillScaled)
	}
	if s.current == nil || s.current.Res != stale {
		t.Errorf("current = %v, want the stale pixels kept", s.current)
	}
}

func TestStillParksBeforeScaling(t *testing.T) {
	original := display.Res{W: 100, H: 80}
	s := withCurrent(stillAt(stillLoaded, original), original)

	parked := display.WorkParams{Target: targetOf(50, 50), ParkBeforeScale: true}
	progress, wait := s.step(DownscaleWork(false, parked))
	if progress != Parked || wait != nil {
		t.Fatalf("step = %v, %v; want Parked and no wait", progress, wait)
	}
	if s.state != stillLoaded {
		t.Errorf("state = %v, want unchanged %v", s.state, stillLoaded)
	}
}
