package archive

import (
	"errors"
	"fmt"
	"path/filepath"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/pools"
)

type stillState int

const (
	stillUnloaded stillState = iota
	stillLoading
	stillLoaded
	stillScaling
	stillScaled
	stillReloading
	stillFailed
)

func (s stillState) String() string {
	switch s {
	case stillUnloaded:
		return "unloaded"
	case stillLoading:
		return "loading"
	case stillLoaded:
		return "loaded"
	case stillScaling:
		return "scaling"
	case stillScaled:
		return "scaled"
	case stillReloading:
		return "reloading"
	default:
		return "failed"
	}
}

// stillImage walks a static page through load and resample. Loads always
// decode at original size; fitting to the target is a separate in-memory
// resample, so a retarget while fitted pixels are held means decoding the
// file again. During a reload the stale fitted pixels stay displayable.
type stillImage struct {
	deps *Deps
	path string
	// res is the original size, known from the scan.
	res   display.Res
	state stillState
	// current is whatever is displayable right now: the full decode in
	// loaded and scaling, fitted pixels in scaled, stale fitted pixels
	// in reloading.
	current    *display.Still
	loading    *pools.Job[*display.Still]
	scaling    *pools.Job[*display.Still]
	scalingFor display.Res
	// abandoned holds cancelled jobs until they settle, so join never
	// races a pool worker still reading page files.
	abandoned []*pools.Job[*display.Still]
	failure   string
}

// newStillImage wraps a scanned static page. decoded may carry pixels from
// a scan that loaded in the same pass, in which case the image starts out
// loaded.
func newStillImage(deps *Deps, path string, decoded *display.Still, res display.Res) *stillImage {
	s := &stillImage{deps: deps, path: path, res: res}
	if decoded != nil {
		s.current = decoded
		s.state = stillLoaded
	}
	return s
}

func (s *stillImage) displayable() display.Content {
	switch s.state {
	case stillUnloaded, stillLoading:
		return display.Content{Kind: display.Pending, Res: s.res}
	case stillFailed:
		return display.Content{Kind: display.Error, Error: s.failure}
	default:
		return display.Content{Kind: display.Image, Still: s.current, Path: s.path, Res: s.res}
	}
}

func (s *stillImage) hasWork(work Work) bool {
	if !work.load() {
		return false
	}
	fitted := s.res.FitInside(work.fitTarget())
	switch s.state {
	case stillUnloaded:
		return true
	case stillLoading:
		// The decode in flight is full size, so fitting work still has
		// a resample ahead of it.
		return work.finalize() || (work.downscale() && fitted != s.res)
	case stillLoaded:
		return work.downscale() && fitted != s.current.Res
	case stillScaling:
		return work.finalize() || (work.downscale() && fitted != s.scalingFor)
	case stillScaled:
		return work.downscale() && fitted != s.current.Res
	case stillReloading:
		// Either the stale pixels satisfy the target again, or the
		// reload needs awaiting and fitting. Both are work.
		return work.finalize() || work.downscale()
	default:
		return false
	}
}

func (s *stillImage) step(work Work) (Progress, <-chan struct{}) {
	s.sweep()
	params, _ := work.workParams()
	fitted := s.res.FitInside(work.fitTarget())

	switch s.state {
	case stillUnloaded:
		s.loading = s.deps.Pools.LoadImage(s.path)
		s.state = stillLoading
		return More, nil
	case stillLoading, stillReloading:
		if s.state == stillReloading && fitted == s.current.Res {
			// The target moved back while reloading. The stale pixels
			// are the right size after all.
			s.drop(&s.loading)
			s.state = stillScaled
			return More, nil
		}
		select {
		case <-s.loading.Done():
			s.applyLoad()
			return More, nil
		default:
			return Waiting, s.loading.Done()
		}
	case stillLoaded:
		if fitted == s.current.Res {
			return More, nil
		}
		if params.ParkBeforeScale {
			return Parked, nil
		}
		s.scalingFor = fitted
		s.scaling = s.deps.Pools.Downscale(s.current, params)
		s.state = stillScaling
		return More, nil
	case stillScaling:
		if fitted != s.scalingFor {
			// The target moved while resampling. The full decode is
			// still held, so drop the stale job and start over.
			s.drop(&s.scaling)
			s.state = stillLoaded
			return More, nil
		}
		select {
		case <-s.scaling.Done():
			s.applyScale()
			return More, nil
		default:
			return Waiting, s.scaling.Done()
		}
	case stillScaled:
		if fitted == s.current.Res {
			return More, nil
		}
		// Only fitted pixels are held, so a new target means decoding
		// the file again.
		s.loading = s.deps.Pools.LoadImage(s.path)
		s.state = stillReloading
		return More, nil
	default:
		return More, nil
	}
}

func (s *stillImage) applyLoad() {
	still, err := s.loading.Result()
	s.loading = nil
	switch {
	case err == nil:
		s.current = still
		s.state = stillLoaded
	case errors.Is(err, pools.ErrCanceled):
		s.current = nil
		s.state = stillUnloaded
	default:
		s.deps.Logger.Error("failed to load image",
			logging.String(logging.FieldPage, s.path), logging.Error(err))
		s.failure = fmt.Sprintf("Failed to load %s", filepath.Base(s.path))
		s.current = nil
		s.state = stillFailed
	}
}

func (s *stillImage) applyScale() {
	still, err := s.scaling.Result()
	s.scaling = nil
	if err != nil {
		// Resamples only fail by cancellation. The full decode is still
		// good, so fall back to it.
		s.state = stillLoaded
		return
	}
	s.current = still
	s.state = stillScaled
}

// drop cancels a job and parks it on the abandoned list until it settles.
func (s *stillImage) drop(job **pools.Job[*display.Still]) {
	if *job == nil {
		return
	}
	(*job).Cancel()
	s.abandoned = append(s.abandoned, *job)
	*job = nil
}

// sweep releases settled abandoned jobs so their results do not pile up.
func (s *stillImage) sweep() {
	kept := s.abandoned[:0]
	for _, job := range s.abandoned {
		select {
		case <-job.Done():
		default:
			kept = append(kept, job)
		}
	}
	s.abandoned = kept
}

func (s *stillImage) unload() {
	switch s.state {
	case stillUnloaded, stillFailed:
		return
	}
	s.drop(&s.loading)
	s.drop(&s.scaling)
	s.current = nil
	s.state = stillUnloaded
}

func (s *stillImage) join() {
	s.drop(&s.loading)
	s.drop(&s.scaling)
	for _, job := range s.abandoned {
		<-job.Done()
	}
	s.abandoned = nil
}
