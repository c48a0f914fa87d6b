package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/pools"
)

type upscaleState int

const (
	upscaleNotStarted upscaleState = iota
	upscaleRunning
	upscaleReady
	upscaleFailed
)

func (s upscaleState) String() string {
	switch s {
	case upscaleNotStarted:
		return "not-started"
	case upscaleRunning:
		return "running"
	case upscaleReady:
		return "ready"
	default:
		return "failed"
	}
}

// upscaledImage drives the external upscaler for one page and then treats
// the written file as a still image of its own. The upscale keeps running
// through unloads; only join cancels it, since the file on disk stays
// useful however the window moves.
type upscaledImage struct {
	deps   *Deps
	source string
	path   string
	srcRes display.Res
	state  upscaleState
	job    *pools.Job[display.Res]
	still  *stillImage
	// wrote tracks whether the upscaled file reached disk and needs
	// removing on join.
	wrote   bool
	failure string
}

func newUpscaledImage(deps *Deps, source, path string, srcRes display.Res) *upscaledImage {
	return &upscaledImage{deps: deps, source: source, path: path, srcRes: srcRes}
}

func (u *upscaledImage) displayable() display.Content {
	switch u.state {
	case upscaleNotStarted, upscaleRunning:
		return display.Content{Kind: display.Pending, Res: u.srcRes}
	case upscaleFailed:
		return display.Content{Kind: display.Error, Error: u.failure}
	default:
		return u.still.displayable()
	}
}

func (u *upscaledImage) hasWork(work Work) bool {
	if !work.upscale() {
		return false
	}
	switch u.state {
	case upscaleNotStarted:
		return true
	case upscaleRunning:
		// A bare upscale pass only needs the job started. Loading work
		// waits for the file so the pixels can follow.
		return work.load()
	case upscaleReady:
		return u.still.hasWork(work)
	default:
		return false
	}
}

func (u *upscaledImage) step(work Work) (Progress, <-chan struct{}) {
	switch u.state {
	case upscaleNotStarted:
		u.job = u.deps.Pools.Upscale(u.source, u.path, work.fitTarget().Res)
		u.state = upscaleRunning
		u.deps.Logger.Debug("started upscaling",
			logging.String(logging.FieldPage, u.source))
		return More, nil
	case upscaleRunning:
		select {
		case <-u.job.Done():
			u.applyUpscale()
			return More, nil
		default:
			return Waiting, u.job.Done()
		}
	case upscaleReady:
		return u.still.step(work)
	default:
		return More, nil
	}
}

func (u *upscaledImage) applyUpscale() {
	res, err := u.job.Result()
	u.job = nil
	switch {
	case err == nil:
		u.wrote = true
		u.still = newStillImage(u.deps, u.path, nil, res)
		u.state = upscaleReady
	case errors.Is(err, pools.ErrCanceled):
		u.state = upscaleNotStarted
	default:
		u.deps.Logger.Error("failed to upscale page",
			logging.String(logging.FieldPage, u.source), logging.Error(err))
		u.failure = fmt.Sprintf("Failed to upscale %s", filepath.Base(u.source))
		u.state = upscaleFailed
	}
}

func (u *upscaledImage) unload() {
	if u.state == upscaleReady {
		u.still.unload()
	}
}

func (u *upscaledImage) join() {
	if u.job != nil {
		u.job.Cancel()
		<-u.job.Done()
		if _, err := u.job.Result(); err == nil {
			u.wrote = true
		}
		u.job = nil
	}
	if u.still != nil {
		u.still.join()
	}
	if u.wrote {
		if err := os.Remove(u.path); err != nil {
			u.deps.Logger.Error("failed to remove upscaled file",
				logging.String(logging.FieldPage, u.path), logging.Error(err))
		}
	}
}
