package archive

import (
	"errors"
	"fmt"
	"path/filepath"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/pools"
)

type animState int

const (
	animUnloaded animState = iota
	animLoading
	animLoaded
	animFailed
)

// animPage decodes an animated page in one shot. Frames are never
// resampled, so the only work is the load itself.
type animPage struct {
	deps      *Deps
	path      string
	state     animState
	loading   *pools.Job[*display.Anim]
	frames    *display.Anim
	abandoned []*pools.Job[*display.Anim]
	failure   string
}

func newAnimPage(deps *Deps, path string) *animPage {
	return &animPage{deps: deps, path: path}
}

func (a *animPage) displayable(bool) display.Content {
	switch a.state {
	case animUnloaded, animLoading:
		return display.Content{Kind: display.Pending}
	case animFailed:
		return display.Content{Kind: display.Error, Error: a.failure}
	default:
		return display.Content{Kind: display.Animation, Anim: a.frames, Path: a.path, Res: a.frames.Res}
	}
}

func (a *animPage) hasWork(work Work) bool {
	if !work.load() {
		return false
	}
	switch a.state {
	case animUnloaded:
		return true
	case animLoading:
		return work.finalize()
	default:
		return false
	}
}

func (a *animPage) step(work Work) (Progress, <-chan struct{}) {
	switch a.state {
	case animUnloaded:
		a.loading = a.deps.Pools.LoadAnimation(a.path)
		a.state = animLoading
		return More, nil
	case animLoading:
		select {
		case <-a.loading.Done():
			a.applyLoad()
			return More, nil
		default:
			return Waiting, a.loading.Done()
		}
	default:
		return More, nil
	}
}

func (a *animPage) applyLoad() {
	frames, err := a.loading.Result()
	a.loading = nil
	switch {
	case err == nil:
		a.frames = frames
		a.state = animLoaded
	case errors.Is(err, pools.ErrCanceled):
		a.state = animUnloaded
	default:
		a.deps.Logger.Error("failed to load animation",
			logging.String(logging.FieldPage, a.path), logging.Error(err))
		a.failure = fmt.Sprintf("Failed to load %s", filepath.Base(a.path))
		a.state = animFailed
	}
}

func (a *animPage) unload() {
	switch a.state {
	case animUnloaded, animFailed:
		return
	}
	a.drop()
	a.frames = nil
	a.state = animUnloaded
}

func (a *animPage) join() {
	a.drop()
	for _, job := range a.abandoned {
		<-job.Done()
	}
	a.abandoned = nil
}

func (a *animPage) drop() {
	if a.loading == nil {
		return
	}
	a.loading.Cancel()
	a.abandoned = append(a.abandoned, a.loading)
	a.loading = nil
}
