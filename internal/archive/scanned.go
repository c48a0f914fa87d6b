package archive

import (
	"fmt"
	"path/filepath"

	"riffle/internal/display"
	"riffle/internal/pools"
)

// media is what a page becomes once its scan result is known. All methods
// run on the scheduler goroutine; step never blocks.
type media interface {
	displayable(upscaling bool) display.Content
	hasWork(work Work) bool
	step(work Work) (Progress, <-chan struct{})
	unload()
	join()
}

// invalidPage is a file that scanned as nothing displayable.
type invalidPage struct {
	reason string
}

func (i invalidPage) displayable(bool) display.Content {
	return display.Content{Kind: display.Error, Error: i.reason}
}

func (i invalidPage) hasWork(Work) bool { return false }

func (i invalidPage) step(Work) (Progress, <-chan struct{}) { return More, nil }

func (i invalidPage) unload() {}

func (i invalidPage) join() {}

// staticPage pairs the image as decoded from the archive with its
// upscaled variant. up is nil when the page is already large enough, in
// which case the plain side serves both modes.
type staticPage struct {
	plain *stillImage
	up    *upscaledImage
}

func (s *staticPage) displayable(upscaling bool) display.Content {
	if upscaling && s.up != nil {
		return s.up.displayable()
	}
	return s.plain.displayable()
}

func (s *staticPage) hasWork(work Work) bool {
	if work.upscale() && s.up != nil {
		return s.up.hasWork(work)
	}
	if work.level == levelUpscale {
		return false
	}
	return s.plain.hasWork(work)
}

func (s *staticPage) step(work Work) (Progress, <-chan struct{}) {
	if work.upscale() && s.up != nil {
		return s.up.step(work)
	}
	return s.plain.step(work)
}

func (s *staticPage) unload() {
	s.plain.unload()
	if s.up != nil {
		s.up.unload()
	}
}

func (s *staticPage) join() {
	s.plain.join()
	if s.up != nil {
		s.up.join()
	}
}

// newMedia turns a scan result into the state machine that will carry the
// page from here. The upscaled variant is only attached when the source is
// smaller than the target wants, decided once at scan time.
func newMedia(deps *Deps, page *Page, result pools.ScanResult, target display.TargetRes) media {
	switch result.Kind {
	case pools.ScanImage:
		if result.Res.IsZero() {
			return invalidPage{reason: "Empty image"}
		}
		plain := newStillImage(deps, page.file, result.Still, result.Res)
		if !target.ShouldUpscale(result.Res) {
			return &staticPage{plain: plain}
		}
		upath := filepath.Join(page.tempDir, fmt.Sprintf("%d-upscaled.png", page.index))
		return &staticPage{
			plain: plain,
			up:    newUpscaledImage(deps, page.file, upath, result.Res),
		}
	case pools.ScanAnimation:
		return newAnimPage(deps, page.file)
	case pools.ScanVideo:
		return newVideoPage(page.file)
	default:
		reason := result.Reason
		if reason == "" {
			reason = "Not a displayable file"
		}
		return invalidPage{reason: reason}
	}
}
