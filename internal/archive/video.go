package archive

import "riffle/internal/display"

// videoPage hands the file straight to the front end. Nothing is decoded
// in the pipeline, so a video never has work.
type videoPage struct {
	path string
}

func newVideoPage(path string) *videoPage {
	return &videoPage{path: path}
}

func (v *videoPage) displayable(bool) display.Content {
	return display.Content{Kind: display.Video, Path: v.path}
}

func (v *videoPage) hasWork(Work) bool { return false }

func (v *videoPage) step(Work) (Progress, <-chan struct{}) { return More, nil }

func (v *videoPage) unload() {}

func (v *videoPage) join() {}
