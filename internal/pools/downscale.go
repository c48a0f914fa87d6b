package pools

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"riffle/internal/display"
	"riffle/internal/logging"
)

// Downscale resamples a still to fit inside the target resolution. Work for
// the current page takes the urgent lane and starts immediately; everything
// else waits for one of the background slots first so bulk preloading cannot
// monopolize the pool.
func (p *Pools) Downscale(src *display.Still, params display.WorkParams) *Job[*display.Still] {
	job := newJob[*display.Still]()

	if params.JumpDownscalingQueue {
		if !p.downscaling.submitUrgent(func() { p.runDownscale(job, src, params, nil) }) {
			job.complete(nil, ErrCanceled)
		}
		return job
	}

	go func() {
		select {
		case p.backgroundScale <- struct{}{}:
		case <-job.cancelCh:
			job.complete(nil, ErrCanceled)
			return
		case <-p.ctx.Done():
			job.complete(nil, ErrCanceled)
			return
		}
		release := func() { <-p.backgroundScale }
		if !p.downscaling.submit(func() { p.runDownscale(job, src, params, release) }) {
			release()
			job.complete(nil, ErrCanceled)
		}
	}()
	return job
}

func (p *Pools) runDownscale(job *Job[*display.Still], src *display.Still, params display.WorkParams, release func()) {
	if release != nil {
		defer release()
	}
	if job.Canceled() {
		job.complete(nil, ErrCanceled)
		return
	}

	target := src.Res.FitInside(params.Target)
	if target == src.Res {
		job.complete(src, nil)
		return
	}

	scaled := resample(src.Img, target)
	if job.Canceled() {
		job.complete(nil, ErrCanceled)
		return
	}
	p.logger.Debug("downscaled image",
		logging.String("from", src.Res.String()),
		logging.String("to", target.String()))
	job.complete(&display.Still{Img: scaled, Res: target}, nil)
}

// resample is a CPU Catmull-Rom resize into a fresh RGBA buffer.
func resample(src image.Image, target display.Res) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, int(target.W), int(target.H)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
