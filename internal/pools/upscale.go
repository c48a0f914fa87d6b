package pools

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"

	"riffle/internal/display"
	"riffle/internal/logging"
	"riffle/internal/proc"
)

// ErrUpscalingDisabled is reported when no upscaler command is configured.
var ErrUpscalingDisabled = errors.New("upscaling is not configured")

// Upscale runs the external upscaler on source, writing dest. Nonzero target
// axes are exported as RIFFLE_UPSCALE_WIDTH and RIFFLE_UPSCALE_HEIGHT for the
// command to honor. The result is the resolution of the written file.
//
// Cancel only prevents an upscale that has not started. Once the process is
// running it is allowed to finish, since the output is cached on disk and
// stays useful for the next visit to the page.
func (p *Pools) Upscale(source, dest string, target display.Res) *Job[display.Res] {
	job := newJob[display.Res]()
	if p.upscaling == nil {
		job.complete(display.Res{}, ErrUpscalingDisabled)
		return job
	}

	accepted := p.upscaling.submit(func() {
		if job.Canceled() {
			job.complete(display.Res{}, ErrCanceled)
			return
		}
		res, err := p.runUpscale(source, dest, target)
		if err != nil {
			p.logger.Debug("upscale failed",
				logging.String(logging.FieldPage, source), logging.Error(err))
		}
		job.complete(res, err)
	})
	if !accepted {
		job.complete(display.Res{}, ErrCanceled)
	}
	return job
}

func (p *Pools) runUpscale(source, dest string, target display.Res) (display.Res, error) {
	ctx := p.ctx
	if p.upscaleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.upscaleTimeout)
		defer cancel()
	}

	var env []string
	if target.W > 0 {
		env = append(env, "RIFFLE_UPSCALE_WIDTH="+strconv.FormatUint(uint64(target.W), 10))
	}
	if target.H > 0 {
		env = append(env, "RIFFLE_UPSCALE_HEIGHT="+strconv.FormatUint(uint64(target.H), 10))
	}

	err := p.runner.Run(ctx, proc.Spec{
		Binary: p.upscaleCommand,
		Args:   []string{source, dest},
		Env:    env,
	})
	if err != nil {
		return display.Res{}, fmt.Errorf("upscaler: %w", err)
	}
	return decodeRes(dest)
}

func decodeRes(path string) (display.Res, error) {
	f, err := os.Open(path)
	if err != nil {
		return display.Res{}, fmt.Errorf("upscaler wrote no output: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return display.Res{}, fmt.Errorf("decode upscaled output: %w", err)
	}
	return display.Res{W: uint32(cfg.Width), H: uint32(cfg.Height)}, nil
}
