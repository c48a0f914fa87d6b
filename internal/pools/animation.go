package pools

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"os"
	"time"

	"github.com/kettek/apng"

	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/logging"
)

// LoadAnimation decodes and composites an animated image off the loading
// pool. Frames come back fully composed so consumers never deal with
// disposal methods or partial updates.
func (p *Pools) LoadAnimation(path string) *Job[*display.Anim] {
	job := newJob[*display.Anim]()
	accepted := p.loading.submit(func() {
		if job.Canceled() {
			job.complete(nil, ErrCanceled)
			return
		}
		anim, err := loadAnimation(path, job)
		if err != nil {
			if !errors.Is(err, ErrCanceled) {
				p.logger.Debug("animation load failed",
					logging.String(logging.FieldPage, path), logging.Error(err))
			}
			job.complete(nil, err)
			return
		}
		job.complete(anim, nil)
	})
	if !accepted {
		job.complete(nil, ErrCanceled)
	}
	return job
}

func loadAnimation(path string, job *Job[*display.Anim]) (*display.Anim, error) {
	switch {
	case files.IsGIF(path):
		return loadGIFAnimation(path, job)
	case files.IsPNG(path):
		return loadAPNGAnimation(path, job)
	case files.IsWebP(path):
		return nil, errors.New("animated webp decoding is not supported")
	}
	return nil, fmt.Errorf("no animation decoder for %s", path)
}

func loadGIFAnimation(path string, job *Job[*display.Anim]) (*display.Anim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := gif.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(decoded.Image) == 0 {
		return nil, errors.New("gif has no frames")
	}

	width, height := decoded.Config.Width, decoded.Config.Height
	if width == 0 || height == 0 {
		bounds := decoded.Image[0].Bounds()
		width, height = bounds.Max.X, bounds.Max.Y
	}
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))

	frames := make([]display.Frame, 0, len(decoded.Image))
	for i, src := range decoded.Image {
		if job.Canceled() {
			return nil, ErrCanceled
		}

		var restore *image.RGBA
		if gifDisposal(decoded, i) == gif.DisposalPrevious {
			restore = cloneRGBA(canvas)
		}

		draw.Draw(canvas, src.Bounds(), src, src.Bounds().Min, draw.Over)
		frames = append(frames, display.Frame{
			Img:   cloneRGBA(canvas),
			Delay: time.Duration(gifDelay(decoded, i)) * 10 * time.Millisecond,
		})

		switch gifDisposal(decoded, i) {
		case gif.DisposalBackground:
			draw.Draw(canvas, src.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}

	return &display.Anim{
		Frames: frames,
		Res:    display.Res{W: uint32(width), H: uint32(height)},
	}, nil
}

func gifDisposal(g *gif.GIF, i int) byte {
	if i < len(g.Disposal) {
		return g.Disposal[i]
	}
	return gif.DisposalNone
}

func gifDelay(g *gif.GIF, i int) int {
	if i < len(g.Delay) {
		return g.Delay[i]
	}
	return 0
}

func loadAPNGAnimation(path string, job *Job[*display.Anim]) (*display.Anim, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoded, err := apng.DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode apng: %w", err)
	}

	var rect image.Rectangle
	for _, fr := range decoded.Frames {
		rect = rect.Union(frameRect(fr))
	}
	if rect.Empty() {
		return nil, errors.New("apng has no frames")
	}
	canvas := image.NewRGBA(rect)

	frames := make([]display.Frame, 0, len(decoded.Frames))
	for _, fr := range decoded.Frames {
		if job.Canceled() {
			return nil, ErrCanceled
		}
		if fr.IsDefault {
			continue
		}

		var restore *image.RGBA
		if fr.DisposeOp == apng.DISPOSE_OP_PREVIOUS {
			restore = cloneRGBA(canvas)
		}

		target := frameRect(fr)
		op := draw.Over
		if fr.BlendOp == apng.BLEND_OP_SOURCE {
			op = draw.Src
		}
		draw.Draw(canvas, target, fr.Image, fr.Image.Bounds().Min, op)
		frames = append(frames, display.Frame{
			Img:   cloneRGBA(canvas),
			Delay: apngDelay(fr),
		})

		switch fr.DisposeOp {
		case apng.DISPOSE_OP_BACKGROUND:
			draw.Draw(canvas, target, image.Transparent, image.Point{}, draw.Src)
		case apng.DISPOSE_OP_PREVIOUS:
			canvas = restore
		}
	}

	if len(frames) == 0 {
		return nil, errors.New("apng has no animation frames")
	}

	return &display.Anim{
		Frames: frames,
		Res:    display.Res{W: uint32(rect.Dx()), H: uint32(rect.Dy())},
	}, nil
}

func frameRect(fr apng.Frame) image.Rectangle {
	bounds := fr.Image.Bounds()
	return image.Rect(
		fr.XOffset,
		fr.YOffset,
		fr.XOffset+bounds.Dx(),
		fr.YOffset+bounds.Dy(),
	)
}

func apngDelay(fr apng.Frame) time.Duration {
	den := int64(fr.DelayDenominator)
	if den == 0 {
		den = 100
	}
	return time.Duration(fr.DelayNumerator) * time.Second / time.Duration(den)
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dup := image.NewRGBA(src.Rect)
	copy(dup.Pix, src.Pix)
	return dup
}
