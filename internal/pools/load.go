package pools

import (
	"fmt"
	"image"
	"os"

	// Decoders for every still format the pipeline accepts.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"riffle/internal/display"
	"riffle/internal/logging"
)

// LoadImage decodes a still image off the loading pool.
func (p *Pools) LoadImage(path string) *Job[*display.Still] {
	job := newJob[*display.Still]()
	accepted := p.loading.submit(func() {
		if job.Canceled() {
			job.complete(nil, ErrCanceled)
			return
		}
		still, err := loadStill(path)
		if err != nil {
			p.logger.Debug("load failed",
				logging.String(logging.FieldPage, path), logging.Error(err))
			job.complete(nil, err)
			return
		}
		if job.Canceled() {
			job.complete(nil, ErrCanceled)
			return
		}
		job.complete(still, nil)
	})
	if !accepted {
		job.complete(nil, ErrCanceled)
	}
	return job
}

func loadStill(path string) (*display.Still, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	bounds := img.Bounds()
	return &display.Still{
		Img: img,
		Res: display.Res{W: uint32(bounds.Dx()), H: uint32(bounds.Dy())},
	}, nil
}
