package pools

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/gif"
	"io"
	"os"

	"riffle/internal/display"
	"riffle/internal/files"
	"riffle/internal/logging"
)

// ScanKind classifies what a page file turned out to contain.
type ScanKind int

const (
	ScanImage ScanKind = iota
	ScanAnimation
	ScanVideo
	ScanInvalid
)

func (k ScanKind) String() string {
	switch k {
	case ScanImage:
		return "image"
	case ScanAnimation:
		return "animation"
	case ScanVideo:
		return "video"
	case ScanInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("ScanKind(%d)", int(k))
	}
}

// ScanResult carries the classification and, when the fast path was taken,
// the already decoded pixels.
type ScanResult struct {
	Kind ScanKind
	// Still is set for images scanned with load, sparing a second decode.
	Still *display.Still
	// Res is set for all images.
	Res display.Res
	// Reason explains invalid results.
	Reason string
}

// Scan classifies the file and measures still images. With load set, still
// images are fully decoded in the same pass so the current page displays
// without a second read.
func (p *Pools) Scan(path string, load bool) *Job[ScanResult] {
	job := newJob[ScanResult]()
	accepted := p.loading.submit(func() {
		if job.Canceled() {
			job.complete(ScanResult{}, ErrCanceled)
			return
		}
		result, err := scanFile(path, load)
		if err != nil {
			p.logger.Debug("scan failed",
				logging.String(logging.FieldPage, path), logging.Error(err))
			result = ScanResult{Kind: ScanInvalid, Reason: err.Error()}
		}
		job.complete(result, nil)
	})
	if !accepted {
		job.complete(ScanResult{}, ErrCanceled)
	}
	return job
}

func scanFile(path string, load bool) (ScanResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return ScanResult{}, err
	}
	if info.Size() == 0 {
		return ScanResult{Kind: ScanInvalid, Reason: "Empty image"}, nil
	}

	switch {
	case files.IsGIF(path):
		return scanGIF(path, load)
	case files.IsPNG(path):
		return scanPNG(path, load)
	case files.IsWebP(path):
		return scanWebP(path, load)
	case files.IsImage(path):
		return scanStill(path, load)
	case files.IsVideo(path):
		return ScanResult{Kind: ScanVideo}, nil
	}
	return ScanResult{Kind: ScanInvalid, Reason: "unsupported file type"}, nil
}

func scanGIF(path string, load bool) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, err
	}
	defer f.Close()

	decoded, err := gif.DecodeAll(f)
	if err != nil {
		return ScanResult{}, fmt.Errorf("decode gif: %w", err)
	}
	if len(decoded.Image) == 0 {
		return ScanResult{Kind: ScanInvalid, Reason: "Empty image"}, nil
	}
	if len(decoded.Image) > 1 {
		return ScanResult{Kind: ScanAnimation}, nil
	}

	frame := decoded.Image[0]
	res := resOf(frame.Bounds())
	if !load {
		return ScanResult{Kind: ScanImage, Res: res}, nil
	}
	return ScanResult{
		Kind:  ScanImage,
		Still: &display.Still{Img: frame, Res: res},
		Res:   res,
	}, nil
}

func scanPNG(path string, load bool) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, err
	}
	animated, err := pngIsAnimated(f)
	if err != nil {
		f.Close()
		return ScanResult{}, fmt.Errorf("read png: %w", err)
	}
	f.Close()
	if animated {
		return ScanResult{Kind: ScanAnimation}, nil
	}
	return scanStill(path, load)
}

func scanWebP(path string, load bool) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, err
	}
	animated, err := webpIsAnimated(f)
	if err != nil {
		f.Close()
		return ScanResult{}, fmt.Errorf("read webp: %w", err)
	}
	f.Close()
	if animated {
		return ScanResult{Kind: ScanAnimation}, nil
	}
	return scanStill(path, load)
}

func scanStill(path string, load bool) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, err
	}
	defer f.Close()

	if !load {
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return ScanResult{}, fmt.Errorf("decode config: %w", err)
		}
		return ScanResult{
			Kind: ScanImage,
			Res:  display.Res{W: uint32(cfg.Width), H: uint32(cfg.Height)},
		}, nil
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return ScanResult{}, fmt.Errorf("decode image: %w", err)
	}
	res := resOf(img.Bounds())
	return ScanResult{
		Kind:  ScanImage,
		Still: &display.Still{Img: img, Res: res},
		Res:   res,
	}, nil
}

func resOf(bounds image.Rectangle) display.Res {
	return display.Res{W: uint32(bounds.Dx()), H: uint32(bounds.Dy())}
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// pngIsAnimated walks png chunks looking for an acTL chunk before image data.
func pngIsAnimated(r io.Reader) (bool, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil {
		return false, err
	}
	if !bytes.Equal(sig, pngSignature) {
		return false, fmt.Errorf("not a png")
	}

	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return false, nil
			}
			return false, err
		}
		length := binary.BigEndian.Uint32(header[:4])
		chunkType := string(header[4:8])
		switch chunkType {
		case "acTL":
			return true, nil
		case "IDAT", "IEND":
			return false, nil
		}
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			return false, err
		}
	}
}

// webpIsAnimated checks the VP8X animation flag. Simple lossy/lossless webps
// have no VP8X chunk and are never animated.
func webpIsAnimated(r io.Reader) (bool, error) {
	header := make([]byte, 21)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return false, nil
		}
		return false, err
	}
	if !bytes.Equal(header[0:4], []byte("RIFF")) || !bytes.Equal(header[8:12], []byte("WEBP")) {
		return false, fmt.Errorf("not a webp")
	}
	if !bytes.Equal(header[12:16], []byte("VP8X")) {
		return false, nil
	}
	return header[20]&0x02 != 0, nil
}
