package pools

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kettek/apng"
)

func TestLoadGIFAnimationComposites(t *testing.T) {
	p := newTestPools(t, nil)

	pal := color.Palette{
		color.RGBA{R: 255, A: 255},
		color.RGBA{B: 255, A: 255},
	}
	base := image.NewPaletted(image.Rect(0, 0, 4, 4), pal)
	patch := image.NewPaletted(image.Rect(1, 1, 3, 3), pal)
	for i := range patch.Pix {
		patch.Pix[i] = 1
	}

	var buf bytes.Buffer
	err := gif.EncodeAll(&buf, &gif.GIF{
		Image: []*image.Paletted{base, patch},
		Delay: []int{5, 7},
	})
	if err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	path := filepath.Join(t.TempDir(), "anim.gif")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write gif: %v", err)
	}

	anim, err := waitJob(t, p.LoadAnimation(path))
	if err != nil {
		t.Fatalf("LoadAnimation failed: %v", err)
	}
	if len(anim.Frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(anim.Frames))
	}
	if anim.Frames[0].Delay != 50*time.Millisecond || anim.Frames[1].Delay != 70*time.Millisecond {
		t.Fatalf("delays %v %v, want 50ms 70ms", anim.Frames[0].Delay, anim.Frames[1].Delay)
	}

	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	second := anim.Frames[1].Img
	if got := second.At(0, 0); got != red {
		t.Fatalf("frame 2 corner = %v, want untouched red", got)
	}
	if got := second.At(1, 1); got != blue {
		t.Fatalf("frame 2 patch = %v, want blue overlay", got)
	}
}

func TestLoadAPNGAnimationOffsets(t *testing.T) {
	p := newTestPools(t, nil)

	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < 16; i++ {
		base.Set(i%4, i/4, red)
	}
	patch := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		patch.Set(i%2, i/2, green)
	}

	a := apng.APNG{Frames: []apng.Frame{
		{Image: base, DelayNumerator: 1, DelayDenominator: 4},
		{Image: patch, XOffset: 1, YOffset: 1, DelayNumerator: 50},
	}}
	var buf bytes.Buffer
	if err := apng.Encode(&buf, a); err != nil {
		t.Fatalf("encode apng: %v", err)
	}
	path := filepath.Join(t.TempDir(), "anim.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write apng: %v", err)
	}

	anim, err := waitJob(t, p.LoadAnimation(path))
	if err != nil {
		t.Fatalf("LoadAnimation failed: %v", err)
	}
	if len(anim.Frames) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(anim.Frames))
	}
	if anim.Res.W != 4 || anim.Res.H != 4 {
		t.Fatalf("canvas = %v, want 4x4", anim.Res)
	}
	if anim.Frames[0].Delay != 250*time.Millisecond {
		t.Fatalf("frame 1 delay = %v, want 250ms", anim.Frames[0].Delay)
	}
	// A zero denominator means hundredths of a second.
	if anim.Frames[1].Delay != 500*time.Millisecond {
		t.Fatalf("frame 2 delay = %v, want 500ms", anim.Frames[1].Delay)
	}

	second := anim.Frames[1].Img
	if got := second.At(0, 0); got != red {
		t.Fatalf("frame 2 corner = %v, want untouched red", got)
	}
	if got := second.At(1, 1); got != green {
		t.Fatalf("frame 2 patch = %v, want green at the frame offset", got)
	}
}

func TestLoadAnimationWebPUnsupported(t *testing.T) {
	p := newTestPools(t, nil)
	path := filepath.Join(t.TempDir(), "anim.webp")
	if err := os.WriteFile(path, animatedWebPHeader(), 0o644); err != nil {
		t.Fatalf("write webp: %v", err)
	}

	_, err := waitJob(t, p.LoadAnimation(path))
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Fatalf("err = %v, want unsupported animated webp", err)
	}
}
