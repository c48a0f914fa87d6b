package display

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Res is an image or screen resolution in pixels.
type Res struct {
	W uint32 `json:"w"`
	H uint32 `json:"h"`
}

func (r Res) IsZero() bool {
	return r.W == 0 && r.H == 0
}

func (r Res) String() string {
	return fmt.Sprintf("%dx%d", r.W, r.H)
}

// HalfWidth returns the resolution with its width halved, used to fit
// individual pages in dual page layouts.
func (r Res) HalfWidth() Res {
	w := r.W / 2
	if r.W > 0 && w == 0 {
		w = 1
	}
	return Res{W: w, H: r.H}
}

// ParseRes parses a "WxH" string. "0x0" is valid and means unset.
func ParseRes(s string) (Res, error) {
	trimmed := strings.TrimSpace(strings.ToLower(s))
	parts := strings.Split(trimmed, "x")
	if len(parts) != 2 {
		return Res{}, fmt.Errorf("resolution %q: expected WxH", s)
	}
	w, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Res{}, fmt.Errorf("resolution %q: %w", s, err)
	}
	h, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Res{}, fmt.Errorf("resolution %q: %w", s, err)
	}
	return Res{W: uint32(w), H: uint32(h)}, nil
}

// Fit selects which axes constrain scaling.
type Fit int

const (
	// FitContainer scales to fit both dimensions.
	FitContainer Fit = iota
	// FitHeight scales to fit the height, letting width overflow.
	FitHeight
	// FitWidth scales to fit the width, letting height overflow.
	FitWidth
	// FitFullSize never scales down.
	FitFullSize
)

func (f Fit) String() string {
	switch f {
	case FitContainer:
		return "container"
	case FitHeight:
		return "height"
	case FitWidth:
		return "width"
	case FitFullSize:
		return "fullsize"
	default:
		return fmt.Sprintf("fit(%d)", int(f))
	}
}

func ParseFit(s string) (Fit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "container", "":
		return FitContainer, nil
	case "height":
		return FitHeight, nil
	case "width":
		return FitWidth, nil
	case "fullsize", "full":
		return FitFullSize, nil
	default:
		return FitContainer, fmt.Errorf("fit strategy %q: expected container, height, width, or fullsize", s)
	}
}

// TargetRes is the resolution and strategy pages are fitted against, with an
// optional floor below which images are not scaled down.
type TargetRes struct {
	Res Res `json:"res"`
	Fit Fit `json:"fit"`
	Min Res `json:"min"`
}

// ForMode adjusts the target for the given display mode. Dual page layouts
// fit each page into half the available width.
func (t TargetRes) ForMode(mode DisplayMode) TargetRes {
	switch mode {
	case DualPage, DualPageReversed:
		t.Res = t.Res.HalfWidth()
	}
	return t
}

// FitInside computes the resolution r scales to under the target. Targets
// with a zero axis pass through unchanged, upscaling never happens here, and
// the minimum resolution floor only raises a scale that would drop below it.
func (r Res) FitInside(t TargetRes) Res {
	if r.IsZero() || t.Fit == FitFullSize {
		return r
	}

	w := float64(r.W)
	h := float64(r.H)

	var scale float64
	switch t.Fit {
	case FitHeight:
		scale = float64(t.Res.H) / h
	case FitWidth:
		scale = float64(t.Res.W) / w
	default:
		scale = math.Min(float64(t.Res.W)/w, float64(t.Res.H)/h)
	}

	if scale <= 0 || scale >= 1 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return r
	}

	if !t.Min.IsZero() {
		floor := math.Max(float64(t.Min.W)/w, float64(t.Min.H)/h)
		if floor > scale {
			scale = math.Min(floor, 1)
		}
	}

	out := Res{
		W: uint32(math.Round(w * scale)),
		H: uint32(math.Round(h * scale)),
	}
	if out.W == 0 {
		out.W = 1
	}
	if out.H == 0 {
		out.H = 1
	}
	return out
}
