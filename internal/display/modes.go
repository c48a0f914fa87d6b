package display

import (
	"fmt"
	"strings"
)

// DisplayMode is the page layout the front end renders.
type DisplayMode int

const (
	Single DisplayMode = iota
	VerticalStrip
	HorizontalStrip
	DualPage
	DualPageReversed
)

func (m DisplayMode) String() string {
	switch m {
	case Single:
		return "single"
	case VerticalStrip:
		return "verticalstrip"
	case HorizontalStrip:
		return "horizontalstrip"
	case DualPage:
		return "dualpage"
	case DualPageReversed:
		return "dualpagereversed"
	default:
		return fmt.Sprintf("displaymode(%d)", int(m))
	}
}

func ParseDisplayMode(s string) (DisplayMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "":
		return Single, nil
	case "verticalstrip", "vertical":
		return VerticalStrip, nil
	case "horizontalstrip", "horizontal":
		return HorizontalStrip, nil
	case "dualpage", "dual":
		return DualPage, nil
	case "dualpagereversed", "dualreversed":
		return DualPageReversed, nil
	default:
		return Single, fmt.Errorf("display mode %q: expected single, verticalstrip, horizontalstrip, dualpage, or dualpagereversed", s)
	}
}

// Modes is the navigation and scaling state shared with the front end.
type Modes struct {
	Manga     bool        `json:"manga"`
	Upscaling bool        `json:"upscaling"`
	Fit       Fit         `json:"fit"`
	Display   DisplayMode `json:"display"`
}

// Toggle selects how a boolean mode changes.
type Toggle int

const (
	Change Toggle = iota
	On
	Off
)

func ParseToggle(s string) (Toggle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "toggle", "":
		return Change, nil
	case "on", "true":
		return On, nil
	case "off", "false":
		return Off, nil
	default:
		return Change, fmt.Errorf("toggle %q: expected toggle, on, or off", s)
	}
}

// Apply returns the new value and whether it differs from current.
func (t Toggle) Apply(current bool) (bool, bool) {
	switch t {
	case On:
		return true, !current
	case Off:
		return false, current
	default:
		return !current, true
	}
}

// Direction qualifies a page movement.
type Direction int

const (
	// Absolute moves to a 1-indexed page, clamped to the archive.
	Absolute Direction = iota
	Forwards
	Backwards
)

func (d Direction) String() string {
	switch d {
	case Absolute:
		return "absolute"
	case Forwards:
		return "forwards"
	case Backwards:
		return "backwards"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute":
		return Absolute, nil
	case "forwards", "forward":
		return Forwards, nil
	case "backwards", "backward":
		return Backwards, nil
	default:
		return Absolute, fmt.Errorf("direction %q: expected absolute, forwards, or backwards", s)
	}
}
