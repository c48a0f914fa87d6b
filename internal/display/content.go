package display

import (
	"image"
	"time"
)

// ContentKind discriminates what the current page can show.
type ContentKind int

const (
	// Nothing: no archive or an empty archive.
	Nothing ContentKind = iota
	// Pending: the page exists but is not displayable yet.
	Pending
	Image
	Animation
	Video
	// Error: the page or archive failed; Content.Error holds the message.
	Error
)

func (k ContentKind) String() string {
	switch k {
	case Nothing:
		return "nothing"
	case Pending:
		return "pending"
	case Image:
		return "image"
	case Animation:
		return "animation"
	case Video:
		return "video"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Still is a decoded, possibly downscaled, static image.
type Still struct {
	Img image.Image
	Res Res
}

// Frame is one frame of a decoded animation.
type Frame struct {
	Img   image.Image
	Delay time.Duration
}

// Anim is a fully decoded animation.
type Anim struct {
	Frames []Frame
	Res    Res
}

// Content is the displayable payload of a snapshot. Decoded pixels are
// carried by pointer so Content stays comparable and snapshots can be
// diffed with ==.
type Content struct {
	Kind  ContentKind
	Still *Still
	Anim  *Anim
	// Path is the backing file: the media file for videos, the decoded
	// source for images.
	Path string
	// Res is the original resolution where known.
	Res   Res
	Error string
}

// Snapshot is the externally visible state of the pipeline, emitted only
// when it differs from the previously emitted value.
type Snapshot struct {
	Content     Content
	PageNumber  int // 1-based within the archive, 0 for an empty archive
	PageCount   int
	PageName    string
	ArchiveName string
	// ArchivePath keys the resume store.
	ArchivePath string
	ArchiveLen  int // open archives in the window
	Modes       Modes
	Target      TargetRes
}
