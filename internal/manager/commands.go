package manager

import (
	"riffle/internal/archive"
	"riffle/internal/display"
)

// ActionKind names one instruction the manager accepts.
type ActionKind int

const (
	ActionMovePages ActionKind = iota
	ActionNextArchive
	ActionPreviousArchive
	ActionResolution
	ActionManga
	ActionUpscaling
	ActionFit
	ActionDisplayMode
	ActionStatus
	ActionListPages
	ActionExecute
)

func (k ActionKind) String() string {
	switch k {
	case ActionMovePages:
		return "move-pages"
	case ActionNextArchive:
		return "next-archive"
	case ActionPreviousArchive:
		return "previous-archive"
	case ActionResolution:
		return "resolution"
	case ActionManga:
		return "manga"
	case ActionUpscaling:
		return "upscaling"
	case ActionFit:
		return "fit"
	case ActionDisplayMode:
		return "display-mode"
	case ActionStatus:
		return "status"
	case ActionListPages:
		return "list-pages"
	case ActionExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Command is one instruction for the manager goroutine. Only the fields
// matching Kind are read. Commands that produce output carry a Reply
// channel, which must have capacity for one message; the manager never
// blocks on it and drops the reply if it cannot be delivered.
type Command struct {
	Kind ActionKind

	Direction display.Direction
	Pages     int

	Toggle display.Toggle
	Fit    display.Fit
	Mode   display.DisplayMode
	Res    display.Res

	Exec []string

	Reply chan<- Reply
}

// ExecResult reports the outcome of an externally executed command.
// Error is empty on success; the output streams are always carried.
type ExecResult struct {
	Error  string `json:"error,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// Reply is the payload of a completed command. The field matching the
// command kind is populated.
type Reply struct {
	Env   map[string]string  `json:"env,omitempty"`
	Pages []archive.PageInfo `json:"pages,omitempty"`
	Exec  *ExecResult        `json:"exec,omitempty"`
}

func sendReply(reply chan<- Reply, r Reply) {
	if reply == nil {
		return
	}
	select {
	case reply <- r:
	default:
	}
}
