package ipc

import "riffle/internal/archive"

// PingRequest checks that the daemon is alive.
type PingRequest struct{}

// PingResponse identifies the running daemon.
type PingResponse struct {
	PID       int    `json:"pid"`
	SessionID string `json:"session_id"`
}

// StatusRequest fetches the current page environment.
type StatusRequest struct{}

// StatusResponse carries the same variables Execute exports, keyed by name.
type StatusResponse struct {
	Env map[string]string `json:"env"`
}

// PageInfo mirrors the archive page listing entry for IPC callers.
type PageInfo = archive.PageInfo

// PagesRequest fetches the current archive's page listing.
type PagesRequest struct{}

// PagesResponse lists every page of the current archive in reading order.
type PagesResponse struct {
	Pages []PageInfo `json:"pages"`
}

// MoveRequest changes the current page. Direction is absolute, forwards,
// or backwards; absolute moves to the 1-indexed page given by Pages.
type MoveRequest struct {
	Direction string `json:"direction"`
	Pages     int    `json:"pages"`
}

// NextArchiveRequest jumps to the start of the following archive.
type NextArchiveRequest struct{}

// PreviousArchiveRequest jumps to the start of the preceding archive.
type PreviousArchiveRequest struct{}

// MangaRequest switches manga mode. State is on, off, or toggle.
type MangaRequest struct {
	State string `json:"state"`
}

// UpscalingRequest switches upscaling. State is on, off, or toggle.
type UpscalingRequest struct {
	State string `json:"state"`
}

// FitRequest selects the fit strategy.
type FitRequest struct {
	Fit string `json:"fit"`
}

// ModeRequest selects the display mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ResolutionRequest retargets fitting to a new "WxH" resolution.
type ResolutionRequest struct {
	Resolution string `json:"resolution"`
}

// AckResponse reports that a command was handed to the manager. Commands
// apply asynchronously; follow with Status to observe the result.
type AckResponse struct {
	Accepted bool `json:"accepted"`
}

// ExecuteRequest runs an external command with the page environment.
type ExecuteRequest struct {
	Argv []string `json:"argv"`
}

// ExecuteResponse reports the external command outcome. Error is empty
// on success; the output streams are always carried.
type ExecuteResponse struct {
	Error  string `json:"error,omitempty"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// ShutdownRequest stops the daemon.
type ShutdownRequest struct{}

// ShutdownResponse confirms shutdown has begun.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
