package bridge

import "encoding/json"

// Channel topics shared with the renderer preload bridge. Surfaces address
// the host by channel; the host addresses a surface by its hello id.
const (
	ChannelControl = "glidecall:control"
	ChannelSources = "glidecall:get-sources"
)

// Control event names recognized by the share coordinator.
const (
	EventOpenTracker  = "share:open-tracker"
	EventCloseTracker = "share:close-tracker"
	EventHideTracker  = "share:hide-tracker"
	EventStopShare    = "share:stop"
)

// Surface lifecycle names emitted by the transport layer itself.
const (
	EventSurfaceHello  = "surface:hello"
	EventSurfaceClosed = "surface:closed"
)

// SurfaceMain is the hello id of the primary conferencing surface.
const SurfaceMain = "main"

// MaxMessageSize is the maximum size of a framed bridge message (4MB).
// Source enumeration responses carry thumbnails, so this is generous.
const MaxMessageSize = 4 * 1024 * 1024

// Envelope is the wire-format wrapper for all bridge messages. ID is set on
// request/response exchanges so replies can be correlated; fire-and-forget
// events leave it empty.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Channel string          `json:"channel"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// SurfaceHello is the first message a connecting surface sends, naming
// itself so the host can route messages back to it.
type SurfaceHello struct {
	Surface string `json:"surface"`
}

// SurfaceClosed is published on the control channel when a surface's
// transport drops, whatever the reason.
type SurfaceClosed struct {
	Surface string `json:"surface"`
}
