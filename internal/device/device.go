// Package device abstracts the browser peer's media capabilities. The
// conductor never touches hardware; it issues commands over an attached
// channel (in production, the candidate's WebSocket) and consumes the signals
// the peer sends back.
package device

import "errors"

// ErrDetached is returned when a command is issued while no peer is attached.
var ErrDetached = errors.New("device channel detached")

// Command identifies an instruction pushed to the browser peer.
type Command string

const (
	CmdAcquireMedia      Command = "acquire_media"
	CmdReleaseMedia      Command = "release_media"
	CmdSetTrackEnabled   Command = "set_track_enabled"
	CmdStartRecording    Command = "start_recording"
	CmdStopRecording     Command = "stop_recording"
	CmdRequestFullscreen Command = "request_fullscreen"
	CmdExitFullscreen    Command = "exit_fullscreen"
)

// Channel delivers commands to the attached peer. Implementations must be
// safe for concurrent use; Send failures are surfaced to callers, never
// retried here.
type Channel interface {
	Send(cmd Command, payload interface{}) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(cmd Command, payload interface{}) error

func (f ChannelFunc) Send(cmd Command, payload interface{}) error {
	return f(cmd, payload)
}
