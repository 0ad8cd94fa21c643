package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionMediaResult Action = "media_result"
	ActionVideoReady  Action = "video_ready"
	ActionAudioChunk  Action = "audio_chunk"
	ActionSecurity    Action = "security"
	ActionPing        Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// MediaResultRequest reports the outcome of a device command that asked the
// browser to acquire camera and microphone streams.
type MediaResultRequest struct {
	Action    Action `json:"action"`
	RequestID string `json:"request_id"`
	StreamID  string `json:"stream_id,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"` // "permission_denied", "device_not_found", ...
	ErrorText string `json:"error_text,omitempty"`
}

// VideoReadyRequest signals that the preview element started playing.
type VideoReadyRequest struct {
	Action Action `json:"action"`
}

// AudioChunkRequest carries one recorded audio chunk, base64 encoded.
type AudioChunkRequest struct {
	Action Action `json:"action"`
	Data   string `json:"data"`
}

// SecurityRequest reports a proctoring signal observed in the browser.
type SecurityRequest struct {
	Action Action `json:"action"`
	Type   string `json:"type"`
	Detail string `json:"detail,omitempty"`
}

// PingRequest keeps the connection alive.
type PingRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventCommand    Event = "command"
	EventPhase      Event = "phase"
	EventQuestion   Event = "question"
	EventTick       Event = "tick"
	EventWarning    Event = "warning"
	EventTerminated Event = "terminated"
	EventCompleted  Event = "completed"
	EventExited     Event = "exited"
	EventPong       Event = "pong"
	EventError      Event = "error"
)

// CommandResponse asks the browser to operate a device primitive on the
// conductor's behalf.
type CommandResponse struct {
	Event   Event       `json:"event"`
	Command string      `json:"command"`
	Payload interface{} `json:"payload,omitempty"`
}

// NotifyResponse wraps an orchestrator push (phase, question, tick, warning,
// terminated, completed, exited) with its payload.
type NotifyResponse struct {
	Event   Event       `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
