// Package media owns the camera and microphone stream lifecycle for one
// interview session. Streams live in the candidate's browser; the manager
// holds the authoritative registry and drives acquire/toggle/release through
// the device channel.
package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
)

// Purpose distinguishes the long-lived preview stream from the per-question
// answer-recording stream. Exactly one active stream per purpose.
type Purpose string

const (
	PurposePreview Purpose = "preview"
	PurposeAnswer  Purpose = "answer"
)

// ErrorKind classifies capture failures from the peer.
type ErrorKind string

const (
	ErrPermissionDenied ErrorKind = "permission_denied"
	ErrDeviceNotFound   ErrorKind = "device_not_found"
	ErrUnknown          ErrorKind = "unknown"
)

// CaptureError is a typed device failure. The manager never retries on its
// own; callers decide whether to surface a manual retry.
type CaptureError struct {
	Kind   ErrorKind
	Detail string
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed (%s): %s", e.Kind, e.Detail)
}

// Constraints mirror the getUserMedia request issued by the peer.
type Constraints struct {
	Video  bool `json:"video"`
	Audio  bool `json:"audio"`
	Width  int  `json:"width,omitempty"`
	Height int  `json:"height,omitempty"`
}

// DefaultConstraints is the preview request: camera plus microphone at the
// target interview resolution.
var DefaultConstraints = Constraints{Video: true, Audio: true, Width: 1280, Height: 720}

// Stream tracks one live media stream held by the peer.
type Stream struct {
	ID         string    `json:"id"`
	Purpose    Purpose   `json:"purpose"`
	Enabled    bool      `json:"enabled"`
	AcquiredAt time.Time `json:"acquired_at"`
}

const (
	// acquireTimeout bounds how long we wait for the peer's grant/deny result.
	acquireTimeout = 10 * time.Second
	// readyTimeout is the safety bound on the video readiness race. Sink-ready
	// events are not guaranteed to fire in every browser, so readiness is
	// declared on the first of the signal or this timeout.
	readyTimeout = 3 * time.Second
)

type acquireResult struct {
	streamID string
	err      *CaptureError
}

// Manager coordinates media streams for one session.
type Manager struct {
	mu      sync.Mutex
	ch      device.Channel
	streams map[Purpose]*Stream
	pending map[string]chan acquireResult
	readyc  chan struct{}
	log     zerolog.Logger

	// Overridable in tests.
	AcquireTimeout time.Duration
	ReadyTimeout   time.Duration
}

// NewManager creates a manager bound to the given device channel.
func NewManager(ch device.Channel, log zerolog.Logger) *Manager {
	return &Manager{
		ch:             ch,
		streams:        make(map[Purpose]*Stream),
		pending:        make(map[string]chan acquireResult),
		readyc:         make(chan struct{}),
		log:            log.With().Str("component", "media_manager").Logger(),
		AcquireTimeout: acquireTimeout,
		ReadyTimeout:   readyTimeout,
	}
}

// SetChannel swaps the device channel after a peer reconnect.
func (m *Manager) SetChannel(ch device.Channel) {
	m.mu.Lock()
	m.ch = ch
	m.mu.Unlock()
}

func (m *Manager) send(cmd device.Command, payload interface{}) error {
	m.mu.Lock()
	ch := m.ch
	m.mu.Unlock()
	if ch == nil {
		return device.ErrDetached
	}
	return ch.Send(cmd, payload)
}

// Acquire requests a stream for the given purpose and blocks until the peer
// grants or denies, the context is cancelled, or the acquire timeout fires.
// Acquiring while a stream for the same purpose is active is an error; the
// caller must Release the first stream explicitly.
func (m *Manager) Acquire(ctx context.Context, purpose Purpose, constraints Constraints) (*Stream, error) {
	m.mu.Lock()
	if _, ok := m.streams[purpose]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("stream already active for purpose %q", purpose)
	}
	reqID := uuid.New().String()
	resc := make(chan acquireResult, 1)
	m.pending[reqID] = resc
	if purpose == PurposePreview {
		// Readiness is per preview stream. A signal consumed by an earlier
		// stream must not satisfy AwaitReady for this one.
		m.readyc = make(chan struct{})
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, reqID)
		m.mu.Unlock()
	}()

	payload := map[string]interface{}{
		"request_id":  reqID,
		"purpose":     purpose,
		"constraints": constraints,
	}
	if err := m.send(device.CmdAcquireMedia, payload); err != nil {
		return nil, &CaptureError{Kind: ErrUnknown, Detail: err.Error()}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(m.AcquireTimeout):
		return nil, &CaptureError{Kind: ErrUnknown, Detail: "no grant result from device"}
	case res := <-resc:
		if res.err != nil {
			return nil, res.err
		}
		stream := &Stream{
			ID:         res.streamID,
			Purpose:    purpose,
			Enabled:    true,
			AcquiredAt: time.Now(),
		}
		m.mu.Lock()
		m.streams[purpose] = stream
		m.mu.Unlock()
		m.log.Debug().Str("purpose", string(purpose)).Str("stream_id", stream.ID).Msg("Stream acquired")
		return stream, nil
	}
}

// HandleAcquireResult delivers the peer's grant/deny signal to the waiting
// Acquire call. Unknown request IDs are dropped (late result after timeout).
func (m *Manager) HandleAcquireResult(requestID, streamID string, errKind, detail string) {
	m.mu.Lock()
	resc, ok := m.pending[requestID]
	m.mu.Unlock()
	if !ok {
		return
	}

	res := acquireResult{streamID: streamID}
	if errKind != "" {
		kind := ErrorKind(errKind)
		switch kind {
		case ErrPermissionDenied, ErrDeviceNotFound:
		default:
			kind = ErrUnknown
		}
		res.err = &CaptureError{Kind: kind, Detail: detail}
	}

	select {
	case resc <- res:
	default:
	}
}

// AwaitReady blocks until the peer signals video readiness or the safety
// timeout elapses, whichever comes first. The timeout path still declares
// readiness; it returns false only to tell the caller which branch won.
func (m *Manager) AwaitReady(ctx context.Context) bool {
	m.mu.Lock()
	ready := m.readyc
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return false
	case <-ready:
		return true
	case <-time.After(m.ReadyTimeout):
		m.log.Debug().Msg("Video readiness timeout, proceeding")
		return false
	}
}

// HandleVideoReady records the peer's decode/metadata-ready signal.
// Idempotent; duplicate signals are ignored.
func (m *Manager) HandleVideoReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.readyc:
	default:
		close(m.readyc)
	}
}

// SetEnabled toggles tracks without releasing the underlying stream, so the
// camera can be re-enabled instantly.
func (m *Manager) SetEnabled(purpose Purpose, enabled bool) error {
	m.mu.Lock()
	stream, ok := m.streams[purpose]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("no active stream for purpose %q", purpose)
	}
	stream.Enabled = enabled
	streamID := stream.ID
	m.mu.Unlock()

	return m.send(device.CmdSetTrackEnabled, map[string]interface{}{
		"stream_id": streamID,
		"enabled":   enabled,
	})
}

// Release stops every track of the stream for the given purpose. Teardown
// only; a released purpose can be re-acquired.
func (m *Manager) Release(purpose Purpose) error {
	m.mu.Lock()
	stream, ok := m.streams[purpose]
	if ok {
		delete(m.streams, purpose)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	m.log.Debug().Str("purpose", string(purpose)).Str("stream_id", stream.ID).Msg("Stream released")
	return m.send(device.CmdReleaseMedia, map[string]interface{}{"stream_id": stream.ID})
}

// ReleaseAll releases every active stream. Used on session teardown.
func (m *Manager) ReleaseAll() {
	for _, purpose := range []Purpose{PurposeAnswer, PurposePreview} {
		if err := m.Release(purpose); err != nil {
			m.log.Warn().Err(err).Str("purpose", string(purpose)).Msg("Release failed during teardown")
		}
	}
}

// Active returns the stream for a purpose, or nil.
func (m *Manager) Active(purpose Purpose) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streams[purpose]
}
