// Package recorder drives audio capture for one question at a time: start and
// stop of the peer's media recorder, chunk accumulation into a single clip,
// and best-effort transcription with a deterministic fallback.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/media"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// Transcriber is the narrow slice of the platform API the pipeline consumes.
type Transcriber interface {
	TranscribeAudio(ctx context.Context, clip *model.Clip) (string, error)
}

// Sentinel errors.
var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

const clipMimeType = "audio/webm"

// FallbackText is the deterministic answer text used when transcription is
// unavailable or returns nothing. It guarantees every recorded question ends
// up with non-empty answer text.
func FallbackText(recordedAt time.Time) string {
	return fmt.Sprintf("[Voice response recorded at %s]", recordedAt.Format("15:04:05"))
}

// Pipeline accumulates audio chunks for the current question. Reset on every
// question transition.
type Pipeline struct {
	mu          sync.Mutex
	media       *media.Manager
	ch          device.Channel
	transcriber Transcriber
	log         zerolog.Logger

	recording bool
	chunks    [][]byte
	chunkSize int
	duration  int
	startedAt time.Time
	clip      *model.Clip
	hasClip   bool

	tickStop chan struct{}

	// TickInterval is the duration-counter tick. Overridable in tests.
	TickInterval time.Duration
}

// NewPipeline creates a recorder pipeline for one session.
func NewPipeline(m *media.Manager, ch device.Channel, transcriber Transcriber, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		media:        m,
		ch:           ch,
		transcriber:  transcriber,
		log:          log.With().Str("component", "recorder").Logger(),
		TickInterval: time.Second,
	}
}

// SetChannel swaps the device channel after a peer reconnect.
func (p *Pipeline) SetChannel(ch device.Channel) {
	p.mu.Lock()
	p.ch = ch
	p.mu.Unlock()
}

// Start acquires a fresh answer-purpose microphone grant (separate from the
// preview stream) and begins accumulating chunks. The duration ticker starts
// atomically with the recording flag. If the grant fails, recording does not
// start and the capture error is returned to the caller.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.recording {
		p.mu.Unlock()
		return ErrAlreadyRecording
	}
	ch := p.ch
	p.mu.Unlock()

	if _, err := p.media.Acquire(ctx, media.PurposeAnswer, media.Constraints{Audio: true}); err != nil {
		return fmt.Errorf("microphone grant: %w", err)
	}

	if ch == nil {
		p.releaseAnswerStream()
		return device.ErrDetached
	}
	if err := ch.Send(device.CmdStartRecording, map[string]string{"mime_type": clipMimeType}); err != nil {
		p.releaseAnswerStream()
		return fmt.Errorf("start recording: %w", err)
	}

	p.mu.Lock()
	p.recording = true
	p.chunks = nil
	p.chunkSize = 0
	p.duration = 0
	p.startedAt = time.Now()
	p.clip = nil
	p.hasClip = false
	p.tickStop = make(chan struct{})
	go p.tickLoop(p.tickStop)
	p.mu.Unlock()

	p.log.Debug().Msg("Recording started")
	return nil
}

func (p *Pipeline) tickLoop(stop chan struct{}) {
	t := time.NewTicker(p.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			p.mu.Lock()
			if p.recording {
				p.duration++
			}
			p.mu.Unlock()
		}
	}
}

// HandleChunk appends one binary chunk from the peer. Empty chunks and chunks
// arriving outside a recording window are discarded.
func (p *Pipeline) HandleChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.recording {
		return
	}
	p.chunks = append(p.chunks, data)
	p.chunkSize += len(data)
}

// Stop finalizes the accumulated chunks into a single clip, clears the
// duration ticker atomically, and releases the answer stream (the preview
// stream is left alone). No duration ticker runs after Stop returns.
func (p *Pipeline) Stop(ctx context.Context) (*model.Clip, error) {
	p.mu.Lock()
	if !p.recording {
		p.mu.Unlock()
		return nil, ErrNotRecording
	}
	p.recording = false
	close(p.tickStop)
	p.tickStop = nil

	data := make([]byte, 0, p.chunkSize)
	for _, c := range p.chunks {
		data = append(data, c...)
	}
	clip := &model.Clip{
		MimeType:        clipMimeType,
		Data:            data,
		DurationSeconds: p.duration,
		RecordedAt:      p.startedAt,
	}
	p.clip = clip
	p.hasClip = true
	p.chunks = nil
	p.chunkSize = 0
	ch := p.ch
	p.mu.Unlock()

	if ch != nil {
		if err := ch.Send(device.CmdStopRecording, nil); err != nil {
			p.log.Warn().Err(err).Msg("Stop command failed, clip finalized from received chunks")
		}
	}
	p.releaseAnswerStream()

	p.log.Debug().Int("bytes", len(data)).Int("duration_s", clip.DurationSeconds).Msg("Recording stopped")
	return clip, nil
}

func (p *Pipeline) releaseAnswerStream() {
	if err := p.media.Release(media.PurposeAnswer); err != nil {
		p.log.Warn().Err(err).Msg("Answer stream release failed")
	}
}

// Transcribe is best effort: a failed or blank transcription degrades to the
// deterministic fallback text rather than an error or a retry.
func (p *Pipeline) Transcribe(ctx context.Context, clip *model.Clip) string {
	text, err := p.transcriber.TranscribeAudio(ctx, clip)
	if err != nil {
		p.log.Warn().Err(err).Msg("Transcription failed, using fallback text")
		return FallbackText(clip.RecordedAt)
	}
	if strings.TrimSpace(text) == "" {
		p.log.Warn().Msg("Transcription returned empty text, using fallback")
		return FallbackText(clip.RecordedAt)
	}
	return text
}

// Reset clears all transient recording state. Called on every question
// transition. An in-flight recording is abandoned, not finalized.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	wasRecording := p.recording
	p.recording = false
	if p.tickStop != nil {
		close(p.tickStop)
		p.tickStop = nil
	}
	p.chunks = nil
	p.chunkSize = 0
	p.duration = 0
	p.clip = nil
	p.hasClip = false
	p.mu.Unlock()

	if wasRecording {
		p.releaseAnswerStream()
	}
}

// Clip returns the finalized clip for the current question, or nil.
func (p *Pipeline) Clip() *model.Clip {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clip
}

// HasRecording reports whether a recording was completed for the current
// question.
func (p *Pipeline) HasRecording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasClip
}

// State snapshots the pipeline for the session state endpoint.
func (p *Pipeline) State() model.RecordingState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.RecordingState{
		Recording:       p.recording,
		DurationSeconds: p.duration,
		HasRecording:    p.hasClip,
	}
}
