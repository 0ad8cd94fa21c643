package recorder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/media"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

type stubTranscriber struct {
	text string
	err  error
}

func (s *stubTranscriber) TranscribeAudio(context.Context, *model.Clip) (string, error) {
	return s.text, s.err
}

// testPeer grants every media acquire and records commands.
type testPeer struct {
	mu       sync.Mutex
	m        *media.Manager
	commands []device.Command
}

func (p *testPeer) Send(cmd device.Command, payload interface{}) error {
	p.mu.Lock()
	p.commands = append(p.commands, cmd)
	p.mu.Unlock()

	if cmd == device.CmdAcquireMedia {
		reqID := payload.(map[string]interface{})["request_id"].(string)
		go p.m.HandleAcquireResult(reqID, "mic-stream", "", "")
	}
	return nil
}

func (p *testPeer) saw(cmd device.Command) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.commands {
		if c == cmd {
			return true
		}
	}
	return false
}

func newTestPipeline(tr Transcriber) (*Pipeline, *testPeer) {
	peer := &testPeer{}
	m := media.NewManager(peer, zerolog.Nop())
	m.AcquireTimeout = 100 * time.Millisecond
	peer.m = m

	p := NewPipeline(m, peer, tr, zerolog.Nop())
	p.TickInterval = 5 * time.Millisecond
	return p, peer
}

func TestStartStopProducesClip(t *testing.T) {
	p, peer := newTestPipeline(&stubTranscriber{})

	require.NoError(t, p.Start(context.Background()))
	require.True(t, peer.saw(device.CmdStartRecording))
	require.True(t, p.State().Recording)

	p.HandleChunk([]byte("abc"))
	p.HandleChunk([]byte("def"))

	clip, err := p.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("abcdef"), clip.Data)
	require.Equal(t, "audio/webm", clip.MimeType)
	require.True(t, peer.saw(device.CmdStopRecording))
	require.True(t, p.HasRecording())
	require.False(t, p.State().Recording)
}

func TestStartWhileRecording(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})

	require.NoError(t, p.Start(context.Background()))
	require.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRecording)
}

func TestStopWithoutRecording(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})

	_, err := p.Stop(context.Background())
	require.ErrorIs(t, err, ErrNotRecording)
}

func TestChunksOutsideRecordingDropped(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})

	p.HandleChunk([]byte("early"))
	require.NoError(t, p.Start(context.Background()))
	p.HandleChunk(nil)
	p.HandleChunk([]byte("kept"))

	clip, err := p.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("kept"), clip.Data)
}

func TestDurationCounterTicks(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool {
		return p.State().DurationSeconds >= 2
	}, time.Second, 5*time.Millisecond)

	clip, err := p.Stop(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, clip.DurationSeconds, 2)

	// No ticker runs after Stop.
	frozen := p.State().DurationSeconds
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, frozen, p.State().DurationSeconds)
}

func TestStopReleasesAnswerStreamOnly(t *testing.T) {
	p, peer := newTestPipeline(&stubTranscriber{})

	// A preview stream held by the same manager must survive the stop.
	_, err := peer.m.Acquire(context.Background(), media.PurposePreview, media.DefaultConstraints)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	_, err = p.Stop(context.Background())
	require.NoError(t, err)

	require.Nil(t, peer.m.Active(media.PurposeAnswer))
	require.NotNil(t, peer.m.Active(media.PurposePreview))
}

func TestResetAbandonsInFlightRecording(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})

	require.NoError(t, p.Start(context.Background()))
	p.HandleChunk([]byte("abandoned"))
	p.Reset()

	require.False(t, p.State().Recording)
	require.False(t, p.HasRecording())
	require.Nil(t, p.Clip())

	// A fresh recording starts clean.
	require.NoError(t, p.Start(context.Background()))
	p.HandleChunk([]byte("new"))
	clip, err := p.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, []byte("new"), clip.Data)
}

func TestStartDetachedChannel(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{})
	p.SetChannel(nil)

	err := p.Start(context.Background())
	require.Error(t, err)
}

func TestTranscribeUsesResult(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{text: "spoken answer"})

	clip := &model.Clip{RecordedAt: time.Now()}
	require.Equal(t, "spoken answer", p.Transcribe(context.Background(), clip))
}

func TestTranscribeFallbackOnError(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{err: errors.New("backend down")})

	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	clip := &model.Clip{RecordedAt: recordedAt}
	require.Equal(t, "[Voice response recorded at 09:26:53]", p.Transcribe(context.Background(), clip))
}

func TestTranscribeFallbackOnBlank(t *testing.T) {
	p, _ := newTestPipeline(&stubTranscriber{text: "   "})

	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	clip := &model.Clip{RecordedAt: recordedAt}
	require.Equal(t, "[Voice response recorded at 09:26:53]", p.Transcribe(context.Background(), clip))
}
