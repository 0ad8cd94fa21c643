package media

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
)

// grantingChannel answers every acquire command with a successful grant.
func grantingChannel(m **Manager, streamID string) device.ChannelFunc {
	return func(cmd device.Command, payload interface{}) error {
		if cmd != device.CmdAcquireMedia {
			return nil
		}
		reqID := payload.(map[string]interface{})["request_id"].(string)
		go (*m).HandleAcquireResult(reqID, streamID, "", "")
		return nil
	}
}

func newTestManager(ch device.Channel) *Manager {
	m := NewManager(ch, zerolog.Nop())
	m.AcquireTimeout = 100 * time.Millisecond
	m.ReadyTimeout = 50 * time.Millisecond
	return m
}

func TestAcquireGranted(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-1"))

	stream, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)
	require.Equal(t, "stream-1", stream.ID)
	require.Equal(t, PurposePreview, stream.Purpose)
	require.True(t, stream.Enabled)
	require.NotNil(t, m.Active(PurposePreview))
}

func TestAcquireDenied(t *testing.T) {
	var m *Manager
	m = newTestManager(device.ChannelFunc(func(cmd device.Command, payload interface{}) error {
		reqID := payload.(map[string]interface{})["request_id"].(string)
		go m.HandleAcquireResult(reqID, "", "permission_denied", "user dismissed prompt")
		return nil
	}))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	var capture *CaptureError
	require.ErrorAs(t, err, &capture)
	require.Equal(t, ErrPermissionDenied, capture.Kind)
	require.Nil(t, m.Active(PurposePreview))
}

func TestAcquireUnknownErrorKindNormalized(t *testing.T) {
	var m *Manager
	m = newTestManager(device.ChannelFunc(func(cmd device.Command, payload interface{}) error {
		reqID := payload.(map[string]interface{})["request_id"].(string)
		go m.HandleAcquireResult(reqID, "", "weird_browser_thing", "")
		return nil
	}))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	var capture *CaptureError
	require.ErrorAs(t, err, &capture)
	require.Equal(t, ErrUnknown, capture.Kind)
}

func TestAcquireTimesOutWithoutGrant(t *testing.T) {
	m := newTestManager(device.ChannelFunc(func(device.Command, interface{}) error { return nil }))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	var capture *CaptureError
	require.ErrorAs(t, err, &capture)
}

func TestAcquireDetached(t *testing.T) {
	m := newTestManager(nil)

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.Error(t, err)
}

func TestAcquireSecondStreamSamePurposeRejected(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-1"))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.Error(t, err)
}

func TestAnswerAndPreviewCoexist(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-x"))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)
	_, err = m.Acquire(context.Background(), PurposeAnswer, Constraints{Audio: true})
	require.NoError(t, err)

	require.NotNil(t, m.Active(PurposePreview))
	require.NotNil(t, m.Active(PurposeAnswer))
}

func TestSetEnabledTogglesWithoutRelease(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-1"))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)

	require.NoError(t, m.SetEnabled(PurposePreview, false))
	require.False(t, m.Active(PurposePreview).Enabled)

	require.NoError(t, m.SetEnabled(PurposePreview, true))
	require.True(t, m.Active(PurposePreview).Enabled)
}

func TestSetEnabledWithoutStream(t *testing.T) {
	m := newTestManager(nil)
	require.Error(t, m.SetEnabled(PurposePreview, true))
}

func TestReleaseAllowsReacquire(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-1"))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)

	require.NoError(t, m.Release(PurposePreview))
	require.Nil(t, m.Active(PurposePreview))

	_, err = m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)
}

func TestReleaseWithoutStreamIsNoop(t *testing.T) {
	m := newTestManager(nil)
	require.NoError(t, m.Release(PurposeAnswer))
}

func TestAwaitReadySignalWins(t *testing.T) {
	m := newTestManager(nil)
	m.ReadyTimeout = time.Second

	go m.HandleVideoReady()

	start := time.Now()
	viaSignal := m.AwaitReady(context.Background())
	require.True(t, viaSignal)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestAwaitReadyTimeoutStillProceeds(t *testing.T) {
	m := newTestManager(nil)

	viaSignal := m.AwaitReady(context.Background())
	require.False(t, viaSignal)
}

func TestHandleVideoReadyIdempotent(t *testing.T) {
	m := newTestManager(nil)
	m.HandleVideoReady()
	m.HandleVideoReady()
	require.True(t, m.AwaitReady(context.Background()))
}

func TestReacquireResetsReadiness(t *testing.T) {
	var m *Manager
	m = newTestManager(grantingChannel(&m, "stream-1"))

	_, err := m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)
	m.HandleVideoReady()
	require.True(t, m.AwaitReady(context.Background()))

	require.NoError(t, m.Release(PurposePreview))
	_, err = m.Acquire(context.Background(), PurposePreview, DefaultConstraints)
	require.NoError(t, err)

	// The old stream's signal must not carry over to the new one.
	require.False(t, m.AwaitReady(context.Background()))
}

func TestLateAcquireResultDropped(t *testing.T) {
	m := newTestManager(nil)
	// No pending request with this ID; must not panic or block.
	m.HandleAcquireResult("unknown", "stream-1", "", "")
}
