package security

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

type captureReporter struct {
	mu     sync.Mutex
	events []model.SecurityEvent
}

func (r *captureReporter) Report(event model.SecurityEvent) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *captureReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestObserveIncrementsSynchronously(t *testing.T) {
	m := NewMonitor(nil, nil, zerolog.Nop())

	count, recorded := m.Observe(model.EventTabSwitch, "")
	require.True(t, recorded)
	require.Equal(t, 1, count)

	count, recorded = m.Observe(model.EventWindowBlur, "focus lost")
	require.True(t, recorded)
	require.Equal(t, 2, count)

	require.Equal(t, 2, m.WarningCount())
	require.Len(t, m.Events(), 2)
}

func TestWarningCountMatchesEventLog(t *testing.T) {
	// Reporting failures never roll the local tally back.
	m := NewMonitor(ReporterFunc(func(model.SecurityEvent) {}), nil, zerolog.Nop())

	m.Observe(model.EventCopyAttempt, "")
	m.Observe(model.EventPasteAttempt, "")

	require.Equal(t, len(m.Events()), m.WarningCount())
}

func TestThirdEventTerminates(t *testing.T) {
	var mu sync.Mutex
	var reasons []string
	m := NewMonitor(nil, func(reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	}, zerolog.Nop())

	m.Observe(model.EventTabSwitch, "")
	m.Observe(model.EventWindowBlur, "")
	mu.Lock()
	require.Empty(t, reasons)
	mu.Unlock()

	count, recorded := m.Observe(model.EventRightClick, "")
	require.True(t, recorded)
	require.Equal(t, 3, count)

	mu.Lock()
	require.Equal(t, []string{"warning limit exceeded"}, reasons)
	mu.Unlock()
}

func TestDevToolsTerminatesImmediately(t *testing.T) {
	invalidated := 0
	m := NewMonitor(nil, func(string) { invalidated++ }, zerolog.Nop())

	count, recorded := m.Observe(model.EventDevTools, "")
	require.True(t, recorded)
	require.Equal(t, 1, count)
	require.Equal(t, 1, invalidated)
}

func TestEscalationFiresOnce(t *testing.T) {
	invalidated := 0
	m := NewMonitor(nil, func(string) { invalidated++ }, zerolog.Nop())

	m.Observe(model.EventDevTools, "")
	m.Observe(model.EventDevTools, "")
	m.Observe(model.EventTabSwitch, "")

	require.Equal(t, 1, invalidated)
}

func TestSuppressDropsLaterEvents(t *testing.T) {
	m := NewMonitor(nil, nil, zerolog.Nop())

	m.Observe(model.EventTabSwitch, "")
	m.Suppress()

	count, recorded := m.Observe(model.EventWindowBlur, "")
	require.False(t, recorded)
	require.Equal(t, 1, count)
	require.Equal(t, 1, m.WarningCount())
}

func TestObserveReportsInBackground(t *testing.T) {
	rep := &captureReporter{}
	m := NewMonitor(rep, nil, zerolog.Nop())

	m.Observe(model.EventTabSwitch, "detail")

	require.Eventually(t, func() bool {
		return rep.count() == 1
	}, time.Second, 5*time.Millisecond)
}
