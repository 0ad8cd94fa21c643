// Package security tallies integrity violations for one interview session and
// escalates to termination. Local state (event log, warning counter) is
// authoritative and updated synchronously; backend reporting is fire and
// forget and never rolls local state back.
package security

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// TerminationThreshold is the total number of events that invalidates a
// session. The policy is "three total events": the check runs on the
// post-increment counter.
const TerminationThreshold = 3

// Reporter forwards one event toward the backend. Implementations must be
// quick and must swallow their own failures.
type Reporter interface {
	Report(event model.SecurityEvent)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(event model.SecurityEvent)

func (f ReporterFunc) Report(event model.SecurityEvent) { f(event) }

// Monitor is the per-session violation tally.
type Monitor struct {
	mu         sync.Mutex
	events     []model.SecurityEvent
	suppressed bool

	reporter     Reporter
	onInvalidate func(reason string)
	log          zerolog.Logger
}

// NewMonitor creates a monitor. onInvalidate fires at most once, when the
// dev_tools signal arrives or the warning counter reaches the threshold.
func NewMonitor(reporter Reporter, onInvalidate func(reason string), log zerolog.Logger) *Monitor {
	return &Monitor{
		reporter:     reporter,
		onInvalidate: onInvalidate,
		log:          log.With().Str("component", "security_monitor").Logger(),
	}
}

// Observe handles one forwarded browser signal. The log append and counter
// increment are synchronous and strictly ordered with the input; the report
// runs in the background. Returns the post-increment warning count and
// whether the event was recorded (false once suppressed).
func (m *Monitor) Observe(eventType model.SecurityEventType, detail string) (int, bool) {
	event := model.SecurityEvent{
		Type:      eventType,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	m.mu.Lock()
	if m.suppressed {
		m.mu.Unlock()
		return len(m.events), false
	}
	m.events = append(m.events, event)
	count := len(m.events)
	m.mu.Unlock()

	m.log.Warn().
		Str("type", string(eventType)).
		Str("detail", detail).
		Int("warnings", count).
		Msg("Security event observed")

	// The local counter update must not wait for, or be rolled back by, the
	// network call.
	if m.reporter != nil {
		go m.reporter.Report(event)
	}

	if eventType == model.EventDevTools {
		m.escalate("developer tools detected")
	} else if count >= TerminationThreshold {
		m.escalate("warning limit exceeded")
	}

	return count, true
}

func (m *Monitor) escalate(reason string) {
	m.mu.Lock()
	already := m.suppressed
	m.suppressed = true
	m.mu.Unlock()
	if already {
		return
	}

	m.log.Error().Str("reason", reason).Msg("Escalating to session invalidation")
	if m.onInvalidate != nil {
		m.onInvalidate(reason)
	}
}

// Suppress stops any further event from mutating state. Called when the
// session leaves the questioning phase. Idempotent.
func (m *Monitor) Suppress() {
	m.mu.Lock()
	m.suppressed = true
	m.mu.Unlock()
}

// WarningCount equals len(Events()) at every observation point, regardless of
// reporting success.
func (m *Monitor) WarningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// Events returns a copy of the append-only event log.
func (m *Monitor) Events() []model.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.SecurityEvent, len(m.events))
	copy(out, m.events)
	return out
}
