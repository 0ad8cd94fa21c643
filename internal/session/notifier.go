package session

import "encoding/json"

// NotifyEvent names a push to the candidate's browser.
type NotifyEvent string

const (
	NotifyPhase      NotifyEvent = "phase"
	NotifyQuestion   NotifyEvent = "question"
	NotifyTick       NotifyEvent = "tick"
	NotifyWarning    NotifyEvent = "warning"
	NotifyTerminated NotifyEvent = "terminated"
	NotifyCompleted  NotifyEvent = "completed"
	NotifyExited     NotifyEvent = "exited"
)

// Notifier pushes orchestrator events to the attached peer. Implementations
// must tolerate being called from timer goroutines and must not block
// indefinitely.
type Notifier interface {
	Notify(event NotifyEvent, payload interface{})
}

// noopNotifier preserves orchestrator flow while no peer is attached.
type noopNotifier struct{}

func (noopNotifier) Notify(NotifyEvent, interface{}) {}

// TickPayload accompanies NotifyTick.
type TickPayload struct {
	Timer     string `json:"timer"` // "session" or "question"
	Remaining int    `json:"remaining"`
}

// QuestionPayload accompanies NotifyQuestion on every index change.
type QuestionPayload struct {
	Index      int    `json:"index"`
	Count      int    `json:"count"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	TimeLimit  int    `json:"time_limit_seconds"`
	Answered   bool   `json:"answered"`
	AnswerText string `json:"answer_text,omitempty"`
}

// WarningPayload accompanies NotifyWarning.
type WarningPayload struct {
	Type         string `json:"type"`
	WarningCount int    `json:"warning_count"`
}

// CompletedPayload accompanies NotifyCompleted.
type CompletedPayload struct {
	Results json.RawMessage `json:"results,omitempty"`
}

// TerminatedPayload accompanies NotifyTerminated.
type TerminatedPayload struct {
	Reason string `json:"reason"`
}
