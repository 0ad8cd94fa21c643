package model

import "time"

// SecurityEventType enumerates the integrity signals the browser peer is
// expected to forward. The set is a fixed denylist; unknown types are
// rejected at the wire boundary.
type SecurityEventType string

const (
	EventTabSwitch    SecurityEventType = "tab_switch"
	EventWindowBlur   SecurityEventType = "window_blur"
	EventCopyAttempt  SecurityEventType = "copy_attempt"
	EventPasteAttempt SecurityEventType = "paste_attempt"
	EventRightClick   SecurityEventType = "right_click"
	EventDevTools     SecurityEventType = "dev_tools"
)

// ValidSecurityEventType reports whether t is one of the known signal types.
func ValidSecurityEventType(t SecurityEventType) bool {
	switch t {
	case EventTabSwitch, EventWindowBlur, EventCopyAttempt,
		EventPasteAttempt, EventRightClick, EventDevTools:
		return true
	}
	return false
}

// SecurityEvent is one observed integrity violation. The per-session log is
// append-only for the session's lifetime.
type SecurityEvent struct {
	Type      SecurityEventType `json:"type"`
	Detail    string            `json:"detail"`
	Timestamp time.Time         `json:"timestamp"`
}
