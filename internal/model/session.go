package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates interview session states as reported by the
// platform backend. The conductor never invents a status; it only moves a
// session between in_progress, completed and terminated.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusMissed     SessionStatus = "missed"
	SessionStatusTerminated SessionStatus = "terminated"
)

// Session is the conductor's local copy of one interview attempt. The
// platform backend owns the record; this copy is mutated locally for the
// duration of the run and synced back through completeSession/invalidateSession.
type Session struct {
	ID              uuid.UUID     `json:"id"`
	CandidateID     int           `json:"candidate_id"`
	Title           string        `json:"title"`
	Category        string        `json:"category"`
	Difficulty      string        `json:"difficulty"`
	DurationMinutes int           `json:"duration_minutes"`
	ScheduledStart  *time.Time    `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time    `json:"scheduled_end,omitempty"`
	Status          SessionStatus `json:"status"`
}

// JoinSessionRequest is the payload for a candidate joining a conducted
// interview. The access code is issued by the platform and verified against
// its bcrypt hash.
type JoinSessionRequest struct {
	AccessCode string `json:"access_code" binding:"required,access_code,min=4,max=64"`
}

// ExitSessionRequest carries the explicit confirmation required to abandon a
// running interview.
type ExitSessionRequest struct {
	Confirm bool `json:"confirm" binding:"required"`
}
