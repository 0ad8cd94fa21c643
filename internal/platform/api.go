// Package platform is the client for the upstream interview backend. The
// conductor consumes it for session records, question generation, response
// submission, transcription, and security-event reporting; the backend owns
// all authoritative data.
package platform

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// Validation is the backend's eligibility verdict for a session about to be
// conducted. RedirectTo hints where an ineligible candidate should land.
type Validation struct {
	Valid         bool   `json:"valid"`
	Reason        string `json:"reason,omitempty"`
	RemainingTime *int   `json:"remaining_time,omitempty"` // seconds
	RedirectTo    string `json:"redirect_to,omitempty"`    // "results" or "exit"
}

// GenerateParams selects the question set for a session.
type GenerateParams struct {
	SessionID  uuid.UUID `json:"session_id"`
	Category   string    `json:"category"`
	Difficulty string    `json:"difficulty"`
	Count      int       `json:"count"`
}

// SubmitRequest carries one response to the backend.
type SubmitRequest struct {
	SessionID    uuid.UUID `json:"session_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	ResponseText string    `json:"response_text"`
	TimeTaken    int64     `json:"time_taken"` // milliseconds
	AudioRef     string    `json:"audio_ref,omitempty"`
}

// Completion closes out a session on the backend.
type Completion struct {
	ActualDurationMinutes int                   `json:"actual_duration_minutes"`
	SecurityEvents        []model.SecurityEvent `json:"security_events"`
}

// API is the full set of backend operations the conductor consumes.
// Implemented by *Client for production and by fakes in tests.
type API interface {
	GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error)
	ValidateSession(ctx context.Context, id uuid.UUID) (*Validation, error)
	GetSessionAccessHash(ctx context.Context, id uuid.UUID) (string, error)
	GenerateQuestions(ctx context.Context, params GenerateParams) ([]model.Question, error)
	SubmitResponse(ctx context.Context, req SubmitRequest) error
	CompleteSession(ctx context.Context, id uuid.UUID, completion Completion) (*model.Session, error)
	GetResults(ctx context.Context, id uuid.UUID) (json.RawMessage, error)
	RecordSecurityEvent(ctx context.Context, id uuid.UUID, event model.SecurityEvent) error
	InvalidateSession(ctx context.Context, id uuid.UUID, reason string) error
	TranscribeAudio(ctx context.Context, clip *model.Clip) (string, error)
}
