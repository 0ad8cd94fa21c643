package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is the stored answer for one question. One record is created per
// question when the question set loads (empty answer) and is overwritten on
// revisit; records are never deleted.
type Response struct {
	QuestionID uuid.UUID `json:"question_id"`
	AnswerText string    `json:"answer_text"`
	Clip       *Clip     `json:"clip,omitempty"`
	TimeSpent  int64     `json:"time_spent_ms"`
	Answered   bool      `json:"answered"`
	// StartedAt is reset on every index change, forward or backward, so
	// revisits never double-count time.
	StartedAt time.Time `json:"question_started_at"`
}
