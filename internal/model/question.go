package model

import "github.com/google/uuid"

// DefaultQuestionTimeSeconds is used when a question carries no explicit
// per-question limit.
const DefaultQuestionTimeSeconds = 300

// Question is a single interview question. Immutable once loaded.
type Question struct {
	ID               uuid.UUID `json:"id"`
	Text             string    `json:"text"`
	Difficulty       string    `json:"difficulty"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
}

// TimeLimit returns the per-question limit in seconds, falling back to the
// default when the platform did not set one.
func (q *Question) TimeLimit() int {
	if q.TimeLimitSeconds <= 0 {
		return DefaultQuestionTimeSeconds
	}
	return q.TimeLimitSeconds
}
