package model

import "time"

// Clip is a finalized audio recording produced for one question.
type Clip struct {
	MimeType        string    `json:"mime_type"`
	Data            []byte    `json:"-"`
	DurationSeconds int       `json:"duration_seconds"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// RecordingState is a snapshot of the recorder pipeline, exposed through the
// session state endpoint so a reconnecting client can restore its UI.
type RecordingState struct {
	Recording       bool `json:"recording"`
	DurationSeconds int  `json:"duration_seconds"`
	HasRecording    bool `json:"has_recording"`
}
