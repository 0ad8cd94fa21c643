package platform

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("platform returned %d: %s", e.Code, e.Body)
}

// Client is the HTTP implementation of API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates a platform client from configuration.
func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.PlatformBaseURL, "/"),
		token:   cfg.PlatformToken,
		http:    &http.Client{Timeout: cfg.PlatformTimeout},
		log:     log.With().Str("component", "platform_client").Logger(),
	}
}

// do issues one JSON request and decodes the JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// GetSession fetches the session record.
func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id.String(), nil, &sess); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// ValidateSession checks eligibility (schedule window, remaining time).
func (c *Client) ValidateSession(ctx context.Context, id uuid.UUID) (*Validation, error) {
	var v Validation
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id.String()+"/validate", nil, &v); err != nil {
		return nil, fmt.Errorf("validate session: %w", err)
	}
	return &v, nil
}

// GetSessionAccessHash fetches the bcrypt hash of the session's access code.
// Conductor-scoped endpoint; never exposed to candidates.
func (c *Client) GetSessionAccessHash(ctx context.Context, id uuid.UUID) (string, error) {
	var body struct {
		AccessCodeHash string `json:"access_code_hash"`
	}
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id.String()+"/access", nil, &body); err != nil {
		return "", fmt.Errorf("get access hash: %w", err)
	}
	return body.AccessCodeHash, nil
}

// GenerateQuestions asks the backend for the session's question set.
func (c *Client) GenerateQuestions(ctx context.Context, params GenerateParams) ([]model.Question, error) {
	var body struct {
		Questions []model.Question `json:"questions"`
	}
	if err := c.do(ctx, http.MethodPost, "/questions/generate", params, &body); err != nil {
		return nil, fmt.Errorf("generate questions: %w", err)
	}
	return body.Questions, nil
}

// SubmitResponse stores one answered question on the backend.
func (c *Client) SubmitResponse(ctx context.Context, req SubmitRequest) error {
	if err := c.do(ctx, http.MethodPost, "/responses", req, nil); err != nil {
		return fmt.Errorf("submit response: %w", err)
	}
	return nil
}

// CompleteSession closes the session and returns the updated record.
func (c *Client) CompleteSession(ctx context.Context, id uuid.UUID, completion Completion) (*model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id.String()+"/complete", completion, &sess); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	return &sess, nil
}

// GetResults fetches final results. Passed through to the client untouched;
// the conductor never grades.
func (c *Client) GetResults(ctx context.Context, id uuid.UUID) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/sessions/"+id.String()+"/results", nil, &raw); err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}
	return raw, nil
}

// RecordSecurityEvent reports one violation. Best effort; callers treat
// failure as non-fatal.
func (c *Client) RecordSecurityEvent(ctx context.Context, id uuid.UUID, event model.SecurityEvent) error {
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id.String()+"/security-events", event, nil); err != nil {
		return fmt.Errorf("record security event: %w", err)
	}
	return nil
}

// InvalidateSession marks the session terminated for integrity violations.
func (c *Client) InvalidateSession(ctx context.Context, id uuid.UUID, reason string) error {
	body := map[string]string{"reason": reason}
	if err := c.do(ctx, http.MethodPost, "/sessions/"+id.String()+"/invalidate", body, nil); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	return nil
}

// TranscribeAudio sends a finalized clip for transcription.
func (c *Client) TranscribeAudio(ctx context.Context, clip *model.Clip) (string, error) {
	req := map[string]string{
		"mime_type": clip.MimeType,
		"audio":     base64.StdEncoding.EncodeToString(clip.Data),
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := c.do(ctx, http.MethodPost, "/transcriptions", req, &body); err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return body.Text, nil
}
