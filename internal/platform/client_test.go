package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.Config{
		PlatformBaseURL: srv.URL,
		PlatformToken:   "service-token",
		PlatformTimeout: 5 * time.Second,
	}, zerolog.Nop())
}

func TestGetSession(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/sessions/"+id.String(), r.URL.Path)
		require.Equal(t, "Bearer service-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(model.Session{
			ID:              id,
			Title:           "Screen",
			DurationMinutes: 30,
			Status:          model.SessionStatusScheduled,
		})
	})

	sess, err := c.GetSession(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, id, sess.ID)
	require.Equal(t, 30, sess.DurationMinutes)
	require.Equal(t, model.SessionStatusScheduled, sess.Status)
}

func TestValidateSession(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/"+id.String()+"/validate", r.URL.Path)
		w.Write([]byte(`{"valid":false,"reason":"window closed","redirect_to":"results"}`))
	})

	v, err := c.ValidateSession(context.Background(), id)
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, "window closed", v.Reason)
	require.Equal(t, "results", v.RedirectTo)
}

func TestGenerateQuestions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/questions/generate", r.URL.Path)

		var params GenerateParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Equal(t, "backend", params.Category)

		w.Write([]byte(`{"questions":[{"id":"` + uuid.New().String() + `","text":"q1"},{"id":"` + uuid.New().String() + `","text":"q2"}]}`))
	})

	qs, err := c.GenerateQuestions(context.Background(), GenerateParams{
		SessionID: uuid.New(),
		Category:  "backend",
	})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	require.Equal(t, "q1", qs[0].Text)
}

func TestSubmitResponseStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session closed", http.StatusConflict)
	})

	err := c.SubmitResponse(context.Background(), SubmitRequest{
		SessionID:  uuid.New(),
		QuestionID: uuid.New(),
	})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusConflict, statusErr.Code)
	require.Contains(t, statusErr.Body, "session closed")
}

func TestCompleteSession(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/"+id.String()+"/complete", r.URL.Path)

		var completion Completion
		require.NoError(t, json.NewDecoder(r.Body).Decode(&completion))
		require.Equal(t, 12, completion.ActualDurationMinutes)
		require.Len(t, completion.SecurityEvents, 1)

		json.NewEncoder(w).Encode(model.Session{ID: id, Status: model.SessionStatusCompleted})
	})

	sess, err := c.CompleteSession(context.Background(), id, Completion{
		ActualDurationMinutes: 12,
		SecurityEvents:        []model.SecurityEvent{{Type: model.EventTabSwitch}},
	})
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusCompleted, sess.Status)
}

func TestGetResultsPassthrough(t *testing.T) {
	id := uuid.New()
	raw := `{"score":91,"breakdown":{"clarity":4}}`
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(raw))
	})

	results, err := c.GetResults(context.Background(), id)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(results))
}

func TestInvalidateSession(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/"+id.String()+"/invalidate", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "warning limit exceeded", body["reason"])
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.InvalidateSession(context.Background(), id, "warning limit exceeded"))
}

func TestTranscribeAudio(t *testing.T) {
	audio := []byte("webm bytes")
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/transcriptions", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "audio/webm", body["mime_type"])
		require.Equal(t, base64.StdEncoding.EncodeToString(audio), body["audio"])

		w.Write([]byte(`{"text":"hello world"}`))
	})

	text, err := c.TranscribeAudio(context.Background(), &model.Clip{
		MimeType: "audio/webm",
		Data:     audio,
	})
	require.NoError(t, err)
	require.Equal(t, "hello world", text)
}

func TestGetSessionAccessHash(t *testing.T) {
	id := uuid.New()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sessions/"+id.String()+"/access", r.URL.Path)
		w.Write([]byte(`{"access_code_hash":"$2a$06$hash"}`))
	})

	hash, err := c.GetSessionAccessHash(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "$2a$06$hash", hash)
}
