package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/flow"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/media"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/middleware"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/recorder"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/response"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/service"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/session"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/validator"
)

// SessionHandler handles the conducted-interview REST surface.
type SessionHandler struct {
	registry    *session.Registry
	authService *service.AuthService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(registry *session.Registry, authService *service.AuthService) *SessionHandler {
	return &SessionHandler{registry: registry, authService: authService}
}

// Join godoc
// POST /api/v1/sessions/:id/join
// Verifies the access code, loads the session, and issues a candidate JWT.
// A non-proceed disposition routes the candidate away without a token.
func (h *SessionHandler) Join(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req model.JoinSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.VerifyAccessCode(c.Request.Context(), sessionID, req.AccessCode); err != nil {
		if errors.Is(err, service.ErrInvalidAccessCode) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidAccessCode)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrPlatformUnreachable)
		return
	}

	o, result, err := h.registry.Obtain(c.Request.Context(), sessionID)
	if err != nil {
		response.Fail(c, http.StatusBadGateway, response.ErrPlatformUnreachable)
		return
	}

	if result.Disposition != session.DispositionProceed {
		response.Success(c, http.StatusOK, gin.H{
			"disposition": result.Disposition,
			"message":     result.Message,
		})
		return
	}

	snap := o.State()
	token, err := h.authService.GenerateCandidateToken(c.Request.Context(), snap.Session.CandidateID, sessionID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"disposition": result.Disposition,
		"token":       token,
		"state":       snap,
	})
}

// State godoc
// GET /api/v1/sessions/:id/state
// Returns the full observable orchestrator state for reconnecting clients.
func (h *SessionHandler) State(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

// Begin godoc
// POST /api/v1/sessions/:id/begin
// Acknowledges the instructions and enters questioning.
func (h *SessionHandler) Begin(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.Begin(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

// Next godoc
// POST /api/v1/sessions/:id/next
// Finalizes the current answer and advances. Completes on the last question.
func (h *SessionHandler) Next(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.Next(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

// Previous godoc
// POST /api/v1/sessions/:id/previous
// Steps back to the prior question for review.
func (h *SessionHandler) Previous(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.Previous(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

type jumpRequest struct {
	Index int `json:"index" binding:"min=0"`
}

// Jump godoc
// POST /api/v1/sessions/:id/jump
// Moves directly to an already-answered question.
func (h *SessionHandler) Jump(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	var req jumpRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := o.JumpTo(c.Request.Context(), req.Index); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

// Complete godoc
// POST /api/v1/sessions/:id/complete
// Finishes the interview: submits all responses and closes the session.
func (h *SessionHandler) Complete(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.Complete(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"state": o.State()})
}

// Exit godoc
// POST /api/v1/sessions/:id/exit
// Abandons the interview. Requires explicit confirmation; nothing is submitted.
func (h *SessionHandler) Exit(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	var req model.ExitSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := o.Exit(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}

	// The session is gone; free the candidate's single-connection slot
	// instead of waiting out the registration TTL.
	if claims := middleware.GetClaims(c); claims != nil {
		_ = h.authService.ResetConnection(c.Request.Context(), claims.CandidateID)
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// RetryCamera godoc
// POST /api/v1/sessions/:id/camera/retry
// Re-requests the preview stream after a capture failure.
func (h *SessionHandler) RetryCamera(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	stream, viaSignal, err := o.AcquirePreview(c.Request.Context())
	if err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"stream_id":    stream.ID,
		"ready_signal": viaSignal,
	})
}

type toggleCameraRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ToggleCamera godoc
// POST /api/v1/sessions/:id/camera/toggle
// Enables or disables camera tracks without releasing the stream.
func (h *SessionHandler) ToggleCamera(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	var req toggleCameraRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	if err := o.ToggleCamera(*req.Enabled); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// StartRecording godoc
// POST /api/v1/sessions/:id/recording/start
// Begins audio capture for the current question.
func (h *SessionHandler) StartRecording(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.StartRecording(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recording": true})
}

// StopRecording godoc
// POST /api/v1/sessions/:id/recording/stop
// Finalizes the current question's clip.
func (h *SessionHandler) StopRecording(c *gin.Context) {
	o, ok := h.obtainLive(c)
	if !ok {
		return
	}
	if err := o.StopRecording(c.Request.Context()); err != nil {
		failOrchestrator(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"recording": o.State().Recording})
}

// ─── Helpers ────────────────────────────────────────────────────────

// obtainLive resolves the loaded orchestrator for the path session ID and
// checks the token actually belongs to it.
func (h *SessionHandler) obtainLive(c *gin.Context) (*session.Orchestrator, bool) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return nil, false
	}

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	if claims.SessionID != sessionID {
		response.Fail(c, http.StatusForbidden, response.ErrNotYourSession)
		return nil, false
	}

	o, found := h.registry.Get(sessionID)
	if !found {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotLive)
		return nil, false
	}
	return o, true
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failOrchestrator maps orchestrator and flow errors onto the response
// envelope.
func failOrchestrator(c *gin.Context, err error) {
	var capture *media.CaptureError

	switch {
	case errors.Is(err, session.ErrSessionOver):
		response.Fail(c, http.StatusConflict, response.ErrSessionCompleted)
	case errors.Is(err, session.ErrWrongPhase):
		response.Fail(c, http.StatusConflict, response.ErrWrongPhase)
	case errors.Is(err, flow.ErrReadOnly):
		response.Fail(c, http.StatusConflict, response.ErrQuestionLocked)
	case errors.Is(err, flow.ErrNotAnswered):
		response.Fail(c, http.StatusConflict, response.ErrAnswerRequired)
	case errors.Is(err, flow.ErrAtFirst), errors.Is(err, flow.ErrInvalidIndex):
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionNotFound)
	case errors.Is(err, recorder.ErrAlreadyRecording):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyRecording)
	case errors.Is(err, recorder.ErrNotRecording):
		response.Fail(c, http.StatusConflict, response.ErrNotRecording)
	case errors.As(err, &capture):
		response.Fail(c, http.StatusBadGateway, response.ErrMediaUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
