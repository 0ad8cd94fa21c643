package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/repository"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/response"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/session"
)

// MonitorHandler serves the proctoring review surface: the local audit store
// plus live warning counts. Guarded by a shared service key, not candidate
// JWTs.
type MonitorHandler struct {
	rdb       *redis.Client
	auditRepo *repository.AuditRepository
	registry  *session.Registry
	apiKey    string
	log       zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	rdb *redis.Client,
	auditRepo *repository.AuditRepository,
	registry *session.Registry,
	apiKey string,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:       rdb,
		auditRepo: auditRepo,
		registry:  registry,
		apiKey:    apiKey,
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// RequireServiceKey validates the X-API-Key header against the configured
// monitor key. A missing configured key disables the whole surface.
func (h *MonitorHandler) RequireServiceKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			response.AbortFail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		supplied := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(h.apiKey)) != 1 {
			response.AbortFail(c, http.StatusForbidden, response.ErrForbidden)
			return
		}
		c.Next()
	}
}

// SecurityEvents godoc
// GET /api/v1/monitor/sessions/:id/security-events
// Lists recorded proctoring events for one session, newest last, with the
// live warning counter mirrored from Redis.
func (h *MonitorHandler) SecurityEvents(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	events, err := h.auditRepo.ListSecurityEvents(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("List security events failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	liveWarnings := 0
	if raw, err := h.rdb.Get(c.Request.Context(), config.CacheKey.SessionWarningsKey(sessionID.String())).Result(); err == nil {
		if n, err := strconv.Atoi(raw); err == nil {
			liveWarnings = n
		}
	}

	response.Success(c, http.StatusOK, gin.H{
		"events":        events,
		"live_warnings": liveWarnings,
	})
}

// ResponseAudit godoc
// GET /api/v1/monitor/sessions/:id/responses
// Lists the audited response submission attempts for one session.
func (h *MonitorHandler) ResponseAudit(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	rows, err := h.auditRepo.ListResponseAudit(c.Request.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("List response audit failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"responses": rows})
}

// LiveSessions godoc
// GET /api/v1/monitor/sessions
// Reports how many sessions this conductor is currently running.
func (h *MonitorHandler) LiveSessions(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"live_sessions": h.registry.Count()})
}
