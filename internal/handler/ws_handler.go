package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/device"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/middleware"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/session"
	ws "github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler owns the candidate's live conductor connection. The socket is
// both the device channel (commands out, grants in) and the event push
// channel.
type WSHandler struct {
	registry *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// peer wraps the socket behind a write mutex: orchestrator notifications and
// device commands arrive from different goroutines.
type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Send implements device.Channel.
func (p *peer) Send(cmd device.Command, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ws.WriteTyped(p.conn, ws.CommandResponse{
		Event:   ws.EventCommand,
		Command: string(cmd),
		Payload: payload,
	})
}

// Notify implements session.Notifier. NotifyEvent names map one to one onto
// wire events.
func (p *peer) Notify(event session.NotifyEvent, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = ws.WriteTyped(p.conn, ws.NotifyResponse{
		Event:   ws.Event(event),
		Payload: payload,
	})
}

func (p *peer) writeError(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = ws.WriteError(p.conn, msg)
}

func (p *peer) writePong() {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = ws.WriteTyped(p.conn, ws.PongResponse{Event: ws.EventPong})
}

// SessionStream godoc
// WS /ws/v1/sessions/:id/stream?token=...
// Upgrades to WebSocket and attaches the browser as the session's device.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}
	if claims.SessionID != sessionID {
		c.JSON(http.StatusForbidden, gin.H{"error": "session belongs to another candidate"})
		return
	}

	o, found := h.registry.Get(sessionID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "session is not live"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	p := &peer{conn: conn}

	if err := o.AttachDevice(p, p); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	defer o.DetachDevice()

	wsLog := h.log.With().
		Int("candidate_id", claims.CandidateID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		h.dispatch(o, p, wsLog, raw)
	}
}

func unmarshal(raw []byte, v interface{}) error {
	return json.Unmarshal(raw, v)
}

func (h *WSHandler) dispatch(o *session.Orchestrator, p *peer, wsLog zerolog.Logger, raw []byte) {
	var envelope ws.RequestEnvelope
	if err := unmarshal(raw, &envelope); err != nil {
		p.writeError("malformed message")
		return
	}

	switch envelope.Action {
	case ws.ActionMediaResult:
		var msg ws.MediaResultRequest
		if err := unmarshal(raw, &msg); err != nil || msg.RequestID == "" {
			p.writeError("request_id is required")
			return
		}
		o.Media().HandleAcquireResult(msg.RequestID, msg.StreamID, msg.ErrorKind, msg.ErrorText)

	case ws.ActionVideoReady:
		o.Media().HandleVideoReady()

	case ws.ActionAudioChunk:
		var msg ws.AudioChunkRequest
		if err := unmarshal(raw, &msg); err != nil {
			p.writeError("malformed audio chunk")
			return
		}
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			p.writeError("audio chunk is not valid base64")
			return
		}
		o.HandleAudioChunk(data)

	case ws.ActionSecurity:
		var msg ws.SecurityRequest
		if err := unmarshal(raw, &msg); err != nil {
			p.writeError("malformed security signal")
			return
		}
		eventType := model.SecurityEventType(msg.Type)
		if !model.ValidSecurityEventType(eventType) {
			wsLog.Warn().Str("type", msg.Type).Msg("Unknown security signal type")
			return
		}
		o.HandleSecuritySignal(eventType, msg.Detail)

	case ws.ActionPing:
		p.writePong()

	default:
		wsLog.Warn().Str("action", string(envelope.Action)).Msg("Unknown action")
		p.writeError("unknown action: " + string(envelope.Action))
	}
}
