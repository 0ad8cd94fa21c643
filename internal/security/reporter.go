package security

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
)

// ReportPayload is the queue wire format consumed by the security report
// worker.
type ReportPayload struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"timestamp"`
}

// QueueReporter pushes events onto the Redis security-report queue. Delivery
// to the backend and the audit store happens in the worker; a failed push is
// logged and dropped, never surfaced to the monitor.
type QueueReporter struct {
	rdb       *redis.Client
	sessionID uuid.UUID
	log       zerolog.Logger
}

// NewQueueReporter creates a reporter for one session.
func NewQueueReporter(rdb *redis.Client, sessionID uuid.UUID, log zerolog.Logger) *QueueReporter {
	return &QueueReporter{
		rdb:       rdb,
		sessionID: sessionID,
		log:       log.With().Str("component", "security_reporter").Logger(),
	}
}

// Report enqueues one event. Best effort.
func (r *QueueReporter) Report(event model.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, _ := json.Marshal(ReportPayload{
		SessionID: r.sessionID.String(),
		Type:      string(event.Type),
		Detail:    event.Detail,
		Timestamp: event.Timestamp.Unix(),
	})

	if err := r.rdb.RPush(ctx, config.WorkerKey.SecurityReportQueue, payload).Err(); err != nil {
		r.log.Error().Err(err).Msg("Failed to enqueue security event")
		return
	}

	// Mirror the counter for external monitors; also best effort.
	_ = r.rdb.Incr(ctx, config.CacheKey.SessionWarningsKey(r.sessionID.String())).Err()
}
