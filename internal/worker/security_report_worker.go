package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/model"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/security"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// SecurityReportWorker drains the security-report queue: every event is
// forwarded to the platform backend (best effort, no retry) and persisted
// into the local audit store (batched, with requeue on storage failure).
// The session's in-memory counter was already updated before the event was
// queued; nothing here feeds back into session state.
type SecurityReportWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	api  platform.API
	log  zerolog.Logger
}

// NewSecurityReportWorker creates a new SecurityReportWorker.
func NewSecurityReportWorker(pool *pgxpool.Pool, rdb *redis.Client, api platform.API, log zerolog.Logger) *SecurityReportWorker {
	return &SecurityReportWorker{
		pool: pool,
		rdb:  rdb,
		api:  api,
		log:  log.With().Str("component", "security_report_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *SecurityReportWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]*security.ReportPayload, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size).
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown).
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.SecurityReportQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer.
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var payload security.ReportPayload
		if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		w.forward(ctx, &payload)
		buffer = append(buffer, &payload)
	}
}

// forward reports one event to the backend. Best effort: a failure is logged
// and the event still lands in the audit store.
func (w *SecurityReportWorker) forward(ctx context.Context, p *security.ReportPayload) {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		w.log.Error().Str("session_id", p.SessionID).Msg("Skipping backend report for invalid session UUID")
		return
	}

	event := model.SecurityEvent{
		Type:      model.SecurityEventType(p.Type),
		Detail:    p.Detail,
		Timestamp: time.Unix(p.Timestamp, 0),
	}
	if err := w.api.RecordSecurityEvent(ctx, sessionID, event); err != nil {
		w.log.Warn().Err(err).Str("session_id", p.SessionID).Msg("Backend report failed, audit row still written")
	}
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *SecurityReportWorker) flushSafe(ctx context.Context, batch []*security.ReportPayload) {
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *SecurityReportWorker) bulkInsert(ctx context.Context, batch []*security.ReportPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			// Trigger fallback, which handles the bad UUID individually.
			return err
		}
		rows = append(rows, []interface{}{
			sessionID, p.Type, p.Detail, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"security_events"},
		[]string{"session_id", "event_type", "detail", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *SecurityReportWorker) fallbackInsert(ctx context.Context, batch []*security.ReportPayload) {
	requeueList := make([]*security.ReportPayload, 0)

	for _, p := range batch {
		sessionID, err := uuid.Parse(p.SessionID)
		if err != nil {
			w.log.Error().Str("session_id", p.SessionID).Msg("Dropping event with invalid UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO security_events (session_id, event_type, detail, recorded_at)
			 VALUES ($1, $2, $3, $4)`,
			sessionID, p.Type, p.Detail, time.Unix(p.Timestamp, 0),
		)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, p)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *SecurityReportWorker) requeue(ctx context.Context, items []*security.ReportPayload) {
	pipe := w.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, config.WorkerKey.SecurityReportQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue items to Redis. Audit rows lost.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Avoid thrashing if the store is down hard.
	time.Sleep(2 * time.Second)
}

func (w *SecurityReportWorker) shutdown(buffer []*security.ReportPayload) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
