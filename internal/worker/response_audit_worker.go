package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/audit"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
)

// ResponseAuditWorker consumes the response-audit queue and UPSERTs
// submission attempts into PostgreSQL.
type ResponseAuditWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewResponseAuditWorker creates a new ResponseAuditWorker.
func NewResponseAuditWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ResponseAuditWorker {
	return &ResponseAuditWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "response_audit_worker").Logger(),
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ResponseAuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ResponseAuditWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.ResponseAuditQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload audit.ResponsePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("session_id", payload.SessionID).
			Str("question_id", payload.QuestionID).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.ResponseAuditQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ResponseAuditWorker) persist(ctx context.Context, p *audit.ResponsePayload) error {
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		return err
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return err
	}

	// UPSERT so a re-submission of the same question overwrites its row.
	_, err = w.pool.Exec(ctx,
		`INSERT INTO response_audit (session_id, question_id, response_text, time_taken_ms, submitted, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET response_text = EXCLUDED.response_text,
		     time_taken_ms = EXCLUDED.time_taken_ms,
		     submitted = EXCLUDED.submitted,
		     recorded_at = EXCLUDED.recorded_at`,
		sessionID, questionID, p.ResponseText, p.TimeTaken, p.Submitted, time.Unix(p.Timestamp, 0),
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *ResponseAuditWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.ResponseAuditQueue).Result()
		if err != nil {
			break
		}

		var payload audit.ResponsePayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.ResponseAuditQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
