package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SecurityEventRow is one persisted violation from the audit store.
type SecurityEventRow struct {
	ID         int64     `json:"id"`
	SessionID  uuid.UUID `json:"session_id"`
	EventType  string    `json:"event_type"`
	Detail     string    `json:"detail"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ResponseAuditRow is one persisted submission attempt.
type ResponseAuditRow struct {
	ID           int64     `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	ResponseText string    `json:"response_text"`
	TimeTaken    int64     `json:"time_taken_ms"`
	Submitted    bool      `json:"submitted"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// AuditRepository reads the conductor's local audit store. Writes happen in
// the queue workers.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// ListSecurityEvents returns a session's violations in observation order.
func (r *AuditRepository) ListSecurityEvents(ctx context.Context, sessionID uuid.UUID) ([]SecurityEventRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, event_type, detail, recorded_at
		 FROM security_events
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SecurityEventRow
	for rows.Next() {
		var e SecurityEventRow
		if err := rows.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Detail, &e.RecordedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListResponseAudit returns a session's submission attempts in question order.
func (r *AuditRepository) ListResponseAudit(ctx context.Context, sessionID uuid.UUID) ([]ResponseAuditRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, response_text, time_taken_ms, submitted, recorded_at
		 FROM response_audit
		 WHERE session_id = $1
		 ORDER BY recorded_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []ResponseAuditRow
	for rows.Next() {
		var a ResponseAuditRow
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.ResponseText, &a.TimeTaken, &a.Submitted, &a.RecordedAt); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
