package audit

import (
	"context"
	"database/sql"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so the lifecycle repository can append
// inside its own transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type PostgresLog struct {
	db *sql.DB
}

func NewPostgresLog(db *sql.DB) *PostgresLog {
	return &PostgresLog{db: db}
}

func (l *PostgresLog) Append(ctx context.Context, rec *models.TransitionRecord) error {
	return InsertRecord(ctx, l.db, rec)
}

// InsertRecord appends rec with the next per-application sequence number.
// The (application_id, seq) unique key rejects a concurrent writer that slipped past the lock.
func InsertRecord(ctx context.Context, q Querier, rec *models.TransitionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	var payload []byte
	if len(rec.Context) > 0 {
		payload = rec.Context
	}
	err := q.QueryRowContext(ctx, `
		INSERT INTO transition_records
			(id, application_id, seq, from_state, to_state, event, context, triggered_by,
			 success, error_code, error_message, occurred_at)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6, $7, $8, $9, $10, $11
		FROM transition_records
		WHERE application_id = $2
		RETURNING seq`,
		rec.ID, rec.ApplicationID, rec.FromState, rec.ToState, rec.Event, payload, rec.TriggeredBy,
		rec.Success, nullString(rec.ErrorCode), nullString(rec.ErrorMessage), rec.OccurredAt,
	).Scan(&rec.Seq)
	if err != nil {
		return errors.NewStorageFailureError("append transition record", err)
	}
	return nil
}

func (l *PostgresLog) Replay(ctx context.Context, applicationID string) ([]models.TransitionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, application_id, seq, from_state, to_state, event, context, triggered_by,
		       success, error_code, error_message, occurred_at
		FROM transition_records
		WHERE application_id = $1
		ORDER BY seq`, applicationID)
	if err != nil {
		return nil, errors.NewStorageFailureError("replay transition records", err)
	}
	defer rows.Close()

	var out []models.TransitionRecord
	for rows.Next() {
		var (
			rec           models.TransitionRecord
			payload       []byte
			code, message sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &rec.Seq, &rec.FromState, &rec.ToState, &rec.Event,
			&payload, &rec.TriggeredBy, &rec.Success, &code, &message, &rec.OccurredAt); err != nil {
			return nil, errors.NewStorageFailureError("scan transition record", err)
		}
		if len(payload) > 0 {
			rec.Context = payload
		}
		rec.ErrorCode = code.String
		rec.ErrorMessage = message.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate transition records", err)
	}
	return out, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
