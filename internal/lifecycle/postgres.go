package lifecycle

import (
	"context"
	"database/sql"
	stderrors "errors"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, app *models.MortgageApplication) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mortgage_applications
			(id, tenant_id, borrower_id, property_id, current_state, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		app.ID, app.TenantID, app.BorrowerID, app.PropertyID, app.CurrentState, app.Version, app.CreatedAt, app.UpdatedAt,
	)
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
		return errors.NewValidationError("application already exists: " + app.ID)
	}
	if err != nil {
		return errors.NewStorageFailureError("insert mortgage application", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, applicationID string) (*models.MortgageApplication, error) {
	var app models.MortgageApplication
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, borrower_id, property_id, current_state, version, created_at, updated_at
		FROM mortgage_applications
		WHERE id = $1`, applicationID,
	).Scan(&app.ID, &app.TenantID, &app.BorrowerID, &app.PropertyID, &app.CurrentState, &app.Version, &app.CreatedAt, &app.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("mortgage application", applicationID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load mortgage application", err)
	}
	return &app, nil
}

func (r *PostgresRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id FROM mortgage_applications
		WHERE id > $1
		ORDER BY id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, errors.NewStorageFailureError("list mortgage applications", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewStorageFailureError("scan application id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate application ids", err)
	}
	return ids, nil
}

// CommitTransition runs the optimistic state update and the audit insert in one transaction.
func (r *PostgresRepository) CommitTransition(ctx context.Context, app *models.MortgageApplication, expectedVersion int64, rec *models.TransitionRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageFailureError("begin transition", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE mortgage_applications
		SET current_state = $1, version = $2, updated_at = $3
		WHERE id = $4 AND version = $5`,
		app.CurrentState, app.Version, app.UpdatedAt, app.ID, expectedVersion,
	)
	if err != nil {
		return errors.NewStorageFailureError("update application state", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStorageFailureError("update application state", err)
	}
	if n == 0 {
		return errors.NewConcurrencyConflictError("mortgage application "+app.ID, expectedVersion)
	}

	if err := audit.InsertRecord(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageFailureError("commit transition", err)
	}
	return nil
}
