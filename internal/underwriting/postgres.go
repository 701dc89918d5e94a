package underwriting

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// PostgresStore is the append-only decision ledger. Rows are never updated.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const decisionColumns = `id, application_id, decision, score, reasons, conditions, rules_version,
	rule_results, manual, supersedes_id, notes, evaluated_at`

func (s *PostgresStore) SaveDecision(ctx context.Context, d *models.UnderwritingDecision) error {
	reasons, err := json.Marshal(d.Reasons)
	if err != nil {
		return errors.NewValidationError("reasons are not serializable: " + err.Error())
	}
	conditions, err := json.Marshal(d.Conditions)
	if err != nil {
		return errors.NewValidationError("conditions are not serializable: " + err.Error())
	}
	results, err := json.Marshal(d.RuleResults)
	if err != nil {
		return errors.NewValidationError("rule results are not serializable: " + err.Error())
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO underwriting_decisions (`+decisionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		d.ID, d.ApplicationID, d.Decision, nullFloat(d.Score), reasons, conditions, d.RulesVersion,
		results, d.Manual, nullString(d.SupersedesID), nullString(d.Notes), d.EvaluatedAt,
	)
	if err != nil {
		return errors.NewStorageFailureError("insert underwriting decision", err)
	}
	return nil
}

func (s *PostgresStore) GetDecision(ctx context.Context, decisionID string) (*models.UnderwritingDecision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM underwriting_decisions
		WHERE id = $1`, decisionID)
	d, err := scanDecision(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("underwriting decision", decisionID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load underwriting decision", err)
	}
	return d, nil
}

func (s *PostgresStore) CurrentDecision(ctx context.Context, applicationID string) (*models.UnderwritingDecision, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+decisionColumns+`
		FROM underwriting_decisions
		WHERE application_id = $1
		ORDER BY evaluated_at DESC, seq DESC
		LIMIT 1`, applicationID)
	d, err := scanDecision(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("underwriting decision", applicationID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load current underwriting decision", err)
	}
	return d, nil
}

func (s *PostgresStore) ListDecisions(ctx context.Context, applicationID string) ([]models.UnderwritingDecision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+`
		FROM underwriting_decisions
		WHERE application_id = $1
		ORDER BY evaluated_at, seq`, applicationID)
	if err != nil {
		return nil, errors.NewStorageFailureError("list underwriting decisions", err)
	}
	defer rows.Close()

	var out []models.UnderwritingDecision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, errors.NewStorageFailureError("scan underwriting decision", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate underwriting decisions", err)
	}
	return out, nil
}

func (s *PostgresStore) SaveSatisfaction(ctx context.Context, sat models.ConditionSatisfaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO condition_satisfactions (application_id, code, satisfied_by, evidence, satisfied_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (application_id, code)
		DO UPDATE SET satisfied_by = EXCLUDED.satisfied_by,
		              evidence = EXCLUDED.evidence,
		              satisfied_at = EXCLUDED.satisfied_at`,
		sat.ApplicationID, sat.Code, sat.SatisfiedBy, nullString(sat.Evidence), sat.SatisfiedAt,
	)
	if err != nil {
		return errors.NewStorageFailureError("upsert condition satisfaction", err)
	}
	return nil
}

func (s *PostgresStore) ListSatisfactions(ctx context.Context, applicationID string) ([]models.ConditionSatisfaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT application_id, code, satisfied_by, evidence, satisfied_at
		FROM condition_satisfactions
		WHERE application_id = $1
		ORDER BY code`, applicationID)
	if err != nil {
		return nil, errors.NewStorageFailureError("list condition satisfactions", err)
	}
	defer rows.Close()

	var out []models.ConditionSatisfaction
	for rows.Next() {
		var sat models.ConditionSatisfaction
		var evidence sql.NullString
		if err := rows.Scan(&sat.ApplicationID, &sat.Code, &sat.SatisfiedBy, &evidence, &sat.SatisfiedAt); err != nil {
			return nil, errors.NewStorageFailureError("scan condition satisfaction", err)
		}
		sat.Evidence = evidence.String
		out = append(out, sat)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate condition satisfactions", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(sc scanner) (*models.UnderwritingDecision, error) {
	var (
		d                           models.UnderwritingDecision
		score                       sql.NullFloat64
		supersedes, notes           sql.NullString
		reasons, conditions, result []byte
	)
	err := sc.Scan(&d.ID, &d.ApplicationID, &d.Decision, &score, &reasons, &conditions, &d.RulesVersion,
		&result, &d.Manual, &supersedes, &notes, &d.EvaluatedAt)
	if err != nil {
		return nil, err
	}
	if score.Valid {
		d.Score = floatPtr(score.Float64)
	}
	d.SupersedesID = supersedes.String
	d.Notes = notes.String
	if err := unmarshalJSON(reasons, &d.Reasons); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(conditions, &d.Conditions); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(result, &d.RuleResults); err != nil {
		return nil, err
	}
	return &d, nil
}

func unmarshalJSON(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
