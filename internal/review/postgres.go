package review

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// PostgresStore persists reviews keyed uniquely by (document_id, party, organization_id).
// A missing organization is stored as the empty string so the unique key holds.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) UpsertRequirement(ctx context.Context, req models.DocumentReviewRequirement) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_review_requirements (application_id, document_id, party, organization_id, required)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (document_id, party, organization_id)
		DO UPDATE SET required = EXCLUDED.required, application_id = EXCLUDED.application_id`,
		req.ApplicationID, req.DocumentID, req.Party, req.OrganizationID, req.Required,
	)
	if err != nil {
		return errors.NewStorageFailureError("upsert review requirement", err)
	}
	return nil
}

func (s *PostgresStore) ListRequirements(ctx context.Context, documentID string) ([]models.DocumentReviewRequirement, error) {
	return s.queryRequirements(ctx, `
		SELECT application_id, document_id, party, organization_id, required
		FROM document_review_requirements
		WHERE document_id = $1
		ORDER BY party, organization_id`, documentID)
}

func (s *PostgresStore) ListApplicationRequirements(ctx context.Context, applicationID string) ([]models.DocumentReviewRequirement, error) {
	return s.queryRequirements(ctx, `
		SELECT application_id, document_id, party, organization_id, required
		FROM document_review_requirements
		WHERE application_id = $1
		ORDER BY document_id, party, organization_id`, applicationID)
}

func (s *PostgresStore) queryRequirements(ctx context.Context, query, arg string) ([]models.DocumentReviewRequirement, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, errors.NewStorageFailureError("list review requirements", err)
	}
	defer rows.Close()

	var out []models.DocumentReviewRequirement
	for rows.Next() {
		var r models.DocumentReviewRequirement
		if err := rows.Scan(&r.ApplicationID, &r.DocumentID, &r.Party, &r.OrganizationID, &r.Required); err != nil {
			return nil, errors.NewStorageFailureError("scan review requirement", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate review requirements", err)
	}
	return out, nil
}

func (s *PostgresStore) GetReview(ctx context.Context, key models.ReviewKey) (*models.DocumentReview, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT document_id, party, organization_id, decision, comments, concerns, reviewed_at
		FROM document_reviews
		WHERE document_id = $1 AND party = $2 AND organization_id = $3`,
		key.DocumentID, key.Party, key.OrganizationID)
	r, err := scanReview(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load document review", err)
	}
	return r, nil
}

// UpsertReview overwrites the current decision for the key; it never adds a second row.
func (s *PostgresStore) UpsertReview(ctx context.Context, review models.DocumentReview) error {
	concerns, err := json.Marshal(review.Concerns)
	if err != nil {
		return errors.NewValidationError("concerns are not serializable: " + err.Error())
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_reviews (document_id, party, organization_id, decision, comments, concerns, reviewed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_id, party, organization_id)
		DO UPDATE SET decision = EXCLUDED.decision,
		              comments = EXCLUDED.comments,
		              concerns = EXCLUDED.concerns,
		              reviewed_at = EXCLUDED.reviewed_at`,
		review.DocumentID, review.Party, review.OrganizationID, review.Decision,
		review.Comments, concerns, review.ReviewedAt,
	)
	if err != nil {
		return errors.NewStorageFailureError("upsert document review", err)
	}
	return nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, documentID string) ([]models.DocumentReview, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, party, organization_id, decision, comments, concerns, reviewed_at
		FROM document_reviews
		WHERE document_id = $1
		ORDER BY party, organization_id`, documentID)
	if err != nil {
		return nil, errors.NewStorageFailureError("list document reviews", err)
	}
	defer rows.Close()

	var out []models.DocumentReview
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, errors.NewStorageFailureError("scan document review", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate document reviews", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(sc scanner) (*models.DocumentReview, error) {
	var r models.DocumentReview
	var comments sql.NullString
	var concerns []byte
	if err := sc.Scan(&r.DocumentID, &r.Party, &r.OrganizationID, &r.Decision, &comments, &concerns, &r.ReviewedAt); err != nil {
		return nil, err
	}
	r.Comments = comments.String
	if len(concerns) > 0 {
		if err := json.Unmarshal(concerns, &r.Concerns); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
