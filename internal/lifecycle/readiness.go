package lifecycle

import (
	"context"

	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/review"
	"mortgage-workflow/internal/underwriting"
)

// ReadinessSource materializes the signals guards read.
type ReadinessSource interface {
	Readiness(ctx context.Context, applicationID string) (Readiness, error)
}

type ClearanceReader interface {
	ClearanceFor(ctx context.Context, applicationID string, party models.Party) (review.Clearance, error)
}

type UnderwritingReader interface {
	Status(ctx context.Context, applicationID string) (underwriting.Status, error)
}

type EquityReader interface {
	EquityStatus(ctx context.Context, applicationID string) (exists, settled bool, err error)
}

// Materializer reads already-persisted state from the review, underwriting and ledger stores.
type Materializer struct {
	reviews      ClearanceReader
	underwriting UnderwritingReader
	equity       EquityReader
}

func NewMaterializer(reviews ClearanceReader, uw UnderwritingReader, equity EquityReader) *Materializer {
	return &Materializer{reviews: reviews, underwriting: uw, equity: equity}
}

func (m *Materializer) Readiness(ctx context.Context, applicationID string) (Readiness, error) {
	var r Readiness
	var err error

	if r.Underwriting, err = m.underwriting.Status(ctx, applicationID); err != nil {
		return Readiness{}, err
	}
	if r.EquityScheduleFound, r.EquityFullyPaid, err = m.equity.EquityStatus(ctx, applicationID); err != nil {
		return Readiness{}, err
	}
	if r.InternalClearance, err = m.reviews.ClearanceFor(ctx, applicationID, models.PartyInternal); err != nil {
		return Readiness{}, err
	}
	if r.BankClearance, err = m.reviews.ClearanceFor(ctx, applicationID, models.PartyBank); err != nil {
		return Readiness{}, err
	}
	return r, nil
}
