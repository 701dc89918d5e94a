// Package audit is the append-only transition log and the integrity checks that replay it.
package audit

import (
	"context"
	"fmt"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"
)

// Log appends transition records and replays them in sequence order.
type Log interface {
	// Append assigns the record's per-application Seq.
	Append(ctx context.Context, rec *models.TransitionRecord) error
	Replay(ctx context.Context, applicationID string) ([]models.TransitionRecord, error)
}

// Fold replays successful records from the initial state.
// A record whose FromState does not continue the chain is an integrity violation.
func Fold(applicationID string, records []models.TransitionRecord) (models.State, error) {
	state := models.InitialState
	for _, rec := range records {
		if !rec.Success {
			continue
		}
		if rec.FromState != state {
			return state, errors.NewIntegrityViolationError(applicationID,
				fmt.Sprintf("seq %d from %s", rec.Seq, rec.FromState), string(state))
		}
		state = rec.ToState
	}
	return state, nil
}

// Verify compares the stored state against the replayed one.
func Verify(app *models.MortgageApplication, records []models.TransitionRecord) error {
	replayed, err := Fold(app.ID, records)
	if err != nil {
		return err
	}
	if replayed != app.CurrentState {
		return errors.NewIntegrityViolationError(app.ID, string(app.CurrentState), string(replayed))
	}
	return nil
}
