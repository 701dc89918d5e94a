// internal/workers/mortgage/verify-application-integrity/handler_test.go
package verifyapplicationintegrity

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage/mortgagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Execute(t *testing.T) {
	ctx := context.Background()
	svc, backend := mortgagetest.NewService(t)
	h := NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))

	app, err := svc.CreateApplication(ctx, lifecycle.NewApplication{BorrowerID: "b", PropertyID: "p"})
	require.NoError(t, err)
	_, err = svc.AttemptTransition(ctx, app.ID, models.EventStartPreApproval, nil, "officer")
	require.NoError(t, err)

	out, err := h.Execute(ctx, &Input{ApplicationID: app.ID})
	require.NoError(t, err)
	assert.True(t, out.IntegrityVerified)
	assert.Equal(t, models.StatePreApproval, out.CurrentState)
	assert.Equal(t, 1, out.TransitionCount)

	require.NoError(t, backend.Applications.Create(ctx, &models.MortgageApplication{
		ID: "tampered", BorrowerID: "b", PropertyID: "p", CurrentState: models.StateDisbursement, Version: 1,
	}))
	_, err = h.Execute(ctx, &Input{ApplicationID: "tampered"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrIntegrityViolation))

	bpmn := errors.ConvertToBPMNError(errors.AsStandard(err))
	assert.Equal(t, string(errors.ErrCodeIntegrityViolation), bpmn.Code)
	assert.Equal(t, 0, bpmn.Retries)
}

func TestHandler_Execute_UnknownApplication(t *testing.T) {
	svc, _ := mortgagetest.NewService(t)
	h := NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{ApplicationID: "missing"})
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}
