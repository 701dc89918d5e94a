// internal/workers/mortgage/mark-overdue-installments/handler_test.go
package markoverdueinstallments

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
	"mortgage-workflow/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Execute(t *testing.T) {
	ctx := context.Background()
	svc, _ := mortgagetest.NewService(t)
	app, err := svc.CreateApplication(ctx, lifecycle.NewApplication{BorrowerID: "b", PropertyID: "p"})
	require.NoError(t, err)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	_, err = svc.GenerateSchedule(ctx, schedule.GenerateParams{
		ApplicationID:   app.ID,
		Purpose:         models.PurposeEquity,
		TotalAmount:     mortgagetest.Money("3000"),
		DurationMonths:  3,
		Frequency:       models.FrequencyMonthly,
		StartDate:       start,
		GracePeriodDays: 5,
	})
	require.NoError(t, err)

	h := NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))

	// Nothing is due before the first due date.
	out, err := h.Execute(ctx, &Input{AsOf: "2025-02-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.UpdatedCount)

	// All three installments are past due and past grace.
	out, err = h.Execute(ctx, &Input{AsOf: "2025-06-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 3, out.UpdatedCount)
	assert.Equal(t, "2025-06-01T00:00:00Z", out.AsOf)

	// A second sweep at the same instant changes nothing.
	out, err = h.Execute(ctx, &Input{AsOf: "2025-06-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.UpdatedCount)
}

func TestHandler_Execute_BadTimestamp(t *testing.T) {
	svc, _ := mortgagetest.NewService(t)
	h := NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{AsOf: "yesterday"})
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}
