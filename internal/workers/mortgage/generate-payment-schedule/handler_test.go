// internal/workers/mortgage/generate-payment-schedule/handler_test.go
package generatepaymentschedule

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage/mortgagetest"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestHandler(t *testing.T) (*Handler, string) {
	svc, _ := mortgagetest.NewService(t)
	app, err := svc.CreateApplication(context.Background(), lifecycle.NewApplication{BorrowerID: "b", PropertyID: "p"})
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: 5 * time.Second, GracePeriodDays: 5}, svc, logger.NewTestLogger(t)), app.ID
}

func createTestInput(appID string) *Input {
	return &Input{
		ApplicationID:  appID,
		Purpose:        models.PurposeMortgage,
		TotalAmount:    "1200000",
		DurationMonths: 12,
		InterestRate:   "12",
		Frequency:      models.FrequencyMonthly,
		StartDate:      "2025-01-31",
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_AmortizesMonthly(t *testing.T) {
	h, appID := newTestHandler(t)

	out, err := h.Execute(context.Background(), createTestInput(appID))
	require.NoError(t, err)
	assert.Equal(t, 12, out.InstallmentCount)
	assert.Len(t, out.InstallmentIDs, 12)
	assert.Equal(t, "106618.55", out.InstallmentAmount)
	assert.Equal(t, "79422.56", out.TotalInterest)
	assert.Equal(t, "1279422.56", out.TotalPayable)
	assert.Equal(t, "2025-02-28", out.FirstDueDate, "due dates clamp to month end")
	assert.Equal(t, "2026-01-31", out.FinalDueDate)
}

func TestHandler_Execute_Rejections(t *testing.T) {
	h, appID := newTestHandler(t)

	tests := []struct {
		name    string
		mutate  func(*Input)
		wantErr error
	}{
		{"custom frequency", func(in *Input) { in.Frequency = models.FrequencyCustom }, errors.ErrUnsupportedFrequency},
		{"quarterly must divide duration", func(in *Input) { in.Frequency = models.FrequencyQuarterly; in.DurationMonths = 10 }, errors.ErrValidation},
		{"bad start date", func(in *Input) { in.StartDate = "31/01/2025" }, errors.ErrValidation},
		{"unknown application", func(in *Input) { in.ApplicationID = "missing" }, errors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := createTestInput(appID)
			tt.mutate(input)
			_, err := h.Execute(context.Background(), input)
			assert.True(t, stderrors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestHandler_InputValidation_AmountsAreStrings(t *testing.T) {
	raw, _ := json.Marshal(map[string]interface{}{
		"purpose":        "EQUITY",
		"totalAmount":    1000.555,
		"durationMonths": 12,
		"interestRate":   "0",
		"frequency":      "MONTHLY",
		"startDate":      "2025-01-01",
	})
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 3, Type: TaskType, Variables: string(raw)}}

	var input Input
	err := camunda.DecodeInput(job, GetInputSchema(), &input)
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}
