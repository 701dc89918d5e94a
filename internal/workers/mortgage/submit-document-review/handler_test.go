// internal/workers/mortgage/submit-document-review/handler_test.go
package submitdocumentreview

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

func newTestHandler(t *testing.T) *Handler {
	ctx := context.Background()
	svc, _ := mortgagetest.NewService(t)
	app, err := svc.CreateApplication(ctx, lifecycle.NewApplication{BorrowerID: "b-1", PropertyID: "p-1"})
	require.NoError(t, err)

	for _, req := range []models.DocumentReviewRequirement{
		{ApplicationID: app.ID, DocumentID: "valuation", Party: models.PartyInternal, Required: true},
		{ApplicationID: app.ID, DocumentID: "valuation", Party: models.PartyBank, OrganizationID: "bank-1", Required: true},
	} {
		require.NoError(t, svc.AddReviewRequirement(ctx, req))
	}
	return NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))
}

func TestHandler_Execute_ConsensusClearsDocument(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	out, err := h.Execute(ctx, &Input{DocumentID: "valuation", Party: models.PartyInternal, Decision: models.ReviewApproved})
	require.NoError(t, err)
	assert.False(t, out.DocumentCleared, "bank has not reviewed yet")

	out, err = h.Execute(ctx, &Input{
		DocumentID:     "valuation",
		Party:          models.PartyBank,
		OrganizationID: "bank-1",
		Decision:       models.ReviewChangesRequested,
		Concerns:       []models.Concern{{Field: "floorArea", Issue: "does not match survey"}},
	})
	require.NoError(t, err)
	assert.False(t, out.DocumentCleared)

	out, err = h.Execute(ctx, &Input{DocumentID: "valuation", Party: models.PartyBank, OrganizationID: "bank-1", Decision: models.ReviewApproved})
	require.NoError(t, err)
	assert.True(t, out.DocumentCleared)
	assert.Equal(t, models.ReviewApproved, out.Decision)
}

func TestHandler_Execute_RejectsWaiverDecision(t *testing.T) {
	h := newTestHandler(t)
	_, err := h.Execute(context.Background(), &Input{DocumentID: "valuation", Party: models.PartyInternal, Decision: models.ReviewWaived})
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestHandler_InputValidation(t *testing.T) {
	tests := []struct {
		name      string
		variables map[string]interface{}
		wantErr   bool
	}{
		{
			name:      "valid",
			variables: map[string]interface{}{"documentId": "d", "party": "LEGAL", "decision": "REJECTED"},
		},
		{
			name:      "pending cannot be submitted",
			variables: map[string]interface{}{"documentId": "d", "party": "LEGAL", "decision": "PENDING"},
			wantErr:   true,
		},
		{
			name: "concern without issue",
			variables: map[string]interface{}{
				"documentId": "d", "party": "LEGAL", "decision": "REJECTED",
				"concerns": []map[string]interface{}{{"field": "signature"}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.variables)
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Type: TaskType, Variables: string(raw)}}
			var input Input
			err := camunda.DecodeInput(job, GetInputSchema(), &input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
