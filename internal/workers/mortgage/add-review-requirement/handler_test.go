// internal/workers/mortgage/add-review-requirement/handler_test.go
package addreviewrequirement

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
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/mortgage/mortgagetest"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func boolPtr(v bool) *bool { return &v }

func newTestHandler(t *testing.T) (*Handler, *mortgage.Service, string) {
	svc, _ := mortgagetest.NewService(t)
	app, err := svc.CreateApplication(context.Background(), lifecycle.NewApplication{BorrowerID: "b-1", PropertyID: "p-1"})
	require.NoError(t, err)
	return NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t)), svc, app.ID
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_RegistersPendingReviewers(t *testing.T) {
	h, svc, appID := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: appID,
		DocumentID:    "title-deed",
		Reviewers: []Reviewer{
			{Party: models.PartyInternal},
			{Party: models.PartyLegal, OrganizationID: "law-firm-1"},
			{Party: models.PartyInsurer, Required: boolPtr(false)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.ReviewersRegistered)
	assert.False(t, out.DocumentCleared)

	cleared, err := svc.IsDocumentCleared(context.Background(), "title-deed")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestHandler_Execute_OptionalOnlyIsCleared(t *testing.T) {
	h, _, appID := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{
		ApplicationID: appID,
		DocumentID:    "brochure",
		Reviewers:     []Reviewer{{Party: models.PartyDeveloper, Required: boolPtr(false)}},
	})
	require.NoError(t, err)
	assert.True(t, out.DocumentCleared)
}

func TestHandler_Execute_UnknownApplication(t *testing.T) {
	h, _, _ := newTestHandler(t)

	_, err := h.Execute(context.Background(), &Input{
		ApplicationID: "missing",
		DocumentID:    "title-deed",
		Reviewers:     []Reviewer{{Party: models.PartyBank}},
	})
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestHandler_InputValidation(t *testing.T) {
	variables, _ := json.Marshal(map[string]interface{}{
		"applicationId": "app-1",
		"documentId":    "doc-1",
		"reviewers":     []map[string]interface{}{{"party": "NOTARY"}},
	})
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Type: TaskType, Variables: string(variables)}}

	var input Input
	err := camunda.DecodeInput(job, GetInputSchema(), &input)
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}
