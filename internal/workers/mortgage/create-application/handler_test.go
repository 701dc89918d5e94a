// internal/workers/mortgage/create-application/handler_test.go
package createapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage/mortgagetest"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)
	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:       1,
		Type:      TaskType,
		Retries:   3,
		Variables: string(variablesJSON),
	}}
}

func newTestHandler(t *testing.T) *Handler {
	svc, _ := mortgagetest.NewService(t)
	return NewHandler(&Config{Timeout: 5 * time.Second}, svc, logger.NewTestLogger(t))
}

func TestHandler_Execute_CreatesInInitialState(t *testing.T) {
	h := newTestHandler(t)

	out, err := h.Execute(context.Background(), &Input{BorrowerID: "borrower-1", PropertyID: "property-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ApplicationID)
	assert.True(t, out.Created)
	assert.Equal(t, models.StateProvisionalOfferAccepted, out.CurrentState)
	assert.Equal(t, int64(1), out.Version)

	_, err = time.Parse(time.RFC3339, out.CreatedAt)
	assert.NoError(t, err)
}

func TestHandler_Execute_RedeliveryIsIdempotent(t *testing.T) {
	h := newTestHandler(t)
	input := &Input{ApplicationID: "app-42", BorrowerID: "borrower-1", PropertyID: "property-1"}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.ApplicationID, second.ApplicationID)

	_, err = h.Execute(context.Background(), &Input{ApplicationID: "app-42", BorrowerID: "someone-else", PropertyID: "property-1"})
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestHandler_InputValidation(t *testing.T) {
	var input Input
	err := camunda.DecodeInput(createMockJob(map[string]interface{}{"borrowerId": "b-1"}), GetInputSchema(), &input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "propertyId")

	err = camunda.DecodeInput(createMockJob(map[string]interface{}{"borrowerId": "b-1", "propertyId": "p-1"}), GetInputSchema(), &input)
	require.NoError(t, err)
	assert.Equal(t, "p-1", input.PropertyID)
}
