// internal/workers/mortgage/create-application/handler.go
package createapplication

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "create-application"
)

type Handler struct {
	config    *Config
	service   *mortgage.Service
	responder *camunda.JobResponder
	logger    logger.Logger
}

func NewHandler(config *Config, svc *mortgage.Service, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		service:   svc,
		responder: camunda.NewJobResponder(TaskType, log),
		logger:    log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := h.responder.Begin()
	defer done()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeInput(job, GetInputSchema(), &input); err != nil {
		h.responder.Fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.responder.Fail(ctx, client, job, err)
		return
	}

	h.responder.Complete(ctx, client, job, output)
}

// execute is idempotent for redelivered jobs: an existing application with the same
// borrower and property is returned instead of failing on the duplicate id.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID != "" {
		existing, err := h.service.GetApplication(ctx, input.ApplicationID)
		switch {
		case err == nil:
			if existing.BorrowerID != input.BorrowerID || existing.PropertyID != input.PropertyID {
				return nil, errors.NewValidationError("applicationId " + input.ApplicationID + " belongs to a different borrower or property")
			}
			h.logger.Info("application already exists", map[string]interface{}{"applicationId": existing.ID})
			return toOutput(existing, false), nil
		case errors.CodeOf(err) != errors.ErrCodeNotFound:
			return nil, err
		}
	}

	app, err := h.service.CreateApplication(ctx, lifecycle.NewApplication{
		ID:         input.ApplicationID,
		TenantID:   input.TenantID,
		BorrowerID: input.BorrowerID,
		PropertyID: input.PropertyID,
	})
	if err != nil {
		return nil, err
	}
	return toOutput(app, true), nil
}

func toOutput(app *models.MortgageApplication, created bool) *Output {
	return &Output{
		ApplicationID: app.ID,
		CurrentState:  app.CurrentState,
		Version:       app.Version,
		Created:       created,
		CreatedAt:     app.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
