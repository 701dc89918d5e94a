// internal/workers/mortgage/add-review-requirement/handler.go
package addreviewrequirement

import (
	"context"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "add-review-requirement"
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

// execute registers every reviewer. Registration is an upsert, so a redelivered job
// leaves the same slots behind.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	for _, r := range input.Reviewers {
		required := true
		if r.Required != nil {
			required = *r.Required
		}
		err := h.service.AddReviewRequirement(ctx, models.DocumentReviewRequirement{
			ApplicationID:  input.ApplicationID,
			DocumentID:     input.DocumentID,
			Party:          r.Party,
			OrganizationID: r.OrganizationID,
			Required:       required,
		})
		if err != nil {
			return nil, err
		}
	}

	cleared, err := h.service.IsDocumentCleared(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	return &Output{
		DocumentID:          input.DocumentID,
		ReviewersRegistered: len(input.Reviewers),
		DocumentCleared:     cleared,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
