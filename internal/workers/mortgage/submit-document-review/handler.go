// internal/workers/mortgage/submit-document-review/handler.go
package submitdocumentreview

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/review"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "submit-document-review"
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	rev, err := h.service.SubmitReview(ctx, review.SubmitInput{
		DocumentID:     input.DocumentID,
		Party:          input.Party,
		OrganizationID: input.OrganizationID,
		Decision:       input.Decision,
		Comments:       input.Comments,
		Concerns:       input.Concerns,
	})
	if err != nil {
		return nil, err
	}

	cleared, err := h.service.IsDocumentCleared(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	return &Output{
		DocumentID:      rev.DocumentID,
		Party:           rev.Party,
		Decision:        rev.Decision,
		ReviewedAt:      rev.ReviewedAt.Format(time.RFC3339),
		DocumentCleared: cleared,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
