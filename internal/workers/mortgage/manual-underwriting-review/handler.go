// internal/workers/mortgage/manual-underwriting-review/handler.go
package manualunderwritingreview

import (
	"context"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/underwriting"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "manual-underwriting-review"
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
	d, err := h.service.ManualUnderwritingReview(ctx, underwriting.ManualReviewInput{
		DecisionID: input.DecisionID,
		Decision:   input.Decision,
		Notes:      input.Notes,
		Conditions: input.Conditions,
		ReviewedBy: input.ReviewedBy,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("underwriting decision overridden", map[string]interface{}{
		"applicationId": d.ApplicationID,
		"decisionId":    d.ID,
		"supersedes":    d.SupersedesID,
		"decision":      d.Decision,
		"reviewedBy":    input.ReviewedBy,
	})

	return &Output{
		DecisionID:   d.ID,
		Decision:     d.Decision,
		SupersedesID: d.SupersedesID,
		Conditions:   d.Conditions,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
