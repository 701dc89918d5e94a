// internal/workers/mortgage/attempt-transition/handler.go
package attempttransition

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
	TaskType = "attempt-transition"
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

// Handle applies one lifecycle event. Guard and transition failures surface as BPMN errors
// so the process can route on them; lock and version conflicts are retried.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	done := h.responder.Begin()
	defer done()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := h.parseInput(job)
	if err != nil {
		h.responder.Fail(ctx, client, job, err)
		return
	}

	output, err := h.execute(ctx, input)
	if err != nil {
		h.responder.Fail(ctx, client, job, err)
		return
	}

	h.responder.Complete(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeInput(job, GetInputSchema(), &input); err != nil {
		return nil, err
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	triggeredBy := input.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = h.config.DefaultTriggeredBy
	}

	state, err := h.service.AttemptTransition(ctx, input.ApplicationID, models.Event(input.Event), input.Context, triggeredBy)
	if err != nil {
		h.logger.Warn("transition rejected", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"event":         input.Event,
			"state":         state,
			"error":         err.Error(),
		})
		return nil, err
	}

	return &Output{
		ApplicationID: input.ApplicationID,
		CurrentState:  state,
		Transitioned:  true,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
