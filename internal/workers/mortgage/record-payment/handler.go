// internal/workers/mortgage/record-payment/handler.go
package recordpayment

import (
	"context"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/mortgage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "record-payment"
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
	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return nil, errors.NewValidationError("amount: " + err.Error())
	}

	res, err := h.service.RecordPayment(ctx, input.InstallmentID, amount, input.Reference)
	if err != nil {
		return nil, err
	}

	return &Output{
		PaymentID:         res.Payment.ID,
		InstallmentStatus: res.Installment.Status,
		AmountRemaining:   res.Installment.AmountRemaining.StringFixed(2),
		AppliedFees:       res.Payment.AppliedFees.StringFixed(2),
		AppliedInterest:   res.Payment.AppliedInterest.StringFixed(2),
		AppliedPrincipal:  res.Payment.AppliedPrincipal.StringFixed(2),
		Excess:            res.Excess.StringFixed(2),
		Duplicate:         res.Duplicate,
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
