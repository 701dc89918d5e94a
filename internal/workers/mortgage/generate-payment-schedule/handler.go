// internal/workers/mortgage/generate-payment-schedule/handler.go
package generatepaymentschedule

import (
	"context"
	"time"

	"mortgage-workflow/internal/common/camunda"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/mortgage"
	"mortgage-workflow/internal/schedule"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "generate-payment-schedule"

	dateLayout = "2006-01-02"
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
	params, err := h.params(input)
	if err != nil {
		return nil, err
	}

	sched, err := h.service.GenerateSchedule(ctx, params)
	if err != nil {
		return nil, err
	}
	return summarize(sched), nil
}

func (h *Handler) params(input *Input) (schedule.GenerateParams, error) {
	total, err := decimal.NewFromString(input.TotalAmount)
	if err != nil {
		return schedule.GenerateParams{}, errors.NewValidationError("totalAmount: " + err.Error())
	}
	rate, err := decimal.NewFromString(input.InterestRate)
	if err != nil {
		return schedule.GenerateParams{}, errors.NewValidationError("interestRate: " + err.Error())
	}
	fee := decimal.Zero
	if input.InstallmentFee != "" {
		if fee, err = decimal.NewFromString(input.InstallmentFee); err != nil {
			return schedule.GenerateParams{}, errors.NewValidationError("installmentFee: " + err.Error())
		}
	}
	start, err := parseDate(input.StartDate)
	if err != nil {
		return schedule.GenerateParams{}, err
	}
	grace := h.config.GracePeriodDays
	if input.GracePeriodDays != nil {
		grace = *input.GracePeriodDays
	}

	return schedule.GenerateParams{
		ApplicationID:   input.ApplicationID,
		Purpose:         input.Purpose,
		TotalAmount:     total,
		DurationMonths:  input.DurationMonths,
		InterestRate:    rate,
		Frequency:       input.Frequency,
		StartDate:       start,
		GracePeriodDays: grace,
		DailyInterest:   input.DailyInterest,
		InstallmentFee:  fee,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.NewValidationError("startDate must be YYYY-MM-DD or RFC 3339")
	}
	return t.UTC(), nil
}

func summarize(sched *models.PaymentSchedule) *Output {
	out := &Output{
		ScheduleID:       sched.ID,
		InstallmentCount: len(sched.Installments),
		InstallmentIDs:   make([]string, 0, len(sched.Installments)),
	}
	interest, payable := decimal.Zero, decimal.Zero
	for _, inst := range sched.Installments {
		out.InstallmentIDs = append(out.InstallmentIDs, inst.ID)
		interest = interest.Add(inst.AmountDue.Interest)
		payable = payable.Add(inst.AmountDue.Total())
	}
	out.TotalInterest = interest.StringFixed(2)
	out.TotalPayable = payable.StringFixed(2)
	if n := len(sched.Installments); n > 0 {
		out.InstallmentAmount = sched.Installments[0].AmountDue.Total().StringFixed(2)
		out.FirstDueDate = sched.Installments[0].DueDate.Format(dateLayout)
		out.FinalDueDate = sched.Installments[n-1].DueDate.Format(dateLayout)
	}
	return out
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
