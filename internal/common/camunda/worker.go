// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"mortgage-workflow/internal/common/config"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/common/validation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobResponder completes jobs with their output or hands failures to the BPMN error mapping.
type JobResponder struct {
	taskType string
	errors   *errors.ErrorHandler
	logger   logger.Logger
}

func NewJobResponder(taskType string, log logger.Logger) *JobResponder {
	return &JobResponder{
		taskType: taskType,
		errors:   errors.NewErrorHandler(log),
		logger:   log,
	}
}

// Begin marks a job active and returns the func that records its duration.
func (r *JobResponder) Begin() func() {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	return func() {
		metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
	}
}

// Complete sends output as the job's result variables.
func (r *JobResponder) Complete(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		r.Fail(ctx, client, job, errors.NewValidationError("output is not serializable: "+err.Error()))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.logger.Info("job completed successfully", map[string]interface{}{"jobKey": job.Key})
}

// Fail retries retryable codes and throws a BPMN error for business outcomes.
func (r *JobResponder) Fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(errors.CodeOf(err))).Inc()
	r.errors.HandleJobError(ctx, client, job, err)
}

// DecodeInput validates the job variables against schema and unmarshals them into out.
func DecodeInput(job entities.Job, schema validation.JSONSchema, out interface{}) error {
	raw := []byte(job.GetVariables())
	res, err := validation.Validate(raw, schema)
	if err != nil {
		return errors.NewValidationError(err.Error())
	}
	if !res.Valid {
		return errors.NewValidationError(strings.Join(res.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.NewValidationError("parse input: " + err.Error())
	}
	return nil
}

// StartWorker opens a job worker for taskType unless it is disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return w
}
