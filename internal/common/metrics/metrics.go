// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

// Lifecycle
var (
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_transitions_total",
			Help: "Transition attempts by event and result code",
		},
		[]string{"event", "result"},
	)

	GuardFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_guard_failures_total",
			Help: "Transition attempts rejected by a guard",
		},
		[]string{"guard"},
	)

	IntegrityViolationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mortgage_integrity_violations_total",
			Help: "Applications whose stored state diverges from their audit log",
		},
	)

	AuditIndexFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mortgage_audit_index_failures_total",
			Help: "Transition records that could not be indexed for search",
		},
	)
)

// Reviews and underwriting
var (
	ReviewsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_document_reviews_total",
			Help: "Document review decisions by party and decision",
		},
		[]string{"party", "decision"},
	)

	UnderwritingDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_underwriting_decisions_total",
			Help: "Underwriting decisions by outcome",
		},
		[]string{"decision", "manual"},
	)
)

// Schedules and ledger
var (
	SchedulesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_schedules_generated_total",
			Help: "Schedule generation attempts by frequency and result",
		},
		[]string{"frequency", "result"},
	)

	PaymentsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mortgage_payments_recorded_total",
			Help: "Payments applied to installments by resulting status",
		},
		[]string{"status"},
	)

	InstallmentsOverdueTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mortgage_installments_marked_overdue_total",
			Help: "Installments flagged overdue by payments or the sweep",
		},
	)
)

// Result returns the metric label for an outcome error.
func Result(code string) string {
	if code == "" {
		return "success"
	}
	return code
}
