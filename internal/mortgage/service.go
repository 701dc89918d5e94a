package mortgage

import (
	"context"
	"encoding/json"
	"time"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/observability"
	"mortgage-workflow/internal/lifecycle"
	"mortgage-workflow/internal/models"
	"mortgage-workflow/internal/review"
	"mortgage-workflow/internal/schedule"
	"mortgage-workflow/internal/underwriting"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// Components are the wired parts the facade delegates to.
type Components struct {
	Engine       *lifecycle.Engine
	Reviews      *review.Orchestrator
	Underwriting *underwriting.Service
	Ledger       *schedule.Ledger
	Auditor      *audit.Auditor
}

// Service is the single entry point workers and tools call.
type Service struct {
	engine       *lifecycle.Engine
	reviews      *review.Orchestrator
	underwriting *underwriting.Service
	ledger       *schedule.Ledger
	auditor      *audit.Auditor
	obs          *observability.Observability
	logger       logger.Logger
}

type Option func(*Service)

// WithObservability records a span and a command metric for every call.
func WithObservability(obs *observability.Observability) Option {
	return func(s *Service) { s.obs = obs }
}

func NewService(c Components, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		engine:       c.Engine,
		reviews:      c.Reviews,
		underwriting: c.Underwriting,
		ledger:       c.Ledger,
		auditor:      c.Auditor,
		logger:       log.WithFields(map[string]interface{}{"component": "mortgage-service"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// observe wraps a command with a span and the command counter.
func (s *Service) observe(ctx context.Context, command string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	if s.obs == nil {
		return fn(ctx)
	}
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "mortgage."+command, attrs...)
	defer span.End()

	err := fn(ctx)
	result := "success"
	if err != nil {
		result = string(errors.CodeOf(err))
		span.RecordError(err)
	}
	s.obs.RecordCommand(ctx, command, result, time.Since(start))
	return err
}

// ==========================
// Lifecycle
// ==========================

func (s *Service) CreateApplication(ctx context.Context, in lifecycle.NewApplication) (*models.MortgageApplication, error) {
	var app *models.MortgageApplication
	err := s.observe(ctx, "createApplication", func(ctx context.Context) error {
		var err error
		app, err = s.engine.CreateApplication(ctx, in)
		return err
	})
	return app, err
}

func (s *Service) GetApplication(ctx context.Context, applicationID string) (*models.MortgageApplication, error) {
	return s.engine.GetApplication(ctx, applicationID)
}

// AttemptTransition returns the application's state after the attempt, which is unchanged on error.
func (s *Service) AttemptTransition(ctx context.Context, applicationID string, event models.Event, transitionContext json.RawMessage, triggeredBy string) (models.State, error) {
	var state models.State
	err := s.observe(ctx, "attemptTransition", func(ctx context.Context) error {
		var err error
		state, err = s.engine.AttemptTransition(ctx, applicationID, event, transitionContext, triggeredBy)
		return err
	}, attribute.String("application.id", applicationID), attribute.String("event", string(event)))
	return state, err
}

func (s *Service) GetHistory(ctx context.Context, applicationID string) ([]models.TransitionRecord, error) {
	return s.engine.GetHistory(ctx, applicationID)
}

// VerifyIntegrity replays the application's log and compares it with the stored state.
func (s *Service) VerifyIntegrity(ctx context.Context, applicationID string) error {
	return s.observe(ctx, "verifyIntegrity", func(ctx context.Context) error {
		return s.auditor.VerifyApplication(ctx, applicationID)
	}, attribute.String("application.id", applicationID))
}

// SweepIntegrity verifies every application.
func (s *Service) SweepIntegrity(ctx context.Context) (*audit.Report, error) {
	return s.auditor.Sweep(ctx)
}

// ==========================
// Document reviews
// ==========================

func (s *Service) AddReviewRequirement(ctx context.Context, req models.DocumentReviewRequirement) error {
	return s.observe(ctx, "addReviewRequirement", func(ctx context.Context) error {
		if _, err := s.engine.GetApplication(ctx, req.ApplicationID); err != nil {
			return err
		}
		return s.reviews.AddRequirement(ctx, req)
	})
}

func (s *Service) SubmitReview(ctx context.Context, in review.SubmitInput) (*models.DocumentReview, error) {
	var out *models.DocumentReview
	err := s.observe(ctx, "submitReview", func(ctx context.Context) error {
		var err error
		out, err = s.reviews.SubmitReview(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) WaiveReview(ctx context.Context, documentID string, party models.Party, organizationID, reason string) (*models.DocumentReview, error) {
	var out *models.DocumentReview
	err := s.observe(ctx, "waiveReview", func(ctx context.Context) error {
		var err error
		out, err = s.reviews.Waive(ctx, documentID, party, organizationID, reason)
		return err
	})
	return out, err
}

func (s *Service) IsDocumentCleared(ctx context.Context, documentID string) (bool, error) {
	return s.reviews.IsCleared(ctx, documentID)
}

// ==========================
// Underwriting
// ==========================

// EvaluateUnderwriting runs rs, or the registered rule set for rulesVersion when rs is nil.
func (s *Service) EvaluateUnderwriting(ctx context.Context, snapshot underwriting.Snapshot, rs *underwriting.RuleSet, rulesVersion string) (*models.UnderwritingDecision, error) {
	var out *models.UnderwritingDecision
	err := s.observe(ctx, "evaluateUnderwriting", func(ctx context.Context) error {
		if _, err := s.engine.GetApplication(ctx, snapshot.ApplicationID); err != nil {
			return err
		}
		var err error
		out, err = s.underwriting.Evaluate(ctx, snapshot, rs, rulesVersion)
		return err
	}, attribute.String("application.id", snapshot.ApplicationID))
	return out, err
}

func (s *Service) ManualUnderwritingReview(ctx context.Context, in underwriting.ManualReviewInput) (*models.UnderwritingDecision, error) {
	var out *models.UnderwritingDecision
	err := s.observe(ctx, "manualUnderwritingReview", func(ctx context.Context) error {
		var err error
		out, err = s.underwriting.ManualReview(ctx, in)
		return err
	})
	return out, err
}

func (s *Service) SatisfyCondition(ctx context.Context, applicationID, code, satisfiedBy, evidence string) (*models.ConditionSatisfaction, error) {
	var out *models.ConditionSatisfaction
	err := s.observe(ctx, "satisfyCondition", func(ctx context.Context) error {
		var err error
		out, err = s.underwriting.SatisfyCondition(ctx, applicationID, code, satisfiedBy, evidence)
		return err
	})
	return out, err
}

func (s *Service) UnderwritingStatus(ctx context.Context, applicationID string) (underwriting.Status, error) {
	return s.underwriting.Status(ctx, applicationID)
}

// ==========================
// Schedules and payments
// ==========================

// GenerateSchedule amortizes and persists a schedule. Nothing is written when generation fails.
func (s *Service) GenerateSchedule(ctx context.Context, p schedule.GenerateParams) (*models.PaymentSchedule, error) {
	var out *models.PaymentSchedule
	err := s.observe(ctx, "generateSchedule", func(ctx context.Context) error {
		if p.ApplicationID != "" {
			if _, err := s.engine.GetApplication(ctx, p.ApplicationID); err != nil {
				return err
			}
		}
		var err error
		out, err = s.ledger.CreateSchedule(ctx, p)
		return err
	})
	return out, err
}

func (s *Service) RecordPayment(ctx context.Context, installmentID string, amount decimal.Decimal, reference string) (*schedule.PaymentResult, error) {
	var out *schedule.PaymentResult
	err := s.observe(ctx, "recordPayment", func(ctx context.Context) error {
		var err error
		out, err = s.ledger.RecordPayment(ctx, installmentID, amount, reference)
		return err
	}, attribute.String("installment.id", installmentID))
	return out, err
}

func (s *Service) WaiveInstallment(ctx context.Context, installmentID, reason string) (*models.Installment, error) {
	var out *models.Installment
	err := s.observe(ctx, "waiveInstallment", func(ctx context.Context) error {
		var err error
		out, err = s.ledger.Waive(ctx, installmentID, reason)
		return err
	})
	return out, err
}

// MarkOverdue flags every unsettled installment past due at now and returns how many changed.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.observe(ctx, "markOverdue", func(ctx context.Context) error {
		var err error
		n, err = s.ledger.MarkOverdue(ctx, now)
		return err
	})
	return n, err
}
