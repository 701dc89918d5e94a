package lifecycle

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"mortgage-workflow/internal/audit"
	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// NewApplication is the input to CreateApplication.
type NewApplication struct {
	ID         string `json:"id,omitempty"`
	TenantID   string `json:"tenantId"`
	BorrowerID string `json:"borrowerId"`
	PropertyID string `json:"propertyId"`
}

// Engine applies transitions. Every attempt on a known application leaves an audit record.
type Engine struct {
	repo      Repository
	log       audit.Log
	readiness ReadinessSource
	locker    lock.Locker
	notifiers []Notifier
	logger    logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

type Option func(*Engine)

// WithNotifier registers a post-commit sink such as the search indexer or the event publisher.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifiers = append(e.notifiers, n) }
}

func NewEngine(repo Repository, log audit.Log, readiness ReadinessSource, locker lock.Locker, lg logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:      repo,
		log:       log,
		readiness: readiness,
		locker:    locker,
		logger:    lg.WithFields(map[string]interface{}{"component": "transition-engine"}),
		tracer:    otel.Tracer("mortgage-workflow/lifecycle"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateApplication stores a new application in the initial state. Creation has no audit record:
// the fold of an empty log is the initial state.
func (e *Engine) CreateApplication(ctx context.Context, in NewApplication) (*models.MortgageApplication, error) {
	if strings.TrimSpace(in.BorrowerID) == "" {
		return nil, errors.NewValidationError("borrowerId is required")
	}
	if strings.TrimSpace(in.PropertyID) == "" {
		return nil, errors.NewValidationError("propertyId is required")
	}
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := e.now()
	app := &models.MortgageApplication{
		ID:           id,
		TenantID:     in.TenantID,
		BorrowerID:   in.BorrowerID,
		PropertyID:   in.PropertyID,
		CurrentState: models.InitialState,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.repo.Create(ctx, app); err != nil {
		return nil, err
	}
	e.logger.Info("application created", map[string]interface{}{"applicationId": id, "tenantId": in.TenantID})
	return app, nil
}

func (e *Engine) GetApplication(ctx context.Context, applicationID string) (*models.MortgageApplication, error) {
	return e.repo.Get(ctx, applicationID)
}

// GetHistory returns every record of the application in sequence order, failed attempts included.
func (e *Engine) GetHistory(ctx context.Context, applicationID string) ([]models.TransitionRecord, error) {
	if _, err := e.repo.Get(ctx, applicationID); err != nil {
		return nil, err
	}
	return e.log.Replay(ctx, applicationID)
}

// AttemptTransition applies event to the application under its lock and returns the resulting state.
// InvalidTransition, GuardNotSatisfied, context ValidationError and ConcurrencyConflict leave the
// state untouched and are recorded with success=false.
func (e *Engine) AttemptTransition(ctx context.Context, applicationID string, event models.Event, rawContext json.RawMessage, triggeredBy string) (models.State, error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.AttemptTransition", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.String("event", string(event)),
	))
	defer span.End()

	if strings.TrimSpace(applicationID) == "" {
		return "", errors.NewValidationError("applicationId is required")
	}
	if strings.TrimSpace(triggeredBy) == "" {
		triggeredBy = "system"
	}

	var (
		state     models.State
		committed *models.TransitionRecord
		failed    *models.TransitionRecord
	)
	err := lock.WithLock(ctx, e.locker, lock.ApplicationKey(applicationID), func(ctx context.Context) error {
		app, err := e.repo.Get(ctx, applicationID)
		if err != nil {
			return err
		}
		state = app.CurrentState

		// The audit column is JSONB; a malformed payload is dropped so the failure is still recorded.
		recorded := rawContext
		if !json.Valid(recorded) {
			recorded = nil
		}
		rec := &models.TransitionRecord{
			ApplicationID: app.ID,
			FromState:     app.CurrentState,
			ToState:       app.CurrentState,
			Event:         event,
			Context:       recorded,
			TriggeredBy:   triggeredBy,
			OccurredAt:    e.now(),
		}

		t, ok := Lookup(app.CurrentState, event)
		if !ok {
			failed = rec
			return e.reject(ctx, rec, errors.NewInvalidTransitionError(string(app.CurrentState), string(event)))
		}

		tc, err := ParseContext(event, rawContext)
		if err != nil {
			failed = rec
			return e.reject(ctx, rec, err)
		}

		if t.Guard != nil {
			readiness, err := e.readiness.Readiness(ctx, app.ID)
			if err != nil {
				return err
			}
			if res := t.Guard.Check(readiness, tc); !res.Satisfied {
				metrics.GuardFailuresTotal.WithLabelValues(t.Guard.Name).Inc()
				failed = rec
				return e.reject(ctx, rec, errors.NewGuardNotSatisfiedError(t.Guard.Name, res.Condition))
			}
		}

		next := *app
		next.CurrentState = t.To
		next.Version = app.Version + 1
		next.UpdatedAt = rec.OccurredAt
		rec.ToState = t.To
		rec.Success = true

		if err := e.repo.CommitTransition(ctx, &next, app.Version, rec); err != nil {
			if errors.CodeOf(err) == errors.ErrCodeConcurrencyConflict {
				rec.ToState = rec.FromState
				rec.Success = false
				failed = rec
				return e.reject(ctx, rec, err)
			}
			return err
		}
		state = next.CurrentState
		committed = rec
		return nil
	})

	metrics.TransitionsTotal.WithLabelValues(string(event), metrics.Result(string(errors.CodeOf(err)))).Inc()

	if committed != nil {
		e.notify(ctx, *committed)
		e.logger.Info("transition applied", map[string]interface{}{
			"applicationId": applicationID,
			"event":         event,
			"fromState":     committed.FromState,
			"toState":       committed.ToState,
			"seq":           committed.Seq,
			"triggeredBy":   triggeredBy,
		})
	}
	if failed != nil && failed.Seq > 0 {
		e.notify(ctx, *failed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		return state, err
	}
	return state, nil
}

// reject appends a failed-attempt record and returns cause.
func (e *Engine) reject(ctx context.Context, rec *models.TransitionRecord, cause error) error {
	std := errors.AsStandard(cause)
	rec.Success = false
	rec.ErrorCode = string(std.Code)
	rec.ErrorMessage = std.Message
	if std.Details != "" {
		rec.ErrorMessage += ": " + std.Details
	}

	if err := e.log.Append(ctx, rec); err != nil {
		e.logger.Error("failed to record rejected transition", map[string]interface{}{
			"applicationId": rec.ApplicationID,
			"event":         rec.Event,
			"cause":         std.Code,
			"error":         err.Error(),
		})
		return cause
	}

	e.logger.Warn("transition rejected", map[string]interface{}{
		"applicationId": rec.ApplicationID,
		"event":         rec.Event,
		"state":         rec.FromState,
		"code":          std.Code,
		"details":       std.Details,
		"seq":           rec.Seq,
	})
	return cause
}

func (e *Engine) notify(ctx context.Context, rec models.TransitionRecord) {
	for _, n := range e.notifiers {
		n.Publish(ctx, rec)
	}
}
