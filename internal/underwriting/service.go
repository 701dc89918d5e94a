package underwriting

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
)

// Store is the append-only decision ledger plus the condition satisfaction records.
type Store interface {
	SaveDecision(ctx context.Context, d *models.UnderwritingDecision) error
	GetDecision(ctx context.Context, decisionID string) (*models.UnderwritingDecision, error)
	// CurrentDecision returns the latest decision by EvaluatedAt, or a NotFound error.
	CurrentDecision(ctx context.Context, applicationID string) (*models.UnderwritingDecision, error)
	ListDecisions(ctx context.Context, applicationID string) ([]models.UnderwritingDecision, error)
	SaveSatisfaction(ctx context.Context, s models.ConditionSatisfaction) error
	ListSatisfactions(ctx context.Context, applicationID string) ([]models.ConditionSatisfaction, error)
}

// RuleSource resolves published rule sets by version.
type RuleSource interface {
	RuleSet(version string) (*RuleSet, error)
	DefaultVersion() string
}

// ManualReviewInput overrides a prior decision.
type ManualReviewInput struct {
	DecisionID string                         `json:"decisionId"`
	Decision   models.UnderwritingOutcome     `json:"decision"`
	Notes      string                         `json:"notes,omitempty"`
	Conditions []models.UnderwritingCondition `json:"conditions,omitempty"`
	ReviewedBy string                         `json:"reviewedBy,omitempty"`
}

// Status is the materialized underwriting view read by lifecycle guards.
type Status struct {
	Decision    *models.UnderwritingDecision `json:"decision,omitempty"`
	Unsatisfied []string                     `json:"unsatisfied,omitempty"`
}

// Approved is true for APPROVE, or CONDITIONAL with every required condition satisfied.
func (s Status) Approved() bool {
	if s.Decision == nil {
		return false
	}
	switch s.Decision.Decision {
	case models.OutcomeApprove:
		return true
	case models.OutcomeConditional:
		return len(s.Unsatisfied) == 0
	}
	return false
}

// ConditionsSatisfied is true when a decision exists and none of its required conditions are open.
func (s Status) ConditionsSatisfied() bool {
	return s.Decision != nil && len(s.Unsatisfied) == 0
}

type Service struct {
	store  Store
	rules  RuleSource
	logger logger.Logger
	now    func() time.Time
}

func NewService(store Store, rules RuleSource, log logger.Logger) *Service {
	return &Service{
		store:  store,
		rules:  rules,
		logger: log.WithFields(map[string]interface{}{"component": "underwriting"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate runs rs (or the registry's rule set for rulesVersion when rs is nil) and appends the decision.
func (s *Service) Evaluate(ctx context.Context, snapshot Snapshot, rs *RuleSet, rulesVersion string) (*models.UnderwritingDecision, error) {
	if rs == nil {
		if s.rules == nil {
			return nil, errors.NewValidationError("no rule set supplied and no registry configured")
		}
		if rulesVersion == "" {
			rulesVersion = s.rules.DefaultVersion()
		}
		loaded, err := s.rules.RuleSet(rulesVersion)
		if err != nil {
			return nil, err
		}
		rs = loaded
	}

	decision, err := Evaluate(snapshot, rs, rulesVersion, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.SaveDecision(ctx, decision); err != nil {
		return nil, err
	}

	s.record(decision)
	return decision, nil
}

// ManualReview appends an override that becomes the current decision. The prior record is untouched.
func (s *Service) ManualReview(ctx context.Context, in ManualReviewInput) (*models.UnderwritingDecision, error) {
	if !in.Decision.IsValid() {
		return nil, errors.NewValidationError(fmt.Sprintf("unknown underwriting decision %q", in.Decision))
	}
	for i, c := range in.Conditions {
		if strings.TrimSpace(c.Code) == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("condition %d has no code", i))
		}
	}
	prior, err := s.store.GetDecision(ctx, in.DecisionID)
	if err != nil {
		return nil, err
	}

	conditions := in.Conditions
	if conditions == nil && in.Decision == models.OutcomeConditional && prior.Decision == models.OutcomeConditional {
		conditions = prior.Conditions
	}
	if conditions == nil {
		conditions = []models.UnderwritingCondition{}
	}

	reason := "manual override of " + prior.ID
	if in.ReviewedBy != "" {
		reason += " by " + in.ReviewedBy
	}

	decision := &models.UnderwritingDecision{
		ID:            uuid.New().String(),
		ApplicationID: prior.ApplicationID,
		Decision:      in.Decision,
		Score:         prior.Score,
		Reasons:       []string{reason},
		Conditions:    conditions,
		RulesVersion:  prior.RulesVersion,
		RuleResults:   prior.RuleResults,
		Manual:        true,
		SupersedesID:  prior.ID,
		Notes:         in.Notes,
		EvaluatedAt:   s.now(),
	}

	// current is decided by EvaluatedAt, so the override must sort after the latest decision
	latest, err := s.store.CurrentDecision(ctx, prior.ApplicationID)
	if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return nil, err
	}
	if latest != nil && !decision.EvaluatedAt.After(latest.EvaluatedAt) {
		decision.EvaluatedAt = latest.EvaluatedAt.Add(time.Microsecond)
	}

	if err := s.store.SaveDecision(ctx, decision); err != nil {
		return nil, err
	}

	s.record(decision)
	return decision, nil
}

// SatisfyCondition marks a condition of the current decision as met.
func (s *Service) SatisfyCondition(ctx context.Context, applicationID, code, satisfiedBy, evidence string) (*models.ConditionSatisfaction, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.NewValidationError("condition code is required")
	}
	if strings.TrimSpace(satisfiedBy) == "" {
		return nil, errors.NewValidationError("satisfiedBy is required")
	}
	current, err := s.store.CurrentDecision(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	known := false
	for _, c := range current.Conditions {
		if c.Code == code {
			known = true
			break
		}
	}
	if !known {
		return nil, errors.NewValidationError(fmt.Sprintf(
			"condition %q is not part of decision %s", code, current.ID))
	}

	sat := models.ConditionSatisfaction{
		ApplicationID: applicationID,
		Code:          code,
		SatisfiedBy:   satisfiedBy,
		Evidence:      evidence,
		SatisfiedAt:   s.now(),
	}
	if err := s.store.SaveSatisfaction(ctx, sat); err != nil {
		return nil, err
	}

	s.logger.Info("underwriting condition satisfied", map[string]interface{}{
		"applicationId": applicationID,
		"code":          code,
		"decisionId":    current.ID,
	})
	return &sat, nil
}

func (s *Service) Current(ctx context.Context, applicationID string) (*models.UnderwritingDecision, error) {
	return s.store.CurrentDecision(ctx, applicationID)
}

func (s *Service) History(ctx context.Context, applicationID string) ([]models.UnderwritingDecision, error) {
	return s.store.ListDecisions(ctx, applicationID)
}

// Status materializes the current decision and its open required conditions.
// An application without any decision yields an empty Status, not an error.
func (s *Service) Status(ctx context.Context, applicationID string) (Status, error) {
	current, err := s.store.CurrentDecision(ctx, applicationID)
	if stderrors.Is(err, errors.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, err
	}

	sats, err := s.store.ListSatisfactions(ctx, applicationID)
	if err != nil {
		return Status{}, err
	}
	met := make(map[string]bool, len(sats))
	for _, sat := range sats {
		met[sat.Code] = true
	}

	out := Status{Decision: current}
	for _, code := range current.RequiredConditionCodes() {
		if !met[code] {
			out.Unsatisfied = append(out.Unsatisfied, code)
		}
	}
	return out, nil
}

func (s *Service) record(d *models.UnderwritingDecision) {
	metrics.UnderwritingDecisionsTotal.WithLabelValues(string(d.Decision), strconv.FormatBool(d.Manual)).Inc()
	fields := map[string]interface{}{
		"applicationId": d.ApplicationID,
		"decisionId":    d.ID,
		"decision":      d.Decision,
		"rulesVersion":  d.RulesVersion,
		"manual":        d.Manual,
		"conditions":    len(d.Conditions),
	}
	if d.Score != nil {
		fields["score"] = *d.Score
	}
	if d.SupersedesID != "" {
		fields["supersedes"] = d.SupersedesID
	}
	s.logger.Info("underwriting decision recorded", fields)
}
