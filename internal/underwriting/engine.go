package underwriting

import (
	"fmt"
	"strings"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
)

const passScore = 100.0

// Evaluate runs every rule of rs against the snapshot. It has no side effects beyond
// generating the decision ID, so the same inputs always produce the same outcome.
//
// Outcome:
//   - any failed required rule rejects
//   - otherwise aggregate >= ApproveThreshold approves
//   - otherwise aggregate >= ConditionalThreshold is conditional on the failed rules' conditions
//   - otherwise rejects
func Evaluate(snapshot Snapshot, rs *RuleSet, rulesVersion string, at time.Time) (*models.UnderwritingDecision, error) {
	if strings.TrimSpace(snapshot.ApplicationID) == "" {
		return nil, errors.NewValidationError("applicationId is required")
	}
	if rs == nil {
		return nil, errors.NewValidationError("rule set is required")
	}
	if rulesVersion != rs.Version {
		return nil, errors.NewValidationError(fmt.Sprintf(
			"rulesVersion %q does not match rule set %q", rulesVersion, rs.Version))
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}

	results := make([]models.RuleResult, 0, len(rs.Rules))
	var hardFailures, softFailures []string
	var conditions []models.UnderwritingCondition
	var aggregate float64
	weighted := false

	for _, rule := range rs.Rules {
		passed, reason := rule.check(snapshot)
		score := 0.0
		if passed {
			score = passScore
		}
		res := models.RuleResult{RuleID: rule.ID, Passed: passed, Score: floatPtr(score)}
		if rule.Weight != nil {
			res.Weight = floatPtr(*rule.Weight)
			aggregate += score * *rule.Weight
			weighted = true
		}
		results = append(results, res)

		if passed {
			continue
		}
		if rule.Required {
			hardFailures = append(hardFailures, reason)
			continue
		}
		softFailures = append(softFailures, reason)
		if rule.Condition != nil {
			conditions = append(conditions, *rule.Condition)
		}
	}

	decision := &models.UnderwritingDecision{
		ID:            uuid.New().String(),
		ApplicationID: snapshot.ApplicationID,
		RulesVersion:  rs.Version,
		RuleResults:   results,
		Reasons:       []string{},
		Conditions:    []models.UnderwritingCondition{},
		EvaluatedAt:   at.UTC(),
	}
	if weighted {
		decision.Score = floatPtr(aggregate)
	}

	switch {
	case len(hardFailures) > 0:
		decision.Decision = models.OutcomeReject
		decision.Reasons = append(decision.Reasons, hardFailures...)
	case aggregate >= rs.ApproveThreshold:
		decision.Decision = models.OutcomeApprove
		decision.Reasons = append(decision.Reasons, softFailures...)
	case aggregate >= rs.ConditionalThreshold:
		decision.Decision = models.OutcomeConditional
		decision.Reasons = append(decision.Reasons, softFailures...)
		decision.Conditions = append(decision.Conditions, conditions...)
	default:
		decision.Decision = models.OutcomeReject
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("aggregate score %g below conditional threshold %g", aggregate, rs.ConditionalThreshold))
		decision.Reasons = append(decision.Reasons, softFailures...)
	}
	return decision, nil
}

func floatPtr(v float64) *float64 {
	return &v
}
