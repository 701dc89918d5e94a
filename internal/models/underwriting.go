// internal/models/underwriting.go
package models

import "time"

type UnderwritingOutcome string

const (
	OutcomeApprove     UnderwritingOutcome = "APPROVE"
	OutcomeReject      UnderwritingOutcome = "REJECT"
	OutcomeConditional UnderwritingOutcome = "CONDITIONAL"
)

func (o UnderwritingOutcome) IsValid() bool {
	return o == OutcomeApprove || o == OutcomeReject || o == OutcomeConditional
}

type UnderwritingCondition struct {
	Code     string `json:"code"`
	Required bool   `json:"required"`
	Message  string `json:"message,omitempty"`
}

type RuleResult struct {
	RuleID string   `json:"ruleId"`
	Passed bool     `json:"passed"`
	Score  *float64 `json:"score,omitempty"`
	Weight *float64 `json:"weight,omitempty"`
}

// UnderwritingDecision is immutable. A manual override is a new decision with SupersedesID set.
type UnderwritingDecision struct {
	ID            string                  `json:"id"`
	ApplicationID string                  `json:"applicationId"`
	Decision      UnderwritingOutcome     `json:"decision"`
	Score         *float64                `json:"score,omitempty"`
	Reasons       []string                `json:"reasons"`
	Conditions    []UnderwritingCondition `json:"conditions"`
	RulesVersion  string                  `json:"rulesVersion"`
	RuleResults   []RuleResult            `json:"ruleResults"`
	Manual        bool                    `json:"manual"`
	SupersedesID  string                  `json:"supersedesId,omitempty"`
	Notes         string                  `json:"notes,omitempty"`
	EvaluatedAt   time.Time               `json:"evaluatedAt"`
}

// RequiredConditionCodes returns the codes of conditions that block disbursement.
func (d *UnderwritingDecision) RequiredConditionCodes() []string {
	var codes []string
	for _, c := range d.Conditions {
		if c.Required {
			codes = append(codes, c.Code)
		}
	}
	return codes
}

// ConditionSatisfaction records that a required underwriting condition has been met.
type ConditionSatisfaction struct {
	ApplicationID string    `json:"applicationId"`
	Code          string    `json:"code"`
	SatisfiedBy   string    `json:"satisfiedBy"`
	Evidence      string    `json:"evidence,omitempty"`
	SatisfiedAt   time.Time `json:"satisfiedAt"`
}
