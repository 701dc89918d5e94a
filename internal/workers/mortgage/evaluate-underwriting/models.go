// internal/workers/mortgage/evaluate-underwriting/models.go
package evaluateunderwriting

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	ApplicationID string             `json:"applicationId"`
	Numbers       map[string]float64 `json:"numbers,omitempty"`
	Flags         map[string]bool    `json:"flags,omitempty"`
	RulesVersion  string             `json:"rulesVersion,omitempty"`
}

type Output struct {
	DecisionID   string                         `json:"underwritingDecisionId"`
	Decision     models.UnderwritingOutcome     `json:"underwritingDecision"`
	Score        *float64                       `json:"underwritingScore,omitempty"`
	Reasons      []string                       `json:"underwritingReasons"`
	Conditions   []models.UnderwritingCondition `json:"underwritingConditions"`
	RulesVersion string                         `json:"rulesVersion"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicationId"},
		Properties: map[string]validation.Property{
			"applicationId": {Type: "string", MinLength: validation.IntPtr(1)},
			"numbers": {
				Type:        "object",
				Description: "Numeric snapshot fields such as debtToIncome or creditScore",
			},
			"flags": {
				Type:        "object",
				Description: "Boolean snapshot fields such as kycVerified",
			},
			"rulesVersion": {Type: "string", MaxLength: validation.IntPtr(64)},
		},
	}
}
