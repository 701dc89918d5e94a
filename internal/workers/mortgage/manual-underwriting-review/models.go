// internal/workers/mortgage/manual-underwriting-review/models.go
package manualunderwritingreview

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

// Input is typically the output of a user task completed by an underwriter.
type Input struct {
	DecisionID string                         `json:"underwritingDecisionId"`
	Decision   models.UnderwritingOutcome     `json:"overrideDecision"`
	Notes      string                         `json:"notes,omitempty"`
	Conditions []models.UnderwritingCondition `json:"conditions,omitempty"`
	ReviewedBy string                         `json:"reviewedBy"`
}

type Output struct {
	DecisionID   string                         `json:"underwritingDecisionId"`
	Decision     models.UnderwritingOutcome     `json:"underwritingDecision"`
	SupersedesID string                         `json:"supersededDecisionId"`
	Conditions   []models.UnderwritingCondition `json:"underwritingConditions"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"underwritingDecisionId", "overrideDecision", "reviewedBy"},
		Properties: map[string]validation.Property{
			"underwritingDecisionId": {Type: "string", MinLength: validation.IntPtr(1)},
			"overrideDecision": {
				Type: "string",
				Enum: []string{
					string(models.OutcomeApprove),
					string(models.OutcomeReject),
					string(models.OutcomeConditional),
				},
			},
			"notes":      {Type: "string", MaxLength: validation.IntPtr(4000)},
			"reviewedBy": {Type: "string", MinLength: validation.IntPtr(1)},
			"conditions": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"code"},
					Properties: map[string]validation.Property{
						"code":     {Type: "string", MinLength: validation.IntPtr(1)},
						"required": {Type: "boolean"},
						"message":  {Type: "string"},
					},
				},
			},
		},
	}
}
