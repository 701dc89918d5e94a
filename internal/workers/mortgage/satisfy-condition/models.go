// internal/workers/mortgage/satisfy-condition/models.go
package satisfycondition

import "mortgage-workflow/internal/common/validation"

type Input struct {
	ApplicationID string `json:"applicationId"`
	Code          string `json:"conditionCode"`
	SatisfiedBy   string `json:"satisfiedBy"`
	Evidence      string `json:"evidence,omitempty"`
}

type Output struct {
	ConditionCode       string   `json:"conditionCode"`
	UnsatisfiedCodes    []string `json:"unsatisfiedConditions"`
	ConditionsSatisfied bool     `json:"conditionsSatisfied"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicationId", "conditionCode", "satisfiedBy"},
		Properties: map[string]validation.Property{
			"applicationId": {Type: "string", MinLength: validation.IntPtr(1)},
			"conditionCode": {Type: "string", MinLength: validation.IntPtr(1)},
			"satisfiedBy":   {Type: "string", MinLength: validation.IntPtr(1)},
			"evidence":      {Type: "string", MaxLength: validation.IntPtr(4000)},
		},
	}
}
