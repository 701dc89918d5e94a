// internal/workers/mortgage/verify-application-integrity/models.go
package verifyapplicationintegrity

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID     string       `json:"applicationId"`
	IntegrityVerified bool         `json:"integrityVerified"`
	CurrentState      models.State `json:"currentState"`
	TransitionCount   int          `json:"transitionCount"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicationId"},
		Properties: map[string]validation.Property{
			"applicationId": {Type: "string", MinLength: validation.IntPtr(1)},
		},
	}
}
