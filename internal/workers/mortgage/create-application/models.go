// internal/workers/mortgage/create-application/models.go
package createapplication

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	ApplicationID string `json:"applicationId,omitempty"`
	TenantID      string `json:"tenantId,omitempty"`
	BorrowerID    string `json:"borrowerId"`
	PropertyID    string `json:"propertyId"`
}

type Output struct {
	ApplicationID string       `json:"applicationId"`
	CurrentState  models.State `json:"currentState"`
	Version       int64        `json:"applicationVersion"`
	Created       bool         `json:"applicationCreated"`
	CreatedAt     string       `json:"createdAt"` // ISO 8601
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"borrowerId", "propertyId"},
		Properties: map[string]validation.Property{
			"applicationId": {
				Type:        "string",
				Description: "Caller-chosen identifier; generated when absent",
				MaxLength:   validation.IntPtr(64),
			},
			"tenantId": {
				Type:      "string",
				MaxLength: validation.IntPtr(64),
			},
			"borrowerId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(64),
			},
			"propertyId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(64),
			},
		},
	}
}
