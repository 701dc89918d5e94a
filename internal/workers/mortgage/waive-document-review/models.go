// internal/workers/mortgage/waive-document-review/models.go
package waivedocumentreview

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	DocumentID     string       `json:"documentId"`
	Party          models.Party `json:"party"`
	OrganizationID string       `json:"organizationId,omitempty"`
	Reason         string       `json:"reason"`
}

type Output struct {
	DocumentID      string `json:"documentId"`
	Waived          bool   `json:"waived"`
	DocumentCleared bool   `json:"documentCleared"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"documentId", "party", "reason"},
		Properties: map[string]validation.Property{
			"documentId":     {Type: "string", MinLength: validation.IntPtr(1)},
			"party":          {Type: "string", MinLength: validation.IntPtr(1)},
			"organizationId": {Type: "string", MaxLength: validation.IntPtr(64)},
			"reason": {
				Type:        "string",
				Description: "Recorded as the review comment",
				MaxLength:   validation.IntPtr(2000),
			},
		},
	}
}
