// internal/workers/mortgage/submit-document-review/models.go
package submitdocumentreview

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	DocumentID     string                `json:"documentId"`
	Party          models.Party          `json:"party"`
	OrganizationID string                `json:"organizationId,omitempty"`
	Decision       models.ReviewDecision `json:"decision"`
	Comments       string                `json:"comments,omitempty"`
	Concerns       []models.Concern      `json:"concerns,omitempty"`
}

type Output struct {
	DocumentID      string                `json:"documentId"`
	Party           models.Party          `json:"party"`
	Decision        models.ReviewDecision `json:"reviewDecision"`
	ReviewedAt      string                `json:"reviewedAt"`
	DocumentCleared bool                  `json:"documentCleared"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"documentId", "party", "decision"},
		Properties: map[string]validation.Property{
			"documentId": {Type: "string", MinLength: validation.IntPtr(1)},
			"party": {
				Type: "string",
				Enum: []string{
					string(models.PartyInternal),
					string(models.PartyBank),
					string(models.PartyDeveloper),
					string(models.PartyLegal),
					string(models.PartyInsurer),
					string(models.PartyGovernment),
				},
			},
			"organizationId": {Type: "string", MaxLength: validation.IntPtr(64)},
			"decision": {
				Type:        "string",
				Description: "WAIVED has its own task; PENDING is never submitted",
				Enum: []string{
					string(models.ReviewApproved),
					string(models.ReviewRejected),
					string(models.ReviewChangesRequested),
				},
			},
			"comments": {Type: "string", MaxLength: validation.IntPtr(4000)},
			"concerns": {
				Type: "array",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"field", "issue"},
					Properties: map[string]validation.Property{
						"field": {Type: "string", MinLength: validation.IntPtr(1)},
						"issue": {Type: "string", MinLength: validation.IntPtr(1)},
					},
				},
			},
		},
	}
}
