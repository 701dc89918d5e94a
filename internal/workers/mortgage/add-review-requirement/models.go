// internal/workers/mortgage/add-review-requirement/models.go
package addreviewrequirement

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	ApplicationID string     `json:"applicationId"`
	DocumentID    string     `json:"documentId"`
	Reviewers     []Reviewer `json:"reviewers"`
}

// Reviewer is one slot on the document. Required defaults to true.
type Reviewer struct {
	Party          models.Party `json:"party"`
	OrganizationID string       `json:"organizationId,omitempty"`
	Required       *bool        `json:"required,omitempty"`
}

type Output struct {
	DocumentID          string `json:"documentId"`
	ReviewersRegistered int    `json:"reviewersRegistered"`
	DocumentCleared     bool   `json:"documentCleared"`
}

func parties() []string {
	return []string{
		string(models.PartyInternal),
		string(models.PartyBank),
		string(models.PartyDeveloper),
		string(models.PartyLegal),
		string(models.PartyInsurer),
		string(models.PartyGovernment),
	}
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicationId", "documentId", "reviewers"},
		Properties: map[string]validation.Property{
			"applicationId": {Type: "string", MinLength: validation.IntPtr(1)},
			"documentId":    {Type: "string", MinLength: validation.IntPtr(1)},
			"reviewers": {
				Type:     "array",
				MinItems: validation.IntPtr(1),
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"party"},
					Properties: map[string]validation.Property{
						"party":          {Type: "string", Enum: parties()},
						"organizationId": {Type: "string", MaxLength: validation.IntPtr(64)},
						"required":       {Type: "boolean"},
					},
				},
			},
		},
	}
}
