// internal/workers/mortgage/mark-overdue-installments/models.go
package markoverdueinstallments

import (
	"mortgage-workflow/internal/common/validation"
)

type Input struct {
	// AsOf is an RFC3339 timestamp; empty means now.
	AsOf string `json:"asOf,omitempty"`
}

type Output struct {
	UpdatedCount int    `json:"updatedCount"`
	AsOf         string `json:"asOf"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type: "object",
		Properties: map[string]validation.Property{
			"asOf": {Type: "string", Description: "RFC3339 evaluation time"},
		},
	}
}
