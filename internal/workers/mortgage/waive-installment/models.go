// internal/workers/mortgage/waive-installment/models.go
package waiveinstallment

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	InstallmentID string `json:"installmentId"`
	Reason        string `json:"reason"`
}

type Output struct {
	InstallmentID     string                   `json:"installmentId"`
	InstallmentStatus models.InstallmentStatus `json:"installmentStatus"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"installmentId", "reason"},
		Properties: map[string]validation.Property{
			"installmentId": {Type: "string", MinLength: validation.IntPtr(1)},
			"reason":        {Type: "string", MaxLength: validation.IntPtr(2000)},
		},
	}
}
