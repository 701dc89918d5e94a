// internal/workers/mortgage/record-payment/models.go
package recordpayment

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	InstallmentID string `json:"installmentId"`
	Amount        string `json:"amount"`
	// Reference identifies the remittance; a repeated reference is not applied twice.
	Reference string `json:"paymentReference"`
}

type Output struct {
	PaymentID         string                   `json:"paymentId"`
	InstallmentStatus models.InstallmentStatus `json:"installmentStatus"`
	AmountRemaining   string                   `json:"amountRemaining"`
	AppliedFees       string                   `json:"appliedFees"`
	AppliedInterest   string                   `json:"appliedInterest"`
	AppliedPrincipal  string                   `json:"appliedPrincipal"`
	Excess            string                   `json:"excess"`
	Duplicate         bool                     `json:"duplicatePayment"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"installmentId", "amount", "paymentReference"},
		Properties: map[string]validation.Property{
			"installmentId": {Type: "string", MinLength: validation.IntPtr(1)},
			"amount": {
				Type:    "string",
				Pattern: `^[0-9]+(\.[0-9]{1,2})?$`,
			},
			"paymentReference": {Type: "string", MinLength: validation.IntPtr(1), MaxLength: validation.IntPtr(128)},
		},
	}
}
