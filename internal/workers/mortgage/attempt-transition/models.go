// internal/workers/mortgage/attempt-transition/models.go
package attempttransition

import (
	"encoding/json"

	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

type Input struct {
	ApplicationID string          `json:"applicationId"`
	Event         string          `json:"event"`
	Context       json.RawMessage `json:"transitionContext,omitempty"`
	TriggeredBy   string          `json:"triggeredBy,omitempty"`
}

type Output struct {
	ApplicationID string       `json:"applicationId"`
	CurrentState  models.State `json:"currentState"`
	Transitioned  bool         `json:"transitioned"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"applicationId", "event"},
		Properties: map[string]validation.Property{
			"applicationId": {
				Type:        "string",
				Description: "Mortgage application identifier",
				MinLength:   validation.IntPtr(1),
			},
			"event": {
				Type:        "string",
				Description: "Lifecycle event to apply",
				Enum: []string{
					string(models.EventStartPreApproval),
					string(models.EventApproveApplication),
					string(models.EventConfirmEquityPayment),
					string(models.EventSendDocumentsToBank),
					string(models.EventReceiveBankOffer),
					string(models.EventAcceptOfferLetter),
					string(models.EventDisburse),
					string(models.EventClose),
					string(models.EventCancel),
				},
			},
			"transitionContext": {
				Type:        "object",
				Description: "Typed payload, discriminated by its type field",
			},
			"triggeredBy": {
				Type:      "string",
				MaxLength: validation.IntPtr(255),
			},
		},
	}
}
