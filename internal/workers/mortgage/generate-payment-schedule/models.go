// internal/workers/mortgage/generate-payment-schedule/models.go
package generatepaymentschedule

import (
	"mortgage-workflow/internal/common/validation"
	"mortgage-workflow/internal/models"
)

const amountPattern = `^[0-9]+(\.[0-9]{1,2})?$`

type Input struct {
	ApplicationID   string                 `json:"applicationId,omitempty"`
	Purpose         models.SchedulePurpose `json:"purpose"`
	TotalAmount     string                 `json:"totalAmount"`
	DurationMonths  int                    `json:"durationMonths"`
	InterestRate    string                 `json:"interestRate"`
	Frequency       models.Frequency       `json:"frequency"`
	StartDate       string                 `json:"startDate"` // YYYY-MM-DD or RFC 3339
	GracePeriodDays *int                   `json:"gracePeriodDays,omitempty"`
	DailyInterest   bool                   `json:"dailyInterest,omitempty"`
	InstallmentFee  string                 `json:"installmentFee,omitempty"`
}

type Output struct {
	ScheduleID        string   `json:"scheduleId"`
	InstallmentCount  int      `json:"installmentCount"`
	InstallmentIDs    []string `json:"installmentIds"`
	InstallmentAmount string   `json:"installmentAmount"`
	TotalInterest     string   `json:"totalInterest"`
	TotalPayable      string   `json:"totalPayable"`
	FirstDueDate      string   `json:"firstDueDate"`
	FinalDueDate      string   `json:"finalDueDate"`
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"purpose", "totalAmount", "durationMonths", "interestRate", "frequency", "startDate"},
		Properties: map[string]validation.Property{
			"applicationId": {Type: "string"},
			"purpose": {
				Type: "string",
				Enum: []string{string(models.PurposeEquity), string(models.PurposeMortgage)},
			},
			"totalAmount": {
				Type:        "string",
				Description: "Principal as a decimal string with at most two places",
				Pattern:     amountPattern,
			},
			"durationMonths": {Type: "integer", Minimum: validation.FloatPtr(1), Maximum: validation.FloatPtr(600)},
			"interestRate": {
				Type:        "string",
				Description: "Annual rate in percent",
				Pattern:     `^[0-9]+(\.[0-9]+)?$`,
			},
			"frequency": {
				Type: "string",
				Enum: []string{
					string(models.FrequencyWeekly),
					string(models.FrequencyBiweekly),
					string(models.FrequencyMonthly),
					string(models.FrequencyQuarterly),
					string(models.FrequencyAnnually),
					string(models.FrequencyCustom),
				},
			},
			"startDate":       {Type: "string", MinLength: validation.IntPtr(10)},
			"gracePeriodDays": {Type: "integer", Minimum: validation.FloatPtr(0)},
			"dailyInterest":   {Type: "boolean"},
			"installmentFee":  {Type: "string", Pattern: amountPattern},
		},
	}
}
