// internal/models/schedule.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyBiweekly  Frequency = "BIWEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnually  Frequency = "ANNUALLY"
	FrequencyCustom    Frequency = "CUSTOM"
)

type SchedulePurpose string

const (
	PurposeEquity   SchedulePurpose = "EQUITY"
	PurposeMortgage SchedulePurpose = "MORTGAGE"
)

type InstallmentStatus string

const (
	InstallmentPending  InstallmentStatus = "PENDING"
	InstallmentPartial  InstallmentStatus = "PARTIAL"
	InstallmentPaid     InstallmentStatus = "PAID"
	InstallmentOverdue  InstallmentStatus = "OVERDUE"
	InstallmentLate     InstallmentStatus = "LATE"
	InstallmentWaived   InstallmentStatus = "WAIVED"
	InstallmentDeferred InstallmentStatus = "DEFERRED"
)

// Settled reports whether the installment no longer carries an obligation.
func (s InstallmentStatus) Settled() bool {
	return s == InstallmentPaid || s == InstallmentWaived
}

// Amounts splits a money figure into its principal, interest and fee components.
type Amounts struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Fees      decimal.Decimal `json:"fees"`
}

func (a Amounts) Total() decimal.Decimal {
	return a.Principal.Add(a.Interest).Add(a.Fees)
}

func (a Amounts) Add(b Amounts) Amounts {
	return Amounts{
		Principal: a.Principal.Add(b.Principal),
		Interest:  a.Interest.Add(b.Interest),
		Fees:      a.Fees.Add(b.Fees),
	}
}

type PaymentSchedule struct {
	ID              string          `json:"id"`
	ApplicationID   string          `json:"applicationId"`
	Purpose         SchedulePurpose `json:"purpose"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	DurationMonths  int             `json:"durationMonths"`
	InterestRate    decimal.Decimal `json:"interestRate"` // annual, percent
	Frequency       Frequency       `json:"frequency"`
	StartDate       time.Time       `json:"startDate"`
	GracePeriodDays int             `json:"gracePeriodDays"`
	DailyInterest   bool            `json:"dailyInterest"`
	Installments    []Installment   `json:"installments"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type Installment struct {
	ID                 string            `json:"id"`
	ScheduleID         string            `json:"scheduleId"`
	Sequence           int               `json:"sequence"`
	AmountDue          Amounts           `json:"amountDue"`
	AmountPaid         Amounts           `json:"amountPaid"`
	AmountRemaining    decimal.Decimal   `json:"amountRemaining"`
	DueDate            time.Time         `json:"dueDate"`
	GracePeriodEndDate *time.Time        `json:"gracePeriodEndDate,omitempty"`
	Status             InstallmentStatus `json:"status"`
	DaysOverdue        int               `json:"daysOverdue"`
	LateFee            decimal.Decimal   `json:"lateFee"`
	PaidAt             *time.Time        `json:"paidAt,omitempty"`
	WaiverReason       string            `json:"waiverReason,omitempty"`
}

// Payment is an append-only receipt. Reference is unique per installment.
type Payment struct {
	ID               string          `json:"id"`
	InstallmentID    string          `json:"installmentId"`
	Amount           decimal.Decimal `json:"amount"`
	Reference        string          `json:"reference"`
	AppliedFees      decimal.Decimal `json:"appliedFees"`
	AppliedInterest  decimal.Decimal `json:"appliedInterest"`
	AppliedPrincipal decimal.Decimal `json:"appliedPrincipal"`
	Excess           decimal.Decimal `json:"excess"`
	ReceivedAt       time.Time       `json:"receivedAt"`
}
