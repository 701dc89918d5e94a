// Package schedule generates amortized payment schedules and keeps the installment ledger.
package schedule

import (
	"fmt"
	"math"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	moneyPlaces = 2
	ratePlaces  = 20
)

var (
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
	oneCent     = decimal.New(1, -moneyPlaces)
)

// GenerateParams describes a schedule to amortize.
type GenerateParams struct {
	ApplicationID   string
	Purpose         models.SchedulePurpose
	TotalAmount     decimal.Decimal
	DurationMonths  int
	InterestRate    decimal.Decimal // annual, percent
	Frequency       models.Frequency
	StartDate       time.Time
	GracePeriodDays int
	DailyInterest   bool
	InstallmentFee  decimal.Decimal
}

// PeriodsPerYear returns the number of installments a frequency produces in a year.
func PeriodsPerYear(f models.Frequency) (int, error) {
	switch f {
	case models.FrequencyWeekly:
		return 52, nil
	case models.FrequencyBiweekly:
		return 26, nil
	case models.FrequencyMonthly:
		return 12, nil
	case models.FrequencyQuarterly:
		return 4, nil
	case models.FrequencyAnnually:
		return 1, nil
	case models.FrequencyCustom:
		return 0, errors.NewUnsupportedFrequencyError(string(f))
	default:
		return 0, errors.NewValidationError(fmt.Sprintf("unknown frequency %q", f))
	}
}

// InstallmentCount returns how many installments cover durationMonths at frequency f.
// Calendar cadences must divide the duration evenly; weekly cadences round to the nearest period.
func InstallmentCount(f models.Frequency, durationMonths int) (int, error) {
	perYear, err := PeriodsPerYear(f)
	if err != nil {
		return 0, err
	}
	switch f {
	case models.FrequencyWeekly, models.FrequencyBiweekly:
		n := (durationMonths*perYear + 6) / 12
		if n < 1 {
			n = 1
		}
		return n, nil
	default:
		monthsPerPeriod := 12 / perYear
		if durationMonths%monthsPerPeriod != 0 {
			return 0, errors.NewValidationError(fmt.Sprintf(
				"durationMonths %d is not a multiple of the %s period (%d months)", durationMonths, f, monthsPerPeriod))
		}
		return durationMonths / monthsPerPeriod, nil
	}
}

func validateParams(p GenerateParams) error {
	if _, err := PeriodsPerYear(p.Frequency); err != nil {
		return err
	}
	if !p.TotalAmount.IsPositive() {
		return errors.NewValidationError("totalAmount must be positive")
	}
	if !p.TotalAmount.Equal(p.TotalAmount.Round(moneyPlaces)) {
		return errors.NewValidationError("totalAmount must have at most two decimal places")
	}
	if p.DurationMonths <= 0 {
		return errors.NewValidationError("durationMonths must be positive")
	}
	if p.InterestRate.IsNegative() {
		return errors.NewValidationError("interestRate must not be negative")
	}
	if p.StartDate.IsZero() {
		return errors.NewValidationError("startDate is required")
	}
	if p.GracePeriodDays < 0 {
		return errors.NewValidationError("gracePeriodDays must not be negative")
	}
	if p.InstallmentFee.IsNegative() {
		return errors.NewValidationError("installmentFee must not be negative")
	}
	switch p.Purpose {
	case "", models.PurposeEquity, models.PurposeMortgage:
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown schedule purpose %q", p.Purpose))
	}
	return nil
}

// Generate builds a reducing-balance, equal-payment schedule. It is pure apart from ID allocation
// and performs no I/O. The last installment's principal absorbs the rounding remainder.
func Generate(p GenerateParams) (*models.PaymentSchedule, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	n, err := InstallmentCount(p.Frequency, p.DurationMonths)
	if err != nil {
		return nil, err
	}
	perYear, _ := PeriodsPerYear(p.Frequency)

	purpose := p.Purpose
	if purpose == "" {
		purpose = models.PurposeMortgage
	}

	sched := &models.PaymentSchedule{
		ID:              uuid.New().String(),
		ApplicationID:   p.ApplicationID,
		Purpose:         purpose,
		TotalAmount:     p.TotalAmount,
		DurationMonths:  p.DurationMonths,
		InterestRate:    p.InterestRate,
		Frequency:       p.Frequency,
		StartDate:       p.StartDate,
		GracePeriodDays: p.GracePeriodDays,
		DailyInterest:   p.DailyInterest,
		Installments:    make([]models.Installment, 0, n),
	}

	periodicRate := p.InterestRate.Div(hundred).DivRound(decimal.NewFromInt(int64(perYear)), ratePlaces)
	payment := LevelPayment(p.TotalAmount, periodicRate, n)

	outstanding := p.TotalAmount
	prevDue := p.StartDate
	for i := 1; i <= n; i++ {
		due := DueDate(p.StartDate, p.Frequency, i)

		var interest decimal.Decimal
		if p.DailyInterest {
			days := int64(math.Round(due.Sub(prevDue).Hours() / 24))
			interest = outstanding.Mul(p.InterestRate).Div(hundred).
				Mul(decimal.NewFromInt(days)).DivRound(daysPerYear, ratePlaces).Round(moneyPlaces)
		} else {
			interest = outstanding.Mul(periodicRate).Round(moneyPlaces)
		}

		principal := payment.Sub(interest)
		if i == n || principal.GreaterThan(outstanding) {
			principal = outstanding
		}
		if principal.IsNegative() {
			principal = decimal.Zero
		}
		outstanding = outstanding.Sub(principal)

		amountDue := models.Amounts{Principal: principal, Interest: interest, Fees: p.InstallmentFee}
		inst := models.Installment{
			ID:              uuid.New().String(),
			ScheduleID:      sched.ID,
			Sequence:        i,
			AmountDue:       amountDue,
			AmountPaid:      zeroAmounts(),
			AmountRemaining: amountDue.Total(),
			DueDate:         due,
			Status:          models.InstallmentPending,
			LateFee:         decimal.Zero,
		}
		if p.GracePeriodDays > 0 {
			graceEnd := due.AddDate(0, 0, p.GracePeriodDays)
			inst.GracePeriodEndDate = &graceEnd
		}
		sched.Installments = append(sched.Installments, inst)
		prevDue = due
	}

	if err := Reconcile(sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// LevelPayment returns the per-period annuity payment, rounded half-up to cents.
func LevelPayment(principal, periodicRate decimal.Decimal, n int) decimal.Decimal {
	if periodicRate.IsZero() {
		return principal.DivRound(decimal.NewFromInt(int64(n)), moneyPlaces)
	}
	onePlusR := decimal.NewFromInt(1).Add(periodicRate)
	growth := decimal.NewFromInt(1)
	for i := 0; i < n; i++ {
		growth = growth.Mul(onePlusR).Round(ratePlaces)
	}
	// P * r * (1+r)^n / ((1+r)^n - 1)
	return principal.Mul(periodicRate).Mul(growth).
		DivRound(growth.Sub(decimal.NewFromInt(1)), ratePlaces).
		Round(moneyPlaces)
}

// DueDate returns the due date of installment seq (1-based).
func DueDate(start time.Time, f models.Frequency, seq int) time.Time {
	switch f {
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, 7*seq)
	case models.FrequencyBiweekly:
		return start.AddDate(0, 0, 14*seq)
	case models.FrequencyQuarterly:
		return addMonthsClamped(start, 3*seq)
	case models.FrequencyAnnually:
		return addMonthsClamped(start, 12*seq)
	default:
		return addMonthsClamped(start, seq)
	}
}

// addMonthsClamped adds months keeping the day within the target month (Jan 31 + 1 month = Feb 28/29).
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).
		AddDate(0, months, 0)
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return firstOfTarget.AddDate(0, 0, day-1)
}

// Reconcile checks the cent-exact totals of a generated schedule.
// Σ principal must equal TotalAmount. Since amountDue carries interest and fees on top of
// principal, the amount identity is Σ amountDue == TotalAmount + Σ interest + Σ fees, which
// reduces to Σ amountDue == TotalAmount only for interest-free schedules without fees.
func Reconcile(s *models.PaymentSchedule) error {
	sum := zeroAmounts()
	for i, inst := range s.Installments {
		if inst.Sequence != i+1 {
			return errors.NewReconciliationError(fmt.Sprintf("installment %d has sequence %d", i+1, inst.Sequence))
		}
		if inst.AmountDue.Principal.IsNegative() || inst.AmountDue.Interest.IsNegative() {
			return errors.NewReconciliationError(fmt.Sprintf("installment %d has a negative component", inst.Sequence))
		}
		sum = sum.Add(inst.AmountDue)
	}

	if !sum.Principal.Equal(s.TotalAmount) {
		return errors.NewReconciliationError(fmt.Sprintf(
			"sum of principal %s does not equal totalAmount %s", sum.Principal.StringFixed(2), s.TotalAmount.StringFixed(2)))
	}
	expected := s.TotalAmount.Add(sum.Interest).Add(sum.Fees)
	if diff := sum.Total().Sub(expected).Abs(); diff.GreaterThanOrEqual(oneCent) {
		return errors.NewReconciliationError(fmt.Sprintf(
			"sum of amountDue %s does not equal %s", sum.Total().StringFixed(2), expected.StringFixed(2)))
	}
	return nil
}

func zeroAmounts() models.Amounts {
	return models.Amounts{Principal: decimal.Zero, Interest: decimal.Zero, Fees: decimal.Zero}
}
