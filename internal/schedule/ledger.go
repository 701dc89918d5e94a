package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/common/metrics"
	"mortgage-workflow/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const minWaiverReasonLength = 10

// Policy controls overpayment handling and late fees.
type Policy struct {
	StrictOverpayment bool
	LateFeeFlat       decimal.Decimal
	LateFeePercent    decimal.Decimal // of the amount remaining when first flagged overdue
	InstallmentFee    decimal.Decimal
}

// Store persists schedules, installments and payment receipts.
type Store interface {
	CreateSchedule(ctx context.Context, s *models.PaymentSchedule) error
	GetSchedule(ctx context.Context, scheduleID string) (*models.PaymentSchedule, error)
	LatestSchedule(ctx context.Context, applicationID string, purpose models.SchedulePurpose) (*models.PaymentSchedule, error)
	GetInstallment(ctx context.Context, installmentID string) (*models.Installment, error)
	InstallmentOwner(ctx context.Context, installmentID string) (string, error)
	FindPayment(ctx context.Context, installmentID, reference string) (*models.Payment, error)
	SavePayment(ctx context.Context, inst *models.Installment, p *models.Payment) error
	UpdateInstallment(ctx context.Context, inst *models.Installment) error
	ListUnsettledDueBefore(ctx context.Context, before time.Time) ([]models.Installment, error)
}

// PaymentResult reports how a payment was applied.
type PaymentResult struct {
	Installment *models.Installment `json:"installment"`
	Payment     *models.Payment     `json:"payment"`
	Excess      decimal.Decimal     `json:"excess"`
	Duplicate   bool                `json:"duplicate"`
}

// Ledger records payments against installments. Writes for one application are serialized by its lock.
type Ledger struct {
	store  Store
	locker lock.Locker
	policy Policy
	logger logger.Logger
	now    func() time.Time
}

func NewLedger(store Store, locker lock.Locker, policy Policy, log logger.Logger) *Ledger {
	return &Ledger{
		store:  store,
		locker: locker,
		policy: policy,
		logger: log.WithFields(map[string]interface{}{"component": "installment-ledger"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateSchedule generates and persists a schedule. Nothing is written if generation fails.
func (l *Ledger) CreateSchedule(ctx context.Context, p GenerateParams) (*models.PaymentSchedule, error) {
	if p.InstallmentFee.IsZero() {
		p.InstallmentFee = l.policy.InstallmentFee
	}

	sched, err := Generate(p)
	if err != nil {
		metrics.SchedulesGeneratedTotal.WithLabelValues(string(p.Frequency), metrics.Result(string(errors.CodeOf(err)))).Inc()
		return nil, err
	}
	sched.CreatedAt = l.now()

	if p.ApplicationID == "" {
		if err := l.store.CreateSchedule(ctx, sched); err != nil {
			return nil, err
		}
	} else {
		err = lock.WithLock(ctx, l.locker, lock.ApplicationKey(p.ApplicationID), func(ctx context.Context) error {
			return l.store.CreateSchedule(ctx, sched)
		})
		if err != nil {
			return nil, err
		}
	}

	metrics.SchedulesGeneratedTotal.WithLabelValues(string(p.Frequency), metrics.Result("")).Inc()
	l.logger.Info("payment schedule created", map[string]interface{}{
		"scheduleId":    sched.ID,
		"applicationId": sched.ApplicationID,
		"purpose":       sched.Purpose,
		"installments":  len(sched.Installments),
		"totalAmount":   sched.TotalAmount.StringFixed(2),
	})
	return sched, nil
}

// RecordPayment applies amount to an installment. A repeated reference returns the original receipt.
func (l *Ledger) RecordPayment(ctx context.Context, installmentID string, amount decimal.Decimal, reference string) (*PaymentResult, error) {
	if installmentID == "" {
		return nil, errors.NewValidationError("installmentId is required")
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("payment amount must be positive")
	}
	if !amount.Equal(amount.Round(moneyPlaces)) {
		return nil, errors.NewValidationError("payment amount must have at most two decimal places")
	}
	if strings.TrimSpace(reference) == "" {
		return nil, errors.NewValidationError("payment reference is required")
	}

	owner, err := l.store.InstallmentOwner(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	var result *PaymentResult
	err = lock.WithLock(ctx, l.locker, lock.ApplicationKey(owner), func(ctx context.Context) error {
		inst, err := l.store.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}

		prior, err := l.store.FindPayment(ctx, installmentID, reference)
		if err != nil {
			return err
		}
		if prior != nil {
			result = &PaymentResult{Installment: inst, Payment: prior, Excess: prior.Excess, Duplicate: true}
			return nil
		}

		now := l.now()
		updated, payment, err := ApplyPayment(*inst, amount, now, l.policy)
		if err != nil {
			return err
		}
		payment.ID = uuid.New().String()
		payment.Reference = reference

		if err := l.store.SavePayment(ctx, &updated, payment); err != nil {
			return err
		}
		result = &PaymentResult{Installment: &updated, Payment: payment, Excess: payment.Excess}
		if updated.Status == models.InstallmentOverdue && inst.Status != models.InstallmentOverdue {
			metrics.InstallmentsOverdueTotal.Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Duplicate {
		metrics.PaymentsRecordedTotal.WithLabelValues(string(result.Installment.Status)).Inc()
	}
	l.logger.Info("payment recorded", map[string]interface{}{
		"installmentId": installmentID,
		"reference":     reference,
		"amount":        amount.StringFixed(2),
		"status":        result.Installment.Status,
		"remaining":     result.Installment.AmountRemaining.StringFixed(2),
		"excess":        result.Excess.StringFixed(2),
		"duplicate":     result.Duplicate,
	})
	return result, nil
}

// MarkOverdue flags every unsettled installment that is past due at now. It returns the number updated.
func (l *Ledger) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	candidates, err := l.store.ListUnsettledDueBefore(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, candidate := range candidates {
		owner, err := l.store.InstallmentOwner(ctx, candidate.ID)
		if err != nil {
			return updated, err
		}
		err = lock.WithLock(ctx, l.locker, lock.ApplicationKey(owner), func(ctx context.Context) error {
			inst, err := l.store.GetInstallment(ctx, candidate.ID)
			if err != nil {
				return err
			}
			next, changed := AssessOverdue(*inst, now, l.policy)
			if !changed {
				return nil
			}
			if err := l.store.UpdateInstallment(ctx, &next); err != nil {
				return err
			}
			if next.Status == models.InstallmentOverdue && inst.Status != models.InstallmentOverdue {
				metrics.InstallmentsOverdueTotal.Inc()
			}
			updated++
			return nil
		})
		if err != nil {
			return updated, err
		}
	}

	if updated > 0 {
		l.logger.Info("overdue sweep completed", map[string]interface{}{
			"updated": updated,
			"scanned": len(candidates),
		})
	}
	return updated, nil
}

// Waive forgives the outstanding obligation of an installment.
func (l *Ledger) Waive(ctx context.Context, installmentID, reason string) (*models.Installment, error) {
	if len(strings.TrimSpace(reason)) < minWaiverReasonLength {
		return nil, errors.NewValidationError(fmt.Sprintf("waiver reason must be at least %d characters", minWaiverReasonLength))
	}
	owner, err := l.store.InstallmentOwner(ctx, installmentID)
	if err != nil {
		return nil, err
	}

	var out *models.Installment
	err = lock.WithLock(ctx, l.locker, lock.ApplicationKey(owner), func(ctx context.Context) error {
		inst, err := l.store.GetInstallment(ctx, installmentID)
		if err != nil {
			return err
		}
		if inst.Status == models.InstallmentPaid {
			return errors.NewValidationError("installment is already paid")
		}
		inst.Status = models.InstallmentWaived
		inst.WaiverReason = strings.TrimSpace(reason)
		inst.DaysOverdue = 0
		if err := l.store.UpdateInstallment(ctx, inst); err != nil {
			return err
		}
		out = inst
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("installment waived", map[string]interface{}{"installmentId": installmentID})
	return out, nil
}

// IsFullyPaid reports whether every installment of the schedule is PAID or WAIVED.
func (l *Ledger) IsFullyPaid(ctx context.Context, scheduleID string) (bool, error) {
	sched, err := l.store.GetSchedule(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	return Settled(sched), nil
}

// EquityStatus reports whether the application has an equity schedule and whether it is settled.
func (l *Ledger) EquityStatus(ctx context.Context, applicationID string) (exists, settled bool, err error) {
	sched, err := l.store.LatestSchedule(ctx, applicationID, models.PurposeEquity)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeNotFound {
			return false, false, nil
		}
		return false, false, err
	}
	return true, Settled(sched), nil
}

// Settled reports whether every installment is PAID or WAIVED. A schedule without installments is not settled.
func Settled(s *models.PaymentSchedule) bool {
	if s == nil || len(s.Installments) == 0 {
		return false
	}
	for _, inst := range s.Installments {
		if !inst.Status.Settled() {
			return false
		}
	}
	return true
}

// ==========================
// Pure ledger arithmetic
// ==========================

// ApplyPayment allocates amount to fees, then interest, then principal, after assessing lateness at now.
// The returned Payment has no ID or reference.
func ApplyPayment(inst models.Installment, amount decimal.Decimal, now time.Time, policy Policy) (models.Installment, *models.Payment, error) {
	if inst.Status.Settled() {
		return inst, nil, errors.NewValidationError(fmt.Sprintf("installment %d is already %s", inst.Sequence, inst.Status))
	}

	inst, _ = AssessOverdue(inst, now, policy)

	remaining := inst.AmountRemaining
	excess := decimal.Zero
	if amount.GreaterThan(remaining) {
		if policy.StrictOverpayment {
			return inst, nil, errors.NewValidationError(fmt.Sprintf(
				"payment %s exceeds amount remaining %s", amount.StringFixed(2), remaining.StringFixed(2)))
		}
		excess = amount.Sub(remaining)
		amount = remaining
	}

	left := amount
	take := func(due, paid decimal.Decimal) decimal.Decimal {
		open := due.Sub(paid)
		if !open.IsPositive() || !left.IsPositive() {
			return decimal.Zero
		}
		applied := decimal.Min(open, left)
		left = left.Sub(applied)
		return applied
	}

	fees := take(inst.AmountDue.Fees, inst.AmountPaid.Fees)
	interest := take(inst.AmountDue.Interest, inst.AmountPaid.Interest)
	principal := take(inst.AmountDue.Principal, inst.AmountPaid.Principal)

	inst.AmountPaid = inst.AmountPaid.Add(models.Amounts{Principal: principal, Interest: interest, Fees: fees})
	inst.AmountRemaining = inst.AmountDue.Total().Sub(inst.AmountPaid.Total())
	inst.Status = statusFor(inst, now)
	if inst.Status == models.InstallmentPaid {
		paidAt := now
		inst.PaidAt = &paidAt
	}

	return inst, &models.Payment{
		InstallmentID:    inst.ID,
		Amount:           amount.Add(excess),
		AppliedFees:      fees,
		AppliedInterest:  interest,
		AppliedPrincipal: principal,
		Excess:           excess,
		ReceivedAt:       now,
	}, nil
}

// AssessOverdue recomputes lateness at now. The first time an installment becomes OVERDUE a late fee
// is charged once and added to the fees due.
func AssessOverdue(inst models.Installment, now time.Time, policy Policy) (models.Installment, bool) {
	if inst.Status.Settled() || !inst.AmountRemaining.IsPositive() {
		return inst, false
	}
	before := inst

	if overdueFrom, ok := overdueSince(inst, now); ok {
		if inst.LateFee.IsZero() {
			fee := policy.LateFeeFlat.Add(
				inst.AmountRemaining.Mul(policy.LateFeePercent).Div(hundred),
			).Round(moneyPlaces)
			if fee.IsPositive() {
				inst.LateFee = fee
				inst.AmountDue.Fees = inst.AmountDue.Fees.Add(fee)
				inst.AmountRemaining = inst.AmountRemaining.Add(fee)
			}
		}
		inst.DaysOverdue = int(now.Sub(overdueFrom).Hours() / 24)
	}
	inst.Status = statusFor(inst, now)

	changed := inst.Status != before.Status ||
		inst.DaysOverdue != before.DaysOverdue ||
		!inst.LateFee.Equal(before.LateFee)
	return inst, changed
}

// overdueSince returns the instant after which an unpaid installment counts as overdue.
func overdueSince(inst models.Installment, now time.Time) (time.Time, bool) {
	limit := inst.DueDate
	if inst.GracePeriodEndDate != nil {
		limit = *inst.GracePeriodEndDate
	}
	return limit, now.After(limit)
}

// statusFor derives the status of an unsettled installment.
// LATE means past the due date but still inside the grace period.
func statusFor(inst models.Installment, now time.Time) models.InstallmentStatus {
	if inst.Status == models.InstallmentWaived {
		return inst.Status
	}
	if !inst.AmountRemaining.IsPositive() {
		return models.InstallmentPaid
	}
	if _, overdue := overdueSince(inst, now); overdue {
		return models.InstallmentOverdue
	}
	if now.After(inst.DueDate) {
		return models.InstallmentLate
	}
	if inst.Status == models.InstallmentDeferred {
		return inst.Status
	}
	if inst.AmountPaid.Total().IsPositive() {
		return models.InstallmentPartial
	}
	return models.InstallmentPending
}
