package schedule

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/common/lock"
	"mortgage-workflow/internal/common/logger"
	"mortgage-workflow/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestInstallment(due time.Time) models.Installment {
	return models.Installment{
		ID:         "inst-1",
		ScheduleID: "sched-1",
		Sequence:   1,
		AmountDue: models.Amounts{
			Principal: dec("900.00"),
			Interest:  dec("80.00"),
			Fees:      dec("20.00"),
		},
		AmountPaid:      zeroAmounts(),
		AmountRemaining: dec("1000.00"),
		DueDate:         due,
		Status:          models.InstallmentPending,
		LateFee:         decimal.Zero,
	}
}

func newTestLedger(t *testing.T, policy Policy, now time.Time) (*Ledger, *MemoryStore) {
	store := NewMemoryStore()
	l := NewLedger(store, lock.NewLocalLocker(lock.Options{WaitFor: time.Second}), policy, logger.NewTestLogger(t))
	l.now = func() time.Time { return now }
	return l, store
}

func createEquitySchedule(t *testing.T, l *Ledger, appID string) *models.PaymentSchedule {
	sched, err := l.CreateSchedule(context.Background(), GenerateParams{
		ApplicationID:  appID,
		Purpose:        models.PurposeEquity,
		TotalAmount:    dec("3000"),
		DurationMonths: 3,
		InterestRate:   decimal.Zero,
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	})
	require.NoError(t, err)
	return sched
}

// ==========================
// Pure allocation
// ==========================

func TestApplyPayment_AllocatesFeesInterestPrincipal(t *testing.T) {
	now := date(2025, time.January, 10)
	inst := newTestInstallment(date(2025, time.February, 1))

	got, payment, err := ApplyPayment(inst, dec("90.00"), now, Policy{})
	require.NoError(t, err)
	assert.True(t, dec("20.00").Equal(payment.AppliedFees))
	assert.True(t, dec("70.00").Equal(payment.AppliedInterest))
	assert.True(t, decimal.Zero.Equal(payment.AppliedPrincipal))
	assert.Equal(t, models.InstallmentPartial, got.Status)
	assert.True(t, dec("910.00").Equal(got.AmountRemaining))

	got, payment, err = ApplyPayment(got, dec("910.00"), now, Policy{})
	require.NoError(t, err)
	assert.True(t, dec("10.00").Equal(payment.AppliedInterest))
	assert.True(t, dec("900.00").Equal(payment.AppliedPrincipal))
	assert.Equal(t, models.InstallmentPaid, got.Status)
	assert.True(t, got.AmountRemaining.IsZero())
	require.NotNil(t, got.PaidAt)
}

func TestApplyPayment_Overpayment(t *testing.T) {
	now := date(2025, time.January, 10)
	inst := newTestInstallment(date(2025, time.February, 1))

	t.Run("strict mode rejects", func(t *testing.T) {
		_, _, err := ApplyPayment(inst, dec("1000.01"), now, Policy{StrictOverpayment: true})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrValidation))
	})

	t.Run("lenient mode caps and reports excess", func(t *testing.T) {
		got, payment, err := ApplyPayment(inst, dec("1250.00"), now, Policy{})
		require.NoError(t, err)
		assert.Equal(t, models.InstallmentPaid, got.Status)
		assert.True(t, dec("250.00").Equal(payment.Excess))
		assert.True(t, dec("1250.00").Equal(payment.Amount))
		assert.True(t, got.AmountPaid.Total().Equal(dec("1000.00")))
	})
}

func TestApplyPayment_SettledInstallmentRejected(t *testing.T) {
	inst := newTestInstallment(date(2025, time.February, 1))
	inst.Status = models.InstallmentWaived

	_, _, err := ApplyPayment(inst, dec("1"), date(2025, time.January, 1), Policy{})
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestAssessOverdue(t *testing.T) {
	policy := Policy{LateFeeFlat: dec("15"), LateFeePercent: dec("1")}

	t.Run("before due date nothing changes", func(t *testing.T) {
		inst := newTestInstallment(date(2025, time.February, 1))
		_, changed := AssessOverdue(inst, date(2025, time.January, 31), policy)
		assert.False(t, changed)
	})

	t.Run("past due charges late fee once", func(t *testing.T) {
		inst := newTestInstallment(date(2025, time.February, 1))
		got, changed := AssessOverdue(inst, date(2025, time.February, 11), policy)
		require.True(t, changed)
		assert.Equal(t, models.InstallmentOverdue, got.Status)
		assert.Equal(t, 10, got.DaysOverdue)
		// 15 + 1% of 1000
		assert.True(t, dec("25.00").Equal(got.LateFee))
		assert.True(t, dec("45.00").Equal(got.AmountDue.Fees))
		assert.True(t, dec("1025.00").Equal(got.AmountRemaining))

		again, _ := AssessOverdue(got, date(2025, time.February, 21), policy)
		assert.True(t, dec("25.00").Equal(again.LateFee))
		assert.Equal(t, 20, again.DaysOverdue)
		assert.True(t, again.AmountRemaining.Equal(again.AmountDue.Total().Sub(again.AmountPaid.Total())))
	})

	t.Run("inside grace period is late not overdue", func(t *testing.T) {
		inst := newTestInstallment(date(2025, time.February, 1))
		graceEnd := date(2025, time.February, 8)
		inst.GracePeriodEndDate = &graceEnd

		got, changed := AssessOverdue(inst, date(2025, time.February, 5), policy)
		require.True(t, changed)
		assert.Equal(t, models.InstallmentLate, got.Status)
		assert.True(t, got.LateFee.IsZero())

		got, _ = AssessOverdue(inst, date(2025, time.February, 10), policy)
		assert.Equal(t, models.InstallmentOverdue, got.Status)
		assert.Equal(t, 2, got.DaysOverdue)
	})
}

// ==========================
// Ledger service
// ==========================

func TestLedger_RecordPayment_IdempotentByReference(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, Policy{}, date(2025, time.January, 20))
	sched := createEquitySchedule(t, l, "app-1")
	instID := sched.Installments[0].ID

	first, err := l.RecordPayment(ctx, instID, dec("400"), "txn-001")
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, models.InstallmentPartial, first.Installment.Status)

	again, err := l.RecordPayment(ctx, instID, dec("400"), "txn-001")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assert.True(t, dec("600.00").Equal(again.Installment.AmountRemaining))
}

func TestLedger_RecordPayment_Validation(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, Policy{}, date(2025, time.January, 20))

	tests := []struct {
		name   string
		inst   string
		amount string
		ref    string
	}{
		{"missing installment", "", "10", "r"},
		{"zero amount", "inst", "0", "r"},
		{"sub-cent amount", "inst", "0.001", "r"},
		{"missing reference", "inst", "10", " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RecordPayment(ctx, tt.inst, dec(tt.amount), tt.ref)
			assert.True(t, stderrors.Is(err, errors.ErrValidation))
		})
	}

	_, err := l.RecordPayment(ctx, "unknown", dec("10"), "r")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestLedger_EquityStatusAndFullyPaid(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, Policy{}, date(2025, time.January, 20))

	exists, settled, err := l.EquityStatus(ctx, "app-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.False(t, settled)

	sched := createEquitySchedule(t, l, "app-1")
	for i, inst := range sched.Installments {
		if i == 2 {
			_, err := l.Waive(ctx, inst.ID, "developer absorbed final installment")
			require.NoError(t, err)
			continue
		}
		_, err := l.RecordPayment(ctx, inst.ID, inst.AmountRemaining, "ref-"+inst.ID)
		require.NoError(t, err)
	}

	paid, err := l.IsFullyPaid(ctx, sched.ID)
	require.NoError(t, err)
	assert.True(t, paid)

	exists, settled, err = l.EquityStatus(ctx, "app-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.True(t, settled)
}

func TestLedger_WaiveRequiresReason(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestLedger(t, Policy{}, date(2025, time.January, 20))
	sched := createEquitySchedule(t, l, "app-1")

	_, err := l.Waive(ctx, sched.Installments[0].ID, "too short")
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
}

func TestLedger_MarkOverdue(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t, Policy{LateFeeFlat: dec("50")}, date(2025, time.January, 20))
	sched := createEquitySchedule(t, l, "app-1")

	// first installment due Feb 1, second Mar 1
	n, err := l.MarkOverdue(ctx, date(2025, time.February, 15))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	inst, err := store.GetInstallment(ctx, sched.Installments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentOverdue, inst.Status)
	assert.Equal(t, 14, inst.DaysOverdue)
	assert.True(t, dec("50").Equal(inst.LateFee))
	assert.True(t, dec("1050.00").Equal(inst.AmountRemaining))

	// a payment after the sweep pays the late fee first
	l.now = func() time.Time { return date(2025, time.February, 16) }
	res, err := l.RecordPayment(ctx, inst.ID, dec("50"), "late-fee")
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(res.Payment.AppliedFees))
	assert.Equal(t, models.InstallmentOverdue, res.Installment.Status)
}

func TestLedger_CreateSchedule_RejectsCustomWithoutPersisting(t *testing.T) {
	ctx := context.Background()
	l, store := newTestLedger(t, Policy{}, date(2025, time.January, 20))

	_, err := l.CreateSchedule(ctx, GenerateParams{
		ApplicationID:  "app-1",
		TotalAmount:    dec("1000"),
		DurationMonths: 12,
		Frequency:      models.FrequencyCustom,
		StartDate:      date(2025, time.January, 1),
	})
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFrequency))

	_, err = store.LatestSchedule(ctx, "app-1", models.PurposeMortgage)
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}
