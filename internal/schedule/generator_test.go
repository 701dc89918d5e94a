package schedule

import (
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ==========================
// Amortization
// ==========================

func TestGenerate_TwelveMonthTwelvePercent(t *testing.T) {
	sched, err := Generate(GenerateParams{
		ApplicationID:  "app-1",
		TotalAmount:    dec("1200000"),
		DurationMonths: 12,
		InterestRate:   dec("12"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 15),
	})
	require.NoError(t, err)
	require.Len(t, sched.Installments, 12)
	assert.Equal(t, models.PurposeMortgage, sched.Purpose)

	first := sched.Installments[0]
	assert.True(t, dec("12000.00").Equal(first.AmountDue.Interest), "first interest %s", first.AmountDue.Interest)
	assert.True(t, dec("94618.55").Equal(first.AmountDue.Principal))
	assert.True(t, dec("106618.55").Equal(first.AmountDue.Total()))
	assert.Equal(t, date(2025, time.February, 15), first.DueDate)

	for _, inst := range sched.Installments[:11] {
		assert.True(t, dec("106618.55").Equal(inst.AmountDue.Total()), "installment %d total %s", inst.Sequence, inst.AmountDue.Total())
	}

	last := sched.Installments[11]
	assert.True(t, dec("105562.88").Equal(last.AmountDue.Principal))
	assert.True(t, dec("1055.63").Equal(last.AmountDue.Interest))

	sumPrincipal, sumInterest, sumDue := decimal.Zero, decimal.Zero, decimal.Zero
	for _, inst := range sched.Installments {
		sumPrincipal = sumPrincipal.Add(inst.AmountDue.Principal)
		sumInterest = sumInterest.Add(inst.AmountDue.Interest)
		sumDue = sumDue.Add(inst.AmountDue.Total())
		assert.Equal(t, models.InstallmentPending, inst.Status)
		assert.True(t, inst.AmountRemaining.Equal(inst.AmountDue.Total()))
	}
	assert.True(t, sumPrincipal.Equal(dec("1200000")))
	assert.True(t, sumInterest.Equal(dec("79422.56")))
	assert.True(t, sumDue.Equal(dec("1279422.56")))
}

func TestLevelPayment(t *testing.T) {
	assert.True(t, dec("106618.55").Equal(LevelPayment(dec("1200000"), dec("0.01"), 12)))
	assert.True(t, dec("333.33").Equal(LevelPayment(dec("1000"), decimal.Zero, 3)))
}

func TestGenerate_ZeroInterestFinalInstallmentAbsorbsRounding(t *testing.T) {
	sched, err := Generate(GenerateParams{
		TotalAmount:    dec("1000"),
		DurationMonths: 3,
		InterestRate:   decimal.Zero,
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.March, 1),
	})
	require.NoError(t, err)
	require.Len(t, sched.Installments, 3)
	assert.True(t, dec("333.33").Equal(sched.Installments[0].AmountDue.Principal))
	assert.True(t, dec("333.33").Equal(sched.Installments[1].AmountDue.Principal))
	assert.True(t, dec("333.34").Equal(sched.Installments[2].AmountDue.Principal))
}

func TestGenerate_ReconcilesAcrossInputs(t *testing.T) {
	tests := []struct {
		name      string
		total     string
		months    int
		rate      string
		frequency models.Frequency
		daily     bool
		fee       string
		expectN   int
	}{
		{"monthly 30y", "350000.00", 360, "6.5", models.FrequencyMonthly, false, "0", 360},
		{"quarterly", "80000", 24, "9", models.FrequencyQuarterly, false, "0", 8},
		{"annual", "12345.67", 60, "4.25", models.FrequencyAnnually, false, "0", 5},
		{"weekly", "5000", 12, "15", models.FrequencyWeekly, false, "0", 52},
		{"biweekly", "7777.77", 6, "3", models.FrequencyBiweekly, false, "0", 13},
		{"daily interest", "250000", 12, "18", models.FrequencyMonthly, true, "0", 12},
		{"with fee", "90000", 12, "10", models.FrequencyMonthly, false, "25.50", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := Generate(GenerateParams{
				TotalAmount:    dec(tt.total),
				DurationMonths: tt.months,
				InterestRate:   dec(tt.rate),
				Frequency:      tt.frequency,
				StartDate:      date(2025, time.January, 31),
				DailyInterest:  tt.daily,
				InstallmentFee: dec(tt.fee),
			})
			require.NoError(t, err)
			assert.Len(t, sched.Installments, tt.expectN)

			sumPrincipal, sumInterest, sumFees, sumDue := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
			for _, inst := range sched.Installments {
				sumPrincipal = sumPrincipal.Add(inst.AmountDue.Principal)
				sumInterest = sumInterest.Add(inst.AmountDue.Interest)
				sumFees = sumFees.Add(inst.AmountDue.Fees)
				sumDue = sumDue.Add(inst.AmountDue.Total())
				assert.False(t, inst.AmountDue.Principal.IsNegative())
			}
			assert.True(t, sumPrincipal.Equal(dec(tt.total)), "principal %s", sumPrincipal)
			assert.True(t, sumDue.Equal(dec(tt.total).Add(sumInterest).Add(sumFees)))
			assert.True(t, sumFees.Equal(dec(tt.fee).Mul(decimal.NewFromInt(int64(tt.expectN)))))
		})
	}
}

// ==========================
// Validation
// ==========================

func TestGenerate_CustomFrequencyUnsupported(t *testing.T) {
	_, err := Generate(GenerateParams{
		TotalAmount:    dec("1000"),
		DurationMonths: 12,
		InterestRate:   dec("5"),
		Frequency:      models.FrequencyCustom,
		StartDate:      date(2025, time.January, 1),
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedFrequency))
}

func TestGenerate_InvalidParams(t *testing.T) {
	base := GenerateParams{
		TotalAmount:    dec("1000"),
		DurationMonths: 12,
		InterestRate:   dec("5"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	}

	tests := []struct {
		name   string
		mutate func(p *GenerateParams)
	}{
		{"zero amount", func(p *GenerateParams) { p.TotalAmount = decimal.Zero }},
		{"sub-cent amount", func(p *GenerateParams) { p.TotalAmount = dec("10.005") }},
		{"zero duration", func(p *GenerateParams) { p.DurationMonths = 0 }},
		{"negative rate", func(p *GenerateParams) { p.InterestRate = dec("-1") }},
		{"missing start", func(p *GenerateParams) { p.StartDate = time.Time{} }},
		{"negative grace", func(p *GenerateParams) { p.GracePeriodDays = -1 }},
		{"unknown frequency", func(p *GenerateParams) { p.Frequency = "DAILY" }},
		{"quarterly not divisible", func(p *GenerateParams) { p.Frequency = models.FrequencyQuarterly; p.DurationMonths = 10 }},
		{"unknown purpose", func(p *GenerateParams) { p.Purpose = "RENT" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := Generate(p)
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrValidation), "got %v", err)
		})
	}
}

// ==========================
// Dates and reconciliation
// ==========================

func TestDueDate_ClampsToMonthEnd(t *testing.T) {
	start := date(2025, time.January, 31)
	assert.Equal(t, date(2025, time.February, 28), DueDate(start, models.FrequencyMonthly, 1))
	assert.Equal(t, date(2025, time.March, 31), DueDate(start, models.FrequencyMonthly, 2))
	assert.Equal(t, date(2025, time.April, 30), DueDate(start, models.FrequencyQuarterly, 1))
	assert.Equal(t, date(2026, time.January, 31), DueDate(start, models.FrequencyAnnually, 1))
	assert.Equal(t, date(2025, time.February, 14), DueDate(start, models.FrequencyBiweekly, 1))
}

func TestGenerate_GracePeriodEndDate(t *testing.T) {
	sched, err := Generate(GenerateParams{
		TotalAmount:     dec("1000"),
		DurationMonths:  2,
		InterestRate:    dec("6"),
		Frequency:       models.FrequencyMonthly,
		StartDate:       date(2025, time.May, 1),
		GracePeriodDays: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, sched.Installments[0].GracePeriodEndDate)
	assert.Equal(t, date(2025, time.June, 6), *sched.Installments[0].GracePeriodEndDate)
}

func TestReconcile_DetectsImbalance(t *testing.T) {
	sched, err := Generate(GenerateParams{
		TotalAmount:    dec("1000"),
		DurationMonths: 3,
		InterestRate:   dec("12"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	})
	require.NoError(t, err)

	sched.Installments[1].AmountDue.Principal = sched.Installments[1].AmountDue.Principal.Add(dec("0.01"))
	err = Reconcile(sched)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrReconciliation))
}

func TestReconcile_AmountDueIncludesInterest(t *testing.T) {
	tests := []struct {
		name         string
		rate         string
		wantInterest bool
	}{
		{name: "interest bearing", rate: "12", wantInterest: true},
		{name: "interest free", rate: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := Generate(GenerateParams{
				TotalAmount:    dec("1200"),
				DurationMonths: 4,
				InterestRate:   dec(tt.rate),
				Frequency:      models.FrequencyMonthly,
				StartDate:      date(2025, time.January, 1),
			})
			require.NoError(t, err)
			require.NoError(t, Reconcile(sched))

			due, interest := decimal.Zero, decimal.Zero
			for _, inst := range sched.Installments {
				due = due.Add(inst.AmountDue.Total())
				interest = interest.Add(inst.AmountDue.Interest)
			}
			assert.True(t, due.Equal(dec("1200").Add(interest)), "due %s interest %s", due, interest)
			assert.Equal(t, tt.wantInterest, interest.IsPositive())
		})
	}
}

func TestGenerate_NoGracePeriodLeavesEndDateUnset(t *testing.T) {
	sched, err := Generate(GenerateParams{
		TotalAmount:    dec("900"),
		DurationMonths: 3,
		InterestRate:   dec("0"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	})
	require.NoError(t, err)
	for _, inst := range sched.Installments {
		assert.Nil(t, inst.GracePeriodEndDate)
	}
}
