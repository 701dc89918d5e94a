package schedule

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var installmentColumnNames = []string{
	"id", "schedule_id", "sequence",
	"principal_due", "interest_due", "fees_due",
	"principal_paid", "interest_paid", "fees_paid",
	"amount_remaining", "due_date", "grace_period_end_date", "status",
	"days_overdue", "late_fee", "paid_at", "waiver_reason",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_CreateSchedule(t *testing.T) {
	store, mock := newMockStore(t)
	sched, err := Generate(GenerateParams{
		ApplicationID:  "app-1",
		TotalAmount:    dec("1000"),
		DurationMonths: 2,
		InterestRate:   dec("12"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_schedules").
		WithArgs(sched.ID, "app-1", sqlmock.AnyArg(), sqlmock.AnyArg(), 2, sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), 0, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT INTO installments")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.CreateSchedule(context.Background(), sched))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateSchedule_RollsBackOnInstallmentFailure(t *testing.T) {
	store, mock := newMockStore(t)
	sched, err := Generate(GenerateParams{
		TotalAmount:    dec("1000"),
		DurationMonths: 2,
		InterestRate:   dec("12"),
		Frequency:      models.FrequencyMonthly,
		StartDate:      date(2025, time.January, 1),
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_schedules").WillReturnResult(sqlmock.NewResult(1, 1))
	prep := mock.ExpectPrepare("INSERT INTO installments")
	prep.ExpectExec().WillReturnError(stderrors.New("disk full"))
	mock.ExpectRollback()

	err = store.CreateSchedule(context.Background(), sched)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrStorageFailure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInstallment(t *testing.T) {
	store, mock := newMockStore(t)
	due := date(2025, time.February, 1)

	mock.ExpectQuery("SELECT (.+) FROM installments WHERE id = \\$1").
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows(installmentColumnNames).AddRow(
			"inst-1", "sched-1", 1,
			"900.00", "80.00", "20.00",
			"100.00", "0", "20.00",
			"880.00", due, nil, "PARTIAL",
			0, "0", nil, "",
		))

	inst, err := store.GetInstallment(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPartial, inst.Status)
	assert.True(t, dec("880.00").Equal(inst.AmountRemaining))
	assert.True(t, dec("120.00").Equal(inst.AmountPaid.Total()))
	assert.Nil(t, inst.GracePeriodEndDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetInstallment_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM installments").WillReturnError(sql.ErrNoRows)

	_, err := store.GetInstallment(context.Background(), "missing")
	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
}

func TestPostgresStore_SavePayment_DuplicateReference(t *testing.T) {
	store, mock := newMockStore(t)
	inst := newTestInstallment(date(2025, time.February, 1))
	payment := &models.Payment{ID: "pay-1", InstallmentID: inst.ID, Reference: "txn-1", Amount: dec("10")}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := store.SavePayment(context.Background(), &inst, payment)
	assert.True(t, stderrors.Is(err, errors.ErrValidation))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SavePayment(t *testing.T) {
	store, mock := newMockStore(t)
	inst := newTestInstallment(date(2025, time.February, 1))
	payment := &models.Payment{ID: "pay-1", InstallmentID: inst.ID, Reference: "txn-1", Amount: dec("10")}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE installments SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.SavePayment(context.Background(), &inst, payment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InstallmentOwner(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT ps.application_id").
		WithArgs("inst-1").
		WillReturnRows(sqlmock.NewRows([]string{"application_id"}).AddRow("app-9"))

	owner, err := store.InstallmentOwner(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "app-9", owner)
}
