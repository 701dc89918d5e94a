package schedule

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"mortgage-workflow/internal/common/errors"
	"mortgage-workflow/internal/models"

	"github.com/lib/pq"
)

// PostgresStore persists schedules in payment_schedules, installments and payments.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const installmentColumns = `id, schedule_id, sequence,
	principal_due, interest_due, fees_due,
	principal_paid, interest_paid, fees_paid,
	amount_remaining, due_date, grace_period_end_date, status,
	days_overdue, late_fee, paid_at, waiver_reason`

// CreateSchedule writes the schedule and all installments in one transaction.
func (s *PostgresStore) CreateSchedule(ctx context.Context, sched *models.PaymentSchedule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageFailureError("begin create schedule", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payment_schedules (
			id, application_id, purpose, total_amount, duration_months, interest_rate,
			frequency, start_date, grace_period_days, daily_interest, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		sched.ID, sched.ApplicationID, sched.Purpose, sched.TotalAmount, sched.DurationMonths, sched.InterestRate,
		sched.Frequency, sched.StartDate, sched.GracePeriodDays, sched.DailyInterest, sched.CreatedAt,
	)
	if err != nil {
		return errors.NewStorageFailureError("insert payment schedule", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO installments (`+installmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
	if err != nil {
		return errors.NewStorageFailureError("prepare installment insert", err)
	}
	defer stmt.Close()

	for _, inst := range sched.Installments {
		if _, err := stmt.ExecContext(ctx, installmentArgs(&inst)...); err != nil {
			return errors.NewStorageFailureError("insert installment", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageFailureError("commit create schedule", err)
	}
	return nil
}

func installmentArgs(inst *models.Installment) []interface{} {
	return []interface{}{
		inst.ID, inst.ScheduleID, inst.Sequence,
		inst.AmountDue.Principal, inst.AmountDue.Interest, inst.AmountDue.Fees,
		inst.AmountPaid.Principal, inst.AmountPaid.Interest, inst.AmountPaid.Fees,
		inst.AmountRemaining, inst.DueDate, nullTime(inst.GracePeriodEndDate), inst.Status,
		inst.DaysOverdue, inst.LateFee, nullTime(inst.PaidAt), inst.WaiverReason,
	}
}

func (s *PostgresStore) GetSchedule(ctx context.Context, scheduleID string) (*models.PaymentSchedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, purpose, total_amount, duration_months, interest_rate,
		       frequency, start_date, grace_period_days, daily_interest, created_at
		FROM payment_schedules WHERE id = $1`, scheduleID)
	return s.loadSchedule(ctx, row, scheduleID)
}

func (s *PostgresStore) LatestSchedule(ctx context.Context, applicationID string, purpose models.SchedulePurpose) (*models.PaymentSchedule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, application_id, purpose, total_amount, duration_months, interest_rate,
		       frequency, start_date, grace_period_days, daily_interest, created_at
		FROM payment_schedules
		WHERE application_id = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1`, applicationID, purpose)
	return s.loadSchedule(ctx, row, applicationID+"/"+string(purpose))
}

func (s *PostgresStore) loadSchedule(ctx context.Context, row *sql.Row, lookup string) (*models.PaymentSchedule, error) {
	var sched models.PaymentSchedule
	err := row.Scan(
		&sched.ID, &sched.ApplicationID, &sched.Purpose, &sched.TotalAmount, &sched.DurationMonths, &sched.InterestRate,
		&sched.Frequency, &sched.StartDate, &sched.GracePeriodDays, &sched.DailyInterest, &sched.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("payment schedule", lookup)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load payment schedule", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+installmentColumns+`
		FROM installments WHERE schedule_id = $1 ORDER BY sequence`, sched.ID)
	if err != nil {
		return nil, errors.NewStorageFailureError("load installments", err)
	}
	defer rows.Close()

	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, errors.NewStorageFailureError("scan installment", err)
		}
		sched.Installments = append(sched.Installments, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate installments", err)
	}
	return &sched, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstallment(sc scanner) (*models.Installment, error) {
	var inst models.Installment
	var graceEnd, paidAt sql.NullTime
	err := sc.Scan(
		&inst.ID, &inst.ScheduleID, &inst.Sequence,
		&inst.AmountDue.Principal, &inst.AmountDue.Interest, &inst.AmountDue.Fees,
		&inst.AmountPaid.Principal, &inst.AmountPaid.Interest, &inst.AmountPaid.Fees,
		&inst.AmountRemaining, &inst.DueDate, &graceEnd, &inst.Status,
		&inst.DaysOverdue, &inst.LateFee, &paidAt, &inst.WaiverReason,
	)
	if err != nil {
		return nil, err
	}
	if graceEnd.Valid {
		t := graceEnd.Time
		inst.GracePeriodEndDate = &t
	}
	if paidAt.Valid {
		t := paidAt.Time
		inst.PaidAt = &t
	}
	return &inst, nil
}

func (s *PostgresStore) GetInstallment(ctx context.Context, installmentID string) (*models.Installment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, installmentID)
	inst, err := scanInstallment(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("installment", installmentID)
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load installment", err)
	}
	return inst, nil
}

func (s *PostgresStore) InstallmentOwner(ctx context.Context, installmentID string) (string, error) {
	var applicationID string
	err := s.db.QueryRowContext(ctx, `
		SELECT ps.application_id
		FROM installments i JOIN payment_schedules ps ON ps.id = i.schedule_id
		WHERE i.id = $1`, installmentID).Scan(&applicationID)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", errors.NewNotFoundError("installment", installmentID)
	}
	if err != nil {
		return "", errors.NewStorageFailureError("load installment owner", err)
	}
	return applicationID, nil
}

func (s *PostgresStore) FindPayment(ctx context.Context, installmentID, reference string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, installment_id, amount, reference, applied_fees, applied_interest,
		       applied_principal, excess, received_at
		FROM payments WHERE installment_id = $1 AND reference = $2`, installmentID, reference).Scan(
		&p.ID, &p.InstallmentID, &p.Amount, &p.Reference, &p.AppliedFees, &p.AppliedInterest,
		&p.AppliedPrincipal, &p.Excess, &p.ReceivedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStorageFailureError("load payment", err)
	}
	return &p, nil
}

// SavePayment inserts the receipt and updates the installment atomically.
func (s *PostgresStore) SavePayment(ctx context.Context, inst *models.Installment, p *models.Payment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageFailureError("begin save payment", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments (
			id, installment_id, amount, reference, applied_fees, applied_interest,
			applied_principal, excess, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.InstallmentID, p.Amount, p.Reference, p.AppliedFees, p.AppliedInterest,
		p.AppliedPrincipal, p.Excess, p.ReceivedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return errors.NewValidationError("duplicate payment reference: " + p.Reference)
		}
		return errors.NewStorageFailureError("insert payment", err)
	}

	if err := updateInstallment(ctx, tx, inst); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStorageFailureError("commit save payment", err)
	}
	return nil
}

func (s *PostgresStore) UpdateInstallment(ctx context.Context, inst *models.Installment) error {
	return updateInstallment(ctx, s.db, inst)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func updateInstallment(ctx context.Context, db execer, inst *models.Installment) error {
	res, err := db.ExecContext(ctx, `
		UPDATE installments SET
			principal_paid = $2, interest_paid = $3, fees_paid = $4,
			fees_due = $5, amount_remaining = $6, status = $7,
			days_overdue = $8, late_fee = $9, paid_at = $10, waiver_reason = $11
		WHERE id = $1`,
		inst.ID,
		inst.AmountPaid.Principal, inst.AmountPaid.Interest, inst.AmountPaid.Fees,
		inst.AmountDue.Fees, inst.AmountRemaining, inst.Status,
		inst.DaysOverdue, inst.LateFee, nullTime(inst.PaidAt), inst.WaiverReason,
	)
	if err != nil {
		return errors.NewStorageFailureError("update installment", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("installment", inst.ID)
	}
	return nil
}

func (s *PostgresStore) ListUnsettledDueBefore(ctx context.Context, before time.Time) ([]models.Installment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+installmentColumns+`
		FROM installments
		WHERE due_date < $1 AND status NOT IN ('PAID', 'WAIVED')
		ORDER BY due_date`, before)
	if err != nil {
		return nil, errors.NewStorageFailureError("list unsettled installments", err)
	}
	defer rows.Close()

	var out []models.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, errors.NewStorageFailureError("scan installment", err)
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailureError("iterate installments", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
