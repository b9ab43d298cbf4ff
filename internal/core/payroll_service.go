package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type payrollService struct {
	pool  *pgxpool.Pool
	clock Clock
}

// NewPayrollService constructs a PayrollService backed by PostgreSQL.
func NewPayrollService(pool *pgxpool.Pool, clock Clock) PayrollService {
	if clock == nil {
		clock = SystemClock
	}
	return &payrollService{pool: pool, clock: clock}
}

const payrollColumns = `
	r.id, r.employee_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''), u.email,
	r.pay_period_start, r.pay_period_end,
	r.base_salary, r.hourly_rate, r.regular_hours, r.overtime_hours, r.bonuses,
	r.tax_deductions, r.insurance_deductions, r.other_deductions,
	r.overtime_rate, r.regular_pay, r.overtime_pay, r.gross_pay, r.total_deductions, r.net_pay,
	r.is_paid, r.payment_date, r.payment_method, r.notes, r.created_at, r.updated_at`

const payrollFrom = `
	FROM payroll_records r
	JOIN users u ON u.id = r.employee_id`

func scanPayroll(row pgx.Row) (*PayrollRecord, error) {
	var r PayrollRecord
	if err := row.Scan(
		&r.ID, &r.EmployeeID, &r.EmployeeName, &r.EmployeeEmail,
		&r.PayPeriodStart, &r.PayPeriodEnd,
		&r.BaseSalary, &r.HourlyRate, &r.RegularHours, &r.OvertimeHours, &r.Bonuses,
		&r.TaxDeductions, &r.InsuranceDeductions, &r.OtherDeductions,
		&r.OvertimeRate, &r.RegularPay, &r.OvertimePay, &r.GrossPay, &r.TotalDeductions, &r.NetPay,
		&r.IsPaid, &r.PaymentDate, &r.PaymentMethod, &r.Notes, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

func getPayroll(ctx context.Context, q pgxQuerier, where string, id int) (*PayrollRecord, error) {
	r, err := scanPayroll(q.QueryRow(ctx, "SELECT "+payrollColumns+payrollFrom+" WHERE "+where, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("payroll record %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payroll record %d: %w", id, err)
	}
	return r, nil
}

func (s *payrollService) CreateRecord(ctx context.Context, in PayrollInput) (*PayrollRecord, error) {
	if in.EmployeeID <= 0 {
		return nil, InvalidInputf("employee_id is required")
	}
	start, end := dateOnly(in.PayPeriodStart), dateOnly(in.PayPeriodEnd)
	if !start.Before(end) {
		return nil, InvalidInputf("pay_period_start must be before pay_period_end")
	}
	pay, err := ComputePay(in.PayInputs)
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "bank_transfer"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", in.EmployeeID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check employee %d: %w", in.EmployeeID, err)
	}
	if !exists {
		return nil, NotFoundf("employee %d not found", in.EmployeeID)
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO payroll_records
			(employee_id, pay_period_start, pay_period_end,
			 base_salary, hourly_rate, regular_hours, overtime_hours, bonuses,
			 tax_deductions, insurance_deductions, other_deductions,
			 overtime_rate, regular_pay, overtime_pay, gross_pay, total_deductions, net_pay,
			 payment_method, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`, in.EmployeeID, start, end,
		in.BaseSalary, in.HourlyRate, in.RegularHours, in.OvertimeHours, in.Bonuses,
		in.TaxDeductions, in.InsuranceDeductions, in.OtherDeductions,
		pay.OvertimeRate, pay.RegularPay, pay.OvertimePay, pay.GrossPay, pay.TotalDeductions, pay.NetPay,
		method, strings.TrimSpace(in.Notes),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("employee %d already has a payroll record for %s to %s",
				in.EmployeeID, start.Format("2006-01-02"), end.Format("2006-01-02"))
		}
		return nil, mapWriteError(err, "create payroll record")
	}

	r, err := getPayroll(ctx, tx, "r.id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payroll record: %w", err)
	}
	return r, nil
}

func (s *payrollService) UpdateRecord(ctx context.Context, id int, upd PayrollUpdate) (*PayrollRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := getPayroll(ctx, tx, "r.id = $1 FOR UPDATE OF r", id)
	if err != nil {
		return nil, err
	}
	if r.IsPaid {
		return nil, ImmutableRecordf("payroll record %d is paid and cannot be changed", id)
	}

	applyPayrollUpdate(r, upd)
	start, end := dateOnly(r.PayPeriodStart), dateOnly(r.PayPeriodEnd)
	if !start.Before(end) {
		return nil, InvalidInputf("pay_period_start must be before pay_period_end")
	}
	pay, err := ComputePay(r.PayInputs)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE payroll_records SET
			pay_period_start = $1, pay_period_end = $2,
			base_salary = $3, hourly_rate = $4, regular_hours = $5, overtime_hours = $6, bonuses = $7,
			tax_deductions = $8, insurance_deductions = $9, other_deductions = $10,
			overtime_rate = $11, regular_pay = $12, overtime_pay = $13, gross_pay = $14,
			total_deductions = $15, net_pay = $16,
			payment_method = $17, notes = $18, updated_at = NOW()
		WHERE id = $19
	`, start, end,
		r.BaseSalary, r.HourlyRate, r.RegularHours, r.OvertimeHours, r.Bonuses,
		r.TaxDeductions, r.InsuranceDeductions, r.OtherDeductions,
		pay.OvertimeRate, pay.RegularPay, pay.OvertimePay, pay.GrossPay,
		pay.TotalDeductions, pay.NetPay,
		r.PaymentMethod, r.Notes, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("employee %d already has a payroll record for that period", r.EmployeeID)
		}
		return nil, mapWriteError(err, "update payroll record")
	}

	r, err = getPayroll(ctx, tx, "r.id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payroll update: %w", err)
	}
	return r, nil
}

func (s *payrollService) DeleteRecord(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var paid bool
	err = tx.QueryRow(ctx, "SELECT is_paid FROM payroll_records WHERE id = $1 FOR UPDATE", id).Scan(&paid)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFoundf("payroll record %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to lock payroll record %d: %w", id, err)
	}
	if paid {
		return ImmutableRecordf("payroll record %d is paid and cannot be deleted", id)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM payroll_records WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete payroll record %d: %w", id, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit payroll delete: %w", err)
	}
	return nil
}

func (s *payrollService) MarkPaid(ctx context.Context, id int, method string) (*PayrollRecord, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	r, err := getPayroll(ctx, tx, "r.id = $1 FOR UPDATE OF r", id)
	if err != nil {
		return nil, err
	}
	if r.IsPaid {
		return nil, AlreadyPaidf("payroll record %d was already paid on %s", id, formatDate(r.PaymentDate))
	}
	if m := strings.TrimSpace(method); m != "" {
		r.PaymentMethod = m
	}

	if _, err := tx.Exec(ctx, `
		UPDATE payroll_records
		SET is_paid = true, payment_date = $1, payment_method = $2, updated_at = NOW()
		WHERE id = $3
	`, dateOnly(s.clock()), r.PaymentMethod, id); err != nil {
		return nil, fmt.Errorf("failed to mark payroll record %d paid: %w", id, err)
	}

	r, err = getPayroll(ctx, tx, "r.id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payroll payment: %w", err)
	}
	return r, nil
}

func (s *payrollService) GetRecord(ctx context.Context, id int) (*PayrollRecord, error) {
	return getPayroll(ctx, s.pool, "r.id = $1", id)
}

func (s *payrollService) ListRecords(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, PageInfo, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EmployeeID != nil {
		where = append(where, "r.employee_id = "+arg(*filter.EmployeeID))
	}
	if filter.Year > 0 {
		where = append(where, "EXTRACT(YEAR FROM r.pay_period_start) = "+arg(filter.Year))
	}
	if filter.Month > 0 {
		where = append(where, "EXTRACT(MONTH FROM r.pay_period_start) = "+arg(filter.Month))
	}
	if filter.IsPaid != nil {
		where = append(where, "r.is_paid = "+arg(*filter.IsPaid))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM payroll_records r "+clause, args...).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count payroll records: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := "SELECT " + payrollColumns + payrollFrom + " " + clause +
		" ORDER BY r.pay_period_start DESC, r.id DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query payroll records: %w", err)
	}
	defer rows.Close()

	records := []PayrollRecord{}
	for rows.Next() {
		r, err := scanPayroll(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan payroll record: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating payroll records: %w", err)
	}
	return records, newPageInfo(total, filter.Page), nil
}

func (s *payrollService) Summary(ctx context.Context, year, month int) (*PayrollSummary, error) {
	if err := (Period{Year: year, Month: month}).Validate(); err != nil {
		return nil, err
	}
	sum := &PayrollSummary{Year: year, Month: month}

	if month > 0 {
		err := s.pool.QueryRow(ctx, `
			SELECT COUNT(*),
			       COALESCE(SUM(gross_pay), 0),
			       COALESCE(SUM(total_deductions), 0),
			       COALESCE(SUM(net_pay), 0),
			       COUNT(*) FILTER (WHERE NOT is_paid),
			       COUNT(*) FILTER (WHERE is_paid)
			FROM payroll_records
			WHERE EXTRACT(YEAR FROM pay_period_start) = $1
			  AND EXTRACT(MONTH FROM pay_period_start) = $2
		`, year, month).Scan(
			&sum.Monthly.TotalEmployees, &sum.Monthly.TotalGrossPay, &sum.Monthly.TotalDeductions,
			&sum.Monthly.TotalNetPay, &sum.Monthly.Pending, &sum.Monthly.Paid,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to summarise payroll for %d-%02d: %w", year, month, err)
		}
	}

	rows, err := s.pool.Query(ctx, `
		SELECT EXTRACT(MONTH FROM pay_period_start)::int AS m,
		       COALESCE(SUM(gross_pay), 0), COALESCE(SUM(net_pay), 0), COUNT(*)
		FROM payroll_records
		WHERE EXTRACT(YEAR FROM pay_period_start) = $1
		GROUP BY m
		ORDER BY m
	`, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll breakdown for %d: %w", year, err)
	}
	defer rows.Close()

	sum.Yearly.MonthlyBreakdown = []PayrollMonthBreakdown{}
	for rows.Next() {
		var b PayrollMonthBreakdown
		if err := rows.Scan(&b.Month, &b.GrossPay, &b.NetPay, &b.Employees); err != nil {
			return nil, fmt.Errorf("failed to scan payroll breakdown: %w", err)
		}
		sum.Yearly.TotalNetPay = sum.Yearly.TotalNetPay.Add(b.NetPay)
		sum.Yearly.MonthlyBreakdown = append(sum.Yearly.MonthlyBreakdown, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating payroll breakdown: %w", err)
	}
	return sum, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func applyPayrollUpdate(r *PayrollRecord, upd PayrollUpdate) {
	setTime := func(dst *time.Time, v *time.Time) {
		if v != nil {
			*dst = *v
		}
	}
	setDec := func(dst *decimal.Decimal, v *decimal.Decimal) {
		if v != nil {
			*dst = *v
		}
	}
	setTime(&r.PayPeriodStart, upd.PayPeriodStart)
	setTime(&r.PayPeriodEnd, upd.PayPeriodEnd)
	setDec(&r.BaseSalary, upd.BaseSalary)
	setDec(&r.HourlyRate, upd.HourlyRate)
	setDec(&r.RegularHours, upd.RegularHours)
	setDec(&r.OvertimeHours, upd.OvertimeHours)
	setDec(&r.Bonuses, upd.Bonuses)
	setDec(&r.TaxDeductions, upd.TaxDeductions)
	setDec(&r.InsuranceDeductions, upd.InsuranceDeductions)
	setDec(&r.OtherDeductions, upd.OtherDeductions)
	if upd.PaymentMethod != nil {
		r.PaymentMethod = strings.TrimSpace(*upd.PaymentMethod)
	}
	if upd.Notes != nil {
		r.Notes = strings.TrimSpace(*upd.Notes)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "an unknown date"
	}
	return t.Format("2006-01-02")
}
