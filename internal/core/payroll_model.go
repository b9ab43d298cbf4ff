package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PayInputs are the explicit inputs of one pay period.
type PayInputs struct {
	BaseSalary          decimal.Decimal `json:"base_salary"`
	HourlyRate          decimal.Decimal `json:"hourly_rate"`
	RegularHours        decimal.Decimal `json:"regular_hours"`
	OvertimeHours       decimal.Decimal `json:"overtime_hours"`
	Bonuses             decimal.Decimal `json:"bonuses"`
	TaxDeductions       decimal.Decimal `json:"tax_deductions"`
	InsuranceDeductions decimal.Decimal `json:"insurance_deductions"`
	OtherDeductions     decimal.Decimal `json:"other_deductions"`
}

// PayBreakdown is the deterministic result of ComputePay.
type PayBreakdown struct {
	OvertimeRate    decimal.Decimal `json:"overtime_rate"`
	RegularPay      decimal.Decimal `json:"regular_pay"`
	OvertimePay     decimal.Decimal `json:"overtime_pay"`
	GrossPay        decimal.Decimal `json:"gross_pay"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	NetPay          decimal.Decimal `json:"net_pay"`
}

// PayrollRecord is one pay period for one employee. Once IsPaid it is frozen.
type PayrollRecord struct {
	ID             int        `json:"id"`
	EmployeeID     int        `json:"employee_id"`
	EmployeeName   string     `json:"employee_name"`  // joined from users
	EmployeeEmail  string     `json:"employee_email"` // joined from users
	PayPeriodStart time.Time  `json:"pay_period_start"`
	PayPeriodEnd   time.Time  `json:"pay_period_end"`
	IsPaid         bool       `json:"is_paid"`
	PaymentDate    *time.Time `json:"payment_date,omitempty"`
	PaymentMethod  string     `json:"payment_method"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	PayInputs
	PayBreakdown
}

// PayrollInput creates a payroll record.
type PayrollInput struct {
	EmployeeID     int
	PayPeriodStart time.Time
	PayPeriodEnd   time.Time
	PaymentMethod  string
	Notes          string
	PayInputs
}

// PayrollUpdate patches an unpaid record; nil fields are left unchanged.
type PayrollUpdate struct {
	PayPeriodStart      *time.Time
	PayPeriodEnd        *time.Time
	BaseSalary          *decimal.Decimal
	HourlyRate          *decimal.Decimal
	RegularHours        *decimal.Decimal
	OvertimeHours       *decimal.Decimal
	Bonuses             *decimal.Decimal
	TaxDeductions       *decimal.Decimal
	InsuranceDeductions *decimal.Decimal
	OtherDeductions     *decimal.Decimal
	PaymentMethod       *string
	Notes               *string
}

// PayrollFilter narrows ListRecords. Year and Month match the period start.
type PayrollFilter struct {
	EmployeeID *int
	Year       int
	Month      int
	IsPaid     *bool
	Page       Page
}

// PayrollMonthTotals summarises one month of payroll.
type PayrollMonthTotals struct {
	TotalEmployees  int             `json:"total_employees"`
	TotalGrossPay   decimal.Decimal `json:"total_gross_pay"`
	TotalDeductions decimal.Decimal `json:"total_deductions"`
	TotalNetPay     decimal.Decimal `json:"total_net_pay"`
	Pending         int             `json:"pending"`
	Paid            int             `json:"paid"`
}

// PayrollMonthBreakdown is one row of the yearly breakdown.
type PayrollMonthBreakdown struct {
	Month     int             `json:"month"`
	GrossPay  decimal.Decimal `json:"gross_pay"`
	NetPay    decimal.Decimal `json:"net_pay"`
	Employees int             `json:"employees"`
}

// PayrollYearTotals is the yearly half of PayrollSummary.
type PayrollYearTotals struct {
	TotalNetPay      decimal.Decimal         `json:"total_net_pay"`
	MonthlyBreakdown []PayrollMonthBreakdown `json:"monthly_breakdown"`
}

// PayrollSummary is the monthly and yearly payroll overview.
type PayrollSummary struct {
	Year    int                `json:"year"`
	Month   int                `json:"month"`
	Monthly PayrollMonthTotals `json:"monthly"`
	Yearly  PayrollYearTotals  `json:"yearly"`
}

// PayrollService manages payroll records. Pay is recomputed from inputs on
// every write until the record is paid.
type PayrollService interface {
	CreateRecord(ctx context.Context, in PayrollInput) (*PayrollRecord, error)
	UpdateRecord(ctx context.Context, id int, upd PayrollUpdate) (*PayrollRecord, error)
	DeleteRecord(ctx context.Context, id int) error
	// MarkPaid freezes the record and stamps today's date. An empty method keeps the current one.
	MarkPaid(ctx context.Context, id int, method string) (*PayrollRecord, error)
	GetRecord(ctx context.Context, id int) (*PayrollRecord, error)
	ListRecords(ctx context.Context, filter PayrollFilter) ([]PayrollRecord, PageInfo, error)
	Summary(ctx context.Context, year, month int) (*PayrollSummary, error)
}
