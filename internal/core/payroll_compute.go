package core

import "github.com/shopspring/decimal"

var overtimeMultiplier = decimal.RequireFromString("1.5")

// ComputePay derives every pay component from the inputs. It is pure:
//
//	overtime_rate    = hourly_rate × 1.5
//	regular_pay      = base_salary + hourly_rate × regular_hours
//	overtime_pay     = overtime_rate × overtime_hours
//	gross_pay        = regular_pay + overtime_pay + bonuses
//	total_deductions = tax + insurance + other
//	net_pay          = gross_pay − total_deductions
func ComputePay(in PayInputs) (PayBreakdown, error) {
	fields := map[string]decimal.Decimal{
		"base_salary":          in.BaseSalary,
		"hourly_rate":          in.HourlyRate,
		"regular_hours":        in.RegularHours,
		"overtime_hours":       in.OvertimeHours,
		"bonuses":              in.Bonuses,
		"tax_deductions":       in.TaxDeductions,
		"insurance_deductions": in.InsuranceDeductions,
		"other_deductions":     in.OtherDeductions,
	}
	bad := map[string]string{}
	for name, v := range fields {
		if v.IsNegative() {
			bad[name] = "must not be negative"
		}
	}
	if len(bad) > 0 {
		return PayBreakdown{}, InvalidFields("payroll inputs must not be negative", bad)
	}

	var b PayBreakdown
	overtimeRate := in.HourlyRate.Mul(overtimeMultiplier)
	b.OvertimeRate = money(overtimeRate)
	b.RegularPay = money(in.BaseSalary.Add(in.HourlyRate.Mul(in.RegularHours)))
	// The rate is rounded for display only; pay uses the exact rate.
	b.OvertimePay = money(overtimeRate.Mul(in.OvertimeHours))
	b.GrossPay = b.RegularPay.Add(b.OvertimePay).Add(money(in.Bonuses))
	b.TotalDeductions = money(in.TaxDeductions.Add(in.InsuranceDeductions).Add(in.OtherDeductions))
	b.NetPay = b.GrossPay.Sub(b.TotalDeductions)
	return b, nil
}
