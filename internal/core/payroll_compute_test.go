package core_test

import (
	"errors"
	"testing"

	"bizledger/internal/core"
)

func TestComputePay_HourlyWithOvertime(t *testing.T) {
	in := core.PayInputs{
		BaseSalary:          dec("0"),
		HourlyRate:          dec("100"),
		RegularHours:        dec("80"),
		OvertimeHours:       dec("10"),
		Bonuses:             dec("500"),
		TaxDeductions:       dec("300"),
		InsuranceDeductions: dec("100"),
		OtherDeductions:     dec("50"),
	}

	got, err := core.ComputePay(in)
	if err != nil {
		t.Fatalf("ComputePay failed: %v", err)
	}

	assertDecimal(t, "overtime_rate", "150", got.OvertimeRate)
	assertDecimal(t, "regular_pay", "8000", got.RegularPay)
	assertDecimal(t, "overtime_pay", "1500", got.OvertimePay)
	assertDecimal(t, "gross_pay", "10000", got.GrossPay)
	assertDecimal(t, "total_deductions", "450", got.TotalDeductions)
	assertDecimal(t, "net_pay", "9550", got.NetPay)

	again, err := core.ComputePay(in)
	if err != nil {
		t.Fatalf("ComputePay failed: %v", err)
	}
	if !again.NetPay.Equal(got.NetPay) || !again.GrossPay.Equal(got.GrossPay) {
		t.Errorf("ComputePay is not deterministic: %+v vs %+v", got, again)
	}
}

func TestComputePay_SalariedOnly(t *testing.T) {
	got, err := core.ComputePay(core.PayInputs{
		BaseSalary:    dec("25000"),
		TaxDeductions: dec("2500.55"),
	})
	if err != nil {
		t.Fatalf("ComputePay failed: %v", err)
	}

	assertDecimal(t, "overtime_rate", "0", got.OvertimeRate)
	assertDecimal(t, "regular_pay", "25000", got.RegularPay)
	assertDecimal(t, "gross_pay", "25000", got.GrossPay)
	assertDecimal(t, "net_pay", "22499.45", got.NetPay)
}

func TestComputePay_OvertimeUsesExactRate(t *testing.T) {
	tests := []struct {
		rate, hours       string
		wantRate, wantPay string
	}{
		// 10.01 × 1.5 = 15.015; 15.015 × 10 = 150.15
		{"10.01", "10", "15.02", "150.15"},
		// 12.33 × 1.5 = 18.495; 18.495 × 2 = 36.99
		{"12.33", "2", "18.5", "36.99"},
		// 7.77 × 1.5 = 11.655; 11.655 × 3.5 = 40.7925
		{"7.77", "3.5", "11.66", "40.79"},
	}
	for _, tc := range tests {
		got, err := core.ComputePay(core.PayInputs{HourlyRate: dec(tc.rate), OvertimeHours: dec(tc.hours)})
		if err != nil {
			t.Fatalf("ComputePay(%s, %s) failed: %v", tc.rate, tc.hours, err)
		}
		assertDecimal(t, "overtime_rate "+tc.rate, tc.wantRate, got.OvertimeRate)
		assertDecimal(t, "overtime_pay "+tc.rate, tc.wantPay, got.OvertimePay)
		assertDecimal(t, "gross_pay "+tc.rate, tc.wantPay, got.GrossPay)
	}
}

func TestComputePay_RejectsNegativeInputs(t *testing.T) {
	_, err := core.ComputePay(core.PayInputs{HourlyRate: dec("-1"), Bonuses: dec("-5")})

	var de *core.Error
	if !errors.As(err, &de) {
		t.Fatalf("Expected a *core.Error, got %v", err)
	}
	if de.Kind != core.KindInvalidInput {
		t.Errorf("Expected kind %s, got %s", core.KindInvalidInput, de.Kind)
	}
	for _, field := range []string{"hourly_rate", "bonuses"} {
		if _, ok := de.Fields[field]; !ok {
			t.Errorf("Expected field error for %s, got %v", field, de.Fields)
		}
	}
}

func TestComputePay_DeductionsCanExceedGross(t *testing.T) {
	got, err := core.ComputePay(core.PayInputs{BaseSalary: dec("100"), OtherDeductions: dec("150")})
	if err != nil {
		t.Fatalf("ComputePay failed: %v", err)
	}
	assertDecimal(t, "net_pay", "-50", got.NetPay)
}
