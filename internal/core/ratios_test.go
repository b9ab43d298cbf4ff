package core_test

import (
	"slices"
	"testing"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
)

func TestComputeRatios_ZeroStatementsUseFallbacks(t *testing.T) {
	r := core.ComputeRatios(core.FinancialStatements{Period: core.Period{Year: 2026, Month: 1}})

	assertDecimal(t, "current_ratio", core.FallbackCurrentRatio.String(), r.Liquidity.CurrentRatio)
	assertDecimal(t, "quick_ratio", core.FallbackQuickRatio.String(), r.Liquidity.QuickRatio)
	assertDecimal(t, "cash_ratio", core.FallbackCashRatio.String(), r.Liquidity.CashRatio)
	assertDecimal(t, "equity_ratio", core.FallbackEquityRatio.String(), r.Leverage.EquityRatio)
	assertDecimal(t, "working_capital", "0", r.Liquidity.WorkingCapital)
	assertDecimal(t, "gross_margin", "0", r.Profitability.GrossMargin)
	assertDecimal(t, "roe", "0", r.Profitability.ROE)
	assertDecimal(t, "debt_to_equity", "0", r.Leverage.DebtToEquity)
	assertDecimal(t, "days_sales_outstanding", "0", r.Efficiency.DaysSalesOutstanding)

	want := []string{
		"asset_turnover", "cash_ratio", "current_ratio", "days_sales_outstanding",
		"debt_ratio", "debt_to_equity", "equity_ratio", "gross_margin",
		"inventory_turnover", "net_margin", "operating_margin", "quick_ratio", "roa", "roe",
	}
	got := slices.Sorted(slices.Values(r.Fallbacks))
	if !slices.Equal(want, got) {
		t.Errorf("Expected fallbacks %v, got %v", want, got)
	}
}

func TestComputeRatios_Values(t *testing.T) {
	fs := core.FinancialStatements{
		IncomeStatement: core.IncomeStatement{
			TotalRevenue:    dec("1000"),
			CostOfGoodsSold: dec("400"),
			GrossProfit:     dec("600"),
			OperatingIncome: dec("450"),
			NetIncome:       dec("450"),
		},
		BalanceSheet: core.BalanceSheet{
			CurrentAssets:      dec("750"),
			Cash:               dec("450"),
			InventoryValue:     dec("300"),
			AccountsReceivable: dec("100"),
			TotalAssets:        dec("1250"),
			CurrentLiabilities: dec("150"),
			TotalLiabilities:   dec("350"),
			ShareholdersEquity: dec("1050"),
		},
	}

	r := core.ComputeRatios(fs)

	if len(r.Fallbacks) != 0 {
		t.Errorf("Expected no fallbacks, got %v", r.Fallbacks)
	}
	assertDecimal(t, "current_ratio", "5", r.Liquidity.CurrentRatio)
	assertDecimal(t, "quick_ratio", "3", r.Liquidity.QuickRatio)
	assertDecimal(t, "cash_ratio", "3", r.Liquidity.CashRatio)
	assertDecimal(t, "working_capital", "600", r.Liquidity.WorkingCapital)
	assertDecimal(t, "gross_margin", "0.6", r.Profitability.GrossMargin)
	assertDecimal(t, "net_margin", "0.45", r.Profitability.NetMargin)
	assertDecimal(t, "roe", "0.4286", r.Profitability.ROE)
	assertDecimal(t, "roa", "0.36", r.Profitability.ROA)
	assertDecimal(t, "debt_to_equity", "0.3333", r.Leverage.DebtToEquity)
	assertDecimal(t, "debt_ratio", "0.28", r.Leverage.DebtRatio)
	assertDecimal(t, "equity_ratio", "0.84", r.Leverage.EquityRatio)
	assertDecimal(t, "asset_turnover", "0.8", r.Efficiency.AssetTurnover)
	assertDecimal(t, "inventory_turnover", "1.3333", r.Efficiency.InventoryTurnover)
	assertDecimal(t, "days_sales_outstanding", "36.5", r.Efficiency.DaysSalesOutstanding)
}

func TestComputeRatios_NegativeEquityFallsBack(t *testing.T) {
	fs := core.FinancialStatements{
		IncomeStatement: core.IncomeStatement{TotalRevenue: dec("100"), NetIncome: dec("-50")},
		BalanceSheet: core.BalanceSheet{
			TotalAssets:        dec("100"),
			TotalLiabilities:   dec("150"),
			ShareholdersEquity: dec("-50"),
		},
	}

	r := core.ComputeRatios(fs)
	assertDecimal(t, "roe", "0", r.Profitability.ROE)
	assertDecimal(t, "debt_to_equity", "0", r.Leverage.DebtToEquity)
	assertDecimal(t, "equity_ratio", "-0.5", r.Leverage.EquityRatio)
	for _, name := range []string{"roe", "debt_to_equity"} {
		if !slices.Contains(r.Fallbacks, name) {
			t.Errorf("Expected %s among fallbacks %v", name, r.Fallbacks)
		}
	}
	if slices.Contains(r.Fallbacks, "equity_ratio") {
		t.Errorf("equity_ratio is defined for negative equity, got fallback")
	}
}

func TestSafeDiv(t *testing.T) {
	fallback := dec("7")
	assertDecimal(t, "zero denominator", "7", core.SafeDiv(dec("1"), decimal.Zero, fallback))
	assertDecimal(t, "negative denominator", "7", core.SafeDiv(dec("1"), dec("-2"), fallback))
	assertDecimal(t, "one third", "0.3333", core.SafeDiv(dec("1"), dec("3"), fallback))
}
