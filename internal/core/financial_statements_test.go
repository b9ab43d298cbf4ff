package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expectDecimal(t *testing.T, field, want string, got decimal.Decimal) {
	t.Helper()
	if !d(want).Equal(got) {
		t.Errorf("%s: expected %s, got %s", field, want, got)
	}
}

func TestBuildStatements_ZeroPeriod(t *testing.T) {
	p := Period{Year: 2026, Month: 2}
	fs := buildStatements(p, COGSSnapshot, statementInputs{})

	if fs.Period != p {
		t.Errorf("Expected period %+v, got %+v", p, fs.Period)
	}
	for name, v := range map[string]decimal.Decimal{
		"total_revenue":       fs.IncomeStatement.TotalRevenue,
		"cost_of_goods_sold":  fs.IncomeStatement.CostOfGoodsSold,
		"net_income":          fs.IncomeStatement.NetIncome,
		"cash":                fs.BalanceSheet.Cash,
		"total_assets":        fs.BalanceSheet.TotalAssets,
		"total_liabilities":   fs.BalanceSheet.TotalLiabilities,
		"shareholders_equity": fs.BalanceSheet.ShareholdersEquity,
		"balance_difference":  fs.BalanceSheet.BalanceDifference,
		"operating_cash_flow": fs.CashFlow.OperatingCashFlow,
		"net_cash_change":     fs.CashFlow.NetCashChange,
	} {
		if !v.IsZero() {
			t.Errorf("%s: expected 0, got %s", name, v)
		}
	}
	if !fs.BalanceSheet.IsBalanced || !fs.BalanceSheet.CashIsEstimate {
		t.Errorf("Expected a balanced sheet with estimated cash, got %+v", fs.BalanceSheet)
	}

	r := ComputeRatios(*fs)
	if !r.Liquidity.CurrentRatio.Equal(FallbackCurrentRatio) {
		t.Errorf("Expected fallback current ratio, got %s", r.Liquidity.CurrentRatio)
	}
	if len(r.Fallbacks) == 0 {
		t.Errorf("Expected fallbacks on an empty period")
	}
}

func TestBuildStatements_Formulas(t *testing.T) {
	fs := buildStatements(Period{Year: 2026}, COGSCurrent, statementInputs{
		revenue:        d("1000"),
		serviceRevenue: d("200"),
		cogs:           d("400"),
		payroll:        d("100"),
		otherExpenses:  d("50"),
		inventoryValue: d("300"),
		receivable:     d("80"),
		nonCurrentBook: d("500"),
		currentLiab:    d("100"),
		longTermLiab:   d("200"),
		accruedPayroll: d("50"),
		equity:         d("600"),
	})

	is, bs, cf := fs.IncomeStatement, fs.BalanceSheet, fs.CashFlow
	if fs.COGSMethod != COGSCurrent {
		t.Errorf("Expected COGS method %s, got %s", COGSCurrent, fs.COGSMethod)
	}

	expectDecimal(t, "sales_revenue", "800", is.SalesRevenue)
	expectDecimal(t, "gross_profit", "600", is.GrossProfit)
	expectDecimal(t, "operating_expenses", "150", is.OperatingExpenses)
	expectDecimal(t, "net_income", "450", is.NetIncome)

	expectDecimal(t, "cash", "450", bs.Cash)
	// Receivables stay out of current assets.
	expectDecimal(t, "current_assets", "750", bs.CurrentAssets)
	expectDecimal(t, "accounts_receivable", "80", bs.AccountsReceivable)
	expectDecimal(t, "total_assets", "1250", bs.TotalAssets)
	expectDecimal(t, "current_liabilities", "150", bs.CurrentLiabilities)
	expectDecimal(t, "total_liabilities", "350", bs.TotalLiabilities)
	expectDecimal(t, "shareholders_equity", "1050", bs.ShareholdersEquity)
	expectDecimal(t, "balance_difference", "-150", bs.BalanceDifference)
	if bs.IsBalanced {
		t.Errorf("Expected an unbalanced sheet")
	}

	expectDecimal(t, "operating_cash_flow", "850", cf.OperatingCashFlow)
	expectDecimal(t, "investing_cash_flow", "-400", cf.InvestingCashFlow)
	expectDecimal(t, "net_cash_change", "450", cf.NetCashChange)
}

func TestBuildStatements_LossClampsCash(t *testing.T) {
	fs := buildStatements(Period{Year: 2026, Month: 5}, COGSSnapshot, statementInputs{
		revenue:       d("100"),
		cogs:          d("80"),
		otherExpenses: d("70"),
	})
	expectDecimal(t, "net_income", "-50", fs.IncomeStatement.NetIncome)
	expectDecimal(t, "cash", "0", fs.BalanceSheet.Cash)
}

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		p        Period
		from, to time.Time
	}{
		{Period{Year: 2024, Month: 2}, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Period{Year: 2024, Month: 12}, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Period{Year: 2024}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		from, to := tc.p.Bounds()
		if !from.Equal(tc.from) || !to.Equal(tc.to) {
			t.Errorf("%+v: expected [%s, %s), got [%s, %s)", tc.p, tc.from, tc.to, from, to)
		}
	}
}

func TestDateOnly_UsesUTCDay(t *testing.T) {
	manila := time.FixedZone("+08:00", 8*60*60)
	got := dateOnly(time.Date(2026, time.April, 1, 7, 0, 0, 0, manila))
	if want := time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("Expected %s, got %s", want, got)
	}
	if loc := SystemClock().Location(); loc != time.UTC {
		t.Errorf("Expected SystemClock in UTC, got %s", loc)
	}
}

func TestPeriodValidate(t *testing.T) {
	for _, p := range []Period{{Year: 2026}, {Year: 2026, Month: 12}} {
		if err := p.Validate(); err != nil {
			t.Errorf("%+v: unexpected error %v", p, err)
		}
	}
	for _, p := range []Period{{Year: 2026, Month: 13}, {Year: 1900}} {
		if err := p.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%+v: expected InvalidInput, got %v", p, err)
		}
	}
}

func TestPageLimitOffset(t *testing.T) {
	if limit, offset := (Page{}).limitOffset(); limit != defaultPerPage || offset != 0 {
		t.Errorf("Expected %d/0 for an empty page, got %d/%d", defaultPerPage, limit, offset)
	}
	if limit, offset := (Page{Page: 3, PerPage: 20}).limitOffset(); limit != 20 || offset != 40 {
		t.Errorf("Expected 20/40, got %d/%d", limit, offset)
	}
	if limit, _ := (Page{PerPage: 10000}).limitOffset(); limit != maxPerPage {
		t.Errorf("Expected per_page capped at %d, got %d", maxPerPage, limit)
	}

	want := PageInfo{Total: 41, Pages: 3, CurrentPage: 2, PerPage: 20}
	if info := newPageInfo(41, Page{Page: 2, PerPage: 20}); info != want {
		t.Errorf("Expected %+v, got %+v", want, info)
	}
}

func TestPercentOf(t *testing.T) {
	expectDecimal(t, "50 of 200", "25", percentOf(d("50"), d("200"), 0))
	expectDecimal(t, "1 of 3", "33.33", percentOf(d("1"), d("3"), 2))
	expectDecimal(t, "zero base", "0", percentOf(d("5"), decimal.Zero, 2))
}
