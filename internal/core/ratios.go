package core

import "github.com/shopspring/decimal"

// Heuristic fallbacks substituted when a ratio's denominator is zero. They are
// placeholders, not measurements; Ratios.Fallbacks names every ratio that used one.
var (
	FallbackCurrentRatio = decimal.NewFromInt(2)
	FallbackQuickRatio   = decimal.RequireFromString("1.5")
	FallbackCashRatio    = decimal.NewFromInt(1)
	FallbackEquityRatio  = decimal.NewFromInt(1)
)

var daysPerYear = decimal.NewFromInt(365)

// SafeDiv returns n/d rounded to 4 places when d > 0, otherwise fallback.
func SafeDiv(n, d, fallback decimal.Decimal) decimal.Decimal {
	if !d.IsPositive() {
		return fallback
	}
	return n.DivRound(d, 4)
}

// ComputeRatios derives every ratio from a set of statements. It is pure and never fails.
func ComputeRatios(fs FinancialStatements) Ratios {
	is, bs := fs.IncomeStatement, fs.BalanceSheet
	r := Ratios{Period: fs.Period, Fallbacks: []string{}}

	div := func(name string, n, d, fallback decimal.Decimal) decimal.Decimal {
		if !d.IsPositive() {
			r.Fallbacks = append(r.Fallbacks, name)
		}
		return SafeDiv(n, d, fallback)
	}
	zero := decimal.Zero

	r.Liquidity = LiquidityRatios{
		CurrentRatio:   div("current_ratio", bs.CurrentAssets, bs.CurrentLiabilities, FallbackCurrentRatio),
		QuickRatio:     div("quick_ratio", bs.CurrentAssets.Sub(bs.InventoryValue), bs.CurrentLiabilities, FallbackQuickRatio),
		CashRatio:      div("cash_ratio", bs.Cash, bs.CurrentLiabilities, FallbackCashRatio),
		WorkingCapital: money(bs.CurrentAssets.Sub(bs.CurrentLiabilities)),
	}
	r.Profitability = ProfitabilityRatios{
		GrossMargin:     div("gross_margin", is.GrossProfit, is.TotalRevenue, zero),
		OperatingMargin: div("operating_margin", is.OperatingIncome, is.TotalRevenue, zero),
		NetMargin:       div("net_margin", is.NetIncome, is.TotalRevenue, zero),
		ROE:             div("roe", is.NetIncome, bs.ShareholdersEquity, zero),
		ROA:             div("roa", is.NetIncome, bs.TotalAssets, zero),
	}
	r.Leverage = LeverageRatios{
		DebtToEquity: div("debt_to_equity", bs.TotalLiabilities, bs.ShareholdersEquity, zero),
		DebtRatio:    div("debt_ratio", bs.TotalLiabilities, bs.TotalAssets, zero),
		EquityRatio:  div("equity_ratio", bs.ShareholdersEquity, bs.TotalAssets, FallbackEquityRatio),
	}
	r.Efficiency = EfficiencyRatios{
		AssetTurnover:        div("asset_turnover", is.TotalRevenue, bs.TotalAssets, zero),
		InventoryTurnover:    div("inventory_turnover", is.CostOfGoodsSold, bs.InventoryValue, zero),
		DaysSalesOutstanding: div("days_sales_outstanding", bs.AccountsReceivable, is.TotalRevenue, zero).Mul(daysPerYear).Round(1),
	}
	return r
}
