package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// COGSMethod selects how cost of goods sold is valued.
type COGSMethod string

const (
	// COGSSnapshot uses the unit cost recorded on each sale item.
	COGSSnapshot COGSMethod = "snapshot"
	// COGSCurrent uses the product's item cost today.
	COGSCurrent COGSMethod = "current"
)

// ParseCOGSMethod accepts "", "snapshot" or "current".
func ParseCOGSMethod(s string) (COGSMethod, error) {
	switch m := COGSMethod(s); m {
	case "":
		return COGSSnapshot, nil
	case COGSSnapshot, COGSCurrent:
		return m, nil
	}
	return "", InvalidInputf("unknown COGS method %q", s)
}

// FinancialOptions tunes FinancialService.
type FinancialOptions struct {
	COGSMethod COGSMethod
}

type IncomeStatement struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	SalesRevenue      decimal.Decimal `json:"sales_revenue"`
	ServiceRevenue    decimal.Decimal `json:"service_revenue"`
	CostOfGoodsSold   decimal.Decimal `json:"cost_of_goods_sold"`
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	OperatingExpenses decimal.Decimal `json:"operating_expenses"`
	PayrollExpenses   decimal.Decimal `json:"payroll_expenses"`
	OtherExpenses     decimal.Decimal `json:"other_expenses"`
	OperatingIncome   decimal.Decimal `json:"operating_income"`
	OtherIncome       decimal.Decimal `json:"other_income"`
	NetIncome         decimal.Decimal `json:"net_income"`
}

// BalanceSheet is the statement view of the balance sheet. Cash is a residual
// estimate (revenue less costs), not a reading of the cash ledger.
type BalanceSheet struct {
	CurrentAssets       decimal.Decimal `json:"current_assets"`
	Cash                decimal.Decimal `json:"cash"`
	CashIsEstimate      bool            `json:"cash_is_estimate"`
	AccountsReceivable  decimal.Decimal `json:"accounts_receivable"`
	InventoryValue      decimal.Decimal `json:"inventory_value"`
	NonCurrentAssets    decimal.Decimal `json:"non_current_assets"`
	TotalAssets         decimal.Decimal `json:"total_assets"`
	CurrentLiabilities  decimal.Decimal `json:"current_liabilities"`
	AccountsPayable     decimal.Decimal `json:"accounts_payable"`
	AccruedPayroll      decimal.Decimal `json:"accrued_payroll"`
	LongTermLiabilities decimal.Decimal `json:"long_term_liabilities"`
	TotalLiabilities    decimal.Decimal `json:"total_liabilities"`
	ShareholdersEquity  decimal.Decimal `json:"shareholders_equity"`
	BalanceDifference   decimal.Decimal `json:"balance_difference"`
	IsBalanced          bool            `json:"is_balanced"`
}

// CashFlowSummary is the cash flow derived from the income statement.
type CashFlowSummary struct {
	NetIncome          decimal.Decimal `json:"net_income"`
	CashFromSales      decimal.Decimal `json:"cash_from_sales"`
	PayrollPayments    decimal.Decimal `json:"payroll_payments"`
	OperatingCashFlow  decimal.Decimal `json:"operating_cash_flow"`
	InventoryPurchases decimal.Decimal `json:"inventory_purchases"`
	InvestingCashFlow  decimal.Decimal `json:"investing_cash_flow"`
	NetCashChange      decimal.Decimal `json:"net_cash_change"`
}

// FinancialStatements are the three consolidated statements for one period.
type FinancialStatements struct {
	Period          Period          `json:"period"`
	COGSMethod      COGSMethod      `json:"cogs_method"`
	IncomeStatement IncomeStatement `json:"income_statement"`
	BalanceSheet    BalanceSheet    `json:"balance_sheet"`
	CashFlow        CashFlowSummary `json:"cash_flow"`
}

type LiquidityRatios struct {
	CurrentRatio   decimal.Decimal `json:"current_ratio"`
	QuickRatio     decimal.Decimal `json:"quick_ratio"`
	CashRatio      decimal.Decimal `json:"cash_ratio"`
	WorkingCapital decimal.Decimal `json:"working_capital"`
}

type ProfitabilityRatios struct {
	GrossMargin     decimal.Decimal `json:"gross_margin"`
	OperatingMargin decimal.Decimal `json:"operating_margin"`
	NetMargin       decimal.Decimal `json:"net_margin"`
	ROE             decimal.Decimal `json:"roe"`
	ROA             decimal.Decimal `json:"roa"`
}

type LeverageRatios struct {
	DebtToEquity decimal.Decimal `json:"debt_to_equity"`
	DebtRatio    decimal.Decimal `json:"debt_ratio"`
	EquityRatio  decimal.Decimal `json:"equity_ratio"`
}

type EfficiencyRatios struct {
	AssetTurnover        decimal.Decimal `json:"asset_turnover"`
	InventoryTurnover    decimal.Decimal `json:"inventory_turnover"`
	DaysSalesOutstanding decimal.Decimal `json:"days_sales_outstanding"`
}

// Ratios groups the financial ratios. Fallbacks names every ratio whose
// denominator was not positive and which therefore carries a heuristic default.
type Ratios struct {
	Period        Period              `json:"period"`
	Liquidity     LiquidityRatios     `json:"liquidity"`
	Profitability ProfitabilityRatios `json:"profitability"`
	Leverage      LeverageRatios      `json:"leverage"`
	Efficiency    EfficiencyRatios    `json:"efficiency"`
	Fallbacks     []string            `json:"fallbacks"`
}

// IncomeStatementReport is revenue against expenses by category.
type IncomeStatementReport struct {
	Period           Period                     `json:"period"`
	Revenue          decimal.Decimal            `json:"revenue"`
	ExpenseBreakdown map[string]decimal.Decimal `json:"expense_breakdown"`
	OtherExpenses    decimal.Decimal            `json:"other_expenses"`
	PayrollExpenses  decimal.Decimal            `json:"payroll_expenses"`
	TotalExpenses    decimal.Decimal            `json:"total_expenses"`
	ProfitLoss       decimal.Decimal            `json:"profit_loss"`
	ProfitMarginPct  decimal.Decimal            `json:"profit_margin"`
}

type AssetTotals struct {
	Current    decimal.Decimal `json:"current_assets"`
	Fixed      decimal.Decimal `json:"fixed_assets"`
	Intangible decimal.Decimal `json:"intangible_assets"`
	Total      decimal.Decimal `json:"total"`
}

type LiabilityTotals struct {
	Current  decimal.Decimal `json:"current_liabilities"`
	LongTerm decimal.Decimal `json:"long_term_liabilities"`
	Total    decimal.Decimal `json:"total"`
}

// BalanceSheetReport is the balance sheet built from the asset, liability
// and equity ledgers alone, using book values.
type BalanceSheetReport struct {
	Assets                 AssetTotals     `json:"assets"`
	Liabilities            LiabilityTotals `json:"liabilities"`
	Equity                 decimal.Decimal `json:"equity"`
	TotalLiabilitiesEquity decimal.Decimal `json:"total_liabilities_equity"`
	IsBalanced             bool            `json:"is_balanced"`
}

type CashActivity struct {
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
	Net      decimal.Decimal `json:"net"`
}

// CashFlowStatement is built from the cash flow ledger, the source of truth for cash.
type CashFlowStatement struct {
	Period    Period          `json:"period"`
	Operating CashActivity    `json:"operating_activities"`
	Investing CashActivity    `json:"investing_activities"`
	Financing CashActivity    `json:"financing_activities"`
	NetCash   decimal.Decimal `json:"net_cash_flow"`
}

type InventoryValuation struct {
	TotalCostValue   decimal.Decimal `json:"total_cost_value"`
	TotalRetailValue decimal.Decimal `json:"total_retail_value"`
	PotentialProfit  decimal.Decimal `json:"potential_profit"`
	TotalItems       int             `json:"total_items"`
	UniqueProducts   int             `json:"unique_products"`
}

type MovementTotals struct {
	Quantity     int `json:"quantity"`
	Transactions int `json:"transactions"`
}

type InventoryMovementSummary struct {
	StockIn   int                          `json:"stock_in"`
	StockOut  int                          `json:"stock_out"`
	NetChange int                          `json:"net_change"`
	Summary   map[Direction]MovementTotals `json:"summary"`
}

type MovingProduct struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Movement int    `json:"movement"`
}

type SlowMover struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	CurrentStock int    `json:"current_stock"`
}

type InventoryAnalysis struct {
	Period     Period                   `json:"period"`
	Valuation  InventoryValuation       `json:"valuation"`
	Movements  InventoryMovementSummary `json:"movements"`
	TopMoving  []MovingProduct          `json:"top_moving"`
	SlowMoving []SlowMover              `json:"slow_moving"`
}

type SalesSummary struct {
	TotalSales   decimal.Decimal `json:"total_sales"`
	OrderCount   int             `json:"order_count"`
	AverageOrder decimal.Decimal `json:"average_order"`
}

type DailySales struct {
	Date   string          `json:"date"`
	Sales  decimal.Decimal `json:"sales"`
	Orders int             `json:"orders"`
}

type CustomerSales struct {
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
	Orders int             `json:"orders"`
}

type SalesAnalysis struct {
	Period         Period          `json:"period"`
	Summary        SalesSummary    `json:"summary"`
	DailyBreakdown []DailySales    `json:"daily_breakdown"`
	TopCustomers   []CustomerSales `json:"top_customers"`
}

// Default dashboard targets used when no budget target is stored.
var (
	DefaultMonthlySalesTarget = decimal.NewFromInt(500000)
	DefaultMonthlyItemsTarget = 750
	DefaultAnnualSalesTarget  = decimal.NewFromInt(6000000)
)

type DashboardAllTime struct {
	GrossProfit       decimal.Decimal `json:"gross_profit"`
	Sales             decimal.Decimal `json:"sales"`
	Expenses          decimal.Decimal `json:"expenses"`
	GrossProfitMargin decimal.Decimal `json:"gross_profit_margin"`
}

type DashboardToday struct {
	Sales     decimal.Decimal `json:"sales"`
	ItemsSold int             `json:"items_sold"`
	Expenses  decimal.Decimal `json:"expenses"`
}

type DashboardMonthly struct {
	ItemsSold       int             `json:"items_sold"`
	ItemsTarget     int             `json:"items_target"`
	ItemsProgress   decimal.Decimal `json:"items_progress"`
	Sales           decimal.Decimal `json:"sales"`
	SalesTarget     decimal.Decimal `json:"sales_target"`
	SalesProgress   decimal.Decimal `json:"sales_progress"`
	Expenses        decimal.Decimal `json:"expenses"`
	Profit          decimal.Decimal `json:"profit"`
	TargetIsDefault bool            `json:"target_is_default"`
}

type DashboardInventory struct {
	InStock    int `json:"in_stock"`
	LowStock   int `json:"low_stock"`
	OutOfStock int `json:"out_of_stock"`
}

type Bestseller struct {
	Name         string          `json:"name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type ExpenseShare struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type DashboardAnnual struct {
	Current         decimal.Decimal `json:"current"`
	Target          decimal.Decimal `json:"target"`
	Progress        decimal.Decimal `json:"progress"`
	TargetIsDefault bool            `json:"target_is_default"`
}

type Dashboard struct {
	Period              Period             `json:"period"`
	AllTime             DashboardAllTime   `json:"all_time"`
	Today               DashboardToday     `json:"today"`
	Monthly             DashboardMonthly   `json:"monthly"`
	Inventory           DashboardInventory `json:"inventory"`
	Bestsellers         []Bestseller       `json:"bestsellers"`
	ExpenseDistribution []ExpenseShare     `json:"expense_distribution"`
	Annual              DashboardAnnual    `json:"annual"`
}

type DailyTrendPoint struct {
	Day      int             `json:"day"`
	Sales    decimal.Decimal `json:"sales"`
	Expenses decimal.Decimal `json:"expenses"`
}

type MonthlyTrendPoint struct {
	Month       string          `json:"month"`
	MonthNumber int             `json:"month_number"`
	Sales       decimal.Decimal `json:"sales"`
	Expenses    decimal.Decimal `json:"expenses"`
}

// FinancialService derives reports from the ledgers. It never writes, and
// each call reads from a single REPEATABLE READ snapshot. Missing data yields
// zeros; only store errors are returned.
type FinancialService interface {
	GetFinancialStatements(ctx context.Context, p Period) (*FinancialStatements, error)
	GetRatios(ctx context.Context, p Period) (*Ratios, error)
	GetIncomeStatement(ctx context.Context, p Period) (*IncomeStatementReport, error)
	GetBalanceSheet(ctx context.Context) (*BalanceSheetReport, error)
	GetCashFlowStatement(ctx context.Context, p Period) (*CashFlowStatement, error)
	GetInventoryAnalysis(ctx context.Context, p Period) (*InventoryAnalysis, error)
	GetSalesAnalysis(ctx context.Context, p Period) (*SalesAnalysis, error)
	// GetDashboard needs a month; p.Month 0 is rejected.
	GetDashboard(ctx context.Context, p Period) (*Dashboard, error)
	DailyTrend(ctx context.Context, p Period) ([]DailyTrendPoint, error)
	MonthlyTrend(ctx context.Context, year int) ([]MonthlyTrendPoint, error)
}
