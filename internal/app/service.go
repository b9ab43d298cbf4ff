package app

import (
	"context"
	"io"

	"bizledger/internal/core"
)

// ApplicationService is the single interface all adapters (web, CLI) call.
// Every method but Login takes the authenticated Actor and checks it against
// the capability table before touching the core. Implementations contain no
// presentation logic.
type ApplicationService interface {
	// Login verifies credentials. Unknown users and bad passwords both fail NotFound.
	Login(ctx context.Context, req LoginRequest) (*core.User, error)

	// CurrentUser returns the profile of actor.
	CurrentUser(ctx context.Context, actor core.Actor) (*core.User, error)

	// ── Products ──

	ListProducts(ctx context.Context, actor core.Actor, filter core.ProductFilter) (*ProductListResult, error)
	GetProduct(ctx context.Context, actor core.Actor, id int) (*core.Product, error)
	CreateProduct(ctx context.Context, actor core.Actor, req ProductRequest) (*core.Product, error)
	UpdateProduct(ctx context.Context, actor core.Actor, id int, req ProductPatchRequest) (*core.Product, error)
	DeleteProduct(ctx context.Context, actor core.Actor, id int) (*DeleteProductResult, error)
	ListCategories(ctx context.Context, actor core.Actor) ([]core.Category, error)
	CreateCategory(ctx context.Context, actor core.Actor, req CategoryRequest) (*core.Category, error)

	// ImportProducts reads an xlsx workbook and upserts one product per row,
	// keyed by SKU. Bad rows are reported in the result, not as an error.
	ImportProducts(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error)

	// ImportSales and ImportPayroll read workbooks in the export layouts.
	// Every row goes through the same path as its API counterpart.
	ImportSales(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error)
	ImportPayroll(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error)

	// ── Inventory ──

	ListMovements(ctx context.Context, actor core.Actor, filter core.MovementFilter) (*MovementListResult, error)
	StockIn(ctx context.Context, actor core.Actor, req StockRequest) (*core.Movement, error)
	StockOut(ctx context.Context, actor core.Actor, req StockRequest) (*core.Movement, error)
	RecordMovement(ctx context.Context, actor core.Actor, req MovementRequest) (*core.Movement, error)
	CompleteMovement(ctx context.Context, actor core.Actor, id int) (*core.Movement, error)
	ReverseMovement(ctx context.Context, actor core.Actor, id int) error
	LowStock(ctx context.Context, actor core.Actor) (*core.LowStockReport, error)
	AuditStock(ctx context.Context, actor core.Actor) ([]core.StockDiscrepancy, error)

	// ── Sales ──

	ListSales(ctx context.Context, actor core.Actor, filter core.SaleFilter) (*SaleListResult, error)
	GetSale(ctx context.Context, actor core.Actor, id int) (*core.Sale, error)
	CreateSale(ctx context.Context, actor core.Actor, req SaleRequest) (*core.Sale, error)
	UpdateSale(ctx context.Context, actor core.Actor, id int, req SalePatchRequest) (*core.Sale, error)
	VoidSale(ctx context.Context, actor core.Actor, id int, req VoidRequest) (*core.Sale, error)
	ListCustomers(ctx context.Context, actor core.Actor) ([]core.Customer, error)
	CreateCustomer(ctx context.Context, actor core.Actor, req CustomerRequest) (*core.Customer, error)

	// ── Payroll ──

	ListEmployees(ctx context.Context, actor core.Actor) ([]core.Employee, error)
	ListPayroll(ctx context.Context, actor core.Actor, filter core.PayrollFilter) (*PayrollListResult, error)
	CreatePayroll(ctx context.Context, actor core.Actor, req PayrollRequest) (*core.PayrollRecord, error)
	UpdatePayroll(ctx context.Context, actor core.Actor, id int, req PayrollPatchRequest) (*core.PayrollRecord, error)
	DeletePayroll(ctx context.Context, actor core.Actor, id int) error
	MarkPayrollPaid(ctx context.Context, actor core.Actor, id int, req MarkPaidRequest) (*core.PayrollRecord, error)
	PayrollSummary(ctx context.Context, actor core.Actor, year, month int) (*core.PayrollSummary, error)

	// ── Finance ledgers ──

	ListExpenses(ctx context.Context, actor core.Actor, filter core.LedgerFilter) (*ExpenseListResult, error)
	CreateExpense(ctx context.Context, actor core.Actor, req ExpenseRequest) (*core.Expense, error)
	ListAssets(ctx context.Context, actor core.Actor) ([]core.Asset, error)
	CreateAsset(ctx context.Context, actor core.Actor, req AssetRequest) (*core.Asset, error)
	ListLiabilities(ctx context.Context, actor core.Actor) ([]core.Liability, error)
	CreateLiability(ctx context.Context, actor core.Actor, req LiabilityRequest) (*core.Liability, error)
	ListEquity(ctx context.Context, actor core.Actor) ([]core.EquityEntry, error)
	CreateEquity(ctx context.Context, actor core.Actor, req EquityRequest) (*core.EquityEntry, error)
	ListCashFlows(ctx context.Context, actor core.Actor, filter core.LedgerFilter) (*CashFlowListResult, error)
	CreateCashFlow(ctx context.Context, actor core.Actor, req CashFlowRequest) (*core.CashFlowEntry, error)
	DeleteLedgerEntry(ctx context.Context, actor core.Actor, kind core.LedgerKind, id int) error
	GetBudgetTarget(ctx context.Context, actor core.Actor, year int, month *int) (*core.BudgetTarget, error)
	SetBudgetTarget(ctx context.Context, actor core.Actor, req BudgetTargetRequest) (*core.BudgetTarget, error)
	GetSettings(ctx context.Context, actor core.Actor) (*core.BusinessSettings, error)
	UpdateSettings(ctx context.Context, actor core.Actor, req SettingsRequest) (*core.BusinessSettings, error)

	// ── Reports (cached when Redis is configured) ──

	Statements(ctx context.Context, actor core.Actor, p core.Period) (*core.FinancialStatements, error)
	Ratios(ctx context.Context, actor core.Actor, p core.Period) (*core.Ratios, error)
	IncomeStatement(ctx context.Context, actor core.Actor, p core.Period) (*core.IncomeStatementReport, error)
	BalanceSheet(ctx context.Context, actor core.Actor) (*core.BalanceSheetReport, error)
	CashFlowStatement(ctx context.Context, actor core.Actor, p core.Period) (*core.CashFlowStatement, error)
	InventoryAnalysis(ctx context.Context, actor core.Actor, p core.Period) (*core.InventoryAnalysis, error)
	SalesAnalysis(ctx context.Context, actor core.Actor, p core.Period) (*core.SalesAnalysis, error)
	Dashboard(ctx context.Context, actor core.Actor, p core.Period) (*core.Dashboard, error)
	DailyTrend(ctx context.Context, actor core.Actor, p core.Period) ([]core.DailyTrendPoint, error)
	MonthlyTrend(ctx context.Context, actor core.Actor, year int) ([]core.MonthlyTrendPoint, error)

	// RecentActivity is not cached. A limit of 0 means 10.
	RecentActivity(ctx context.Context, actor core.Actor, limit int) (*RecentActivity, error)

	// ── Spreadsheet export ──

	ExportProducts(ctx context.Context, actor core.Actor, w io.Writer) error
	ExportSales(ctx context.Context, actor core.Actor, filter core.SaleFilter, w io.Writer) error
	ExportPayroll(ctx context.Context, actor core.Actor, filter core.PayrollFilter, w io.Writer) error
	ExportStatements(ctx context.Context, actor core.Actor, p core.Period, w io.Writer) error
}
