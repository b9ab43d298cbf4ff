package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind names one of the simple finance ledgers.
type LedgerKind string

const (
	LedgerExpenses    LedgerKind = "expenses"
	LedgerAssets      LedgerKind = "assets"
	LedgerLiabilities LedgerKind = "liabilities"
	LedgerEquity      LedgerKind = "equity"
	LedgerCashFlows   LedgerKind = "cash-flows"
)

// ledgerTables maps each kind to its table.
var ledgerTables = map[LedgerKind]string{
	LedgerExpenses:    "expenses",
	LedgerAssets:      "assets",
	LedgerLiabilities: "liabilities",
	LedgerEquity:      "equity_entries",
	LedgerCashFlows:   "cash_flows",
}

// ParseLedgerKind validates a ledger kind from a URL segment.
func ParseLedgerKind(s string) (LedgerKind, error) {
	k := LedgerKind(s)
	if _, ok := ledgerTables[k]; !ok {
		return "", NotFoundf("unknown ledger %q", s)
	}
	return k, nil
}

// ExpenseCategories are the accepted expense categories.
var ExpenseCategories = []string{
	"General and Administration",
	"Operational Expenses",
	"Marketing & Advertisement",
	"Cost of Goods",
	"Employee Payroll",
	"Professional Services",
	"Technology & Software",
	"Research & Development",
	"Miscellaneous",
	"Equipment",
}

type Expense struct {
	ID              int             `json:"id"`
	ExpenseDate     time.Time       `json:"expense_date"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Vendor          string          `json:"vendor"`
	Notes           string          `json:"notes"`
	CreatedBy       *int            `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Asset types.
const (
	AssetCurrent    = "current"
	AssetFixed      = "fixed"
	AssetIntangible = "intangible"
)

type Asset struct {
	ID                      int             `json:"id"`
	Name                    string          `json:"name"`
	AssetType               string          `json:"asset_type"`
	Category                string          `json:"category"`
	PurchaseDate            *time.Time      `json:"purchase_date,omitempty"`
	PurchaseCost            decimal.Decimal `json:"purchase_cost"`
	CurrentValue            decimal.Decimal `json:"current_value"`
	DepreciationRate        decimal.Decimal `json:"depreciation_rate"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation"`
	BookValue               decimal.Decimal `json:"book_value"` // current_value − accumulated_depreciation
	Notes                   string          `json:"notes"`
	CreatedAt               time.Time       `json:"created_at"`
}

// Liability types.
const (
	LiabilityCurrent  = "current"
	LiabilityLongTerm = "long_term"
)

type Liability struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	LiabilityType    string          `json:"liability_type"`
	Category         string          `json:"category"`
	Creditor         string          `json:"creditor"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	PaymentFrequency string          `json:"payment_frequency"`
	Notes            string          `json:"notes"`
	CreatedAt        time.Time       `json:"created_at"`
}

// Equity transaction types. A withdrawal reduces total equity.
const (
	EquityInvestment = "investment"
	EquityWithdrawal = "withdrawal"
	EquityProfit     = "profit"
)

type EquityEntry struct {
	ID              int             `json:"id"`
	EquityDate      time.Time       `json:"equity_date"`
	EquityType      string          `json:"equity_type"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	SignedAmount    decimal.Decimal `json:"signed_amount"`
	Notes           string          `json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// CashFlowEntry is one row of the cash ledger.
type CashFlowEntry struct {
	ID              int             `json:"id"`
	TransactionDate time.Time       `json:"transaction_date"`
	Description     string          `json:"description"`
	FlowType        string          `json:"flow_type"` // in|out
	Category        string          `json:"category"`  // operating|investing|financing
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	CreatedAt       time.Time       `json:"created_at"`
}

// BudgetTarget holds targets for a year (Month nil) or a single month.
type BudgetTarget struct {
	ID              int             `json:"id"`
	Year            int             `json:"year"`
	Month           *int            `json:"month,omitempty"`
	RevenueTarget   decimal.Decimal `json:"revenue_target"`
	ExpenseTarget   decimal.Decimal `json:"expense_target"`
	ProfitTarget    decimal.Decimal `json:"profit_target"`
	ItemsSoldTarget int             `json:"items_sold_target"`
	SalesTarget     decimal.Decimal `json:"sales_target"`
	MainGoals       string          `json:"main_goals"`
	DailyTasks      string          `json:"daily_tasks"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BusinessSettings is the singleton store profile.
type BusinessSettings struct {
	BusinessName    string          `json:"business_name"`
	TaxID           string          `json:"tax_id"`
	Address         string          `json:"address"`
	Phone           string          `json:"phone"`
	Email           string          `json:"email"`
	Currency        string          `json:"currency"`
	FiscalYearStart int             `json:"fiscal_year_start"`
	StartingCapital decimal.Decimal `json:"starting_capital"`
	DefaultTaxRate  decimal.Decimal `json:"default_tax_rate"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LedgerFilter narrows ledger listings by date and category.
type LedgerFilter struct {
	From     *time.Time
	To       *time.Time
	Category string
	Page     Page
}

// LedgerService records the finance ledgers that feed reporting.
type LedgerService interface {
	ListExpenses(ctx context.Context, filter LedgerFilter) ([]Expense, PageInfo, error)
	CreateExpense(ctx context.Context, in Expense, actor Actor) (*Expense, error)
	ListAssets(ctx context.Context) ([]Asset, error)
	CreateAsset(ctx context.Context, in Asset) (*Asset, error)
	ListLiabilities(ctx context.Context) ([]Liability, error)
	CreateLiability(ctx context.Context, in Liability) (*Liability, error)
	ListEquity(ctx context.Context) ([]EquityEntry, error)
	CreateEquity(ctx context.Context, in EquityEntry) (*EquityEntry, error)
	ListCashFlows(ctx context.Context, filter LedgerFilter) ([]CashFlowEntry, PageInfo, error)
	CreateCashFlow(ctx context.Context, in CashFlowEntry) (*CashFlowEntry, error)

	// DeleteEntry removes one row from the ledger named by kind.
	DeleteEntry(ctx context.Context, kind LedgerKind, id int) error

	// GetBudgetTarget returns the target for year/month (nil month = annual), or NotFound.
	GetBudgetTarget(ctx context.Context, year int, month *int) (*BudgetTarget, error)
	UpsertBudgetTarget(ctx context.Context, in BudgetTarget) (*BudgetTarget, error)

	GetSettings(ctx context.Context) (*BusinessSettings, error)
	UpdateSettings(ctx context.Context, in BusinessSettings) (*BusinessSettings, error)
}
