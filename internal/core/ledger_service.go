package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ledgerService struct {
	pool *pgxpool.Pool
}

// NewLedgerService constructs a LedgerService backed by PostgreSQL.
func NewLedgerService(pool *pgxpool.Pool) LedgerService {
	return &ledgerService{pool: pool}
}

// ── Expenses ──────────────────────────────────────────────────────────────────

func (s *ledgerService) ListExpenses(ctx context.Context, filter LedgerFilter) ([]Expense, PageInfo, error) {
	clause, args, arg := ledgerWhere(filter, "expense_date", "category")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expenses "+clause, *args...).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count expenses: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := `
		SELECT id, expense_date, category, description, amount, payment_method,
		       reference_number, vendor, notes, created_by, created_at
		FROM expenses ` + clause + `
		ORDER BY expense_date DESC, id DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := s.pool.Query(ctx, query, *args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	out := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.ExpenseDate, &e.Category, &e.Description, &e.Amount, &e.PaymentMethod,
			&e.ReferenceNumber, &e.Vendor, &e.Notes, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating expenses: %w", err)
	}
	return out, newPageInfo(total, filter.Page), nil
}

func (s *ledgerService) CreateExpense(ctx context.Context, in Expense, actor Actor) (*Expense, error) {
	in.Description = strings.TrimSpace(in.Description)
	bad := map[string]string{}
	if in.Description == "" {
		bad["description"] = "required"
	}
	if !slices.Contains(ExpenseCategories, in.Category) {
		bad["category"] = "unknown category"
	}
	if in.Amount.IsNegative() {
		bad["amount"] = "must not be negative"
	}
	if in.ExpenseDate.IsZero() {
		bad["expense_date"] = "required"
	}
	if len(bad) > 0 {
		return nil, InvalidFields("invalid expense", bad)
	}
	in.ExpenseDate = dateOnly(in.ExpenseDate)
	in.CreatedBy = actor.performedBy()

	err := s.pool.QueryRow(ctx, `
		INSERT INTO expenses
			(expense_date, category, description, amount, payment_method,
			 reference_number, vendor, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, in.ExpenseDate, in.Category, in.Description, in.Amount, in.PaymentMethod,
		in.ReferenceNumber, in.Vendor, in.Notes, in.CreatedBy,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create expense")
	}
	return &in, nil
}

// ── Assets / liabilities / equity ─────────────────────────────────────────────

func (s *ledgerService) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, asset_type, category, purchase_date, purchase_cost, current_value,
		       depreciation_rate, accumulated_depreciation, notes, created_at
		FROM assets
		ORDER BY asset_type, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	out := []Asset{}
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Name, &a.AssetType, &a.Category, &a.PurchaseDate, &a.PurchaseCost,
			&a.CurrentValue, &a.DepreciationRate, &a.AccumulatedDepreciation, &a.Notes, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.BookValue = a.CurrentValue.Sub(a.AccumulatedDepreciation)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return out, nil
}

func (s *ledgerService) CreateAsset(ctx context.Context, in Asset) (*Asset, error) {
	in.Name = strings.TrimSpace(in.Name)
	bad := map[string]string{}
	if in.Name == "" {
		bad["name"] = "required"
	}
	if in.AssetType != AssetCurrent && in.AssetType != AssetFixed && in.AssetType != AssetIntangible {
		bad["asset_type"] = "must be current, fixed or intangible"
	}
	for field, v := range map[string]decimal.Decimal{
		"purchase_cost":            in.PurchaseCost,
		"current_value":            in.CurrentValue,
		"accumulated_depreciation": in.AccumulatedDepreciation,
	} {
		if v.IsNegative() {
			bad[field] = "must not be negative"
		}
	}
	if len(bad) > 0 {
		return nil, InvalidFields("invalid asset", bad)
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO assets
			(name, asset_type, category, purchase_date, purchase_cost, current_value,
			 depreciation_rate, accumulated_depreciation, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, in.Name, in.AssetType, in.Category, in.PurchaseDate, in.PurchaseCost, in.CurrentValue,
		in.DepreciationRate, in.AccumulatedDepreciation, in.Notes,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create asset")
	}
	in.BookValue = in.CurrentValue.Sub(in.AccumulatedDepreciation)
	return &in, nil
}

func (s *ledgerService) ListLiabilities(ctx context.Context) ([]Liability, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, liability_type, category, creditor, original_amount, current_balance,
		       interest_rate, due_date, payment_frequency, notes, created_at
		FROM liabilities
		ORDER BY liability_type, name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query liabilities: %w", err)
	}
	defer rows.Close()

	out := []Liability{}
	for rows.Next() {
		var l Liability
		if err := rows.Scan(&l.ID, &l.Name, &l.LiabilityType, &l.Category, &l.Creditor, &l.OriginalAmount,
			&l.CurrentBalance, &l.InterestRate, &l.DueDate, &l.PaymentFrequency, &l.Notes, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan liability: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating liabilities: %w", err)
	}
	return out, nil
}

func (s *ledgerService) CreateLiability(ctx context.Context, in Liability) (*Liability, error) {
	in.Name = strings.TrimSpace(in.Name)
	bad := map[string]string{}
	if in.Name == "" {
		bad["name"] = "required"
	}
	if in.LiabilityType != LiabilityCurrent && in.LiabilityType != LiabilityLongTerm {
		bad["liability_type"] = "must be current or long_term"
	}
	if in.OriginalAmount.IsNegative() {
		bad["original_amount"] = "must not be negative"
	}
	if in.CurrentBalance.IsNegative() {
		bad["current_balance"] = "must not be negative"
	}
	if len(bad) > 0 {
		return nil, InvalidFields("invalid liability", bad)
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO liabilities
			(name, liability_type, category, creditor, original_amount, current_balance,
			 interest_rate, due_date, payment_frequency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, in.Name, in.LiabilityType, in.Category, in.Creditor, in.OriginalAmount, in.CurrentBalance,
		in.InterestRate, in.DueDate, in.PaymentFrequency, in.Notes,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create liability")
	}
	return &in, nil
}

func (s *ledgerService) ListEquity(ctx context.Context) ([]EquityEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, equity_date, equity_type, description, amount, transaction_type, notes, created_at
		FROM equity_entries
		ORDER BY equity_date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity entries: %w", err)
	}
	defer rows.Close()

	out := []EquityEntry{}
	for rows.Next() {
		var e EquityEntry
		if err := rows.Scan(&e.ID, &e.EquityDate, &e.EquityType, &e.Description, &e.Amount,
			&e.TransactionType, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan equity entry: %w", err)
		}
		e.SignedAmount = signedEquity(e.TransactionType, e.Amount)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating equity entries: %w", err)
	}
	return out, nil
}

func (s *ledgerService) CreateEquity(ctx context.Context, in EquityEntry) (*EquityEntry, error) {
	in.EquityType = strings.TrimSpace(in.EquityType)
	if in.TransactionType == "" {
		in.TransactionType = EquityInvestment
	}
	bad := map[string]string{}
	if in.EquityType == "" {
		bad["equity_type"] = "required"
	}
	if in.EquityDate.IsZero() {
		bad["equity_date"] = "required"
	}
	if in.Amount.IsNegative() {
		bad["amount"] = "must not be negative"
	}
	switch in.TransactionType {
	case EquityInvestment, EquityWithdrawal, EquityProfit:
	default:
		bad["transaction_type"] = "must be investment, withdrawal or profit"
	}
	if len(bad) > 0 {
		return nil, InvalidFields("invalid equity entry", bad)
	}
	in.EquityDate = dateOnly(in.EquityDate)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO equity_entries (equity_date, equity_type, description, amount, transaction_type, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, in.EquityDate, in.EquityType, in.Description, in.Amount, in.TransactionType, in.Notes,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create equity entry")
	}
	in.SignedAmount = signedEquity(in.TransactionType, in.Amount)
	return &in, nil
}

// ── Cash flows ────────────────────────────────────────────────────────────────

func (s *ledgerService) ListCashFlows(ctx context.Context, filter LedgerFilter) ([]CashFlowEntry, PageInfo, error) {
	clause, args, arg := ledgerWhere(filter, "transaction_date", "category")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cash_flows "+clause, *args...).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count cash flows: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := `
		SELECT id, transaction_date, description, flow_type, category, amount, status, reference, created_at
		FROM cash_flows ` + clause + `
		ORDER BY transaction_date DESC, id DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := s.pool.Query(ctx, query, *args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query cash flows: %w", err)
	}
	defer rows.Close()

	out := []CashFlowEntry{}
	for rows.Next() {
		var c CashFlowEntry
		if err := rows.Scan(&c.ID, &c.TransactionDate, &c.Description, &c.FlowType, &c.Category,
			&c.Amount, &c.Status, &c.Reference, &c.CreatedAt); err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan cash flow: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating cash flows: %w", err)
	}
	return out, newPageInfo(total, filter.Page), nil
}

func (s *ledgerService) CreateCashFlow(ctx context.Context, in CashFlowEntry) (*CashFlowEntry, error) {
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = "completed"
	}
	bad := map[string]string{}
	if in.Description == "" {
		bad["description"] = "required"
	}
	if in.TransactionDate.IsZero() {
		bad["transaction_date"] = "required"
	}
	if in.FlowType != "in" && in.FlowType != "out" {
		bad["flow_type"] = "must be in or out"
	}
	switch in.Category {
	case "operating", "investing", "financing":
	default:
		bad["category"] = "must be operating, investing or financing"
	}
	if in.Amount.IsNegative() {
		bad["amount"] = "must not be negative"
	}
	if len(bad) > 0 {
		return nil, InvalidFields("invalid cash flow", bad)
	}
	in.TransactionDate = dateOnly(in.TransactionDate)

	err := s.pool.QueryRow(ctx, `
		INSERT INTO cash_flows (transaction_date, description, flow_type, category, amount, status, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, in.TransactionDate, in.Description, in.FlowType, in.Category, in.Amount, in.Status, in.Reference,
	).Scan(&in.ID, &in.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create cash flow")
	}
	return &in, nil
}

func (s *ledgerService) DeleteEntry(ctx context.Context, kind LedgerKind, id int) error {
	table, ok := ledgerTables[kind]
	if !ok {
		return NotFoundf("unknown ledger %q", kind)
	}
	tag, err := s.pool.Exec(ctx, "DELETE FROM "+table+" WHERE id = $1", id)
	if err != nil {
		return mapWriteError(err, "delete "+string(kind)+" entry")
	}
	if tag.RowsAffected() == 0 {
		return NotFoundf("%s entry %d not found", kind, id)
	}
	return nil
}

// ── Budget targets & settings ─────────────────────────────────────────────────

const budgetColumns = `
	id, year, month, revenue_target, expense_target, profit_target,
	items_sold_target, sales_target, main_goals, daily_tasks, updated_at`

func scanBudget(row pgx.Row) (*BudgetTarget, error) {
	var b BudgetTarget
	err := row.Scan(&b.ID, &b.Year, &b.Month, &b.RevenueTarget, &b.ExpenseTarget, &b.ProfitTarget,
		&b.ItemsSoldTarget, &b.SalesTarget, &b.MainGoals, &b.DailyTasks, &b.UpdatedAt)
	return &b, err
}

func (s *ledgerService) GetBudgetTarget(ctx context.Context, year int, month *int) (*BudgetTarget, error) {
	b, err := scanBudget(s.pool.QueryRow(ctx, `
		SELECT `+budgetColumns+`
		FROM budget_targets
		WHERE year = $1 AND COALESCE(month, 0) = COALESCE($2::int, 0)
	`, year, month))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("no budget target for %s", budgetLabel(year, month))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load budget target: %w", err)
	}
	return b, nil
}

func (s *ledgerService) UpsertBudgetTarget(ctx context.Context, in BudgetTarget) (*BudgetTarget, error) {
	var m int
	if in.Month != nil {
		m = *in.Month
		if m == 0 {
			in.Month = nil
		}
	}
	if err := (Period{Year: in.Year, Month: m}).Validate(); err != nil {
		return nil, err
	}
	if in.ItemsSoldTarget < 0 {
		return nil, InvalidInputf("items_sold_target must not be negative")
	}

	b, err := scanBudget(s.pool.QueryRow(ctx, `
		INSERT INTO budget_targets
			(year, month, revenue_target, expense_target, profit_target,
			 items_sold_target, sales_target, main_goals, daily_tasks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (year, (COALESCE(month, 0))) DO UPDATE SET
			revenue_target    = EXCLUDED.revenue_target,
			expense_target    = EXCLUDED.expense_target,
			profit_target     = EXCLUDED.profit_target,
			items_sold_target = EXCLUDED.items_sold_target,
			sales_target      = EXCLUDED.sales_target,
			main_goals        = EXCLUDED.main_goals,
			daily_tasks       = EXCLUDED.daily_tasks,
			updated_at        = NOW()
		RETURNING `+budgetColumns,
		in.Year, in.Month, in.RevenueTarget, in.ExpenseTarget, in.ProfitTarget,
		in.ItemsSoldTarget, in.SalesTarget, in.MainGoals, in.DailyTasks,
	))
	if err != nil {
		return nil, mapWriteError(err, "save budget target")
	}
	return b, nil
}

const settingsColumns = `
	business_name, tax_id, address, phone, email, currency,
	fiscal_year_start, starting_capital, default_tax_rate, updated_at`

func scanSettings(row pgx.Row) (*BusinessSettings, error) {
	var b BusinessSettings
	err := row.Scan(&b.BusinessName, &b.TaxID, &b.Address, &b.Phone, &b.Email, &b.Currency,
		&b.FiscalYearStart, &b.StartingCapital, &b.DefaultTaxRate, &b.UpdatedAt)
	return &b, err
}

func (s *ledgerService) GetSettings(ctx context.Context) (*BusinessSettings, error) {
	b, err := scanSettings(s.pool.QueryRow(ctx, "SELECT "+settingsColumns+" FROM business_settings WHERE id = 1"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("business settings have not been initialised")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load business settings: %w", err)
	}
	return b, nil
}

func (s *ledgerService) UpdateSettings(ctx context.Context, in BusinessSettings) (*BusinessSettings, error) {
	if in.Currency == "" {
		in.Currency = "PHP"
	}
	if in.FiscalYearStart == 0 {
		in.FiscalYearStart = 1
	}
	if in.FiscalYearStart < 1 || in.FiscalYearStart > 12 {
		return nil, InvalidInputf("fiscal_year_start must be a month between 1 and 12")
	}
	if in.DefaultTaxRate.IsNegative() {
		return nil, InvalidInputf("default_tax_rate must not be negative")
	}

	b, err := scanSettings(s.pool.QueryRow(ctx, `
		INSERT INTO business_settings
			(id, business_name, tax_id, address, phone, email, currency,
			 fiscal_year_start, starting_capital, default_tax_rate)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			business_name     = EXCLUDED.business_name,
			tax_id            = EXCLUDED.tax_id,
			address           = EXCLUDED.address,
			phone             = EXCLUDED.phone,
			email             = EXCLUDED.email,
			currency          = EXCLUDED.currency,
			fiscal_year_start = EXCLUDED.fiscal_year_start,
			starting_capital  = EXCLUDED.starting_capital,
			default_tax_rate  = EXCLUDED.default_tax_rate,
			updated_at        = NOW()
		RETURNING `+settingsColumns,
		strings.TrimSpace(in.BusinessName), in.TaxID, in.Address, in.Phone, in.Email, in.Currency,
		in.FiscalYearStart, in.StartingCapital, in.DefaultTaxRate,
	))
	if err != nil {
		return nil, mapWriteError(err, "update business settings")
	}
	return b, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// signedEquity is the contribution of one entry to total equity.
func signedEquity(transactionType string, amount decimal.Decimal) decimal.Decimal {
	if transactionType == EquityWithdrawal {
		return amount.Neg()
	}
	return amount
}

// ledgerWhere builds a WHERE clause over a date column and a category column.
// It returns a pointer to the argument slice so callers can keep appending.
func ledgerWhere(filter LedgerFilter, dateCol, categoryCol string) (string, *[]any, func(any) string) {
	args := &[]any{}
	arg := func(v any) string {
		*args = append(*args, v)
		return fmt.Sprintf("$%d", len(*args))
	}
	var where []string
	if filter.From != nil {
		where = append(where, dateCol+" >= "+arg(dateOnly(*filter.From)))
	}
	if filter.To != nil {
		where = append(where, dateCol+" < "+arg(dateOnly(*filter.To)))
	}
	if filter.Category != "" {
		where = append(where, categoryCol+" = "+arg(filter.Category))
	}
	if len(where) == 0 {
		return "", args, arg
	}
	return "WHERE " + strings.Join(where, " AND "), args, arg
}

func budgetLabel(year int, month *int) string {
	if month == nil || *month == 0 {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%d-%02d", year, *month)
}
