package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// balanceTolerance is the largest |assets − (liabilities + equity)| reported as balanced.
var balanceTolerance = decimal.RequireFromString("0.01")

const walkInCustomer = "Walk-in Customer"

type financialService struct {
	pool       *pgxpool.Pool
	clock      Clock
	cogsMethod COGSMethod
}

// NewFinancialService constructs a read-only FinancialService.
func NewFinancialService(pool *pgxpool.Pool, clock Clock, opts FinancialOptions) FinancialService {
	if clock == nil {
		clock = SystemClock
	}
	if opts.COGSMethod == "" {
		opts.COGSMethod = COGSSnapshot
	}
	return &financialService{pool: pool, clock: clock, cogsMethod: opts.COGSMethod}
}

// snapshot runs fn inside one REPEATABLE READ, READ ONLY transaction so every
// query of a report sees the same data.
func (s *financialService) snapshot(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin report snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to close report snapshot: %w", err)
	}
	return nil
}

// ── Consolidated statements ───────────────────────────────────────────────────

func (s *financialService) GetFinancialStatements(ctx context.Context, p Period) (*FinancialStatements, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var fs *FinancialStatements
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		fs, err = s.statementsTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *financialService) GetRatios(ctx context.Context, p Period) (*Ratios, error) {
	fs, err := s.GetFinancialStatements(ctx, p)
	if err != nil {
		return nil, err
	}
	r := ComputeRatios(*fs)
	return &r, nil
}

func (s *financialService) statementsTx(ctx context.Context, tx pgx.Tx, p Period) (*FinancialStatements, error) {
	from, to := p.Bounds()

	revenue, err := sumDecimal(ctx, tx, "revenue", `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales
		WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2`, from, to)
	if err != nil {
		return nil, err
	}
	serviceRevenue, err := sumDecimal(ctx, tx, "service revenue", `
		SELECT COALESCE(SUM(si.line_total), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.status = 'committed' AND p.is_service
		  AND s.sale_date >= $1 AND s.sale_date < $2`, from, to)
	if err != nil {
		return nil, err
	}

	costExpr := "si.unit_cost"
	if s.cogsMethod == COGSCurrent {
		costExpr = "p.item_cost"
	}
	cogs, err := sumDecimal(ctx, tx, "cost of goods sold", `
		SELECT COALESCE(SUM(`+costExpr+` * si.quantity), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		JOIN products p ON p.id = si.product_id
		WHERE s.status = 'committed' AND s.sale_date >= $1 AND s.sale_date < $2`, from, to)
	if err != nil {
		return nil, err
	}
	payroll, err := sumDecimal(ctx, tx, "payroll expense", `
		SELECT COALESCE(SUM(gross_pay), 0)
		FROM payroll_records
		WHERE is_paid AND pay_period_start >= $1 AND pay_period_start < $2`, from, to)
	if err != nil {
		return nil, err
	}
	otherExpenses, err := sumDecimal(ctx, tx, "expenses", `
		SELECT COALESCE(SUM(amount), 0)
		FROM expenses
		WHERE expense_date >= $1 AND expense_date < $2`, from, to)
	if err != nil {
		return nil, err
	}

	// Balance-sheet inputs are current snapshots, not period-scoped.
	inventoryValue, err := sumDecimal(ctx, tx, "inventory value", `
		SELECT COALESCE(SUM(item_cost * current_stock), 0)
		FROM products
		WHERE track_inventory`)
	if err != nil {
		return nil, err
	}
	receivable, err := sumDecimal(ctx, tx, "receivables", `
		SELECT COALESCE(SUM(total_amount - amount_paid), 0)
		FROM sales
		WHERE status = 'committed'`)
	if err != nil {
		return nil, err
	}
	var currentBook, nonCurrentBook decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(current_value - accumulated_depreciation) FILTER (WHERE asset_type = 'current'), 0),
		       COALESCE(SUM(current_value - accumulated_depreciation) FILTER (WHERE asset_type <> 'current'), 0)
		FROM assets`).Scan(&currentBook, &nonCurrentBook); err != nil {
		return nil, fmt.Errorf("failed to aggregate assets: %w", err)
	}
	var currentLiab, longTermLiab decimal.Decimal
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(current_balance) FILTER (WHERE liability_type = 'current'), 0),
		       COALESCE(SUM(current_balance) FILTER (WHERE liability_type = 'long_term'), 0)
		FROM liabilities`).Scan(&currentLiab, &longTermLiab); err != nil {
		return nil, fmt.Errorf("failed to aggregate liabilities: %w", err)
	}
	accrued, err := sumDecimal(ctx, tx, "accrued payroll", `
		SELECT COALESCE(SUM(net_pay), 0)
		FROM payroll_records
		WHERE NOT is_paid`)
	if err != nil {
		return nil, err
	}
	equity, err := sumDecimal(ctx, tx, "equity", `
		SELECT COALESCE(SUM(CASE WHEN transaction_type = 'withdrawal' THEN -amount ELSE amount END), 0)
		FROM equity_entries`)
	if err != nil {
		return nil, err
	}

	return buildStatements(p, s.cogsMethod, statementInputs{
		revenue:        revenue,
		serviceRevenue: serviceRevenue,
		cogs:           cogs,
		payroll:        payroll,
		otherExpenses:  otherExpenses,
		inventoryValue: inventoryValue,
		receivable:     receivable,
		currentBook:    currentBook,
		nonCurrentBook: nonCurrentBook,
		currentLiab:    currentLiab,
		longTermLiab:   longTermLiab,
		accruedPayroll: accrued,
		equity:         equity,
	}), nil
}

// statementInputs are the raw aggregates behind FinancialStatements.
type statementInputs struct {
	revenue, serviceRevenue, cogs, payroll, otherExpenses decimal.Decimal
	inventoryValue, receivable, currentBook, nonCurrentBook decimal.Decimal
	currentLiab, longTermLiab, accruedPayroll, equity       decimal.Decimal
}

// buildStatements applies the statement formulas to the aggregates.
func buildStatements(p Period, method COGSMethod, in statementInputs) *FinancialStatements {
	grossProfit := in.revenue.Sub(in.cogs)
	opex := in.payroll.Add(in.otherExpenses)
	netIncome := grossProfit.Sub(opex)

	// Residual cash estimate: revenue less every recognised cost.
	cash := decimal.Max(decimal.Zero, in.revenue.Sub(in.cogs).Sub(in.payroll).Sub(in.otherExpenses))

	currentAssets := in.inventoryValue.Add(cash).Add(in.currentBook)
	totalAssets := currentAssets.Add(in.nonCurrentBook)
	currentLiabilities := in.currentLiab.Add(in.accruedPayroll)
	totalLiabilities := currentLiabilities.Add(in.longTermLiab)
	shareholdersEquity := in.equity.Add(netIncome)
	diff := totalAssets.Sub(totalLiabilities.Add(shareholdersEquity))

	operatingCash := in.revenue.Sub(in.payroll).Sub(in.otherExpenses)
	investingCash := in.cogs.Neg()

	return &FinancialStatements{
		Period:     p,
		COGSMethod: method,
		IncomeStatement: IncomeStatement{
			TotalRevenue:      money(in.revenue),
			SalesRevenue:      money(in.revenue.Sub(in.serviceRevenue)),
			ServiceRevenue:    money(in.serviceRevenue),
			CostOfGoodsSold:   money(in.cogs),
			GrossProfit:       money(grossProfit),
			OperatingExpenses: money(opex),
			PayrollExpenses:   money(in.payroll),
			OtherExpenses:     money(in.otherExpenses),
			OperatingIncome:   money(netIncome),
			OtherIncome:       decimal.Zero,
			NetIncome:         money(netIncome),
		},
		BalanceSheet: BalanceSheet{
			CurrentAssets:       money(currentAssets),
			Cash:                money(cash),
			CashIsEstimate:      true,
			AccountsReceivable:  money(in.receivable),
			InventoryValue:      money(in.inventoryValue),
			NonCurrentAssets:    money(in.nonCurrentBook),
			TotalAssets:         money(totalAssets),
			CurrentLiabilities:  money(currentLiabilities),
			AccountsPayable:     decimal.Zero,
			AccruedPayroll:      money(in.accruedPayroll),
			LongTermLiabilities: money(in.longTermLiab),
			TotalLiabilities:    money(totalLiabilities),
			ShareholdersEquity:  money(shareholdersEquity),
			BalanceDifference:   money(diff),
			IsBalanced:          diff.Abs().LessThan(balanceTolerance),
		},
		CashFlow: CashFlowSummary{
			NetIncome:          money(netIncome),
			CashFromSales:      money(in.revenue),
			PayrollPayments:    money(in.payroll),
			OperatingCashFlow:  money(operatingCash),
			InventoryPurchases: money(in.cogs),
			InvestingCashFlow:  money(investingCash),
			NetCashChange:      money(operatingCash.Add(investingCash)),
		},
	}
}

// ── Single statements ─────────────────────────────────────────────────────────

func (s *financialService) GetIncomeStatement(ctx context.Context, p Period) (*IncomeStatementReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	from, to := p.Bounds()
	rep := &IncomeStatementReport{Period: p, ExpenseBreakdown: map[string]decimal.Decimal{}}

	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		rep.Revenue, err = sumDecimal(ctx, tx, "revenue", `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2`, from, to)
		if err != nil {
			return err
		}
		rep.PayrollExpenses, err = sumDecimal(ctx, tx, "payroll expense", `
			SELECT COALESCE(SUM(gross_pay), 0)
			FROM payroll_records
			WHERE is_paid AND pay_period_start >= $1 AND pay_period_start < $2`, from, to)
		if err != nil {
			return err
		}

		shares, err := expenseShares(ctx, tx, from, to)
		if err != nil {
			return err
		}
		for _, sh := range shares {
			rep.ExpenseBreakdown[sh.Category] = sh.Amount
			rep.OtherExpenses = rep.OtherExpenses.Add(sh.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rep.TotalExpenses = rep.OtherExpenses.Add(rep.PayrollExpenses)
	rep.ProfitLoss = rep.Revenue.Sub(rep.TotalExpenses)
	rep.ProfitMarginPct = percentOf(rep.ProfitLoss, rep.Revenue, 2)
	return rep, nil
}

func (s *financialService) GetBalanceSheet(ctx context.Context) (*BalanceSheetReport, error) {
	rep := &BalanceSheetReport{}
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(current_value - accumulated_depreciation) FILTER (WHERE asset_type = 'current'), 0),
			       COALESCE(SUM(current_value - accumulated_depreciation) FILTER (WHERE asset_type = 'fixed'), 0),
			       COALESCE(SUM(current_value - accumulated_depreciation) FILTER (WHERE asset_type = 'intangible'), 0)
			FROM assets`).Scan(&rep.Assets.Current, &rep.Assets.Fixed, &rep.Assets.Intangible); err != nil {
			return fmt.Errorf("failed to aggregate assets: %w", err)
		}
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(current_balance) FILTER (WHERE liability_type = 'current'), 0),
			       COALESCE(SUM(current_balance) FILTER (WHERE liability_type = 'long_term'), 0)
			FROM liabilities`).Scan(&rep.Liabilities.Current, &rep.Liabilities.LongTerm); err != nil {
			return fmt.Errorf("failed to aggregate liabilities: %w", err)
		}
		var err error
		rep.Equity, err = sumDecimal(ctx, tx, "equity", `
			SELECT COALESCE(SUM(CASE WHEN transaction_type = 'withdrawal' THEN -amount ELSE amount END), 0)
			FROM equity_entries`)
		return err
	})
	if err != nil {
		return nil, err
	}

	rep.Assets.Total = rep.Assets.Current.Add(rep.Assets.Fixed).Add(rep.Assets.Intangible)
	rep.Liabilities.Total = rep.Liabilities.Current.Add(rep.Liabilities.LongTerm)
	rep.TotalLiabilitiesEquity = rep.Liabilities.Total.Add(rep.Equity)
	rep.IsBalanced = rep.Assets.Total.Sub(rep.TotalLiabilitiesEquity).Abs().LessThan(balanceTolerance)
	return rep, nil
}

func (s *financialService) GetCashFlowStatement(ctx context.Context, p Period) (*CashFlowStatement, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	from, to := p.Bounds()
	rep := &CashFlowStatement{Period: p}

	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT category, flow_type, COALESCE(SUM(amount), 0)
			FROM cash_flows
			WHERE transaction_date >= $1 AND transaction_date < $2
			GROUP BY category, flow_type`, from, to)
		if err != nil {
			return fmt.Errorf("failed to aggregate cash flows: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var category, flow string
			var amount decimal.Decimal
			if err := rows.Scan(&category, &flow, &amount); err != nil {
				return fmt.Errorf("failed to scan cash flow total: %w", err)
			}
			var act *CashActivity
			switch category {
			case "operating":
				act = &rep.Operating
			case "investing":
				act = &rep.Investing
			case "financing":
				act = &rep.Financing
			default:
				continue
			}
			if flow == "in" {
				act.Inflows = act.Inflows.Add(amount)
			} else {
				act.Outflows = act.Outflows.Add(amount)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for _, act := range []*CashActivity{&rep.Operating, &rep.Investing, &rep.Financing} {
		act.Net = act.Inflows.Sub(act.Outflows)
		rep.NetCash = rep.NetCash.Add(act.Net)
	}
	return rep, nil
}

// ── Analyses ──────────────────────────────────────────────────────────────────

func (s *financialService) GetInventoryAnalysis(ctx context.Context, p Period) (*InventoryAnalysis, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	from, to := p.Bounds()
	rep := &InventoryAnalysis{
		Period:     p,
		TopMoving:  []MovingProduct{},
		SlowMoving: []SlowMover{},
	}
	rep.Movements.Summary = map[Direction]MovementTotals{}
	slowSince := s.clock().AddDate(0, 0, -30)

	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		v := &rep.Valuation
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(item_cost * current_stock), 0),
			       COALESCE(SUM(selling_price * current_stock), 0),
			       COALESCE(SUM(current_stock), 0),
			       COUNT(*)
			FROM products
			WHERE track_inventory`).Scan(&v.TotalCostValue, &v.TotalRetailValue, &v.TotalItems, &v.UniqueProducts); err != nil {
			return fmt.Errorf("failed to value inventory: %w", err)
		}
		v.PotentialProfit = v.TotalRetailValue.Sub(v.TotalCostValue)

		rows, err := tx.Query(ctx, `
			SELECT direction, COALESCE(SUM(quantity), 0), COUNT(*)
			FROM inventory_movements
			WHERE status = 'completed' AND movement_date >= $1 AND movement_date < $2
			GROUP BY direction`, from, to)
		if err != nil {
			return fmt.Errorf("failed to aggregate movements: %w", err)
		}
		for rows.Next() {
			var dir Direction
			var t MovementTotals
			if err := rows.Scan(&dir, &t.Quantity, &t.Transactions); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan movement totals: %w", err)
			}
			rep.Movements.Summary[dir] = t
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating movement totals: %w", err)
		}
		rep.Movements.StockIn = rep.Movements.Summary[DirectionIn].Quantity
		rep.Movements.StockOut = rep.Movements.Summary[DirectionOut].Quantity
		rep.Movements.NetChange = rep.Movements.StockIn - rep.Movements.StockOut

		rows, err = tx.Query(ctx, `
			SELECT p.id, p.name, p.sku, SUM(m.quantity) AS moved
			FROM inventory_movements m
			JOIN products p ON p.id = m.product_id
			WHERE m.direction = 'out' AND m.status = 'completed'
			  AND m.movement_date >= $1 AND m.movement_date < $2
			GROUP BY p.id, p.name, p.sku
			ORDER BY moved DESC, p.id
			LIMIT 10`, from, to)
		if err != nil {
			return fmt.Errorf("failed to query top moving products: %w", err)
		}
		for rows.Next() {
			var mp MovingProduct
			if err := rows.Scan(&mp.ID, &mp.Name, &mp.SKU, &mp.Movement); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan top moving product: %w", err)
			}
			rep.TopMoving = append(rep.TopMoving, mp)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating top moving products: %w", err)
		}

		rows, err = tx.Query(ctx, `
			SELECT p.id, p.name, p.sku, p.current_stock
			FROM products p
			WHERE p.track_inventory AND p.current_stock > 0
			  AND NOT EXISTS (
			      SELECT 1 FROM inventory_movements m
			      WHERE m.product_id = p.id AND m.movement_date >= $1
			  )
			ORDER BY p.name, p.id
			LIMIT 10`, slowSince)
		if err != nil {
			return fmt.Errorf("failed to query slow moving products: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var sm SlowMover
			if err := rows.Scan(&sm.ID, &sm.Name, &sm.SKU, &sm.CurrentStock); err != nil {
				return fmt.Errorf("failed to scan slow moving product: %w", err)
			}
			rep.SlowMoving = append(rep.SlowMoving, sm)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}

func (s *financialService) GetSalesAnalysis(ctx context.Context, p Period) (*SalesAnalysis, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	from, to := p.Bounds()
	rep := &SalesAnalysis{Period: p, DailyBreakdown: []DailySales{}, TopCustomers: []CustomerSales{}}

	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2`, from, to,
		).Scan(&rep.Summary.TotalSales, &rep.Summary.OrderCount); err != nil {
			return fmt.Errorf("failed to summarise sales: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT sale_date::date AS day, SUM(total_amount), COUNT(*)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2
			GROUP BY day
			ORDER BY day`, from, to)
		if err != nil {
			return fmt.Errorf("failed to query daily sales: %w", err)
		}
		for rows.Next() {
			var day time.Time
			var d DailySales
			if err := rows.Scan(&day, &d.Sales, &d.Orders); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan daily sales: %w", err)
			}
			d.Date = day.Format("2006-01-02")
			rep.DailyBreakdown = append(rep.DailyBreakdown, d)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating daily sales: %w", err)
		}

		rows, err = tx.Query(ctx, `
			SELECT COALESCE(c.name, $3), SUM(s.total_amount) AS total, COUNT(*)
			FROM sales s
			LEFT JOIN customers c ON c.id = s.customer_id
			WHERE s.status = 'committed' AND s.sale_date >= $1 AND s.sale_date < $2
			GROUP BY s.customer_id, c.name
			ORDER BY total DESC
			LIMIT 5`, from, to, walkInCustomer)
		if err != nil {
			return fmt.Errorf("failed to query top customers: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var c CustomerSales
			if err := rows.Scan(&c.Name, &c.Total, &c.Orders); err != nil {
				return fmt.Errorf("failed to scan top customer: %w", err)
			}
			rep.TopCustomers = append(rep.TopCustomers, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	if rep.Summary.OrderCount > 0 {
		rep.Summary.AverageOrder = rep.Summary.TotalSales.DivRound(decimal.NewFromInt(int64(rep.Summary.OrderCount)), 2)
	}
	return rep, nil
}

func (s *financialService) GetDashboard(ctx context.Context, p Period) (*Dashboard, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Month == 0 {
		return nil, InvalidInputf("dashboard needs a month")
	}
	monthFrom, monthTo := p.Bounds()
	yearFrom, yearTo := Period{Year: p.Year}.Bounds()
	today := dateOnly(s.clock())
	tomorrow := today.AddDate(0, 0, 1)

	d := &Dashboard{Period: p, Bestsellers: []Bestseller{}, ExpenseDistribution: []ExpenseShare{}}

	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		// All time.
		if d.AllTime.Sales, err = sumDecimal(ctx, tx, "all-time sales",
			"SELECT COALESCE(SUM(total_amount), 0) FROM sales WHERE status = 'committed'"); err != nil {
			return err
		}
		if d.AllTime.Expenses, err = sumDecimal(ctx, tx, "all-time expenses",
			"SELECT COALESCE(SUM(amount), 0) FROM expenses"); err != nil {
			return err
		}

		// Today.
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(s.total_amount), 0)
			FROM sales s
			WHERE s.status = 'committed' AND s.sale_date >= $1 AND s.sale_date < $2`, today, tomorrow,
		).Scan(&d.Today.Sales); err != nil {
			return fmt.Errorf("failed to sum today's sales: %w", err)
		}
		if d.Today.ItemsSold, err = itemsSold(ctx, tx, today, tomorrow); err != nil {
			return err
		}
		if d.Today.Expenses, err = sumDecimal(ctx, tx, "today's expenses",
			"SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE expense_date = $1", today); err != nil {
			return err
		}

		// Month.
		if d.Monthly.Sales, err = sumDecimal(ctx, tx, "monthly sales", `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2`, monthFrom, monthTo); err != nil {
			return err
		}
		if d.Monthly.ItemsSold, err = itemsSold(ctx, tx, monthFrom, monthTo); err != nil {
			return err
		}
		if d.ExpenseDistribution, err = expenseShares(ctx, tx, monthFrom, monthTo); err != nil {
			return err
		}
		for _, sh := range d.ExpenseDistribution {
			d.Monthly.Expenses = d.Monthly.Expenses.Add(sh.Amount)
		}

		var salesTarget decimal.Decimal
		var itemsTarget int
		err = tx.QueryRow(ctx, `
			SELECT sales_target, items_sold_target
			FROM budget_targets
			WHERE year = $1 AND month = $2`, p.Year, p.Month).Scan(&salesTarget, &itemsTarget)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("failed to load budget target: %w", err)
		}
		d.Monthly.SalesTarget, d.Monthly.ItemsTarget = salesTarget, itemsTarget
		if !salesTarget.IsPositive() {
			d.Monthly.SalesTarget = DefaultMonthlySalesTarget
			d.Monthly.TargetIsDefault = true
		}
		if itemsTarget <= 0 {
			d.Monthly.ItemsTarget = DefaultMonthlyItemsTarget
			d.Monthly.TargetIsDefault = true
		}

		// Inventory status over tracked, active products.
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FILTER (WHERE current_stock > low_stock_threshold),
			       COUNT(*) FILTER (WHERE current_stock > 0 AND current_stock <= low_stock_threshold),
			       COUNT(*) FILTER (WHERE current_stock <= 0)
			FROM products
			WHERE track_inventory AND is_active`).Scan(&d.Inventory.InStock, &d.Inventory.LowStock, &d.Inventory.OutOfStock); err != nil {
			return fmt.Errorf("failed to count inventory status: %w", err)
		}

		rows, err := tx.Query(ctx, `
			SELECT p.name, SUM(si.quantity), SUM(si.line_total) AS revenue
			FROM sale_items si
			JOIN sales s ON s.id = si.sale_id
			JOIN products p ON p.id = si.product_id
			WHERE s.status = 'committed' AND s.sale_date >= $1 AND s.sale_date < $2
			GROUP BY p.id, p.name
			ORDER BY revenue DESC
			LIMIT 5`, monthFrom, monthTo)
		if err != nil {
			return fmt.Errorf("failed to query bestsellers: %w", err)
		}
		for rows.Next() {
			var b Bestseller
			if err := rows.Scan(&b.Name, &b.QuantitySold, &b.Revenue); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan bestseller: %w", err)
			}
			d.Bestsellers = append(d.Bestsellers, b)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating bestsellers: %w", err)
		}

		// Year.
		if d.Annual.Current, err = sumDecimal(ctx, tx, "annual sales", `
			SELECT COALESCE(SUM(total_amount), 0)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2`, yearFrom, yearTo); err != nil {
			return err
		}
		d.Annual.Target, err = sumDecimal(ctx, tx, "annual target",
			"SELECT COALESCE(SUM(sales_target), 0) FROM budget_targets WHERE year = $1", p.Year)
		return err
	})
	if err != nil {
		return nil, err
	}

	d.AllTime.GrossProfit = d.AllTime.Sales.Sub(d.AllTime.Expenses)
	d.AllTime.GrossProfitMargin = percentOf(d.AllTime.GrossProfit, d.AllTime.Sales, 0)
	d.Monthly.Profit = d.Monthly.Sales.Sub(d.Monthly.Expenses)
	d.Monthly.SalesProgress = percentOf(d.Monthly.Sales, d.Monthly.SalesTarget, 0)
	d.Monthly.ItemsProgress = percentOf(decimal.NewFromInt(int64(d.Monthly.ItemsSold)),
		decimal.NewFromInt(int64(d.Monthly.ItemsTarget)), 0)
	if !d.Annual.Target.IsPositive() {
		d.Annual.Target = DefaultAnnualSalesTarget
		d.Annual.TargetIsDefault = true
	}
	d.Annual.Progress = percentOf(d.Annual.Current, d.Annual.Target, 0)
	return d, nil
}

func (s *financialService) DailyTrend(ctx context.Context, p Period) ([]DailyTrendPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Month == 0 {
		return nil, InvalidInputf("daily trend needs a month")
	}
	from, to := p.Bounds()

	var sales, expenses map[int]decimal.Decimal
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		sales, err = sumByKey(ctx, tx, "daily sales", `
			SELECT EXTRACT(DAY FROM sale_date)::int, SUM(total_amount)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2
			GROUP BY 1`, from, to)
		if err != nil {
			return err
		}
		expenses, err = sumByKey(ctx, tx, "daily expenses", `
			SELECT EXTRACT(DAY FROM expense_date)::int, SUM(amount)
			FROM expenses
			WHERE expense_date >= $1 AND expense_date < $2
			GROUP BY 1`, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	days := int(to.Sub(from).Hours() / 24)
	out := make([]DailyTrendPoint, 0, days)
	for day := 1; day <= days; day++ {
		out = append(out, DailyTrendPoint{Day: day, Sales: sales[day], Expenses: expenses[day]})
	}
	return out, nil
}

func (s *financialService) MonthlyTrend(ctx context.Context, year int) ([]MonthlyTrendPoint, error) {
	p := Period{Year: year}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	from, to := p.Bounds()

	var sales, expenses map[int]decimal.Decimal
	err := s.snapshot(ctx, func(tx pgx.Tx) error {
		var err error
		sales, err = sumByKey(ctx, tx, "monthly sales", `
			SELECT EXTRACT(MONTH FROM sale_date)::int, SUM(total_amount)
			FROM sales
			WHERE status = 'committed' AND sale_date >= $1 AND sale_date < $2
			GROUP BY 1`, from, to)
		if err != nil {
			return err
		}
		expenses, err = sumByKey(ctx, tx, "monthly expenses", `
			SELECT EXTRACT(MONTH FROM expense_date)::int, SUM(amount)
			FROM expenses
			WHERE expense_date >= $1 AND expense_date < $2
			GROUP BY 1`, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]MonthlyTrendPoint, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, MonthlyTrendPoint{
			Month:       time.Month(m).String(),
			MonthNumber: m,
			Sales:       sales[m],
			Expenses:    expenses[m],
		})
	}
	return out, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// sumDecimal runs a single-value aggregate query.
func sumDecimal(ctx context.Context, q pgxQuerier, label, sql string, args ...any) (decimal.Decimal, error) {
	var d decimal.Decimal
	if err := q.QueryRow(ctx, sql, args...).Scan(&d); err != nil {
		return decimal.Zero, fmt.Errorf("failed to aggregate %s: %w", label, err)
	}
	return d, nil
}

// sumByKey runs a (int key, numeric sum) grouped query into a map.
func sumByKey(ctx context.Context, q pgxQuerier, label, sql string, args ...any) (map[int]decimal.Decimal, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s: %w", label, err)
	}
	defer rows.Close()

	out := map[int]decimal.Decimal{}
	for rows.Next() {
		var k int
		var v decimal.Decimal
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", label, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", label, err)
	}
	return out, nil
}

// expenseShares sums expenses by category over [from, to).
func expenseShares(ctx context.Context, q pgxQuerier, from, to time.Time) ([]ExpenseShare, error) {
	rows, err := q.Query(ctx, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		WHERE expense_date >= $1 AND expense_date < $2
		GROUP BY category
		ORDER BY total DESC, category`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate expenses by category: %w", err)
	}
	defer rows.Close()

	out := []ExpenseShare{}
	for rows.Next() {
		var sh ExpenseShare
		if err := rows.Scan(&sh.Category, &sh.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan expense category: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expense categories: %w", err)
	}
	return out, nil
}

// itemsSold sums sold quantities of committed sales over [from, to).
func itemsSold(ctx context.Context, q pgxQuerier, from, to time.Time) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(si.quantity), 0)
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status = 'committed' AND s.sale_date >= $1 AND s.sale_date < $2`, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to sum items sold: %w", err)
	}
	return n, nil
}

// percentOf is part/whole×100 rounded to places, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal, places int32) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).DivRound(whole, places)
}
