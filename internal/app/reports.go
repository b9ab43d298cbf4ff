package app

import (
	"context"
	"fmt"
	"io"

	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/export"

	"go.uber.org/zap"
)

// report authorizes a report read, validates the period and serves it
// through the report cache.
func report[T any](ctx context.Context, s *appService, actor core.Actor, kind string, p core.Period, build func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := s.check(actor, core.OpReportRead, nil); err != nil {
		return zero, err
	}
	if err := p.Validate(); err != nil {
		return zero, err
	}
	v, err := cache.Load(ctx, s.cache, cache.ReportKey(kind, p.Year, p.Month), build)
	if err != nil {
		return zero, s.fail("build "+kind+" report", actor, err)
	}
	return v, nil
}

func (s *appService) Statements(ctx context.Context, actor core.Actor, p core.Period) (*core.FinancialStatements, error) {
	return report(ctx, s, actor, "statements", p, func(ctx context.Context) (*core.FinancialStatements, error) {
		return s.Financial.GetFinancialStatements(ctx, p)
	})
}

func (s *appService) Ratios(ctx context.Context, actor core.Actor, p core.Period) (*core.Ratios, error) {
	return report(ctx, s, actor, "ratios", p, func(ctx context.Context) (*core.Ratios, error) {
		return s.Financial.GetRatios(ctx, p)
	})
}

func (s *appService) IncomeStatement(ctx context.Context, actor core.Actor, p core.Period) (*core.IncomeStatementReport, error) {
	return report(ctx, s, actor, "income-statement", p, func(ctx context.Context) (*core.IncomeStatementReport, error) {
		return s.Financial.GetIncomeStatement(ctx, p)
	})
}

// BalanceSheet is a point-in-time report with no period.
func (s *appService) BalanceSheet(ctx context.Context, actor core.Actor) (*core.BalanceSheetReport, error) {
	if err := s.check(actor, core.OpReportRead, nil); err != nil {
		return nil, err
	}
	v, err := cache.Load(ctx, s.cache, cache.ReportKey("balance-sheet", 0, 0), s.Financial.GetBalanceSheet)
	if err != nil {
		return nil, s.fail("build balance-sheet report", actor, err)
	}
	return v, nil
}

func (s *appService) CashFlowStatement(ctx context.Context, actor core.Actor, p core.Period) (*core.CashFlowStatement, error) {
	return report(ctx, s, actor, "cash-flow-statement", p, func(ctx context.Context) (*core.CashFlowStatement, error) {
		return s.Financial.GetCashFlowStatement(ctx, p)
	})
}

func (s *appService) InventoryAnalysis(ctx context.Context, actor core.Actor, p core.Period) (*core.InventoryAnalysis, error) {
	return report(ctx, s, actor, "inventory-analysis", p, func(ctx context.Context) (*core.InventoryAnalysis, error) {
		return s.Financial.GetInventoryAnalysis(ctx, p)
	})
}

func (s *appService) SalesAnalysis(ctx context.Context, actor core.Actor, p core.Period) (*core.SalesAnalysis, error) {
	return report(ctx, s, actor, "sales-analysis", p, func(ctx context.Context) (*core.SalesAnalysis, error) {
		return s.Financial.GetSalesAnalysis(ctx, p)
	})
}

func (s *appService) Dashboard(ctx context.Context, actor core.Actor, p core.Period) (*core.Dashboard, error) {
	return report(ctx, s, actor, "dashboard", p, func(ctx context.Context) (*core.Dashboard, error) {
		return s.Financial.GetDashboard(ctx, p)
	})
}

func (s *appService) DailyTrend(ctx context.Context, actor core.Actor, p core.Period) ([]core.DailyTrendPoint, error) {
	return report(ctx, s, actor, "trend-daily", p, func(ctx context.Context) ([]core.DailyTrendPoint, error) {
		return s.Financial.DailyTrend(ctx, p)
	})
}

func (s *appService) MonthlyTrend(ctx context.Context, actor core.Actor, year int) ([]core.MonthlyTrendPoint, error) {
	return report(ctx, s, actor, "trend-monthly", core.Period{Year: year}, func(ctx context.Context) ([]core.MonthlyTrendPoint, error) {
		return s.Financial.MonthlyTrend(ctx, year)
	})
}

const (
	defaultActivityLimit = 10
	maxActivityLimit     = 100
)

func (s *appService) RecentActivity(ctx context.Context, actor core.Actor, limit int) (*RecentActivity, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	switch {
	case limit == 0:
		limit = defaultActivityLimit
	case limit < 0 || limit > maxActivityLimit:
		return nil, core.InvalidFields("invalid limit", map[string]string{"limit": fmt.Sprintf("must be between 1 and %d", maxActivityLimit)})
	}
	page := core.Page{Page: 1, PerPage: limit}

	var (
		out RecentActivity
		err error
	)
	if out.Sales, _, err = s.Sales.ListSales(ctx, core.SaleFilter{Page: page}); err != nil {
		return nil, s.fail("recent activity", actor, err)
	}
	if out.Movements, _, err = s.Inventory.ListMovements(ctx, core.MovementFilter{Page: page}); err != nil {
		return nil, s.fail("recent activity", actor, err)
	}
	if out.Expenses, _, err = s.Ledger.ListExpenses(ctx, core.LedgerFilter{Page: page}); err != nil {
		return nil, s.fail("recent activity", actor, err)
	}
	if out.Sales == nil {
		out.Sales = []core.Sale{}
	}
	if out.Movements == nil {
		out.Movements = []core.Movement{}
	}
	if out.Expenses == nil {
		out.Expenses = []core.Expense{}
	}
	return &out, nil
}

// ── Spreadsheet export ───────────────────────────────────────────────────────

// allPages walks a paginated listing to the end.
func allPages[T any](fetch func(core.Page) ([]T, core.PageInfo, error)) ([]T, error) {
	var out []T
	for page := 1; ; page++ {
		items, info, err := fetch(core.Page{Page: page, PerPage: exportPageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
		if len(items) == 0 || page >= info.Pages {
			return out, nil
		}
	}
}

func (s *appService) ExportProducts(ctx context.Context, actor core.Actor, w io.Writer) error {
	if err := s.check(actor, core.OpReportExport, nil); err != nil {
		return err
	}
	products, err := allPages(func(p core.Page) ([]core.Product, core.PageInfo, error) {
		return s.Products.ListProducts(ctx, core.ProductFilter{Page: p})
	})
	if err != nil {
		return s.fail("export products", actor, err)
	}
	s.log.Info("exporting products", zap.Int("rows", len(products)), zap.Int("actor_id", actor.UserID))
	return export.WriteProducts(w, products)
}

// ExportSales writes every sale matching filter with its items. The filter's
// own paging is ignored.
func (s *appService) ExportSales(ctx context.Context, actor core.Actor, filter core.SaleFilter, w io.Writer) error {
	if err := s.check(actor, core.OpReportExport, nil); err != nil {
		return err
	}
	sales, err := allPages(func(p core.Page) ([]core.Sale, core.PageInfo, error) {
		filter.Page = p
		return s.Sales.ListSales(ctx, filter)
	})
	if err != nil {
		return s.fail("export sales", actor, err)
	}
	s.log.Info("exporting sales", zap.Int("sales", len(sales)), zap.Int("actor_id", actor.UserID))
	return export.WriteSales(w, sales)
}

func (s *appService) ExportPayroll(ctx context.Context, actor core.Actor, filter core.PayrollFilter, w io.Writer) error {
	if err := s.check(actor, core.OpReportExport, nil); err != nil {
		return err
	}
	if err := core.Authorize(actor, core.OpPayrollRead); err != nil {
		return err
	}
	records, err := allPages(func(p core.Page) ([]core.PayrollRecord, core.PageInfo, error) {
		filter.Page = p
		return s.Payroll.ListRecords(ctx, filter)
	})
	if err != nil {
		return s.fail("export payroll", actor, err)
	}
	s.log.Info("exporting payroll", zap.Int("rows", len(records)), zap.Int("actor_id", actor.UserID))
	return export.WritePayroll(w, records)
}

func (s *appService) ExportStatements(ctx context.Context, actor core.Actor, p core.Period, w io.Writer) error {
	if err := s.check(actor, core.OpReportExport, nil); err != nil {
		return err
	}
	fs, err := s.Statements(ctx, actor, p)
	if err != nil {
		return err
	}
	ratios, err := s.Ratios(ctx, actor, p)
	if err != nil {
		return err
	}
	return export.WriteStatements(w, fs, ratios)
}
