package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"bizledger/internal/app"
	"bizledger/internal/core"

	"github.com/shopspring/decimal"
)

const usage = "Available: low-stock, statements [year] [month], audit, export <products|sales|payroll|statements> <file> [year] [month]"

// Run executes a one-shot operator command as actor and writes its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, actor core.Actor, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command\n%s", usage)
	}

	switch args[0] {
	case "low-stock", "low", "ls":
		rep, err := svc.LowStock(ctx, actor)
		if err != nil {
			return fmt.Errorf("low stock: %w", err)
		}
		printLowStock(out, rep)

	case "statements", "st":
		p, err := parsePeriod(args[1:], time.Now().UTC())
		if err != nil {
			return err
		}
		fs, err := svc.Statements(ctx, actor, p)
		if err != nil {
			return fmt.Errorf("statements: %w", err)
		}
		printStatements(out, fs)

	case "audit":
		diffs, err := svc.AuditStock(ctx, actor)
		if err != nil {
			return fmt.Errorf("stock audit: %w", err)
		}
		printAudit(out, diffs)

	case "export", "exp":
		if len(args) < 3 {
			return fmt.Errorf("usage: bizctl export <products|sales|payroll|statements> <file> [year] [month]")
		}
		return exportTo(ctx, svc, actor, args[1], args[2], args[3:], out)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

func exportTo(ctx context.Context, svc app.ApplicationService, actor core.Actor, kind, path string, rest []string, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	switch kind {
	case "products":
		err = svc.ExportProducts(ctx, actor, f)
	case "sales":
		err = svc.ExportSales(ctx, actor, core.SaleFilter{}, f)
	case "payroll":
		err = svc.ExportPayroll(ctx, actor, core.PayrollFilter{}, f)
	case "statements":
		var p core.Period
		if p, err = parsePeriod(rest, time.Now().UTC()); err == nil {
			err = svc.ExportStatements(ctx, actor, p, f)
		}
	default:
		err = fmt.Errorf("unknown export: %s", kind)
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export %s: %w", kind, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s export to %s\n", kind, path)
	return nil
}

// parsePeriod reads optional [year] [month]; the year defaults to now's.
func parsePeriod(args []string, now time.Time) (core.Period, error) {
	p := core.Period{Year: now.Year()}
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return p, fmt.Errorf("invalid year %q", args[0])
		}
		p.Year = y
	}
	if len(args) > 1 {
		m, err := strconv.Atoi(args[1])
		if err != nil {
			return p, fmt.Errorf("invalid month %q", args[1])
		}
		p.Month = m
	}
	return p, p.Validate()
}

func rule(out io.Writer, ch string) { fmt.Fprintln(out, strings.Repeat(ch, 62)) }

func printLowStock(out io.Writer, rep *core.LowStockReport) {
	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  LOW STOCK  (%d low, %d out of stock)\n", rep.LowCount, rep.OutOfStockCount)
	rule(out, "=")
	fmt.Fprintf(out, "  %-14s %-30s %6s %6s\n", "SKU", "NAME", "STOCK", "MIN")
	rule(out, "-")
	for _, it := range rep.OutOfStock {
		fmt.Fprintf(out, "  %-14s %-30s %6d %6d  OUT\n", it.SKU, it.Name, it.CurrentStock, it.LowStockThreshold)
	}
	for _, it := range rep.Low {
		fmt.Fprintf(out, "  %-14s %-30s %6d %6d\n", it.SKU, it.Name, it.CurrentStock, it.LowStockThreshold)
	}
	rule(out, "=")
}

func printStatements(out io.Writer, fs *core.FinancialStatements) {
	line := func(label string, v decimal.Decimal) {
		fmt.Fprintf(out, "  %-40s %19s\n", label, v.StringFixed(2))
	}
	is, bs, cf := fs.IncomeStatement, fs.BalanceSheet, fs.CashFlow

	period := strconv.Itoa(fs.Period.Year)
	if fs.Period.Month != 0 {
		period = fmt.Sprintf("%d-%02d", fs.Period.Year, fs.Period.Month)
	}

	fmt.Fprintln(out)
	rule(out, "=")
	fmt.Fprintf(out, "  FINANCIAL STATEMENTS  %s  (COGS: %s)\n", period, fs.COGSMethod)
	rule(out, "=")
	line("Total revenue", is.TotalRevenue)
	line("Cost of goods sold", is.CostOfGoodsSold)
	line("Gross profit", is.GrossProfit)
	line("Operating expenses", is.OperatingExpenses)
	line("Payroll expenses", is.PayrollExpenses)
	line("Operating income", is.OperatingIncome)
	line("Net income", is.NetIncome)
	rule(out, "-")
	line("Total assets", bs.TotalAssets)
	line("Total liabilities", bs.TotalLiabilities)
	line("Shareholders' equity", bs.ShareholdersEquity)
	if !bs.IsBalanced {
		line("Out of balance by", bs.BalanceDifference)
	}
	rule(out, "-")
	line("Operating cash flow", cf.OperatingCashFlow)
	line("Investing cash flow", cf.InvestingCashFlow)
	line("Net cash change", cf.NetCashChange)
	rule(out, "=")
}

func printAudit(out io.Writer, diffs []core.StockDiscrepancy) {
	if len(diffs) == 0 {
		fmt.Fprintln(out, "Stock is consistent with the movement ledger.")
		return
	}
	fmt.Fprintf(out, "%d product(s) disagree with the movement ledger:\n", len(diffs))
	fmt.Fprintf(out, "  %-14s %-30s %8s %8s\n", "SKU", "NAME", "STOCK", "LEDGER")
	for _, d := range diffs {
		fmt.Fprintf(out, "  %-14s %-30s %8d %8d\n", d.SKU, d.Name, d.CurrentStock, d.LedgerStock)
	}
}
