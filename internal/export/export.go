// Package export writes domain records to xlsx workbooks and parses product,
// sale and payroll imports. It never touches the database.
package export

import (
	"fmt"
	"io"
	"time"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of every workbook written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	SheetProducts        = "Products"
	SheetSales           = "Sales"
	SheetPayroll         = "Payroll"
	SheetIncomeStatement = "Income Statement"
	SheetBalanceSheet    = "Balance Sheet"
	SheetCashFlow        = "Cash Flow"
	SheetRatios          = "Ratios"
)

// ProductHeaders is the product sheet layout, shared with the importer.
var ProductHeaders = []string{
	"ID", "Name", "SKU", "Description", "Category", "Item Cost", "Tax Amount", "Other Costs",
	"Selling Price", "Is Service", "Track Inventory", "Current Stock", "Low Stock Threshold", "Created At",
}

// SaleHeaders is the sales sheet layout, shared with the importer.
var SaleHeaders = []string{
	"Sale ID", "Invoice Number", "Sale Date", "Customer", "Status", "Product", "SKU", "Quantity",
	"Unit Price", "Discount %", "Line Total", "Sale Subtotal", "Sale Tax", "Sale Discount",
	"Sale Total", "Payment Status", "Amount Paid", "Tax Rate", "Payment Method",
}

// PayrollHeaders is the payroll sheet layout, shared with the importer.
var PayrollHeaders = []string{
	"ID", "Employee", "Period Start", "Period End", "Regular Hours", "Overtime Hours", "Hourly Rate",
	"Base Salary", "Regular Pay", "Overtime Pay", "Bonuses", "Gross Pay", "Tax Deductions",
	"Insurance Deductions", "Other Deductions", "Total Deductions", "Net Pay", "Is Paid", "Payment Date",
	"Employee Email", "Payment Method",
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

// newWorkbook returns a file whose first sheet is renamed to first.
func newWorkbook(first string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", first); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name sheet %s: %w", first, err)
	}
	return f, nil
}

func addSheet(f *excelize.File, name string) (*sheetWriter, error) {
	if idx, _ := f.GetSheetIndex(name); idx < 0 {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}
	return &sheetWriter{f: f, sheet: name, row: 1}, nil
}

func (sw *sheetWriter) append(values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	if err := sw.f.SetSheetRow(sw.sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sw.sheet, sw.row, err)
	}
	sw.row++
	return nil
}

func (sw *sheetWriter) header(names []string) error {
	vals := make([]any, len(names))
	for i, n := range names {
		vals[i] = n
	}
	if err := sw.append(vals...); err != nil {
		return err
	}
	return sw.f.SetPanes(sw.sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// num renders a decimal as a spreadsheet number.
func num(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func optDay(t *time.Time) string {
	if t == nil {
		return ""
	}
	return day(*t)
}

func finish(f *excelize.File, w io.Writer) error {
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteProducts writes one row per product.
func WriteProducts(w io.Writer, products []core.Product) error {
	f, err := newWorkbook(SheetProducts)
	if err != nil {
		return err
	}
	sw, err := addSheet(f, SheetProducts)
	if err != nil {
		return err
	}
	if err := sw.header(ProductHeaders); err != nil {
		return err
	}
	for _, p := range products {
		if err := sw.append(
			p.ID, p.Name, p.SKU, p.Description, p.CategoryName,
			num(p.ItemCost), num(p.TaxAmount), num(p.OtherCosts), num(p.SellingPrice),
			yesNo(p.IsService), yesNo(p.TrackInventory), p.CurrentStock, p.LowStockThreshold,
			p.CreatedAt.Format("2006-01-02 15:04:05"),
		); err != nil {
			return err
		}
	}
	return finish(f, w)
}

// WriteSales writes one row per sale item, repeating the sale header columns.
func WriteSales(w io.Writer, sales []core.Sale) error {
	f, err := newWorkbook(SheetSales)
	if err != nil {
		return err
	}
	sw, err := addSheet(f, SheetSales)
	if err != nil {
		return err
	}
	if err := sw.header(SaleHeaders); err != nil {
		return err
	}
	for _, s := range sales {
		customer := s.CustomerName
		if customer == "" {
			customer = "Walk-in"
		}
		for _, it := range s.Items {
			if err := sw.append(
				s.ID, s.InvoiceNumber, day(s.SaleDate), customer, string(s.Status),
				it.ProductName, it.ProductSKU, it.Quantity, num(it.UnitPrice),
				num(it.DiscountPercentage), num(it.LineTotal),
				num(s.Subtotal), num(s.TaxAmount), num(s.DiscountAmount), num(s.TotalAmount),
				string(s.PaymentStatus), num(s.AmountPaid), num(s.TaxRate), s.PaymentMethod,
			); err != nil {
				return err
			}
		}
	}
	return finish(f, w)
}

// WritePayroll writes one row per payroll record.
func WritePayroll(w io.Writer, records []core.PayrollRecord) error {
	f, err := newWorkbook(SheetPayroll)
	if err != nil {
		return err
	}
	sw, err := addSheet(f, SheetPayroll)
	if err != nil {
		return err
	}
	if err := sw.header(PayrollHeaders); err != nil {
		return err
	}
	for _, r := range records {
		if err := sw.append(
			r.ID, r.EmployeeName, day(r.PayPeriodStart), day(r.PayPeriodEnd),
			num(r.RegularHours), num(r.OvertimeHours), num(r.HourlyRate), num(r.BaseSalary),
			num(r.RegularPay), num(r.OvertimePay), num(r.Bonuses), num(r.GrossPay),
			num(r.TaxDeductions), num(r.InsuranceDeductions), num(r.OtherDeductions),
			num(r.TotalDeductions), num(r.NetPay), yesNo(r.IsPaid), optDay(r.PaymentDate),
			r.EmployeeEmail, r.PaymentMethod,
		); err != nil {
			return err
		}
	}
	return finish(f, w)
}

type lineItem struct {
	label string
	value decimal.Decimal
}

func writeItems(f *excelize.File, sheet string, items []lineItem) error {
	sw, err := addSheet(f, sheet)
	if err != nil {
		return err
	}
	if err := sw.header([]string{"Item", "Amount"}); err != nil {
		return err
	}
	for _, it := range items {
		if err := sw.append(it.label, num(it.value)); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatements writes the three statements, plus ratios when r is non-nil,
// one sheet each.
func WriteStatements(w io.Writer, fs *core.FinancialStatements, r *core.Ratios) error {
	f, err := newWorkbook(SheetIncomeStatement)
	if err != nil {
		return err
	}
	is, bs, cf := fs.IncomeStatement, fs.BalanceSheet, fs.CashFlow

	if err := writeItems(f, SheetIncomeStatement, []lineItem{
		{"Sales Revenue", is.SalesRevenue},
		{"Service Revenue", is.ServiceRevenue},
		{"Total Revenue", is.TotalRevenue},
		{"Cost of Goods Sold", is.CostOfGoodsSold},
		{"Gross Profit", is.GrossProfit},
		{"Payroll Expenses", is.PayrollExpenses},
		{"Other Expenses", is.OtherExpenses},
		{"Operating Expenses", is.OperatingExpenses},
		{"Operating Income", is.OperatingIncome},
		{"Other Income", is.OtherIncome},
		{"Net Income", is.NetIncome},
	}); err != nil {
		return err
	}
	if err := writeItems(f, SheetBalanceSheet, []lineItem{
		{"Cash (estimate)", bs.Cash},
		{"Accounts Receivable", bs.AccountsReceivable},
		{"Inventory Value", bs.InventoryValue},
		{"Current Assets", bs.CurrentAssets},
		{"Non-Current Assets", bs.NonCurrentAssets},
		{"Total Assets", bs.TotalAssets},
		{"Accounts Payable", bs.AccountsPayable},
		{"Accrued Payroll", bs.AccruedPayroll},
		{"Current Liabilities", bs.CurrentLiabilities},
		{"Long-Term Liabilities", bs.LongTermLiabilities},
		{"Total Liabilities", bs.TotalLiabilities},
		{"Shareholders' Equity", bs.ShareholdersEquity},
		{"Balance Difference", bs.BalanceDifference},
	}); err != nil {
		return err
	}
	if err := writeItems(f, SheetCashFlow, []lineItem{
		{"Net Income", cf.NetIncome},
		{"Cash from Sales", cf.CashFromSales},
		{"Payroll Payments", cf.PayrollPayments},
		{"Operating Cash Flow", cf.OperatingCashFlow},
		{"Inventory Purchases", cf.InventoryPurchases},
		{"Investing Cash Flow", cf.InvestingCashFlow},
		{"Net Cash Change", cf.NetCashChange},
	}); err != nil {
		return err
	}

	if r != nil {
		if err := writeItems(f, SheetRatios, []lineItem{
			{"Current Ratio", r.Liquidity.CurrentRatio},
			{"Quick Ratio", r.Liquidity.QuickRatio},
			{"Cash Ratio", r.Liquidity.CashRatio},
			{"Working Capital", r.Liquidity.WorkingCapital},
			{"Gross Margin", r.Profitability.GrossMargin},
			{"Operating Margin", r.Profitability.OperatingMargin},
			{"Net Margin", r.Profitability.NetMargin},
			{"Return on Equity", r.Profitability.ROE},
			{"Return on Assets", r.Profitability.ROA},
			{"Debt to Equity", r.Leverage.DebtToEquity},
			{"Debt Ratio", r.Leverage.DebtRatio},
			{"Equity Ratio", r.Leverage.EquityRatio},
			{"Asset Turnover", r.Efficiency.AssetTurnover},
			{"Inventory Turnover", r.Efficiency.InventoryTurnover},
			{"Days Sales Outstanding", r.Efficiency.DaysSalesOutstanding},
		}); err != nil {
			return err
		}
	}
	return finish(f, w)
}
