package export_test

import (
	"bytes"
	"testing"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/export"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestProductsRoundTrip(t *testing.T) {
	products := []core.Product{
		{
			ID: 1, Name: "Widget", SKU: "W-1", Description: "blue", CategoryName: "Parts",
			ItemCost: dec("4.50"), TaxAmount: dec("0.50"), OtherCosts: dec("1"), SellingPrice: dec("10"),
			TrackInventory: true, CurrentStock: 12, LowStockThreshold: 3,
			CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			ID: 2, Name: "Consulting", SKU: "SVC-1", SellingPrice: dec("80"),
			IsService: true, CreatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteProducts(&buf, products))

	rows, errs, err := export.ReadProducts(&buf)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 2)

	w := rows[0]
	assert.Equal(t, 2, w.Row)
	assert.Equal(t, "Parts", w.CategoryName)
	assert.Equal(t, "W-1", w.Input.SKU)
	assert.Equal(t, "Widget", w.Input.Name)
	assert.True(t, w.Input.ItemCost.Equal(dec("4.5")), w.Input.ItemCost.String())
	assert.True(t, w.Input.SellingPrice.Equal(dec("10")))
	assert.True(t, w.Input.TrackInventory)
	assert.Equal(t, 12, w.Input.OpeningStock)
	assert.Equal(t, 3, w.Input.LowStockThreshold)

	s := rows[1]
	assert.True(t, s.Input.IsService)
	assert.False(t, s.Input.TrackInventory)
	assert.Zero(t, s.Input.OpeningStock)
}

// workbook builds an xlsx with the given rows on its first sheet.
func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestReadProducts_RowErrors(t *testing.T) {
	buf := workbook(t, [][]any{
		{"SKU", "Name", "Selling Price", "Is Service"},
		{"A-1", "Alpha", "5", "no"},
		{"", "No SKU", "5", ""},
		{"B-1", "", "5", ""},
		{"C-1", "Gamma", "abc", ""},
		{"D-1", "Delta", "-1", ""},
		{"A-1", "Alpha again", "6", ""},
		{},
		{"E-1", "Echo", "7", "TRUE"},
	})

	rows, errs, err := export.ReadProducts(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A-1", rows[0].Input.SKU)
	assert.Equal(t, "E-1", rows[1].Input.SKU)
	assert.True(t, rows[1].Input.IsService)
	assert.Equal(t, 10, rows[0].Input.LowStockThreshold, "default threshold")

	require.Len(t, errs, 5)
	assert.Equal(t, "Row 3: SKU is required", errs[0].String())
	assert.Equal(t, 4, errs[1].Row)
	assert.Equal(t, 5, errs[2].Row)
	assert.Contains(t, errs[3].Message, "must not be negative")
	assert.Contains(t, errs[4].Message, "duplicate SKU A-1")
}

func TestReadProducts_MissingColumn(t *testing.T) {
	_, _, err := export.ReadProducts(workbook(t, [][]any{{"Name", "Price"}, {"x", "1"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SKU")
}

func TestWriteSales_OneRowPerItem(t *testing.T) {
	sales := []core.Sale{{
		ID: 7, InvoiceNumber: "INV-20260315-0001", SaleDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Status: core.SaleCommitted, PaymentStatus: core.PaymentPaid, TotalAmount: dec("269.5"),
		Items: []core.SaleItem{
			{ProductName: "Widget", ProductSKU: "W-1", Quantity: 2, UnitPrice: dec("100"), LineTotal: dec("200")},
			{ProductName: "Gadget", ProductSKU: "G-1", Quantity: 1, UnitPrice: dec("45"), LineTotal: dec("45")},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, export.WriteSales(&buf, sales))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetSales)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Walk-in", rows[1][3])
	assert.Equal(t, "W-1", rows[1][6])
	assert.Equal(t, "G-1", rows[2][6])
	assert.Equal(t, "INV-20260315-0001", rows[2][1])
}

func TestWriteStatements_Sheets(t *testing.T) {
	fs := &core.FinancialStatements{}
	fs.IncomeStatement.NetIncome = dec("42")

	var buf bytes.Buffer
	require.NoError(t, export.WriteStatements(&buf, fs, &core.Ratios{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{
		export.SheetIncomeStatement, export.SheetBalanceSheet, export.SheetCashFlow, export.SheetRatios,
	}, f.GetSheetList())

	rows, err := f.GetRows(export.SheetIncomeStatement)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.Equal(t, []string{"Net Income", "42"}, last)
}

func TestSalesRoundTrip(t *testing.T) {
	paid := dec("50")
	sales := []core.Sale{
		{
			ID: 1, InvoiceNumber: "INV-20260315-0001", SaleDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			Status: core.SaleCommitted, PaymentStatus: core.PaymentPartial, PaymentMethod: "card",
			Subtotal: dec("245"), TaxRate: dec("10"), TaxAmount: dec("24.5"), DiscountAmount: dec("5"),
			TotalAmount: dec("264.5"), AmountPaid: paid,
			Items: []core.SaleItem{
				{ProductSKU: "W-1", Quantity: 2, UnitPrice: dec("100"), LineTotal: dec("200")},
				{ProductSKU: "G-1", Quantity: 1, UnitPrice: dec("50"), DiscountPercentage: dec("10"), LineTotal: dec("45")},
			},
		},
		{
			ID: 2, InvoiceNumber: "INV-20260316-0001", SaleDate: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC),
			CustomerName: "Acme", Status: core.SaleVoided, PaymentStatus: core.PaymentPaid,
			Items: []core.SaleItem{{ProductSKU: "W-1", Quantity: 1, UnitPrice: dec("100"), LineTotal: dec("100")}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WriteSales(&buf, sales))

	groups, errs, err := export.ReadSales(&buf)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, groups, 2)

	g := groups[0]
	assert.Equal(t, 2, g.Row)
	assert.Equal(t, "INV-20260315-0001", g.SourceInvoice)
	assert.False(t, g.Voided)
	assert.Empty(t, g.Input.CustomerName, "walk-in sales have no customer")
	require.NotNil(t, g.Input.SaleDate)
	assert.Equal(t, "2026-03-15", g.Input.SaleDate.Format("2006-01-02"))
	assert.True(t, g.Input.TaxRate.Equal(dec("10")), g.Input.TaxRate.String())
	assert.True(t, g.Input.DiscountAmount.Equal(dec("5")))
	assert.Equal(t, "partial", g.Input.PaymentStatus)
	assert.Equal(t, "card", g.Input.PaymentMethod)
	require.NotNil(t, g.Input.AmountPaid)
	assert.True(t, g.Input.AmountPaid.Equal(paid))

	require.Len(t, g.Lines, 2)
	assert.Equal(t, "W-1", g.Lines[0].SKU)
	assert.Equal(t, 2, g.Lines[0].Quantity)
	require.NotNil(t, g.Lines[0].UnitPrice)
	assert.True(t, g.Lines[0].UnitPrice.Equal(dec("100")))
	assert.Equal(t, 3, g.Lines[1].Row)
	assert.True(t, g.Lines[1].DiscountPct.Equal(dec("10")))

	v := groups[1]
	assert.True(t, v.Voided)
	assert.Equal(t, "Acme", v.Input.CustomerName)
	assert.Nil(t, v.Input.AmountPaid, "amount paid is only carried for partial payments")
}

func TestReadSales_DerivesTaxRateAndReportsRows(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Invoice Number", "SKU", "Quantity", "Unit Price", "Sale Subtotal", "Sale Tax"},
		{"A", "W-1", "2", "", "200", "16"},
		{"A", "", "1", "5", "", ""},
		{"B", "G-1", "0", "5", "", ""},
		{"", "G-1", "1", "5", "", ""},
		{"C", "G-1", "x", "5", "", ""},
		{"D", "G-1", "1", "-2", "", ""},
	})

	groups, errs, err := export.ReadSales(buf)
	require.NoError(t, err)
	require.Len(t, groups, 1, "groups without a valid line are dropped")

	g := groups[0]
	assert.True(t, g.Input.TaxRate.Equal(dec("8")), g.Input.TaxRate.String())
	require.Len(t, g.Lines, 1)
	assert.Nil(t, g.Lines[0].UnitPrice, "blank price defers to the product's selling price")

	require.Len(t, errs, 5)
	assert.Equal(t, "Row 3: SKU is required", errs[0].String())
	assert.Equal(t, 4, errs[1].Row)
	assert.Equal(t, "Row 5: Invoice Number is required", errs[2].String())
	assert.Contains(t, errs[3].Message, "invalid quantity")
	assert.Contains(t, errs[4].Message, "invalid unit price")
}

func TestPayrollRoundTrip(t *testing.T) {
	paidOn := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	records := []core.PayrollRecord{
		{
			ID: 1, EmployeeName: "Cole Clerk", EmployeeEmail: "Clerk@Example.com",
			PayPeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			PayPeriodEnd:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
			PayInputs: core.PayInputs{
				HourlyRate: dec("18"), RegularHours: dec("160"), OvertimeHours: dec("4.5"),
				Bonuses: dec("100"), TaxDeductions: dec("300"),
			},
			PayBreakdown: core.PayBreakdown{NetPay: dec("2800")},
			IsPaid:       true, PaymentDate: &paidOn, PaymentMethod: "bank",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, export.WritePayroll(&buf, records))

	rows, errs, err := export.ReadPayroll(&buf)
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, 2, r.Row)
	assert.Equal(t, "clerk@example.com", r.EmployeeEmail)
	assert.True(t, r.IsPaid)
	assert.Equal(t, "bank", r.Input.PaymentMethod)
	assert.Equal(t, "2026-03-01", r.Input.PayPeriodStart.Format("2006-01-02"))
	assert.Equal(t, "2026-03-31", r.Input.PayPeriodEnd.Format("2006-01-02"))
	assert.True(t, r.Input.HourlyRate.Equal(dec("18")))
	assert.True(t, r.Input.OvertimeHours.Equal(dec("4.5")))
	assert.True(t, r.Input.Bonuses.Equal(dec("100")))
	assert.True(t, r.Input.TaxDeductions.Equal(dec("300")))
	assert.Zero(t, r.Input.EmployeeID, "employees are resolved by the caller")
}

func TestReadPayroll_RowErrors(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Employee Email", "Period Start", "Period End", "Bonuses"},
		{"a@example.com", "03/01/2026", "2026-03-31", ""},
		{"", "2026-03-01", "2026-03-31", ""},
		{"b@example.com", "March", "2026-03-31", ""},
		{"c@example.com", "2026-03-01", "2026-03-31", "-5"},
	})

	rows, errs, err := export.ReadPayroll(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-01", rows[0].Input.PayPeriodStart.Format("2006-01-02"))

	require.Len(t, errs, 3)
	assert.Equal(t, "Row 3: Employee Email is required", errs[0].String())
	assert.Contains(t, errs[1].Message, "invalid period start")
	assert.Contains(t, errs[2].Message, "bonuses must not be negative")

	_, _, err = export.ReadPayroll(workbook(t, [][]any{{"Employee", "Period Start"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Employee Email")
}
