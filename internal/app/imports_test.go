package app

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/export"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var finance = core.Actor{UserID: 4, Role: core.RoleFinanceManager}

type catalog struct {
	fakeProducts
	bySKU map[string]core.Product
}

func (c *catalog) GetProductBySKU(_ context.Context, sku string) (*core.Product, error) {
	c.calls++
	p, ok := c.bySKU[sku]
	if !ok {
		return nil, core.NotFoundf("product %s not found", sku)
	}
	return &p, nil
}

type fakeSales struct {
	core.SaleService
	created []core.SaleInput
	recent  []core.Sale
	filter  core.SaleFilter
}

func (f *fakeSales) CreateSale(_ context.Context, in core.SaleInput, _ core.Actor) (*core.Sale, error) {
	for _, it := range in.Items {
		if it.Quantity > 100 {
			return nil, core.InsufficientStockf("product %d: not enough stock", it.ProductID)
		}
	}
	f.created = append(f.created, in)
	return &core.Sale{ID: len(f.created), InvoiceNumber: fmt.Sprintf("INV-20261019-%04d", len(f.created))}, nil
}

func (f *fakeSales) ListSales(_ context.Context, filter core.SaleFilter) ([]core.Sale, core.PageInfo, error) {
	f.filter = filter
	return f.recent, core.PageInfo{}, nil
}

// saleWorkbook lays rows out under the sales export header.
func saleWorkbook(t *testing.T, rows ...[]any) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	header := make([]any, len(export.SaleHeaders))
	for i, h := range export.SaleHeaders {
		header[i] = h
	}
	for i, r := range append([][]any{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return bytes.NewReader(buf.Bytes())
}

func TestImportSales(t *testing.T) {
	products := &catalog{bySKU: map[string]core.Product{
		"W-1": {ID: 11, SKU: "W-1"},
		"G-1": {ID: 12, SKU: "G-1"},
	}}
	sales := &fakeSales{}
	s := NewAppService(Services{Products: products, Sales: sales}, nil, nil).(*appService)

	book := func() *bytes.Reader {
		return saleWorkbook(t,
			[]any{1, "OLD-1", "2026-03-15", "Walk-in", "committed", "", "W-1", 2, 100, 0, 200, 250, 25, 0, 275, "paid", 275, 10, "cash"},
			[]any{1, "OLD-1", "2026-03-15", "Walk-in", "committed", "", "G-1", 1, 50, 0, 50, 250, 25, 0, 275, "paid", 275, 10, "cash"},
			[]any{2, "OLD-2", "2026-03-16", "Acme", "voided", "", "W-1", 1, 100, 0, 100, 100, 0, 0, 100, "paid", 100, 0, ""},
			[]any{3, "OLD-3", "2026-03-17", "Acme", "committed", "", "NOPE", 1, 5, 0, 5, 5, 0, 0, 5, "paid", 5, 0, ""},
			[]any{4, "OLD-4", "2026-03-18", "Acme", "committed", "", "G-1", 500, "", 0, 0, 0, 0, 0, 0, "pending", 0, 0, ""},
			[]any{5, "OLD-5", "2026-03-19", "Bolt", "committed", "", "G-1", 3, "", 0, 0, 0, 0, 0, 0, "partial", 20, 0, "card"},
		)
	}

	_, err := s.ImportSales(context.Background(), finance, book())
	assert.Equal(t, core.KindForbidden, core.KindOf(err))
	assert.Empty(t, sales.created)

	res, err := s.ImportSales(context.Background(), ops, book())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, map[string]string{"OLD-1": "INV-20261019-0001", "OLD-5": "INV-20261019-0002"}, res.Invoices)

	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "OLD-2 is voided")
	assert.Contains(t, res.Errors[1], "Row 5")
	assert.Contains(t, res.Errors[1], "NOPE")
	assert.Contains(t, res.Errors[2], "OLD-4")

	require.Len(t, sales.created, 2)
	first := sales.created[0]
	assert.Empty(t, first.CustomerName)
	require.Len(t, first.Items, 2)
	assert.Equal(t, 11, first.Items[0].ProductID)
	assert.Equal(t, 2, first.Items[0].Quantity)
	assert.Equal(t, 12, first.Items[1].ProductID)
	assert.True(t, first.TaxRate.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "cash", first.PaymentMethod)

	partial := sales.created[1]
	assert.Equal(t, "Bolt", partial.CustomerName)
	assert.Nil(t, partial.Items[0].UnitPrice)
	require.NotNil(t, partial.AmountPaid)
	assert.True(t, partial.AmountPaid.Equal(decimal.NewFromInt(20)))
}

type fakeUsers struct {
	core.UserService
	employees []core.Employee
}

func (f *fakeUsers) ListEmployees(context.Context) ([]core.Employee, error) {
	return f.employees, nil
}

type fakePayroll struct {
	core.PayrollService
	created []core.PayrollInput
	paid    []int
}

func (f *fakePayroll) CreateRecord(_ context.Context, in core.PayrollInput) (*core.PayrollRecord, error) {
	for _, c := range f.created {
		if c.EmployeeID == in.EmployeeID && c.PayPeriodStart.Equal(in.PayPeriodStart) {
			return nil, core.Conflictf("employee %d already has a record for this period", in.EmployeeID)
		}
	}
	f.created = append(f.created, in)
	return &core.PayrollRecord{ID: 100 + len(f.created), EmployeeID: in.EmployeeID}, nil
}

func (f *fakePayroll) MarkPaid(_ context.Context, id int, _ string) (*core.PayrollRecord, error) {
	f.paid = append(f.paid, id)
	return &core.PayrollRecord{ID: id, IsPaid: true}, nil
}

func TestImportPayroll(t *testing.T) {
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	records := []core.PayrollRecord{
		{EmployeeEmail: "clerk@example.com", PayPeriodStart: march, PayPeriodEnd: march.AddDate(0, 1, -1), IsPaid: true, PaymentMethod: "bank",
			PayInputs: core.PayInputs{HourlyRate: decimal.NewFromInt(18), RegularHours: decimal.NewFromInt(160)}},
		{EmployeeEmail: "OPS@example.com", PayPeriodStart: march, PayPeriodEnd: march.AddDate(0, 1, -1),
			PayInputs: core.PayInputs{BaseSalary: decimal.NewFromInt(4500)}},
		{EmployeeEmail: "clerk@example.com", PayPeriodStart: march, PayPeriodEnd: march.AddDate(0, 1, -1)},
		{EmployeeEmail: "gone@example.com", PayPeriodStart: march, PayPeriodEnd: march.AddDate(0, 1, -1)},
	}
	var buf bytes.Buffer
	require.NoError(t, export.WritePayroll(&buf, records))

	users := &fakeUsers{employees: []core.Employee{
		{ID: 3, Email: "Clerk@Example.com"},
		{ID: 2, Email: "ops@example.com"},
	}}
	payroll := &fakePayroll{}
	s := NewAppService(Services{Users: users, Payroll: payroll}, nil, nil).(*appService)

	_, err := s.ImportPayroll(context.Background(), ops, bytes.NewReader(buf.Bytes()))
	assert.Equal(t, core.KindForbidden, core.KindOf(err))

	res, err := s.ImportPayroll(context.Background(), finance, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Paid)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "Row 4")
	assert.Contains(t, res.Errors[0], "already has a record")
	assert.Contains(t, res.Errors[1], "gone@example.com")

	require.Len(t, payroll.created, 2)
	assert.Equal(t, 3, payroll.created[0].EmployeeID)
	assert.True(t, payroll.created[0].HourlyRate.Equal(decimal.NewFromInt(18)))
	assert.Equal(t, 2, payroll.created[1].EmployeeID)
	assert.True(t, payroll.created[1].BaseSalary.Equal(decimal.NewFromInt(4500)))
	assert.Equal(t, []int{101}, payroll.paid)
}

type fakeInventory struct {
	core.InventoryService
	filter core.MovementFilter
}

func (f *fakeInventory) ListMovements(_ context.Context, filter core.MovementFilter) ([]core.Movement, core.PageInfo, error) {
	f.filter = filter
	return nil, core.PageInfo{}, nil
}

type fakeLedger struct {
	core.LedgerService
	filter core.LedgerFilter
}

func (f *fakeLedger) ListExpenses(_ context.Context, filter core.LedgerFilter) ([]core.Expense, core.PageInfo, error) {
	f.filter = filter
	return []core.Expense{{ID: 9}}, core.PageInfo{}, nil
}

func TestRecentActivity(t *testing.T) {
	sales := &fakeSales{recent: []core.Sale{{ID: 1}, {ID: 2}}}
	inventory := &fakeInventory{}
	ledger := &fakeLedger{}
	s := NewAppService(Services{Sales: sales, Inventory: inventory, Ledger: ledger}, nil, nil).(*appService)
	ctx := context.Background()

	_, err := s.RecentActivity(ctx, employee, 0)
	assert.Equal(t, core.KindForbidden, core.KindOf(err))

	out, err := s.RecentActivity(ctx, finance, 0)
	require.NoError(t, err)
	assert.Len(t, out.Sales, 2)
	assert.NotNil(t, out.Movements, "empty lists encode as []")
	assert.Len(t, out.Expenses, 1)
	assert.Equal(t, core.Page{Page: 1, PerPage: 10}, sales.filter.Page)
	assert.Equal(t, core.Page{Page: 1, PerPage: 10}, inventory.filter.Page)
	assert.Equal(t, core.Page{Page: 1, PerPage: 10}, ledger.filter.Page)

	_, err = s.RecentActivity(ctx, finance, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, sales.filter.Page.PerPage)

	_, err = s.RecentActivity(ctx, finance, 101)
	assert.Equal(t, core.KindInvalidInput, core.KindOf(err))
}
