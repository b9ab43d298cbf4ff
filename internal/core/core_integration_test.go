package core_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// fixedNow pins every service clock used by the integration tests.
var fixedNow = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var opsActor = core.Actor{UserID: 0, Role: core.RoleOperationsManager}

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	if err := db.MigrateUp(dbURL); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sale_items, sales, customers, inventory_movements, products, categories,
			payroll_records, expenses, assets, liabilities, equity_entries, cash_flows,
			budget_targets, users
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}

	return pool
}

type testServices struct {
	pool      *pgxpool.Pool
	products  core.ProductService
	inventory core.InventoryService
	sales     core.SaleService
	payroll   core.PayrollService
	users     core.UserService
	finance   core.FinancialService
}

func newTestServices(t *testing.T) testServices {
	t.Helper()
	pool := setupTestDB(t)
	inv := core.NewInventoryService(pool, fixedClock)
	return testServices{
		pool:      pool,
		products:  core.NewProductService(pool, inv),
		inventory: inv,
		sales:     core.NewSaleService(pool, inv, fixedClock, core.SaleOptions{}),
		payroll:   core.NewPayrollService(pool, fixedClock),
		users:     core.NewUserService(pool),
		finance:   core.NewFinancialService(pool, fixedClock, core.FinancialOptions{}),
	}
}

func createProduct(t *testing.T, svc testServices, name string, price, cost string, opening int) *core.Product {
	t.Helper()
	p, err := svc.products.CreateProduct(context.Background(), core.ProductInput{
		Name:              name,
		SKU:               "SKU-" + uuid.NewString()[:8],
		ItemCost:          decimal.RequireFromString(cost),
		SellingPrice:      decimal.RequireFromString(price),
		TrackInventory:    true,
		LowStockThreshold: 5,
		OpeningStock:      opening,
	}, opsActor)
	if err != nil {
		t.Fatalf("CreateProduct(%s) failed: %v", name, err)
	}
	return p
}

func stockOf(t *testing.T, svc testServices, productID int) int {
	t.Helper()
	p, err := svc.products.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetProduct(%d) failed: %v", productID, err)
	}
	return p.CurrentStock
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return n
}

// ── Inventory ─────────────────────────────────────────────────────────────────

func TestInventory_StockConservation(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Widget", "100", "60", 10)

	if _, err := svc.inventory.StockIn(ctx, p.ID, 15, "restock", opsActor); err != nil {
		t.Fatalf("StockIn failed: %v", err)
	}
	out, err := svc.inventory.StockOut(ctx, p.ID, 7, "damaged", opsActor)
	if err != nil {
		t.Fatalf("StockOut failed: %v", err)
	}
	if out.PreviousStock != 25 || out.NewStock != 18 {
		t.Errorf("Expected 25 → 18 on the out movement, got %d → %d", out.PreviousStock, out.NewStock)
	}

	pending, err := svc.inventory.RecordMovement(ctx, core.MovementInput{
		ProductID: p.ID, Direction: core.DirectionIn, Quantity: 4, Status: core.MovementInProcess,
	}, opsActor)
	if err != nil {
		t.Fatalf("RecordMovement(in_process) failed: %v", err)
	}
	if got := stockOf(t, svc, p.ID); got != 18 {
		t.Errorf("In-process movement must not move stock, got %d", got)
	}
	if _, err := svc.inventory.CompleteMovement(ctx, pending.ID); err != nil {
		t.Fatalf("CompleteMovement failed: %v", err)
	}
	if got := stockOf(t, svc, p.ID); got != 22 {
		t.Errorf("Expected stock 22 after completing movement, got %d", got)
	}

	if err := svc.inventory.ReverseMovement(ctx, out.ID); err != nil {
		t.Fatalf("ReverseMovement failed: %v", err)
	}
	if got := stockOf(t, svc, p.ID); got != 29 {
		t.Errorf("Expected stock 29 after reversing the out movement, got %d", got)
	}
	if err := svc.inventory.ReverseMovement(ctx, out.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected NotFound on second reversal, got %v", err)
	}

	discrepancies, err := svc.inventory.AuditStock(ctx)
	if err != nil {
		t.Fatalf("AuditStock failed: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("Expected stock to match the movement ledger, got %+v", discrepancies)
	}
}

func TestInventory_NoNegativeStock(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Gadget", "50", "20", 3)
	before := countRows(t, svc.pool, "inventory_movements")

	_, err := svc.inventory.StockOut(ctx, p.ID, 4, "too many", opsActor)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected InsufficientStock, got %v", err)
	}
	if got := stockOf(t, svc, p.ID); got != 3 {
		t.Errorf("Stock must be unchanged after a rejected debit, got %d", got)
	}
	if after := countRows(t, svc.pool, "inventory_movements"); after != before {
		t.Errorf("Rejected debit must not record a movement (%d → %d)", before, after)
	}

	if _, err := svc.inventory.StockOut(ctx, p.ID, 0, "", opsActor); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("Expected InvalidInput for zero quantity, got %v", err)
	}
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func TestSales_CreateComputesTotalsAndDebits(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "100", "40", 10)
	b := createProduct(t, svc, "Beta", "50", "30", 10)

	sale, err := svc.sales.CreateSale(ctx, core.SaleInput{
		CustomerName: "Acme Trading",
		TaxRate:      decimal.NewFromInt(10),
		Items: []core.SaleItemInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1, DiscountPct: decimal.NewFromInt(10)},
		},
	}, opsActor)
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	if want := "INV-20260315-0001"; sale.InvoiceNumber != want {
		t.Errorf("Expected invoice %s, got %s", want, sale.InvoiceNumber)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("269.5")) {
		t.Errorf("Expected total 269.50, got %s", sale.TotalAmount)
	}
	if sale.PaymentStatus != core.PaymentPaid || !sale.AmountPaid.Equal(sale.TotalAmount) {
		t.Errorf("Expected a fully paid sale, got %s paid %s", sale.PaymentStatus, sale.AmountPaid)
	}
	if sale.CustomerID == nil || sale.CustomerName != "Acme Trading" {
		t.Errorf("Expected inline customer to be created, got %v %q", sale.CustomerID, sale.CustomerName)
	}
	if len(sale.Items) != 2 || !sale.Items[0].UnitCost.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected two items with a cost snapshot, got %+v", sale.Items)
	}
	if got := stockOf(t, svc, a.ID); got != 8 {
		t.Errorf("Expected Alpha stock 8, got %d", got)
	}
	if got := stockOf(t, svc, b.ID); got != 9 {
		t.Errorf("Expected Beta stock 9, got %d", got)
	}

	moves, _, err := svc.inventory.ListMovements(ctx, core.MovementFilter{Reference: sale.InvoiceNumber})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	if len(moves) != 2 {
		t.Errorf("Expected 2 sale movements referencing the invoice, got %d", len(moves))
	}
}

func TestSales_Atomicity(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "10", "5", 10)
	b := createProduct(t, svc, "Beta", "10", "5", 1)
	c := createProduct(t, svc, "Gamma", "10", "5", 10)

	salesBefore := countRows(t, svc.pool, "sales")
	itemsBefore := countRows(t, svc.pool, "sale_items")
	movesBefore := countRows(t, svc.pool, "inventory_movements")

	_, err := svc.sales.CreateSale(ctx, core.SaleInput{
		Items: []core.SaleItemInput{
			{ProductID: a.ID, Quantity: 3},
			{ProductID: b.ID, Quantity: 2},
			{ProductID: c.ID, Quantity: 3},
		},
	}, opsActor)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected InsufficientStock, got %v", err)
	}

	for _, p := range []*core.Product{a, b, c} {
		if got := stockOf(t, svc, p.ID); got != p.CurrentStock {
			t.Errorf("%s stock changed from %d to %d", p.Name, p.CurrentStock, got)
		}
	}
	if countRows(t, svc.pool, "sales") != salesBefore ||
		countRows(t, svc.pool, "sale_items") != itemsBefore ||
		countRows(t, svc.pool, "inventory_movements") != movesBefore {
		t.Errorf("Failed sale must not persist any sale, item or movement")
	}
}

func TestSales_SameProductLinesAreSummed(t *testing.T) {
	svc := newTestServices(t)
	a := createProduct(t, svc, "Alpha", "10", "5", 5)

	_, err := svc.sales.CreateSale(context.Background(), core.SaleInput{
		Items: []core.SaleItemInput{
			{ProductID: a.ID, Quantity: 3},
			{ProductID: a.ID, Quantity: 3},
		},
	}, opsActor)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("Expected InsufficientStock for 6 of 5, got %v", err)
	}
}

func TestSales_VoidReversesExactly(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "25", "10", 12)
	b := createProduct(t, svc, "Beta", "40", "15", 7)

	sale, err := svc.sales.CreateSale(ctx, core.SaleInput{
		Items: []core.SaleItemInput{
			{ProductID: a.ID, Quantity: 5},
			{ProductID: b.ID, Quantity: 7},
		},
	}, opsActor)
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	admin := core.Actor{Role: core.RoleAdmin}
	voided, err := svc.sales.VoidSale(ctx, sale.ID, "customer returned goods", admin)
	if err != nil {
		t.Fatalf("VoidSale failed: %v", err)
	}
	if voided.Status != core.SaleVoided || voided.VoidedAt == nil {
		t.Errorf("Expected voided status with timestamp, got %s %v", voided.Status, voided.VoidedAt)
	}
	if got := stockOf(t, svc, a.ID); got != 12 {
		t.Errorf("Expected Alpha stock restored to 12, got %d", got)
	}
	if got := stockOf(t, svc, b.ID); got != 7 {
		t.Errorf("Expected Beta stock restored to 7, got %d", got)
	}

	if _, err := svc.sales.VoidSale(ctx, sale.ID, "again", admin); !errors.Is(err, core.ErrConflict) {
		t.Errorf("Expected Conflict on second void, got %v", err)
	}
	if _, err := svc.sales.UpdateSale(ctx, sale.ID, core.SaleUpdate{}); !errors.Is(err, core.ErrImmutableRecord) {
		t.Errorf("Expected ImmutableRecord when editing a voided sale, got %v", err)
	}

	// A voided sale no longer counts as revenue.
	fs, err := svc.finance.GetFinancialStatements(ctx, core.Period{Year: 2026, Month: 3})
	if err != nil {
		t.Fatalf("GetFinancialStatements failed: %v", err)
	}
	if !fs.IncomeStatement.TotalRevenue.IsZero() {
		t.Errorf("Expected zero revenue after void, got %s", fs.IncomeStatement.TotalRevenue)
	}
}

func TestSales_VoidIgnoresManualMovementsOnInvoice(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "25", "10", 10)

	sale, err := svc.sales.CreateSale(ctx, core.SaleInput{
		Items: []core.SaleItemInput{{ProductID: a.ID, Quantity: 5}},
	}, opsActor)
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	for _, ref := range []string{sale.InvoiceNumber, "void-" + sale.InvoiceNumber, " inv-x"} {
		_, err := svc.inventory.RecordMovement(ctx, core.MovementInput{
			ProductID: a.ID, Direction: core.DirectionOut, Quantity: 2, Reference: ref,
		}, opsActor)
		if !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("Expected InvalidInput for reserved reference %q, got %v", ref, err)
		}
	}

	manual, err := svc.inventory.RecordMovement(ctx, core.MovementInput{
		ProductID: a.ID, Direction: core.DirectionOut, Quantity: 2, Reference: "RMA-7", Notes: "damaged in store",
	}, opsActor)
	if err != nil {
		t.Fatalf("RecordMovement failed: %v", err)
	}
	// Rows written before references were restricted may still carry the invoice.
	if _, err := svc.pool.Exec(ctx,
		"UPDATE inventory_movements SET reference = $1 WHERE id = $2", sale.InvoiceNumber, manual.ID,
	); err != nil {
		t.Fatalf("relabel movement failed: %v", err)
	}
	if got := stockOf(t, svc, a.ID); got != 3 {
		t.Fatalf("Expected stock 3 before void, got %d", got)
	}

	if _, err := svc.sales.VoidSale(ctx, sale.ID, "wrong customer", opsActor); err != nil {
		t.Fatalf("VoidSale failed: %v", err)
	}
	if got := stockOf(t, svc, a.ID); got != 8 {
		t.Errorf("Expected void to restore only the sale's 5 units (stock 8), got %d", got)
	}

	saleMoves, _, err := svc.inventory.ListMovements(ctx, core.MovementFilter{ProductID: &a.ID})
	if err != nil {
		t.Fatalf("ListMovements failed: %v", err)
	}
	for _, m := range saleMoves {
		if m.ID == manual.ID {
			if m.SaleID != nil {
				t.Errorf("Manual movement must not be linked to a sale, got %d", *m.SaleID)
			}
			continue
		}
		if m.Notes == "Opening stock" {
			continue
		}
		if m.SaleID == nil || *m.SaleID != sale.ID {
			t.Errorf("Expected movement %d (%s) linked to sale %d, got %v", m.ID, m.Reference, sale.ID, m.SaleID)
		}
		if err := svc.inventory.ReverseMovement(ctx, m.ID); !errors.Is(err, core.ErrImmutableRecord) {
			t.Errorf("Expected ImmutableRecord reversing sale movement %d, got %v", m.ID, err)
		}
	}

	if err := svc.inventory.ReverseMovement(ctx, manual.ID); err != nil {
		t.Fatalf("ReverseMovement of the manual movement failed: %v", err)
	}
	if got := stockOf(t, svc, a.ID); got != 10 {
		t.Errorf("Expected stock 10 after reversing the manual movement, got %d", got)
	}

	discrepancies, err := svc.inventory.AuditStock(ctx)
	if err != nil {
		t.Fatalf("AuditStock failed: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("Expected stock to match the movement ledger, got %+v", discrepancies)
	}
}

func TestSales_InactiveProductIsNotFound(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "10", "5", 5)

	inactive := false
	if _, err := svc.products.UpdateProduct(ctx, a.ID, core.ProductUpdate{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	_, err := svc.sales.CreateSale(ctx, core.SaleInput{
		Items: []core.SaleItemInput{{ProductID: a.ID, Quantity: 1}},
	}, opsActor)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Expected NotFound for an inactive product, got %v", err)
	}
	if got := stockOf(t, svc, a.ID); got != 5 {
		t.Errorf("Stock must be unchanged, got %d", got)
	}
}

func TestSales_ConcurrentInvoiceNumbersAreUnique(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	const n = 6
	products := make([]*core.Product, n)
	for i := range products {
		products[i] = createProduct(t, svc, fmt.Sprintf("Item %d", i), "10", "5", 5)
	}

	var wg sync.WaitGroup
	invoices := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sale, err := svc.sales.CreateSale(ctx, core.SaleInput{
				Items: []core.SaleItemInput{{ProductID: products[i].ID, Quantity: 1}},
			}, opsActor)
			if err != nil {
				errs[i] = err
				return
			}
			invoices[i] = sale.InvoiceNumber
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, inv := range invoices {
		if errs[i] != nil {
			t.Fatalf("CreateSale %d failed: %v", i, errs[i])
		}
		if seen[inv] {
			t.Errorf("Duplicate invoice number %s", inv)
		}
		seen[inv] = true
	}
}

func TestSales_ConcurrentSalesOfScarceStock(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "10", "5", 5)

	const buyers = 5
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.sales.CreateSale(ctx, core.SaleInput{
				Items: []core.SaleItemInput{{ProductID: a.ID, Quantity: 2}},
			}, opsActor)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, core.ErrInsufficientStock):
		default:
			t.Errorf("CreateSale %d: expected success or InsufficientStock, got %v", i, err)
		}
	}
	if succeeded != 2 {
		t.Errorf("Expected exactly 2 sales of 2 units out of 5 to succeed, got %d", succeeded)
	}
	if got := stockOf(t, svc, a.ID); got != 1 {
		t.Errorf("Expected stock 1, got %d", got)
	}
	if got := countRows(t, svc.pool, "sales"); got != 2 {
		t.Errorf("Expected 2 persisted sales, got %d", got)
	}

	discrepancies, err := svc.inventory.AuditStock(ctx)
	if err != nil {
		t.Fatalf("AuditStock failed: %v", err)
	}
	if len(discrepancies) != 0 {
		t.Errorf("Expected stock to match the movement ledger, got %+v", discrepancies)
	}
}

// ── Payroll ───────────────────────────────────────────────────────────────────

func TestPayroll_PaidRecordsAreImmutable(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()

	emp, err := svc.users.CreateUser(ctx, core.UserInput{
		Username:   "jdoe",
		Email:      "jdoe@example.com",
		Password:   "secret123",
		FirstName:  "Jamie",
		LastName:   "Doe",
		Role:       core.RoleEmployee,
		HourlyRate: decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	rec, err := svc.payroll.CreateRecord(ctx, core.PayrollInput{
		EmployeeID:     emp.ID,
		PayPeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PayPeriodEnd:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		PayInputs: core.PayInputs{
			HourlyRate:          decimal.NewFromInt(100),
			RegularHours:        decimal.NewFromInt(80),
			OvertimeHours:       decimal.NewFromInt(10),
			Bonuses:             decimal.NewFromInt(500),
			TaxDeductions:       decimal.NewFromInt(300),
			InsuranceDeductions: decimal.NewFromInt(100),
			OtherDeductions:     decimal.NewFromInt(50),
		},
	})
	if err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if !rec.NetPay.Equal(decimal.NewFromInt(9550)) {
		t.Errorf("Expected net pay 9550, got %s", rec.NetPay)
	}

	bonus := decimal.NewFromInt(1500)
	rec, err = svc.payroll.UpdateRecord(ctx, rec.ID, core.PayrollUpdate{Bonuses: &bonus})
	if err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}
	if !rec.GrossPay.Equal(decimal.NewFromInt(11000)) {
		t.Errorf("Expected recomputed gross 11000, got %s", rec.GrossPay)
	}

	paid, err := svc.payroll.MarkPaid(ctx, rec.ID, "bank_transfer")
	if err != nil {
		t.Fatalf("MarkPaid failed: %v", err)
	}
	if !paid.IsPaid || paid.PaymentDate == nil || !paid.PaymentDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected paid on 2026-03-15, got %v %v", paid.IsPaid, paid.PaymentDate)
	}

	if _, err := svc.payroll.UpdateRecord(ctx, rec.ID, core.PayrollUpdate{Bonuses: &bonus}); !errors.Is(err, core.ErrImmutableRecord) {
		t.Errorf("Expected ImmutableRecord on update, got %v", err)
	}
	if err := svc.payroll.DeleteRecord(ctx, rec.ID); !errors.Is(err, core.ErrImmutableRecord) {
		t.Errorf("Expected ImmutableRecord on delete, got %v", err)
	}
	if _, err := svc.payroll.MarkPaid(ctx, rec.ID, "cash"); !errors.Is(err, core.ErrAlreadyPaid) {
		t.Errorf("Expected AlreadyPaid on second payment, got %v", err)
	}

	_, err = svc.payroll.CreateRecord(ctx, core.PayrollInput{
		EmployeeID:     emp.ID,
		PayPeriodStart: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		PayPeriodEnd:   time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Errorf("Expected Conflict for a duplicate period, got %v", err)
	}
}

// ── Reporting ─────────────────────────────────────────────────────────────────

func TestFinancial_ZeroPeriod(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	p := core.Period{Year: 2019, Month: 6}

	fs, err := svc.finance.GetFinancialStatements(ctx, p)
	if err != nil {
		t.Fatalf("GetFinancialStatements failed: %v", err)
	}
	if !fs.IncomeStatement.NetIncome.IsZero() || !fs.BalanceSheet.TotalAssets.IsZero() || !fs.BalanceSheet.IsBalanced {
		t.Errorf("Expected an all-zero balanced set of statements, got %+v", fs)
	}

	r, err := svc.finance.GetRatios(ctx, p)
	if err != nil {
		t.Fatalf("GetRatios failed: %v", err)
	}
	if !r.Liquidity.CurrentRatio.Equal(core.FallbackCurrentRatio) {
		t.Errorf("Expected fallback current ratio, got %s", r.Liquidity.CurrentRatio)
	}

	if _, err := svc.finance.GetDashboard(ctx, p); err != nil {
		t.Errorf("GetDashboard failed on empty data: %v", err)
	}
	trend, err := svc.finance.DailyTrend(ctx, p)
	if err != nil {
		t.Fatalf("DailyTrend failed: %v", err)
	}
	if len(trend) != 30 {
		t.Errorf("Expected 30 days in June, got %d", len(trend))
	}
}

func TestFinancial_SnapshotCOGS(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	a := createProduct(t, svc, "Alpha", "100", "40", 10)

	if _, err := svc.sales.CreateSale(ctx, core.SaleInput{
		Items: []core.SaleItemInput{{ProductID: a.ID, Quantity: 2}},
	}, opsActor); err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	newCost := decimal.NewFromInt(70)
	if _, err := svc.products.UpdateProduct(ctx, a.ID, core.ProductUpdate{ItemCost: &newCost}); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	p := core.Period{Year: 2026, Month: 3}
	fs, err := svc.finance.GetFinancialStatements(ctx, p)
	if err != nil {
		t.Fatalf("GetFinancialStatements failed: %v", err)
	}
	if !fs.IncomeStatement.CostOfGoodsSold.Equal(decimal.NewFromInt(80)) {
		t.Errorf("Expected snapshot COGS 80, got %s", fs.IncomeStatement.CostOfGoodsSold)
	}
	if !fs.IncomeStatement.GrossProfit.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected gross profit 120, got %s", fs.IncomeStatement.GrossProfit)
	}

	current := core.NewFinancialService(svc.pool, fixedClock, core.FinancialOptions{COGSMethod: core.COGSCurrent})
	fs, err = current.GetFinancialStatements(ctx, p)
	if err != nil {
		t.Fatalf("GetFinancialStatements(current) failed: %v", err)
	}
	if !fs.IncomeStatement.CostOfGoodsSold.Equal(decimal.NewFromInt(140)) {
		t.Errorf("Expected current-cost COGS 140, got %s", fs.IncomeStatement.CostOfGoodsSold)
	}
}
