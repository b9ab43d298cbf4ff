package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// maxInvoiceAttempts bounds the invoice-number retry loop in CreateSale.
const maxInvoiceAttempts = 5

type saleService struct {
	pool       *pgxpool.Pool
	inventory  InventoryService
	clock      Clock
	voidWindow time.Duration
}

// NewSaleService constructs a SaleService. Stock changes go through inventory.
func NewSaleService(pool *pgxpool.Pool, inventory InventoryService, clock Clock, opts SaleOptions) SaleService {
	if clock == nil {
		clock = SystemClock
	}
	return &saleService{
		pool:       pool,
		inventory:  inventory,
		clock:      clock,
		voidWindow: time.Duration(opts.VoidWindowDays) * 24 * time.Hour,
	}
}

const saleColumns = `
	s.id, s.invoice_number, s.sale_date, s.customer_id, COALESCE(c.name, ''),
	s.salesperson_id, COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''),
	s.subtotal, s.discount_percentage, s.discount_amount, s.tax_rate, s.tax_amount,
	s.total_amount, s.payment_status, s.payment_method, s.amount_paid, s.status,
	s.voided_at, s.voided_by, s.void_reason, s.notes, s.created_at, s.updated_at`

const saleFrom = `
	FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id
	LEFT JOIN users u ON u.id = s.salesperson_id`

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	if err := row.Scan(
		&s.ID, &s.InvoiceNumber, &s.SaleDate, &s.CustomerID, &s.CustomerName,
		&s.SalespersonID, &s.SalespersonName,
		&s.Subtotal, &s.DiscountPercentage, &s.DiscountAmount, &s.TaxRate, &s.TaxAmount,
		&s.TotalAmount, &s.PaymentStatus, &s.PaymentMethod, &s.AmountPaid, &s.Status,
		&s.VoidedAt, &s.VoidedBy, &s.VoidReason, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.BalanceDue = s.TotalAmount.Sub(s.AmountPaid)
	s.Items = []SaleItem{}
	return &s, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *saleService) CreateSale(ctx context.Context, in SaleInput, actor Actor) (*Sale, error) {
	if len(in.Items) == 0 {
		return nil, InvalidInputf("a sale needs at least one item")
	}
	payStatus, err := ParsePaymentStatus(in.PaymentStatus)
	if err != nil {
		return nil, err
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		method = "cash"
	}
	date := s.clock()
	if in.SaleDate != nil {
		date = *in.SaleDate
	}
	date = date.UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	products, err := lockSaleProductsTx(ctx, tx, in.Items)
	if err != nil {
		return nil, err
	}

	lines := make([]PricedLine, len(in.Items))
	requested := make(map[int]int)
	for i, it := range in.Items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, NotFoundf("item %d: product %d not found", i+1, it.ProductID)
		}
		if !p.active {
			return nil, NotFoundf("item %d: product %s is inactive", i+1, p.name)
		}
		price := p.sellingPrice
		if it.UnitPrice != nil {
			price = *it.UnitPrice
		}
		lines[i] = PricedLine{UnitPrice: price, Quantity: it.Quantity, DiscountPct: it.DiscountPct}
		if p.tracked {
			requested[it.ProductID] += it.Quantity
		}
	}

	totals, err := ComputeSaleTotals(lines, in.TaxRate, in.DiscountPct, in.DiscountAmount)
	if err != nil {
		return nil, err
	}

	// Lines for the same product are summed before comparing with stock.
	for _, id := range slices.Sorted(maps.Keys(requested)) {
		p := products[id]
		if p.stock < requested[id] {
			return nil, InsufficientStockf("insufficient stock for %s: available %d, requested %d",
				p.name, p.stock, requested[id])
		}
	}

	amountPaid := defaultAmountPaid(payStatus, totals.Total)
	if in.AmountPaid != nil {
		amountPaid = *in.AmountPaid
	}
	if amountPaid.IsNegative() || amountPaid.GreaterThan(totals.Total) {
		return nil, InvalidInputf("amount paid must be between 0 and %s", totals.Total.StringFixed(2))
	}

	customerID, err := resolveCustomerTx(ctx, tx, in.CustomerID, in.CustomerName)
	if err != nil {
		return nil, err
	}

	saleID, invoice, err := insertSaleTx(ctx, tx, date, saleRow{
		customerID:     customerID,
		salespersonID:  actor.performedBy(),
		subtotal:       totals.Subtotal,
		discountPct:    in.DiscountPct,
		discountAmount: totals.DiscountAmount,
		taxRate:        in.TaxRate,
		taxAmount:      totals.TaxAmount,
		total:          totals.Total,
		paymentStatus:  payStatus,
		paymentMethod:  method,
		amountPaid:     amountPaid,
		notes:          strings.TrimSpace(in.Notes),
	})
	if err != nil {
		return nil, err
	}

	for i, it := range in.Items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sale_items
				(sale_id, line_number, product_id, quantity, unit_price, unit_cost,
				 discount_percentage, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, saleID, i+1, it.ProductID, it.Quantity, lines[i].UnitPrice, products[it.ProductID].itemCost,
			it.DiscountPct, totals.LineTotals[i],
		); err != nil {
			return nil, fmt.Errorf("failed to insert sale item %d: %w", i+1, err)
		}
	}

	// Debit in product id order so concurrent sales lock rows consistently.
	order := make([]int, len(in.Items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(in.Items[a].ProductID, in.Items[b].ProductID)
	})
	for _, i := range order {
		it := in.Items[i]
		if !products[it.ProductID].tracked {
			continue
		}
		if _, err := s.inventory.DebitStockTx(ctx, tx, StockChange{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			SaleID:    &saleID,
			Reference: invoice,
			Notes:     "Sale " + invoice,
		}, actor); err != nil {
			return nil, err
		}
	}

	sale, err := loadSale(ctx, tx, "s.id = $1", saleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale: %w", err)
	}
	return sale, nil
}

func (s *saleService) VoidSale(ctx context.Context, saleID int, reason string, actor Actor) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sale, err := loadSale(ctx, tx, "s.id = $1 FOR UPDATE OF s", saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == SaleVoided {
		return nil, Conflictf("sale %s is already voided", sale.InvoiceNumber)
	}
	now := s.clock()
	if s.voidWindow > 0 && now.Sub(sale.SaleDate) > s.voidWindow {
		return nil, ImmutableRecordf("sale %s is older than %d days and can no longer be voided",
			sale.InvoiceNumber, int(s.voidWindow.Hours()/24))
	}

	// Credit back exactly what the sale debited, nothing booked by hand.
	rows, err := tx.Query(ctx, `
		SELECT product_id, quantity
		FROM inventory_movements
		WHERE sale_id = $1 AND direction = 'out' AND status = 'completed'
		ORDER BY product_id, id
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale movements: %w", err)
	}
	type debit struct{ productID, quantity int }
	var debits []debit
	for rows.Next() {
		var d debit
		if err := rows.Scan(&d.productID, &d.quantity); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sale movement: %w", err)
		}
		debits = append(debits, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale movements: %w", err)
	}

	ref := "VOID-" + sale.InvoiceNumber
	note := "Voided sale " + sale.InvoiceNumber
	for _, d := range debits {
		if _, err := s.inventory.CreditStockTx(ctx, tx, StockChange{
			ProductID: d.productID,
			Quantity:  d.quantity,
			SaleID:    &saleID,
			Reference: ref,
			Notes:     note,
		}, actor); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sales
		SET status = 'voided', voided_at = $1, voided_by = $2, void_reason = $3, updated_at = NOW()
		WHERE id = $4
	`, now, actor.performedBy(), strings.TrimSpace(reason), saleID); err != nil {
		return nil, fmt.Errorf("failed to void sale %d: %w", saleID, err)
	}

	sale, err = loadSale(ctx, tx, "s.id = $1", saleID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale void: %w", err)
	}
	return sale, nil
}

func (s *saleService) UpdateSale(ctx context.Context, saleID int, upd SaleUpdate) (*Sale, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sale, err := loadSale(ctx, tx, "s.id = $1 FOR UPDATE OF s", saleID)
	if err != nil {
		return nil, err
	}
	if sale.Status == SaleVoided {
		return nil, ImmutableRecordf("sale %s is voided", sale.InvoiceNumber)
	}

	if upd.PaymentStatus != nil {
		ps, err := ParsePaymentStatus(*upd.PaymentStatus)
		if err != nil {
			return nil, err
		}
		if ps != sale.PaymentStatus && upd.AmountPaid == nil && ps != PaymentPartial {
			sale.AmountPaid = defaultAmountPaid(ps, sale.TotalAmount)
		}
		sale.PaymentStatus = ps
	}
	if upd.PaymentMethod != nil {
		sale.PaymentMethod = strings.TrimSpace(*upd.PaymentMethod)
	}
	if upd.AmountPaid != nil {
		sale.AmountPaid = *upd.AmountPaid
	}
	if upd.Notes != nil {
		sale.Notes = strings.TrimSpace(*upd.Notes)
	}
	if sale.AmountPaid.IsNegative() || sale.AmountPaid.GreaterThan(sale.TotalAmount) {
		return nil, InvalidInputf("amount paid must be between 0 and %s", sale.TotalAmount.StringFixed(2))
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sales
		SET payment_status = $1, payment_method = $2, amount_paid = $3, notes = $4, updated_at = NOW()
		WHERE id = $5
	`, string(sale.PaymentStatus), sale.PaymentMethod, sale.AmountPaid, sale.Notes, saleID); err != nil {
		return nil, mapWriteError(err, "update sale")
	}

	sale, err = loadSale(ctx, tx, "s.id = $1", saleID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sale update: %w", err)
	}
	return sale, nil
}

func (s *saleService) GetSale(ctx context.Context, saleID int) (*Sale, error) {
	return loadSale(ctx, s.pool, "s.id = $1", saleID)
}

func (s *saleService) GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*Sale, error) {
	return loadSale(ctx, s.pool, "s.invoice_number = $1", invoiceNumber)
}

func (s *saleService) ListSales(ctx context.Context, filter SaleFilter) ([]Sale, PageInfo, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.From != nil {
		where = append(where, "s.sale_date >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "s.sale_date < "+arg(*filter.To))
	}
	if filter.Status != "" {
		where = append(where, "s.status = "+arg(string(filter.Status)))
	}
	if filter.PaymentStatus != "" {
		where = append(where, "s.payment_status = "+arg(string(filter.PaymentStatus)))
	}
	if filter.CustomerID != nil {
		where = append(where, "s.customer_id = "+arg(*filter.CustomerID))
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		p := arg("%" + q + "%")
		where = append(where, "(s.invoice_number ILIKE "+p+" OR c.name ILIKE "+p+")")
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) "+saleFrom+" "+clause, args...).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count sales: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := "SELECT " + saleColumns + saleFrom + " " + clause +
		" ORDER BY s.sale_date DESC, s.id DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating sales: %w", err)
	}

	if err := attachSaleItems(ctx, s.pool, sales); err != nil {
		return nil, PageInfo{}, err
	}
	return sales, newPageInfo(total, filter.Page), nil
}

func (s *saleService) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, phone, address, created_at
		FROM customers
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	customers := []Customer{}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return customers, nil
}

func (s *saleService) CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error) {
	c := Customer{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Phone:   strings.TrimSpace(in.Phone),
		Address: strings.TrimSpace(in.Address),
	}
	if c.Name == "" {
		return nil, InvalidInputf("customer name is required")
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (name, email, phone, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.Name, c.Email, c.Phone, c.Address).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, mapWriteError(err, "create customer")
	}
	return &c, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// saleProduct is the slice of a product row CreateSale needs.
type saleProduct struct {
	name         string
	sellingPrice decimal.Decimal
	itemCost     decimal.Decimal
	tracked      bool
	active       bool
	stock        int
}

// lockSaleProductsTx loads and row-locks every product referenced by items, in id order.
func lockSaleProductsTx(ctx context.Context, tx pgx.Tx, items []SaleItemInput) (map[int]saleProduct, error) {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	rows, err := tx.Query(ctx, `
		SELECT id, name, selling_price, item_cost, track_inventory, is_active, current_stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock sale products: %w", err)
	}
	defer rows.Close()

	out := make(map[int]saleProduct, len(ids))
	for rows.Next() {
		var id int
		var p saleProduct
		if err := rows.Scan(&id, &p.name, &p.sellingPrice, &p.itemCost, &p.tracked, &p.active, &p.stock); err != nil {
			return nil, fmt.Errorf("failed to scan sale product: %w", err)
		}
		out[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale products: %w", err)
	}
	return out, nil
}

// resolveCustomerTx returns the customer id for a sale. A bare name reuses an
// existing customer with that name (case-insensitive) or creates one.
func resolveCustomerTx(ctx context.Context, tx pgx.Tx, id *int, name string) (*int, error) {
	if id != nil {
		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)", *id).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check customer %d: %w", *id, err)
		}
		if !exists {
			return nil, NotFoundf("customer %d not found", *id)
		}
		return id, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	var cid int
	err := tx.QueryRow(ctx,
		"SELECT id FROM customers WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1", name,
	).Scan(&cid)
	if err == nil {
		return &cid, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up customer %q: %w", name, err)
	}
	if err := tx.QueryRow(ctx,
		"INSERT INTO customers (name) VALUES ($1) RETURNING id", name,
	).Scan(&cid); err != nil {
		return nil, mapWriteError(err, "create customer")
	}
	return &cid, nil
}

type saleRow struct {
	customerID     *int
	salespersonID  *int
	subtotal       decimal.Decimal
	discountPct    decimal.Decimal
	discountAmount decimal.Decimal
	taxRate        decimal.Decimal
	taxAmount      decimal.Decimal
	total          decimal.Decimal
	paymentStatus  PaymentStatus
	paymentMethod  string
	amountPaid     decimal.Decimal
	notes          string
}

// insertSaleTx numbers and inserts the sale header. Numbering for one day is
// serialized by a transaction-scoped advisory lock on the prefix, so the count
// of the day's invoices is stable until commit. A unique violation (e.g. an
// invoice inserted by hand) is rolled back to a savepoint and retried.
func insertSaleTx(ctx context.Context, tx pgx.Tx, date time.Time, r saleRow) (int, string, error) {
	prefix := InvoicePrefix(date)
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", prefix); err != nil {
		return 0, "", fmt.Errorf("failed to lock invoice sequence %s: %w", prefix, err)
	}
	for attempt := 0; attempt < maxInvoiceAttempts; attempt++ {
		var count int
		if err := tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM sales WHERE invoice_number LIKE $1", prefix+"%",
		).Scan(&count); err != nil {
			return 0, "", fmt.Errorf("failed to count invoices for %s: %w", prefix, err)
		}
		invoice := FormatInvoiceNumber(date, count+1+attempt)

		sp, err := tx.Begin(ctx)
		if err != nil {
			return 0, "", fmt.Errorf("failed to open savepoint: %w", err)
		}
		var id int
		err = sp.QueryRow(ctx, `
			INSERT INTO sales
				(invoice_number, sale_date, customer_id, salesperson_id, subtotal,
				 discount_percentage, discount_amount, tax_rate, tax_amount, total_amount,
				 payment_status, payment_method, amount_paid, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			RETURNING id
		`, invoice, date, r.customerID, r.salespersonID, r.subtotal,
			r.discountPct, r.discountAmount, r.taxRate, r.taxAmount, r.total,
			string(r.paymentStatus), r.paymentMethod, r.amountPaid, r.notes,
		).Scan(&id)
		if err == nil {
			if err := sp.Commit(ctx); err != nil {
				return 0, "", fmt.Errorf("failed to release savepoint: %w", err)
			}
			return id, invoice, nil
		}
		_ = sp.Rollback(ctx)
		if !isUniqueViolation(err) {
			return 0, "", mapWriteError(err, "insert sale")
		}
	}
	return 0, "", Conflictf("could not allocate an invoice number for %s after %d attempts",
		date.Format("2006-01-02"), maxInvoiceAttempts)
}

// loadSale reads one sale header plus its items. where may carry a locking clause.
func loadSale(ctx context.Context, q pgxQuerier, where string, arg any) (*Sale, error) {
	sale, err := scanSale(q.QueryRow(ctx, "SELECT "+saleColumns+saleFrom+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("sale %v not found", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sale %v: %w", arg, err)
	}
	sales := []Sale{*sale}
	if err := attachSaleItems(ctx, q, sales); err != nil {
		return nil, err
	}
	return &sales[0], nil
}

// attachSaleItems fills Items for every sale in place.
func attachSaleItems(ctx context.Context, q pgxQuerier, sales []Sale) error {
	if len(sales) == 0 {
		return nil
	}
	index := make(map[int]int, len(sales))
	ids := make([]int, len(sales))
	for i, s := range sales {
		index[s.ID] = i
		ids[i] = s.ID
	}

	rows, err := q.Query(ctx, `
		SELECT si.id, si.sale_id, si.line_number, si.product_id, p.sku, p.name,
		       si.quantity, si.unit_price, si.unit_cost, si.discount_percentage, si.line_total
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		WHERE si.sale_id = ANY($1)
		ORDER BY si.sale_id, si.line_number
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.LineNumber, &it.ProductID, &it.ProductSKU, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.UnitCost, &it.DiscountPercentage, &it.LineTotal); err != nil {
			return fmt.Errorf("failed to scan sale item: %w", err)
		}
		i := index[it.SaleID]
		sales[i].Items = append(sales[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sale items: %w", err)
	}
	return nil
}
