package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type inventoryService struct {
	pool  *pgxpool.Pool
	clock Clock
}

// NewInventoryService constructs an InventoryService backed by PostgreSQL.
func NewInventoryService(pool *pgxpool.Pool, clock Clock) InventoryService {
	if clock == nil {
		clock = SystemClock
	}
	return &inventoryService{pool: pool, clock: clock}
}

const movementColumns = `
	m.id, m.product_id, p.sku, p.name, m.direction, m.quantity, m.status,
	m.previous_stock, m.new_stock, m.unit_cost, m.reference, m.notes,
	m.sale_id, m.performed_by, m.movement_date, m.created_at`

func scanMovement(row pgx.Row) (*Movement, error) {
	var m Movement
	if err := row.Scan(
		&m.ID, &m.ProductID, &m.ProductSKU, &m.ProductName, &m.Direction, &m.Quantity, &m.Status,
		&m.PreviousStock, &m.NewStock, &m.UnitCost, &m.Reference, &m.Notes,
		&m.SaleID, &m.PerformedBy, &m.MovementDate, &m.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (s *inventoryService) StockIn(ctx context.Context, productID, quantity int, note string, actor Actor) (*Movement, error) {
	return s.RecordMovement(ctx, MovementInput{
		ProductID: productID,
		Direction: DirectionIn,
		Quantity:  quantity,
		Notes:     note,
	}, actor)
}

func (s *inventoryService) StockOut(ctx context.Context, productID, quantity int, note string, actor Actor) (*Movement, error) {
	return s.RecordMovement(ctx, MovementInput{
		ProductID: productID,
		Direction: DirectionOut,
		Quantity:  quantity,
		Notes:     note,
	}, actor)
}

func (s *inventoryService) RecordMovement(ctx context.Context, in MovementInput, actor Actor) (*Movement, error) {
	if in.Quantity <= 0 {
		return nil, InvalidInputf("quantity must be positive, got %d", in.Quantity)
	}
	if in.Direction != DirectionIn && in.Direction != DirectionOut {
		return nil, InvalidInputf("direction must be %q or %q, got %q", DirectionIn, DirectionOut, in.Direction)
	}
	if in.Status == "" {
		in.Status = MovementCompleted
	}
	if in.Status != MovementCompleted && in.Status != MovementInProcess {
		return nil, InvalidInputf("unknown movement status %q", in.Status)
	}
	in.Reference = strings.TrimSpace(in.Reference)
	if err := checkReference(in.Reference); err != nil {
		return nil, err
	}
	date := s.clock()
	if in.Date != nil {
		date = *in.Date
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := applyMovementTx(ctx, tx, movementWrite{
		productID:   in.ProductID,
		direction:   in.Direction,
		quantity:    in.Quantity,
		status:      in.Status,
		reference:   in.Reference,
		notes:       in.Notes,
		performedBy: actor.performedBy(),
		date:        date,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock movement: %w", err)
	}
	return m, nil
}

func (s *inventoryService) CompleteMovement(ctx context.Context, movementID int) (*Movement, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var productID, quantity int
	var direction Direction
	var status MovementStatus
	err = tx.QueryRow(ctx, `
		SELECT product_id, direction, quantity, status
		FROM inventory_movements
		WHERE id = $1
		FOR UPDATE
	`, movementID).Scan(&productID, &direction, &quantity, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("movement %d not found", movementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock movement %d: %w", movementID, err)
	}
	if status != MovementInProcess {
		return nil, Conflictf("movement %d is already %s", movementID, status)
	}

	delta := quantity
	if direction == DirectionOut {
		delta = -quantity
	}
	newStock, _, err := adjustStockTx(ctx, tx, productID, delta)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE inventory_movements
		SET status = 'completed', previous_stock = $1, new_stock = $2
		WHERE id = $3
	`, newStock-delta, newStock, movementID); err != nil {
		return nil, fmt.Errorf("failed to complete movement %d: %w", movementID, err)
	}

	m, err := scanMovement(tx.QueryRow(ctx, `
		SELECT `+movementColumns+`
		FROM inventory_movements m
		JOIN products p ON p.id = m.product_id
		WHERE m.id = $1
	`, movementID))
	if err != nil {
		return nil, fmt.Errorf("failed to reload movement %d: %w", movementID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit movement completion: %w", err)
	}
	return m, nil
}

func (s *inventoryService) ReverseMovement(ctx context.Context, movementID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The row lock serializes concurrent reversals; the loser sees no row.
	var m Movement
	err = tx.QueryRow(ctx, `
		SELECT id, product_id, direction, quantity, status, sale_id
		FROM inventory_movements
		WHERE id = $1
		FOR UPDATE
	`, movementID).Scan(&m.ID, &m.ProductID, &m.Direction, &m.Quantity, &m.Status, &m.SaleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return NotFoundf("movement %d not found (already reversed?)", movementID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock movement %d: %w", movementID, err)
	}
	if m.SaleID != nil {
		return ImmutableRecordf("movement %d belongs to sale %d; void the sale instead", movementID, *m.SaleID)
	}

	if m.Status == MovementCompleted {
		if _, _, err := adjustStockTx(ctx, tx, m.ProductID, -m.signedQuantity()); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, "DELETE FROM inventory_movements WHERE id = $1", movementID); err != nil {
		return fmt.Errorf("failed to delete movement %d: %w", movementID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit movement reversal: %w", err)
	}
	return nil
}

func (s *inventoryService) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, PageInfo, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.ProductID != nil {
		where = append(where, "m.product_id = "+arg(*filter.ProductID))
	}
	if filter.Direction != "" {
		where = append(where, "m.direction = "+arg(string(filter.Direction)))
	}
	if filter.Reference != "" {
		where = append(where, "m.reference = "+arg(filter.Reference))
	}
	if filter.From != nil {
		where = append(where, "m.movement_date >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "m.movement_date < "+arg(*filter.To))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM inventory_movements m "+clause, args...,
	).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count movements: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := `
		SELECT ` + movementColumns + `
		FROM inventory_movements m
		JOIN products p ON p.id = m.product_id
		` + clause + `
		ORDER BY m.movement_date DESC, m.id DESC
		LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating movements: %w", err)
	}
	return movements, newPageInfo(total, filter.Page), nil
}

func (s *inventoryService) LowStockReport(ctx context.Context) (*LowStockReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, sku, name, current_stock, low_stock_threshold
		FROM products
		WHERE track_inventory = true
		  AND is_active = true
		  AND current_stock <= low_stock_threshold
		ORDER BY current_stock, name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}
	defer rows.Close()

	report := &LowStockReport{Low: []LowStockItem{}, OutOfStock: []LowStockItem{}}
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.Name, &it.CurrentStock, &it.LowStockThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan low stock row: %w", err)
		}
		switch ClassifyStock(it.CurrentStock, it.LowStockThreshold) {
		case StockOut:
			report.OutOfStock = append(report.OutOfStock, it)
		case StockLow:
			report.Low = append(report.Low, it)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating low stock rows: %w", err)
	}
	report.LowCount = len(report.Low)
	report.OutOfStockCount = len(report.OutOfStock)
	return report, nil
}

func (s *inventoryService) AuditStock(ctx context.Context) ([]StockDiscrepancy, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, p.sku, p.name, p.current_stock, COALESCE(l.ledger_stock, 0)
		FROM products p
		LEFT JOIN (
			SELECT product_id,
			       SUM(CASE WHEN direction = 'in' THEN quantity ELSE -quantity END) AS ledger_stock
			FROM inventory_movements
			WHERE status = 'completed'
			GROUP BY product_id
		) l ON l.product_id = p.id
		WHERE p.current_stock <> COALESCE(l.ledger_stock, 0)
		ORDER BY p.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to audit stock: %w", err)
	}
	defer rows.Close()

	var out []StockDiscrepancy
	for rows.Next() {
		var d StockDiscrepancy
		if err := rows.Scan(&d.ProductID, &d.SKU, &d.Name, &d.CurrentStock, &d.LedgerStock); err != nil {
			return nil, fmt.Errorf("failed to scan stock audit row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock audit rows: %w", err)
	}
	return out, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (s *inventoryService) DebitStockTx(ctx context.Context, tx pgx.Tx, ch StockChange, actor Actor) (*Movement, error) {
	return s.changeStockTx(ctx, tx, DirectionOut, ch, actor)
}

func (s *inventoryService) CreditStockTx(ctx context.Context, tx pgx.Tx, ch StockChange, actor Actor) (*Movement, error) {
	return s.changeStockTx(ctx, tx, DirectionIn, ch, actor)
}

func (s *inventoryService) changeStockTx(ctx context.Context, tx pgx.Tx, dir Direction, ch StockChange, actor Actor) (*Movement, error) {
	if ch.Quantity <= 0 {
		return nil, InvalidInputf("quantity must be positive, got %d", ch.Quantity)
	}
	return applyMovementTx(ctx, tx, movementWrite{
		productID:   ch.ProductID,
		direction:   dir,
		quantity:    ch.Quantity,
		status:      MovementCompleted,
		reference:   ch.Reference,
		notes:       ch.Notes,
		saleID:      ch.SaleID,
		performedBy: actor.performedBy(),
		date:        s.clock(),
	})
}

// ── Helpers ───────────────────────────────────────────────────────────────────

type movementWrite struct {
	productID   int
	direction   Direction
	quantity    int
	status      MovementStatus
	reference   string
	notes       string
	saleID      *int
	performedBy *int
	date        time.Time
}

// applyMovementTx moves stock (for completed movements) and appends the movement row.
func applyMovementTx(ctx context.Context, tx pgx.Tx, w movementWrite) (*Movement, error) {
	var newStock int
	var unitCost decimal.Decimal
	var err error

	delta := w.quantity
	if w.direction == DirectionOut {
		delta = -w.quantity
	}

	if w.status == MovementCompleted {
		newStock, unitCost, err = adjustStockTx(ctx, tx, w.productID, delta)
		if err != nil {
			return nil, err
		}
	} else {
		var tracked bool
		err = tx.QueryRow(ctx,
			"SELECT current_stock, item_cost, track_inventory FROM products WHERE id = $1",
			w.productID,
		).Scan(&newStock, &unitCost, &tracked)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, NotFoundf("product %d not found", w.productID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", w.productID, err)
		}
		if !tracked {
			return nil, InvalidInputf("product %d does not track inventory", w.productID)
		}
		delta = 0
	}

	var id int
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO inventory_movements
			(product_id, direction, quantity, status, previous_stock, new_stock,
			 unit_cost, reference, notes, sale_id, performed_by, movement_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`, w.productID, string(w.direction), w.quantity, string(w.status), newStock-delta, newStock,
		unitCost, w.reference, w.notes, w.saleID, w.performedBy, w.date,
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert inventory movement: %w", err)
	}

	return &Movement{
		ID:            id,
		ProductID:     w.productID,
		Direction:     w.direction,
		Quantity:      w.quantity,
		Status:        w.status,
		PreviousStock: newStock - delta,
		NewStock:      newStock,
		UnitCost:      unitCost,
		Reference:     w.reference,
		Notes:         w.notes,
		SaleID:        w.saleID,
		PerformedBy:   w.performedBy,
		MovementDate:  w.date,
		CreatedAt:     createdAt,
	}, nil
}

// adjustStockTx applies delta to a tracked product's stock. Debits use a
// conditional update so concurrent writers can never drive stock below zero.
// It returns the new stock and the product's item cost.
func adjustStockTx(ctx context.Context, tx pgx.Tx, productID, delta int) (int, decimal.Decimal, error) {
	var newStock int
	var itemCost decimal.Decimal
	err := tx.QueryRow(ctx, `
		UPDATE products
		SET current_stock = current_stock + $1, updated_at = NOW()
		WHERE id = $2
		  AND track_inventory = true
		  AND current_stock + $1 >= 0
		RETURNING current_stock, item_cost
	`, delta, productID).Scan(&newStock, &itemCost)
	if err == nil {
		return newStock, itemCost, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, decimal.Zero, fmt.Errorf("failed to update stock for product %d: %w", productID, err)
	}

	// No row updated: work out why.
	var name string
	var tracked bool
	var stock int
	err = tx.QueryRow(ctx,
		"SELECT name, track_inventory, current_stock FROM products WHERE id = $1",
		productID,
	).Scan(&name, &tracked, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, decimal.Zero, NotFoundf("product %d not found", productID)
	}
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	if !tracked {
		return 0, decimal.Zero, InvalidInputf("product %s does not track inventory", name)
	}
	return 0, decimal.Zero, InsufficientStockf("insufficient stock for %s: available %d, requested %d",
		name, stock, -delta)
}
