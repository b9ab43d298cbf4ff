package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type productService struct {
	pool      *pgxpool.Pool
	inventory InventoryService
}

// NewProductService constructs a ProductService. inventory books opening stock.
func NewProductService(pool *pgxpool.Pool, inventory InventoryService) ProductService {
	return &productService{pool: pool, inventory: inventory}
}

const productColumns = `
	p.id, p.name, p.sku, p.description, p.category_id, COALESCE(c.name, ''),
	p.item_cost, p.tax_amount, p.other_costs, p.selling_price,
	p.is_service, p.track_inventory, p.current_stock, p.low_stock_threshold,
	p.is_active, p.created_at, p.updated_at`

const productFrom = `
	FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.ItemCost, &p.TaxAmount, &p.OtherCosts, &p.SellingPrice,
		&p.IsService, &p.TrackInventory, &p.CurrentStock, &p.LowStockThreshold,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.derive()
	return &p, nil
}

func getProduct(ctx context.Context, q pgxQuerier, where string, arg any) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, "SELECT "+productColumns+productFrom+" WHERE "+where, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("product %v not found", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return p, nil
}

func (s *productService) GetProduct(ctx context.Context, id int) (*Product, error) {
	return getProduct(ctx, s.pool, "p.id = $1", id)
}

func (s *productService) GetProductBySKU(ctx context.Context, sku string) (*Product, error) {
	return getProduct(ctx, s.pool, "p.sku = $1", strings.TrimSpace(sku))
}

func (s *productService) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, PageInfo, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !filter.IncludeInactive {
		where = append(where, "p.is_active = true")
	}
	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		where = append(where, "(p.name ILIKE "+pattern+" OR p.sku ILIKE "+pattern+")")
	}
	if filter.CategoryID != nil {
		where = append(where, "p.category_id = "+arg(*filter.CategoryID))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*)"+productFrom+clause, args...).Scan(&total); err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to count products: %w", err)
	}

	limit, offset := filter.Page.limitOffset()
	query := "SELECT " + productColumns + productFrom + clause +
		" ORDER BY p.name, p.id LIMIT " + arg(limit) + " OFFSET " + arg(offset)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, PageInfo{}, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, PageInfo{}, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, PageInfo{}, fmt.Errorf("error iterating products: %w", err)
	}
	return products, newPageInfo(total, filter.Page), nil
}

// validateProductInput normalizes in place and rejects impossible combinations.
func validateProductInput(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" {
		return InvalidInputf("name is required")
	}
	if in.SKU == "" {
		return InvalidInputf("sku is required")
	}
	for label, v := range map[string]decimal.Decimal{
		"item_cost":     in.ItemCost,
		"tax_amount":    in.TaxAmount,
		"other_costs":   in.OtherCosts,
		"selling_price": in.SellingPrice,
	} {
		if v.IsNegative() {
			return InvalidInputf("%s cannot be negative", label)
		}
	}
	if in.LowStockThreshold < 0 {
		return InvalidInputf("low_stock_threshold cannot be negative")
	}
	if in.OpeningStock < 0 {
		return InvalidInputf("opening stock cannot be negative")
	}
	if in.IsService {
		in.TrackInventory = false
	}
	if !in.TrackInventory && in.OpeningStock > 0 {
		return InvalidInputf("opening stock requires track_inventory")
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*Product, error) {
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := s.insertProductTx(ctx, tx, in, actor)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product: %w", err)
	}
	return p, nil
}

func (s *productService) insertProductTx(ctx context.Context, tx pgx.Tx, in ProductInput, actor Actor) (*Product, error) {
	var id int
	err := tx.QueryRow(ctx, `
		INSERT INTO products
			(name, sku, description, category_id, item_cost, tax_amount, other_costs,
			 selling_price, is_service, track_inventory, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, in.Name, in.SKU, in.Description, in.CategoryID, in.ItemCost, in.TaxAmount, in.OtherCosts,
		in.SellingPrice, in.IsService, in.TrackInventory, in.LowStockThreshold,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("sku %s already exists", in.SKU)
		}
		return nil, mapWriteError(err, "insert product")
	}

	if in.OpeningStock > 0 {
		if _, err := s.inventory.CreditStockTx(ctx, tx, StockChange{
			ProductID: id,
			Quantity:  in.OpeningStock,
			Notes:     "Opening stock",
		}, actor); err != nil {
			return nil, fmt.Errorf("failed to book opening stock: %w", err)
		}
	}

	return getProduct(ctx, tx, "p.id = $1", id)
}

func (s *productService) UpdateProduct(ctx context.Context, id int, upd ProductUpdate) (*Product, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := getProduct(ctx, tx, "p.id = $1 FOR UPDATE OF p", id)
	if err != nil {
		return nil, err
	}

	in := ProductInput{
		Name:              p.Name,
		SKU:               p.SKU,
		Description:       p.Description,
		CategoryID:        p.CategoryID,
		ItemCost:          p.ItemCost,
		TaxAmount:         p.TaxAmount,
		OtherCosts:        p.OtherCosts,
		SellingPrice:      p.SellingPrice,
		IsService:         p.IsService,
		TrackInventory:    p.TrackInventory,
		LowStockThreshold: p.LowStockThreshold,
	}
	isActive := p.IsActive
	applyProductUpdate(&in, &isActive, upd)
	if err := validateProductInput(&in); err != nil {
		return nil, err
	}
	if !in.TrackInventory && p.CurrentStock > 0 {
		return nil, InvalidInputf("product %s still holds %d units; stock them out before disabling tracking",
			p.SKU, p.CurrentStock)
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET name = $1, sku = $2, description = $3, category_id = $4,
		    item_cost = $5, tax_amount = $6, other_costs = $7, selling_price = $8,
		    is_service = $9, track_inventory = $10, low_stock_threshold = $11,
		    is_active = $12, updated_at = NOW()
		WHERE id = $13
	`, in.Name, in.SKU, in.Description, in.CategoryID,
		in.ItemCost, in.TaxAmount, in.OtherCosts, in.SellingPrice,
		in.IsService, in.TrackInventory, in.LowStockThreshold,
		isActive, id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("sku %s already exists", in.SKU)
		}
		return nil, mapWriteError(err, "update product")
	}

	updated, err := getProduct(ctx, tx, "p.id = $1", id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product update: %w", err)
	}
	return updated, nil
}

func applyProductUpdate(in *ProductInput, isActive *bool, upd ProductUpdate) {
	if upd.Name != nil {
		in.Name = *upd.Name
	}
	if upd.SKU != nil {
		in.SKU = *upd.SKU
	}
	if upd.Description != nil {
		in.Description = *upd.Description
	}
	if upd.CategoryID != nil {
		in.CategoryID = upd.CategoryID
	}
	if upd.ItemCost != nil {
		in.ItemCost = *upd.ItemCost
	}
	if upd.TaxAmount != nil {
		in.TaxAmount = *upd.TaxAmount
	}
	if upd.OtherCosts != nil {
		in.OtherCosts = *upd.OtherCosts
	}
	if upd.SellingPrice != nil {
		in.SellingPrice = *upd.SellingPrice
	}
	if upd.IsService != nil {
		in.IsService = *upd.IsService
	}
	if upd.TrackInventory != nil {
		in.TrackInventory = *upd.TrackInventory
	}
	if upd.LowStockThreshold != nil {
		in.LowStockThreshold = *upd.LowStockThreshold
	}
	if upd.IsActive != nil {
		*isActive = *upd.IsActive
	}
}

func (s *productService) DeleteProduct(ctx context.Context, id int) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var referenced bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)
		    OR EXISTS (SELECT 1 FROM inventory_movements WHERE product_id = $1)
	`, id).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("failed to check product references: %w", err)
	}

	if referenced {
		ct, err := tx.Exec(ctx, "UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1", id)
		if err != nil {
			return false, fmt.Errorf("failed to deactivate product %d: %w", id, err)
		}
		if ct.RowsAffected() == 0 {
			return false, NotFoundf("product %d not found", id)
		}
	} else {
		ct, err := tx.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return false, Conflictf("product %d is referenced and cannot be deleted", id)
			}
			return false, fmt.Errorf("failed to delete product %d: %w", id, err)
		}
		if ct.RowsAffected() == 0 {
			return false, NotFoundf("product %d not found", id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit product delete: %w", err)
	}
	return !referenced, nil
}

func (s *productService) UpsertBySKU(ctx context.Context, in ProductInput, actor Actor) (bool, *Product, error) {
	if err := validateProductInput(&in); err != nil {
		return false, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var existingID, stock int
	err = tx.QueryRow(ctx, "SELECT id, current_stock FROM products WHERE sku = $1 FOR UPDATE", in.SKU).Scan(&existingID, &stock)
	if errors.Is(err, pgx.ErrNoRows) {
		p, err := s.insertProductTx(ctx, tx, in, actor)
		if err != nil {
			return false, nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return false, nil, fmt.Errorf("failed to commit product import: %w", err)
		}
		return true, p, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("failed to look up sku %s: %w", in.SKU, err)
	}
	if !in.TrackInventory && stock > 0 {
		return false, nil, InvalidInputf("sku %s holds %d units and cannot stop tracking inventory", in.SKU, stock)
	}

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, category_id = COALESCE($3, category_id),
		    item_cost = $4, tax_amount = $5, other_costs = $6, selling_price = $7,
		    is_service = $8, track_inventory = $9, low_stock_threshold = $10,
		    is_active = true, updated_at = NOW()
		WHERE id = $11
	`, in.Name, in.Description, in.CategoryID, in.ItemCost, in.TaxAmount, in.OtherCosts,
		in.SellingPrice, in.IsService, in.TrackInventory, in.LowStockThreshold, existingID)
	if err != nil {
		return false, nil, mapWriteError(err, "update product "+in.SKU)
	}

	p, err := getProduct(ctx, tx, "p.id = $1", existingID)
	if err != nil {
		return false, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, fmt.Errorf("failed to commit product import: %w", err)
	}
	return false, p, nil
}

func (s *productService) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, description, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *productService) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, InvalidInputf("category name is required")
	}
	c := Category{Name: name, Description: description}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description) VALUES ($1, $2)
		RETURNING id, created_at
	`, name, description).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("category %s already exists", name)
		}
		return nil, mapWriteError(err, "insert category")
	}
	return &c, nil
}
