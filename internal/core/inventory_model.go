package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Direction of a stock movement.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// MovementStatus of a stock movement. Only completed movements affect stock.
type MovementStatus string

const (
	MovementInProcess MovementStatus = "in_process"
	MovementCompleted MovementStatus = "completed"
)

// Movement is one append-only stock change recorded against a product.
// For completed movements PreviousStock/NewStock capture the stock on either side.
type Movement struct {
	ID            int             `json:"id"`
	ProductID     int             `json:"product_id"`
	ProductSKU    string          `json:"product_sku,omitempty"`  // joined from products
	ProductName   string          `json:"product_name,omitempty"` // joined from products
	Direction     Direction       `json:"direction"`
	Quantity      int             `json:"quantity"`
	Status        MovementStatus  `json:"status"`
	PreviousStock int             `json:"previous_stock"`
	NewStock      int             `json:"new_stock"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes"`
	SaleID        *int            `json:"sale_id,omitempty"` // set on movements written by a sale or its void
	PerformedBy   *int            `json:"performed_by,omitempty"`
	MovementDate  time.Time       `json:"movement_date"`
	CreatedAt     time.Time       `json:"created_at"`
}

// signedQuantity is +q for in and -q for out.
func (m Movement) signedQuantity() int {
	if m.Direction == DirectionOut {
		return -m.Quantity
	}
	return m.Quantity
}

// MovementInput records a movement through RecordMovement.
type MovementInput struct {
	ProductID int
	Direction Direction
	Quantity  int
	Status    MovementStatus // defaults to completed
	Reference string
	Notes     string
	Date      *time.Time // defaults to now
}

// reservedReferencePrefixes mark references written by sales and voids.
// Manual movements may not use them.
var reservedReferencePrefixes = []string{"INV-", "VOID-"}

// checkReference rejects a manual reference that could pass for a sale's own.
func checkReference(ref string) error {
	upper := strings.ToUpper(ref)
	for _, prefix := range reservedReferencePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return InvalidFields("reference is reserved", map[string]string{
				"reference": fmt.Sprintf("must not start with %q", prefix),
			})
		}
	}
	return nil
}

// StockChange is one stock write made inside a caller's transaction.
type StockChange struct {
	ProductID int
	Quantity  int
	SaleID    *int // links the movement to the sale that caused it
	Reference string
	Notes     string
}

// MovementFilter narrows ListMovements.
type MovementFilter struct {
	ProductID *int
	Direction Direction
	Reference string
	From      *time.Time
	To        *time.Time
	Page      Page
}

// StockLevel classifies a tracked product's stock against its threshold.
type StockLevel string

const (
	StockInStock    StockLevel = "in_stock"
	StockLow        StockLevel = "low_stock"
	StockOut        StockLevel = "out_of_stock"
	StockNotTracked StockLevel = "not_tracked"
)

// ClassifyStock: 0 is out of stock, 1..threshold is low, above threshold is in stock.
func ClassifyStock(stock, threshold int) StockLevel {
	switch {
	case stock <= 0:
		return StockOut
	case stock <= threshold:
		return StockLow
	default:
		return StockInStock
	}
}

// LowStockItem is a product row in a LowStockReport.
type LowStockItem struct {
	ProductID         int    `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	CurrentStock      int    `json:"current_stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

// LowStockReport lists tracked, active products at or below their threshold.
type LowStockReport struct {
	Low             []LowStockItem `json:"low_stock"`
	OutOfStock      []LowStockItem `json:"out_of_stock"`
	LowCount        int            `json:"low_stock_count"`
	OutOfStockCount int            `json:"out_of_stock_count"`
}

// StockDiscrepancy is a product whose current_stock disagrees with its movement ledger.
type StockDiscrepancy struct {
	ProductID    int    `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	CurrentStock int    `json:"current_stock"`
	LedgerStock  int    `json:"ledger_stock"`
}

// InventoryService keeps products.current_stock consistent with inventory_movements.
// Every mutation updates the stock and the movement log in one transaction.
type InventoryService interface {
	// Standalone operations (manage their own transactions).

	// StockIn adds quantity to a tracked product and records a completed "in" movement.
	StockIn(ctx context.Context, productID, quantity int, note string, actor Actor) (*Movement, error)
	// StockOut removes quantity from a tracked product; fails InsufficientStock
	// without changing anything if the product holds less than quantity.
	StockOut(ctx context.Context, productID, quantity int, note string, actor Actor) (*Movement, error)
	// RecordMovement is the general form of StockIn/StockOut. An in_process
	// movement is recorded without moving stock until CompleteMovement.
	RecordMovement(ctx context.Context, in MovementInput, actor Actor) (*Movement, error)
	// CompleteMovement applies an in_process movement to stock.
	CompleteMovement(ctx context.Context, movementID int) (*Movement, error)
	// ReverseMovement applies the opposite delta of a completed movement and
	// deletes it. A second reversal of the same id fails NotFound. Movements
	// linked to a sale fail ImmutableRecord.
	ReverseMovement(ctx context.Context, movementID int) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, PageInfo, error)
	LowStockReport(ctx context.Context) (*LowStockReport, error)
	// AuditStock recomputes stock from the movement ledger and reports mismatches.
	AuditStock(ctx context.Context) ([]StockDiscrepancy, error)

	// TX-scoped operations: work within a caller-provided transaction.
	// Used by SaleService and ProductService to keep stock changes atomic with their own writes.

	// DebitStockTx removes qty from a tracked product via a conditional update.
	DebitStockTx(ctx context.Context, tx pgx.Tx, ch StockChange, actor Actor) (*Movement, error)
	// CreditStockTx adds qty to a tracked product.
	CreditStockTx(ctx context.Context, tx pgx.Tx, ch StockChange, actor Actor) (*Movement, error)
}
