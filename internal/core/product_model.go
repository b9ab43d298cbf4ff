package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. CurrentStock is owned by InventoryService and is
// never written through the catalog API.
type Product struct {
	ID                int             `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Description       string          `json:"description"`
	CategoryID        *int            `json:"category_id,omitempty"`
	CategoryName      string          `json:"category_name,omitempty"` // joined from categories
	ItemCost          decimal.Decimal `json:"item_cost"`
	TaxAmount         decimal.Decimal `json:"tax_amount"`
	OtherCosts        decimal.Decimal `json:"other_costs"`
	SellingPrice      decimal.Decimal `json:"selling_price"`
	IsService         bool            `json:"is_service"`
	TrackInventory    bool            `json:"track_inventory"`
	CurrentStock      int             `json:"current_stock"`
	LowStockThreshold int             `json:"low_stock_threshold"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Derived on read.
	TotalCost       decimal.Decimal `json:"total_cost"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
	ProfitMargin    decimal.Decimal `json:"profit_margin"`
	StockStatus     StockLevel      `json:"stock_status"`
}

// derive fills the computed fields from the stored ones.
func (p *Product) derive() {
	p.TotalCost = p.ItemCost.Add(p.TaxAmount).Add(p.OtherCosts)
	p.EstimatedProfit = p.SellingPrice.Sub(p.TotalCost)
	if p.SellingPrice.IsPositive() {
		p.ProfitMargin = p.EstimatedProfit.Div(p.SellingPrice).Mul(hundred).Round(2)
	} else {
		p.ProfitMargin = decimal.Zero
	}
	if p.TrackInventory {
		p.StockStatus = ClassifyStock(p.CurrentStock, p.LowStockThreshold)
	} else {
		p.StockStatus = StockNotTracked
	}
}

// Category groups products.
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductInput is the full set of writable catalog fields.
// OpeningStock, when positive, is booked as an "in" movement on create.
type ProductInput struct {
	Name              string
	SKU               string
	Description       string
	CategoryID        *int
	ItemCost          decimal.Decimal
	TaxAmount         decimal.Decimal
	OtherCosts        decimal.Decimal
	SellingPrice      decimal.Decimal
	IsService         bool
	TrackInventory    bool
	LowStockThreshold int
	OpeningStock      int
}

// ProductUpdate is a partial update; nil fields are left unchanged.
type ProductUpdate struct {
	Name              *string
	SKU               *string
	Description       *string
	CategoryID        *int
	ItemCost          *decimal.Decimal
	TaxAmount         *decimal.Decimal
	OtherCosts        *decimal.Decimal
	SellingPrice      *decimal.Decimal
	IsService         *bool
	TrackInventory    *bool
	LowStockThreshold *int
	IsActive          *bool
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	Search          string // matches name or SKU, case-insensitive
	CategoryID      *int
	IncludeInactive bool
	Page            Page
}

// ProductService manages the product catalog and categories.
type ProductService interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, PageInfo, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*Product, error)
	CreateProduct(ctx context.Context, in ProductInput, actor Actor) (*Product, error)
	UpdateProduct(ctx context.Context, id int, upd ProductUpdate) (*Product, error)
	// DeleteProduct hard-deletes an unreferenced product and soft-deletes
	// (is_active = false) one that sale items or movements still point at.
	// hardDeleted reports which path was taken.
	DeleteProduct(ctx context.Context, id int) (hardDeleted bool, err error)
	// UpsertBySKU creates the product or updates the existing row with the same SKU.
	// Used by spreadsheet import; never touches current_stock of an existing row.
	UpsertBySKU(ctx context.Context, in ProductInput, actor Actor) (created bool, p *Product, err error)

	ListCategories(ctx context.Context) ([]Category, error)
	CreateCategory(ctx context.Context, name, description string) (*Category, error)
}
