package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SaleStatus is the persisted lifecycle state of a sale.
//
//	(draft, in memory) → committed → voided
type SaleStatus string

const (
	SaleCommitted SaleStatus = "committed"
	SaleVoided    SaleStatus = "voided"
)

// PaymentStatus tracks settlement of a sale.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentPartial PaymentStatus = "partial"
)

// ParsePaymentStatus validates a payment status; empty defaults to paid.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(s); ps {
	case "":
		return PaymentPaid, nil
	case PaymentPending, PaymentPaid, PaymentPartial:
		return ps, nil
	}
	return "", InvalidInputf("payment_status must be pending, paid or partial, got %q", s)
}

// Customer is a buyer referenced by sales.
type Customer struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerInput creates a customer.
type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Sale is one committed (or voided) sales transaction with its items.
// Financial fields are computed once at creation and never re-derived.
type Sale struct {
	ID                 int             `json:"id"`
	InvoiceNumber      string          `json:"invoice_number"`
	SaleDate           time.Time       `json:"sale_date"`
	CustomerID         *int            `json:"customer_id,omitempty"`
	CustomerName       string          `json:"customer_name"` // joined from customers
	SalespersonID      *int            `json:"salesperson_id,omitempty"`
	SalespersonName    string          `json:"salesperson_name,omitempty"` // joined from users
	Subtotal           decimal.Decimal `json:"subtotal"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	PaymentStatus      PaymentStatus   `json:"payment_status"`
	PaymentMethod      string          `json:"payment_method"`
	AmountPaid         decimal.Decimal `json:"amount_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
	Status             SaleStatus      `json:"status"`
	VoidedAt           *time.Time      `json:"voided_at,omitempty"`
	VoidedBy           *int            `json:"voided_by,omitempty"`
	VoidReason         string          `json:"void_reason,omitempty"`
	Notes              string          `json:"notes"`
	Items              []SaleItem      `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SaleItem is one product line of a sale. UnitCost is the product's item cost
// at the time of sale.
type SaleItem struct {
	ID                 int             `json:"id"`
	SaleID             int             `json:"sale_id"`
	LineNumber         int             `json:"line_number"`
	ProductID          int             `json:"product_id"`
	ProductSKU         string          `json:"product_sku"`  // joined from products
	ProductName        string          `json:"product_name"` // joined from products
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	LineTotal          decimal.Decimal `json:"line_total"`
}

// SaleItemInput is one requested line. A nil UnitPrice uses the product's selling price.
type SaleItemInput struct {
	ProductID   int
	Quantity    int
	UnitPrice   *decimal.Decimal
	DiscountPct decimal.Decimal
}

// SaleInput creates a sale. CustomerName without CustomerID creates the
// customer inline in the same transaction.
type SaleInput struct {
	CustomerID     *int
	CustomerName   string
	SaleDate       *time.Time
	Items          []SaleItemInput
	TaxRate        decimal.Decimal
	DiscountPct    decimal.Decimal
	DiscountAmount decimal.Decimal // overrides DiscountPct when non-zero
	PaymentStatus  string
	PaymentMethod  string
	AmountPaid     *decimal.Decimal
	Notes          string
}

// SaleUpdate changes the mutable, non-financial fields of a sale.
type SaleUpdate struct {
	PaymentStatus *string
	PaymentMethod *string
	AmountPaid    *decimal.Decimal
	Notes         *string
}

// SaleFilter narrows ListSales.
type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	Status        SaleStatus
	PaymentStatus PaymentStatus
	CustomerID    *int
	Search        string // invoice number or customer name
	Page          Page
}

// SaleService creates, voids, and queries sales. Sales debit inventory through
// InventoryService inside their own transaction.
type SaleService interface {
	// CreateSale validates, prices, numbers and persists a sale with all its
	// items and inventory debits in one transaction.
	CreateSale(ctx context.Context, in SaleInput, actor Actor) (*Sale, error)
	// VoidSale restores stock for every tracked item and marks the sale voided.
	VoidSale(ctx context.Context, saleID int, reason string, actor Actor) (*Sale, error)
	// UpdateSale changes payment status/method, amount paid and notes only.
	UpdateSale(ctx context.Context, saleID int, upd SaleUpdate) (*Sale, error)
	GetSale(ctx context.Context, saleID int) (*Sale, error)
	GetSaleByInvoice(ctx context.Context, invoiceNumber string) (*Sale, error)
	ListSales(ctx context.Context, filter SaleFilter) ([]Sale, PageInfo, error)

	ListCustomers(ctx context.Context) ([]Customer, error)
	CreateCustomer(ctx context.Context, in CustomerInput) (*Customer, error)
}

// SaleOptions tunes SaleService policy.
type SaleOptions struct {
	// VoidWindowDays, when positive, forbids voiding sales older than this many days.
	VoidWindowDays int
}
