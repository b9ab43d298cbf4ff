package app

import (
	"time"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
)

// dateLayout is the wire format of every date field in a request.
const dateLayout = "2006-01-02"

// parseDate parses an optional YYYY-MM-DD value. Validation has already
// checked the layout, so errors only reach here from unvalidated callers.
func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, core.InvalidFields("invalid date", map[string]string{field: "expected YYYY-MM-DD"})
	}
	return &t, nil
}

func mustDate(field, s string) (time.Time, error) {
	t, err := parseDate(field, s)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, core.InvalidFields("missing date", map[string]string{field: "required"})
	}
	return *t, nil
}

// ── Auth ─────────────────────────────────────────────────────────────────────

// LoginRequest carries credentials for Login.
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// ── Products ─────────────────────────────────────────────────────────────────

// ProductRequest creates a product. TrackInventory defaults to true for goods
// and LowStockThreshold to 10.
type ProductRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	SKU               string          `json:"sku" validate:"required,max=100"`
	Description       string          `json:"description" validate:"max=2000"`
	CategoryID        *int            `json:"category_id" validate:"omitempty,gt=0"`
	ItemCost          decimal.Decimal `json:"item_cost" validate:"gte=0"`
	TaxAmount         decimal.Decimal `json:"tax_amount" validate:"gte=0"`
	OtherCosts        decimal.Decimal `json:"other_costs" validate:"gte=0"`
	SellingPrice      decimal.Decimal `json:"selling_price" validate:"gte=0"`
	IsService         bool            `json:"is_service"`
	TrackInventory    *bool           `json:"track_inventory"`
	LowStockThreshold *int            `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	OpeningStock      int             `json:"opening_stock" validate:"gte=0"`
}

func (r ProductRequest) toInput() core.ProductInput {
	track := !r.IsService
	if r.TrackInventory != nil {
		track = *r.TrackInventory
	}
	threshold := 10
	if r.LowStockThreshold != nil {
		threshold = *r.LowStockThreshold
	}
	return core.ProductInput{
		Name:              r.Name,
		SKU:               r.SKU,
		Description:       r.Description,
		CategoryID:        r.CategoryID,
		ItemCost:          r.ItemCost,
		TaxAmount:         r.TaxAmount,
		OtherCosts:        r.OtherCosts,
		SellingPrice:      r.SellingPrice,
		IsService:         r.IsService,
		TrackInventory:    track,
		LowStockThreshold: threshold,
		OpeningStock:      r.OpeningStock,
	}
}

// ProductPatchRequest updates the given product fields only.
type ProductPatchRequest struct {
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	SKU               *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Description       *string          `json:"description" validate:"omitempty,max=2000"`
	CategoryID        *int             `json:"category_id" validate:"omitempty,gt=0"`
	ItemCost          *decimal.Decimal `json:"item_cost" validate:"omitempty,gte=0"`
	TaxAmount         *decimal.Decimal `json:"tax_amount" validate:"omitempty,gte=0"`
	OtherCosts        *decimal.Decimal `json:"other_costs" validate:"omitempty,gte=0"`
	SellingPrice      *decimal.Decimal `json:"selling_price" validate:"omitempty,gte=0"`
	IsService         *bool            `json:"is_service"`
	TrackInventory    *bool            `json:"track_inventory"`
	LowStockThreshold *int             `json:"low_stock_threshold" validate:"omitempty,gte=0"`
	IsActive          *bool            `json:"is_active"`
}

func (r ProductPatchRequest) toUpdate() core.ProductUpdate {
	return core.ProductUpdate{
		Name:              r.Name,
		SKU:               r.SKU,
		Description:       r.Description,
		CategoryID:        r.CategoryID,
		ItemCost:          r.ItemCost,
		TaxAmount:         r.TaxAmount,
		OtherCosts:        r.OtherCosts,
		SellingPrice:      r.SellingPrice,
		IsService:         r.IsService,
		TrackInventory:    r.TrackInventory,
		LowStockThreshold: r.LowStockThreshold,
		IsActive:          r.IsActive,
	}
}

// CategoryRequest creates a category.
type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// ── Inventory ────────────────────────────────────────────────────────────────

// StockRequest is a completed stock-in or stock-out.
type StockRequest struct {
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Notes     string `json:"notes" validate:"max=500"`
}

// MovementRequest records a movement with explicit direction and status.
type MovementRequest struct {
	ProductID int    `json:"product_id" validate:"required,gt=0"`
	Direction string `json:"direction" validate:"required,oneof=in out"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Status    string `json:"status" validate:"omitempty,oneof=in_process completed"`
	Reference string `json:"reference" validate:"max=100"`
	Notes     string `json:"notes" validate:"max=500"`
	Date      string `json:"movement_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r MovementRequest) toInput() (core.MovementInput, error) {
	date, err := parseDate("movement_date", r.Date)
	if err != nil {
		return core.MovementInput{}, err
	}
	return core.MovementInput{
		ProductID: r.ProductID,
		Direction: core.Direction(r.Direction),
		Quantity:  r.Quantity,
		Status:    core.MovementStatus(r.Status),
		Reference: r.Reference,
		Notes:     r.Notes,
		Date:      date,
	}, nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

// SaleItemRequest is one line of a SaleRequest. A nil UnitPrice uses the
// product's selling price.
type SaleItemRequest struct {
	ProductID          int              `json:"product_id" validate:"required,gt=0"`
	Quantity           int              `json:"quantity" validate:"required,gt=0"`
	UnitPrice          *decimal.Decimal `json:"unit_price" validate:"omitempty,gte=0"`
	DiscountPercentage decimal.Decimal  `json:"discount_percentage" validate:"gte=0,lte=100"`
}

// SaleRequest creates a sale. CustomerName without CustomerID creates the
// customer inline; neither means a walk-in sale.
type SaleRequest struct {
	CustomerID         *int              `json:"customer_id" validate:"omitempty,gt=0"`
	CustomerName       string            `json:"customer_name" validate:"max=200"`
	SaleDate           string            `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	Items              []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxRate            decimal.Decimal   `json:"tax_rate" validate:"gte=0,lte=100"`
	DiscountPercentage decimal.Decimal   `json:"discount_percentage" validate:"gte=0,lte=100"`
	DiscountAmount     decimal.Decimal   `json:"discount_amount" validate:"gte=0"`
	PaymentStatus      string            `json:"payment_status" validate:"omitempty,oneof=pending paid partial"`
	PaymentMethod      string            `json:"payment_method" validate:"max=50"`
	AmountPaid         *decimal.Decimal  `json:"amount_paid" validate:"omitempty,gte=0"`
	Notes              string            `json:"notes" validate:"max=2000"`
}

func (r SaleRequest) toInput() (core.SaleInput, error) {
	date, err := parseDate("sale_date", r.SaleDate)
	if err != nil {
		return core.SaleInput{}, err
	}
	items := make([]core.SaleItemInput, len(r.Items))
	for i, it := range r.Items {
		items[i] = core.SaleItemInput{
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			DiscountPct: it.DiscountPercentage,
		}
	}
	return core.SaleInput{
		CustomerID:     r.CustomerID,
		CustomerName:   r.CustomerName,
		SaleDate:       date,
		Items:          items,
		TaxRate:        r.TaxRate,
		DiscountPct:    r.DiscountPercentage,
		DiscountAmount: r.DiscountAmount,
		PaymentStatus:  r.PaymentStatus,
		PaymentMethod:  r.PaymentMethod,
		AmountPaid:     r.AmountPaid,
		Notes:          r.Notes,
	}, nil
}

// SalePatchRequest updates payment details and notes. Totals are immutable.
type SalePatchRequest struct {
	PaymentStatus *string          `json:"payment_status" validate:"omitempty,oneof=pending paid partial"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,max=50"`
	AmountPaid    *decimal.Decimal `json:"amount_paid" validate:"omitempty,gte=0"`
	Notes         *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (r SalePatchRequest) toUpdate() core.SaleUpdate {
	return core.SaleUpdate{
		PaymentStatus: r.PaymentStatus,
		PaymentMethod: r.PaymentMethod,
		AmountPaid:    r.AmountPaid,
		Notes:         r.Notes,
	}
}

// VoidRequest carries the optional reason recorded on a voided sale.
type VoidRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CustomerRequest creates a customer.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Address string `json:"address" validate:"max=500"`
}

// ── Payroll ──────────────────────────────────────────────────────────────────

// PayRequest carries the pay inputs shared by create and update.
type PayRequest struct {
	BaseSalary          decimal.Decimal `json:"base_salary" validate:"gte=0"`
	HourlyRate          decimal.Decimal `json:"hourly_rate" validate:"gte=0"`
	RegularHours        decimal.Decimal `json:"regular_hours" validate:"gte=0"`
	OvertimeHours       decimal.Decimal `json:"overtime_hours" validate:"gte=0"`
	Bonuses             decimal.Decimal `json:"bonuses" validate:"gte=0"`
	TaxDeductions       decimal.Decimal `json:"tax_deductions" validate:"gte=0"`
	InsuranceDeductions decimal.Decimal `json:"insurance_deductions" validate:"gte=0"`
	OtherDeductions     decimal.Decimal `json:"other_deductions" validate:"gte=0"`
}

// PayrollRequest creates an unpaid payroll record.
type PayrollRequest struct {
	EmployeeID     int    `json:"employee_id" validate:"required,gt=0"`
	PayPeriodStart string `json:"pay_period_start" validate:"required,datetime=2006-01-02"`
	PayPeriodEnd   string `json:"pay_period_end" validate:"required,datetime=2006-01-02"`
	PaymentMethod  string `json:"payment_method" validate:"max=50"`
	Notes          string `json:"notes" validate:"max=2000"`
	PayRequest
}

func (r PayrollRequest) toInput() (core.PayrollInput, error) {
	start, err := mustDate("pay_period_start", r.PayPeriodStart)
	if err != nil {
		return core.PayrollInput{}, err
	}
	end, err := mustDate("pay_period_end", r.PayPeriodEnd)
	if err != nil {
		return core.PayrollInput{}, err
	}
	return core.PayrollInput{
		EmployeeID:     r.EmployeeID,
		PayPeriodStart: start,
		PayPeriodEnd:   end,
		PaymentMethod:  r.PaymentMethod,
		Notes:          r.Notes,
		PayInputs: core.PayInputs{
			BaseSalary:          r.BaseSalary,
			HourlyRate:          r.HourlyRate,
			RegularHours:        r.RegularHours,
			OvertimeHours:       r.OvertimeHours,
			Bonuses:             r.Bonuses,
			TaxDeductions:       r.TaxDeductions,
			InsuranceDeductions: r.InsuranceDeductions,
			OtherDeductions:     r.OtherDeductions,
		},
	}, nil
}

// PayrollPatchRequest updates an unpaid record; pay is recomputed.
type PayrollPatchRequest struct {
	PayPeriodStart      *string          `json:"pay_period_start" validate:"omitempty,datetime=2006-01-02"`
	PayPeriodEnd        *string          `json:"pay_period_end" validate:"omitempty,datetime=2006-01-02"`
	BaseSalary          *decimal.Decimal `json:"base_salary" validate:"omitempty,gte=0"`
	HourlyRate          *decimal.Decimal `json:"hourly_rate" validate:"omitempty,gte=0"`
	RegularHours        *decimal.Decimal `json:"regular_hours" validate:"omitempty,gte=0"`
	OvertimeHours       *decimal.Decimal `json:"overtime_hours" validate:"omitempty,gte=0"`
	Bonuses             *decimal.Decimal `json:"bonuses" validate:"omitempty,gte=0"`
	TaxDeductions       *decimal.Decimal `json:"tax_deductions" validate:"omitempty,gte=0"`
	InsuranceDeductions *decimal.Decimal `json:"insurance_deductions" validate:"omitempty,gte=0"`
	OtherDeductions     *decimal.Decimal `json:"other_deductions" validate:"omitempty,gte=0"`
	PaymentMethod       *string          `json:"payment_method" validate:"omitempty,max=50"`
	Notes               *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (r PayrollPatchRequest) toUpdate() (core.PayrollUpdate, error) {
	upd := core.PayrollUpdate{
		BaseSalary:          r.BaseSalary,
		HourlyRate:          r.HourlyRate,
		RegularHours:        r.RegularHours,
		OvertimeHours:       r.OvertimeHours,
		Bonuses:             r.Bonuses,
		TaxDeductions:       r.TaxDeductions,
		InsuranceDeductions: r.InsuranceDeductions,
		OtherDeductions:     r.OtherDeductions,
		PaymentMethod:       r.PaymentMethod,
		Notes:               r.Notes,
	}
	var err error
	if r.PayPeriodStart != nil {
		if upd.PayPeriodStart, err = parseDate("pay_period_start", *r.PayPeriodStart); err != nil {
			return upd, err
		}
	}
	if r.PayPeriodEnd != nil {
		if upd.PayPeriodEnd, err = parseDate("pay_period_end", *r.PayPeriodEnd); err != nil {
			return upd, err
		}
	}
	return upd, nil
}

// MarkPaidRequest settles a payroll record.
type MarkPaidRequest struct {
	PaymentMethod string `json:"payment_method" validate:"max=50"`
}

// ── Finance ledgers ──────────────────────────────────────────────────────────

type ExpenseRequest struct {
	ExpenseDate     string          `json:"expense_date" validate:"required,datetime=2006-01-02"`
	Category        string          `json:"category" validate:"required,max=100"`
	Description     string          `json:"description" validate:"required,max=500"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	PaymentMethod   string          `json:"payment_method" validate:"max=50"`
	ReferenceNumber string          `json:"reference_number" validate:"max=100"`
	Vendor          string          `json:"vendor" validate:"max=200"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

func (r ExpenseRequest) toExpense() (core.Expense, error) {
	date, err := mustDate("expense_date", r.ExpenseDate)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ExpenseDate:     date,
		Category:        r.Category,
		Description:     r.Description,
		Amount:          r.Amount,
		PaymentMethod:   r.PaymentMethod,
		ReferenceNumber: r.ReferenceNumber,
		Vendor:          r.Vendor,
		Notes:           r.Notes,
	}, nil
}

type AssetRequest struct {
	Name                    string          `json:"name" validate:"required,max=200"`
	AssetType               string          `json:"asset_type" validate:"required,oneof=current fixed intangible"`
	Category                string          `json:"category" validate:"max=100"`
	PurchaseDate            string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	PurchaseCost            decimal.Decimal `json:"purchase_cost" validate:"gte=0"`
	CurrentValue            decimal.Decimal `json:"current_value" validate:"gte=0"`
	DepreciationRate        decimal.Decimal `json:"depreciation_rate" validate:"gte=0,lte=100"`
	AccumulatedDepreciation decimal.Decimal `json:"accumulated_depreciation" validate:"gte=0"`
	Notes                   string          `json:"notes" validate:"max=2000"`
}

func (r AssetRequest) toAsset() (core.Asset, error) {
	date, err := parseDate("purchase_date", r.PurchaseDate)
	if err != nil {
		return core.Asset{}, err
	}
	return core.Asset{
		Name:                    r.Name,
		AssetType:               r.AssetType,
		Category:                r.Category,
		PurchaseDate:            date,
		PurchaseCost:            r.PurchaseCost,
		CurrentValue:            r.CurrentValue,
		DepreciationRate:        r.DepreciationRate,
		AccumulatedDepreciation: r.AccumulatedDepreciation,
		Notes:                   r.Notes,
	}, nil
}

type LiabilityRequest struct {
	Name             string          `json:"name" validate:"required,max=200"`
	LiabilityType    string          `json:"liability_type" validate:"required,oneof=current long_term"`
	Category         string          `json:"category" validate:"max=100"`
	Creditor         string          `json:"creditor" validate:"max=200"`
	OriginalAmount   decimal.Decimal `json:"original_amount" validate:"gte=0"`
	CurrentBalance   decimal.Decimal `json:"current_balance" validate:"gte=0"`
	InterestRate     decimal.Decimal `json:"interest_rate" validate:"gte=0,lte=100"`
	DueDate          string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	PaymentFrequency string          `json:"payment_frequency" validate:"max=50"`
	Notes            string          `json:"notes" validate:"max=2000"`
}

func (r LiabilityRequest) toLiability() (core.Liability, error) {
	due, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return core.Liability{}, err
	}
	return core.Liability{
		Name:             r.Name,
		LiabilityType:    r.LiabilityType,
		Category:         r.Category,
		Creditor:         r.Creditor,
		OriginalAmount:   r.OriginalAmount,
		CurrentBalance:   r.CurrentBalance,
		InterestRate:     r.InterestRate,
		DueDate:          due,
		PaymentFrequency: r.PaymentFrequency,
		Notes:            r.Notes,
	}, nil
}

type EquityRequest struct {
	EquityDate      string          `json:"equity_date" validate:"required,datetime=2006-01-02"`
	EquityType      string          `json:"equity_type" validate:"required,max=100"`
	Description     string          `json:"description" validate:"max=500"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	TransactionType string          `json:"transaction_type" validate:"required,oneof=investment withdrawal profit"`
	Notes           string          `json:"notes" validate:"max=2000"`
}

func (r EquityRequest) toEntry() (core.EquityEntry, error) {
	date, err := mustDate("equity_date", r.EquityDate)
	if err != nil {
		return core.EquityEntry{}, err
	}
	return core.EquityEntry{
		EquityDate:      date,
		EquityType:      r.EquityType,
		Description:     r.Description,
		Amount:          r.Amount,
		TransactionType: r.TransactionType,
		Notes:           r.Notes,
	}, nil
}

type CashFlowRequest struct {
	TransactionDate string          `json:"transaction_date" validate:"required,datetime=2006-01-02"`
	Description     string          `json:"description" validate:"required,max=500"`
	FlowType        string          `json:"flow_type" validate:"required,oneof=in out"`
	Category        string          `json:"category" validate:"required,oneof=operating investing financing"`
	Amount          decimal.Decimal `json:"amount" validate:"gt=0"`
	Status          string          `json:"status" validate:"omitempty,max=50"`
	Reference       string          `json:"reference" validate:"max=100"`
}

func (r CashFlowRequest) toEntry() (core.CashFlowEntry, error) {
	date, err := mustDate("transaction_date", r.TransactionDate)
	if err != nil {
		return core.CashFlowEntry{}, err
	}
	return core.CashFlowEntry{
		TransactionDate: date,
		Description:     r.Description,
		FlowType:        r.FlowType,
		Category:        r.Category,
		Amount:          r.Amount,
		Status:          r.Status,
		Reference:       r.Reference,
	}, nil
}

// BudgetTargetRequest upserts the target for a year, or a month when Month is set.
type BudgetTargetRequest struct {
	Year            int             `json:"year" validate:"required,gte=1970,lte=9999"`
	Month           *int            `json:"month" validate:"omitempty,gte=1,lte=12"`
	RevenueTarget   decimal.Decimal `json:"revenue_target" validate:"gte=0"`
	ExpenseTarget   decimal.Decimal `json:"expense_target" validate:"gte=0"`
	ProfitTarget    decimal.Decimal `json:"profit_target"`
	ItemsSoldTarget int             `json:"items_sold_target" validate:"gte=0"`
	SalesTarget     decimal.Decimal `json:"sales_target" validate:"gte=0"`
	MainGoals       string          `json:"main_goals" validate:"max=2000"`
	DailyTasks      string          `json:"daily_tasks" validate:"max=2000"`
}

func (r BudgetTargetRequest) toTarget() core.BudgetTarget {
	return core.BudgetTarget{
		Year:            r.Year,
		Month:           r.Month,
		RevenueTarget:   r.RevenueTarget,
		ExpenseTarget:   r.ExpenseTarget,
		ProfitTarget:    r.ProfitTarget,
		ItemsSoldTarget: r.ItemsSoldTarget,
		SalesTarget:     r.SalesTarget,
		MainGoals:       r.MainGoals,
		DailyTasks:      r.DailyTasks,
	}
}

// SettingsRequest replaces the business settings.
type SettingsRequest struct {
	BusinessName    string          `json:"business_name" validate:"required,max=200"`
	TaxID           string          `json:"tax_id" validate:"max=50"`
	Address         string          `json:"address" validate:"max=500"`
	Phone           string          `json:"phone" validate:"max=50"`
	Email           string          `json:"email" validate:"omitempty,email,max=200"`
	Currency        string          `json:"currency" validate:"required,len=3,alpha"`
	FiscalYearStart int             `json:"fiscal_year_start" validate:"required,gte=1,lte=12"`
	StartingCapital decimal.Decimal `json:"starting_capital" validate:"gte=0"`
	DefaultTaxRate  decimal.Decimal `json:"default_tax_rate" validate:"gte=0,lte=100"`
}

func (r SettingsRequest) toSettings() core.BusinessSettings {
	return core.BusinessSettings{
		BusinessName:    r.BusinessName,
		TaxID:           r.TaxID,
		Address:         r.Address,
		Phone:           r.Phone,
		Email:           r.Email,
		Currency:        r.Currency,
		FiscalYearStart: r.FiscalYearStart,
		StartingCapital: r.StartingCapital,
		DefaultTaxRate:  r.DefaultTaxRate,
	}
}
