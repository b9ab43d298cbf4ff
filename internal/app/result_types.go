package app

import "bizledger/internal/core"

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
	Page     core.PageInfo  `json:"pagination"`
}

// DeleteProductResult reports whether the product row was removed or only
// deactivated because history still references it.
type DeleteProductResult struct {
	ProductID   int  `json:"product_id"`
	HardDeleted bool `json:"hard_deleted"`
}

// ImportResult summarizes a spreadsheet import. Invoices maps each imported
// sale's source invoice number to the number it was created under; Paid
// counts imported payroll records that were also marked paid.
type ImportResult struct {
	Imported          int               `json:"imported"`
	Updated           int               `json:"updated"`
	CategoriesCreated int               `json:"categories_created"`
	Paid              int               `json:"paid,omitempty"`
	Invoices          map[string]string `json:"invoices,omitempty"`
	Errors            []string          `json:"errors"`
}

// RecentActivity is the newest sales, stock movements and expenses for the
// dashboard feed.
type RecentActivity struct {
	Sales     []core.Sale     `json:"recent_sales"`
	Movements []core.Movement `json:"recent_inventory"`
	Expenses  []core.Expense  `json:"recent_expenses"`
}

// MovementListResult is returned by ListMovements.
type MovementListResult struct {
	Movements []core.Movement `json:"movements"`
	Page      core.PageInfo   `json:"pagination"`
}

// SaleListResult is returned by ListSales.
type SaleListResult struct {
	Sales []core.Sale   `json:"sales"`
	Page  core.PageInfo `json:"pagination"`
}

// PayrollListResult is returned by ListPayroll.
type PayrollListResult struct {
	Records []core.PayrollRecord `json:"records"`
	Page    core.PageInfo        `json:"pagination"`
}

// ExpenseListResult is returned by ListExpenses.
type ExpenseListResult struct {
	Expenses []core.Expense `json:"expenses"`
	Page     core.PageInfo  `json:"pagination"`
}

// CashFlowListResult is returned by ListCashFlows.
type CashFlowListResult struct {
	CashFlows []core.CashFlowEntry `json:"cash_flows"`
	Page      core.PageInfo        `json:"pagination"`
}
