package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PricedLine is a sale line with its unit price resolved.
type PricedLine struct {
	UnitPrice   decimal.Decimal
	Quantity    int
	DiscountPct decimal.Decimal
}

// SaleTotals is the result of pricing a draft sale.
type SaleTotals struct {
	LineTotals     []decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// LineTotal is unit_price × quantity × (1 − discount%/100), rounded to cents.
func LineTotal(unitPrice decimal.Decimal, quantity int, discountPct decimal.Decimal) decimal.Decimal {
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	factor := hundred.Sub(discountPct).Div(hundred)
	return money(gross.Mul(factor))
}

// ComputeSaleTotals prices a draft sale:
//
//	subtotal = Σ line_total
//	tax      = subtotal × taxRate / 100
//	discount = discountAmount if non-zero, else subtotal × discountPct / 100
//	total    = subtotal + tax − discount
func ComputeSaleTotals(lines []PricedLine, taxRate, discountPct, discountAmount decimal.Decimal) (SaleTotals, error) {
	if len(lines) == 0 {
		return SaleTotals{}, InvalidInputf("a sale needs at least one item")
	}
	if taxRate.IsNegative() {
		return SaleTotals{}, InvalidInputf("tax rate cannot be negative")
	}
	if err := checkPercent("discount percentage", discountPct); err != nil {
		return SaleTotals{}, err
	}
	if discountAmount.IsNegative() {
		return SaleTotals{}, InvalidInputf("discount amount cannot be negative")
	}

	t := SaleTotals{LineTotals: make([]decimal.Decimal, len(lines))}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return SaleTotals{}, InvalidInputf("item %d: quantity must be positive, got %d", i+1, l.Quantity)
		}
		if l.UnitPrice.IsNegative() {
			return SaleTotals{}, InvalidInputf("item %d: unit price cannot be negative", i+1)
		}
		if err := checkPercent(fmt.Sprintf("item %d: discount percentage", i+1), l.DiscountPct); err != nil {
			return SaleTotals{}, err
		}
		t.LineTotals[i] = LineTotal(l.UnitPrice, l.Quantity, l.DiscountPct)
		t.Subtotal = t.Subtotal.Add(t.LineTotals[i])
	}

	t.TaxAmount = money(t.Subtotal.Mul(taxRate).Div(hundred))
	if discountAmount.IsPositive() {
		t.DiscountAmount = money(discountAmount)
	} else {
		t.DiscountAmount = money(t.Subtotal.Mul(discountPct).Div(hundred))
	}
	if t.DiscountAmount.GreaterThan(t.Subtotal) {
		return SaleTotals{}, InvalidInputf("discount %s exceeds subtotal %s",
			t.DiscountAmount.StringFixed(2), t.Subtotal.StringFixed(2))
	}
	t.Total = t.Subtotal.Add(t.TaxAmount).Sub(t.DiscountAmount)
	return t, nil
}

func checkPercent(label string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return InvalidInputf("%s must be between 0 and 100, got %s", label, v.String())
	}
	return nil
}

// InvoicePrefix is "INV-YYYYMMDD-" for the UTC day of the sale date, the
// same day Period.Bounds files the sale under.
func InvoicePrefix(date time.Time) string {
	return "INV-" + date.UTC().Format("20060102") + "-"
}

// FormatInvoiceNumber renders INV-{YYYYMMDD}-{seq:04d}.
func FormatInvoiceNumber(date time.Time, seq int) string {
	return fmt.Sprintf("%s%04d", InvoicePrefix(date), seq)
}

// defaultAmountPaid: paid sales are settled in full, pending ones not at all.
func defaultAmountPaid(status PaymentStatus, total decimal.Decimal) decimal.Decimal {
	if status == PaymentPaid {
		return total
	}
	return decimal.Zero
}
