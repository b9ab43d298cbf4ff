package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"bizledger/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ProductRow is one parsed import row. CategoryName is resolved (and created
// if missing) by the caller.
type ProductRow struct {
	Row          int
	CategoryName string
	Input        core.ProductInput
}

// SaleLine is one item row of an imported sale. The caller resolves SKU.
type SaleLine struct {
	Row         int
	SKU         string
	Quantity    int
	UnitPrice   *decimal.Decimal // nil uses the product's selling price
	DiscountPct decimal.Decimal
}

// SaleGroup is one imported sale: every row sharing an Invoice Number.
// The source invoice only groups rows; the new sale gets a fresh number.
// Input.Items is left empty for the caller to fill from Lines.
type SaleGroup struct {
	Row           int // first row of the group
	SourceInvoice string
	Voided        bool
	Input         core.SaleInput
	Lines         []SaleLine
}

// PayrollRow is one parsed payroll import row. The caller resolves
// EmployeeEmail to Input.EmployeeID.
type PayrollRow struct {
	Row           int
	EmployeeEmail string
	IsPaid        bool
	Input         core.PayrollInput
}

// RowError reports a rejected row; Row is the 1-based spreadsheet row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string { return fmt.Sprintf("Row %d: %s", e.Row, e.Message) }

// sheet is the first worksheet of a workbook with its header row indexed by
// lower-cased column name.
type sheet struct {
	col  map[string]int
	rows [][]string
}

// openSheet reads the first sheet of r and checks that every required
// column is present. Columns are matched case-insensitively by header, so
// order and extra columns do not matter.
func openSheet(r io.Reader, required ...string) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	s := &sheet{col: map[string]int{}, rows: rows[1:]}
	for i, h := range rows[0] {
		s.col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range required {
		if _, ok := s.col[strings.ToLower(name)]; !ok {
			return nil, fmt.Errorf("missing required column %s", name)
		}
	}
	return s, nil
}

// each calls fn for every non-blank data row with its spreadsheet row number
// and a trimmed cell lookup.
func (s *sheet) each(fn func(row int, cell func(string) string)) {
	for i, cells := range s.rows {
		if isBlank(cells) {
			continue
		}
		fn(i+2, func(name string) string {
			idx, ok := s.col[name]
			if !ok || idx >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[idx])
		})
	}
}

// ReadProducts parses a workbook laid out with ProductHeaders. Only Name and
// SKU are required; ID, Current Stock and Created At are ignored except that
// Current Stock becomes the opening stock of a newly created product.
func ReadProducts(r io.Reader) ([]ProductRow, []RowError, error) {
	s, err := openSheet(r, "SKU", "Name")
	if err != nil {
		return nil, nil, err
	}

	var (
		out  []ProductRow
		errs []RowError
		seen = map[string]int{}
	)
	s.each(func(rowNum int, cell func(string) string) {
		p, msg := parseProductRow(cell)
		if msg != "" {
			errs = append(errs, RowError{Row: rowNum, Message: msg})
			return
		}
		if first, dup := seen[p.Input.SKU]; dup {
			errs = append(errs, RowError{Row: rowNum, Message: fmt.Sprintf("duplicate SKU %s (first seen in row %d)", p.Input.SKU, first)})
			return
		}
		seen[p.Input.SKU] = rowNum
		p.Row = rowNum
		out = append(out, p)
	})
	return out, errs, nil
}

// ReadSales parses a workbook laid out with SaleHeaders into one group per
// Invoice Number, in order of first appearance. Header columns (date,
// customer, tax, discount, payment) are taken from a group's first row.
// Line Total and the sale totals are ignored: totals are recomputed.
func ReadSales(r io.Reader) ([]SaleGroup, []RowError, error) {
	s, err := openSheet(r, "Invoice Number", "SKU")
	if err != nil {
		return nil, nil, err
	}

	var (
		groups []*SaleGroup
		errs   []RowError
		index  = map[string]*SaleGroup{}
	)
	s.each(func(rowNum int, cell func(string) string) {
		invoice := cell("invoice number")
		if invoice == "" {
			errs = append(errs, RowError{Row: rowNum, Message: "Invoice Number is required"})
			return
		}
		g, ok := index[invoice]
		if !ok {
			header, msg := parseSaleHeader(cell)
			if msg != "" {
				errs = append(errs, RowError{Row: rowNum, Message: msg})
				return
			}
			g = &header
			g.Row, g.SourceInvoice = rowNum, invoice
			index[invoice] = g
			groups = append(groups, g)
		}

		line, msg := parseSaleLine(cell)
		if msg != "" {
			errs = append(errs, RowError{Row: rowNum, Message: msg})
			return
		}
		line.Row = rowNum
		g.Lines = append(g.Lines, line)
	})

	out := make([]SaleGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.Lines) > 0 {
			out = append(out, *g)
		}
	}
	return out, errs, nil
}

func parseSaleHeader(cell func(string) string) (SaleGroup, string) {
	var g SaleGroup
	in := &g.Input

	g.Voided = strings.EqualFold(cell("status"), string(core.SaleVoided))

	if v := cell("sale date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return g, fmt.Sprintf("invalid sale date %q", v)
		}
		in.SaleDate = &t
	}
	if c := cell("customer"); c != "" && !strings.EqualFold(c, "walk-in") && !strings.EqualFold(c, "walk-in customer") {
		in.CustomerName = c
	}

	var err error
	if in.DiscountAmount, err = parseDecimal(cell("sale discount")); err != nil || in.DiscountAmount.IsNegative() {
		return g, fmt.Sprintf("invalid sale discount %q", cell("sale discount"))
	}
	if v := cell("tax rate"); v != "" {
		if in.TaxRate, err = parseDecimal(v); err != nil || in.TaxRate.IsNegative() {
			return g, fmt.Sprintf("invalid tax rate %q", v)
		}
	} else {
		// Older sheets carry only the amounts: derive the rate.
		subtotal, err1 := parseDecimal(cell("sale subtotal"))
		tax, err2 := parseDecimal(cell("sale tax"))
		if err1 != nil || err2 != nil || tax.IsNegative() {
			return g, fmt.Sprintf("invalid sale tax %q", cell("sale tax"))
		}
		if subtotal.IsPositive() {
			in.TaxRate = tax.Mul(decimal.NewFromInt(100)).Div(subtotal).Round(4)
		}
	}

	in.PaymentStatus = strings.ToLower(cell("payment status"))
	in.PaymentMethod = cell("payment method")
	if in.PaymentStatus == string(core.PaymentPartial) {
		paid, err := parseDecimal(cell("amount paid"))
		if err != nil || paid.IsNegative() {
			return g, fmt.Sprintf("invalid amount paid %q", cell("amount paid"))
		}
		in.AmountPaid = &paid
	}
	return g, ""
}

func parseSaleLine(cell func(string) string) (SaleLine, string) {
	var l SaleLine
	l.SKU = cell("sku")
	if l.SKU == "" {
		return l, "SKU is required"
	}
	var err error
	if l.Quantity, err = parseInt(cell("quantity"), 1); err != nil || l.Quantity <= 0 {
		return l, fmt.Sprintf("invalid quantity %q", cell("quantity"))
	}
	if v := cell("unit price"); v != "" {
		price, err := parseDecimal(v)
		if err != nil || price.IsNegative() {
			return l, fmt.Sprintf("invalid unit price %q", v)
		}
		l.UnitPrice = &price
	}
	if l.DiscountPct, err = parseDecimal(cell("discount %")); err != nil {
		return l, fmt.Sprintf("invalid discount %% %q", cell("discount %"))
	}
	return l, ""
}

// ReadPayroll parses a workbook laid out with PayrollHeaders. Employee Email,
// Period Start and Period End are required; derived pay columns are ignored
// because pay is recomputed from the inputs.
func ReadPayroll(r io.Reader) ([]PayrollRow, []RowError, error) {
	s, err := openSheet(r, "Employee Email", "Period Start", "Period End")
	if err != nil {
		return nil, nil, err
	}

	var (
		out  []PayrollRow
		errs []RowError
	)
	s.each(func(rowNum int, cell func(string) string) {
		p, msg := parsePayrollRow(cell)
		if msg != "" {
			errs = append(errs, RowError{Row: rowNum, Message: msg})
			return
		}
		p.Row = rowNum
		out = append(out, p)
	})
	return out, errs, nil
}

func parsePayrollRow(cell func(string) string) (PayrollRow, string) {
	var p PayrollRow
	in := &p.Input

	p.EmployeeEmail = strings.ToLower(cell("employee email"))
	if p.EmployeeEmail == "" {
		return p, "Employee Email is required"
	}

	var err error
	if in.PayPeriodStart, err = parseDate(cell("period start")); err != nil {
		return p, fmt.Sprintf("invalid period start %q", cell("period start"))
	}
	if in.PayPeriodEnd, err = parseDate(cell("period end")); err != nil {
		return p, fmt.Sprintf("invalid period end %q", cell("period end"))
	}

	amounts := []struct {
		col string
		dst *decimal.Decimal
	}{
		{"regular hours", &in.RegularHours},
		{"overtime hours", &in.OvertimeHours},
		{"hourly rate", &in.HourlyRate},
		{"base salary", &in.BaseSalary},
		{"bonuses", &in.Bonuses},
		{"tax deductions", &in.TaxDeductions},
		{"insurance deductions", &in.InsuranceDeductions},
		{"other deductions", &in.OtherDeductions},
	}
	for _, a := range amounts {
		v, err := parseDecimal(cell(a.col))
		if err != nil {
			return p, fmt.Sprintf("invalid %s %q", a.col, cell(a.col))
		}
		if v.IsNegative() {
			return p, fmt.Sprintf("%s must not be negative", a.col)
		}
		*a.dst = v
	}

	p.IsPaid = parseBool(cell("is paid"), false)
	in.PaymentMethod = cell("payment method")
	return p, ""
}

func parseProductRow(cell func(string) string) (ProductRow, string) {
	var p ProductRow
	in := &p.Input

	in.SKU = cell("sku")
	if in.SKU == "" {
		return p, "SKU is required"
	}
	in.Name = cell("name")
	if in.Name == "" {
		return p, "Name is required"
	}
	in.Description = cell("description")
	p.CategoryName = cell("category")

	money := []struct {
		col string
		dst *decimal.Decimal
	}{
		{"item cost", &in.ItemCost},
		{"tax amount", &in.TaxAmount},
		{"other costs", &in.OtherCosts},
		{"selling price", &in.SellingPrice},
	}
	for _, m := range money {
		v, err := parseDecimal(cell(m.col))
		if err != nil {
			return p, fmt.Sprintf("invalid %s %q", m.col, cell(m.col))
		}
		if v.IsNegative() {
			return p, fmt.Sprintf("%s must not be negative", m.col)
		}
		*m.dst = v
	}

	in.IsService = parseBool(cell("is service"), false)
	in.TrackInventory = parseBool(cell("track inventory"), !in.IsService)
	if in.IsService {
		in.TrackInventory = false
	}

	var err error
	if in.LowStockThreshold, err = parseInt(cell("low stock threshold"), 10); err != nil || in.LowStockThreshold < 0 {
		return p, fmt.Sprintf("invalid low stock threshold %q", cell("low stock threshold"))
	}
	if in.OpeningStock, err = parseInt(cell("current stock"), 0); err != nil || in.OpeningStock < 0 {
		return p, fmt.Sprintf("invalid current stock %q", cell("current stock"))
	}
	if !in.TrackInventory {
		in.OpeningStock = 0
	}
	return p, ""
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func parseInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	// Spreadsheet numbers may come back as "12.0".
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return int(d.IntPart()), nil
	}
	return strconv.Atoi(s)
}

// parseBool accepts yes/true/1 and no/false/0 in any case.
func parseBool(s string, def bool) bool {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "1":
		return true
	case "no", "n", "false", "0":
		return false
	default:
		return def
	}
}

// dateLayouts are tried in order. Dates without a zone are UTC.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "01/02/2006", "1/2/06"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
