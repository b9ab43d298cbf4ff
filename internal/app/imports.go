package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/export"

	"go.uber.org/zap"
)

// ImportSales reads a workbook in the sales export layout and creates one
// sale per source invoice. Each sale is numbered afresh and debits stock like
// any other sale; the source invoice maps to the new one in the result.
func (s *appService) ImportSales(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error) {
	if err := s.check(actor, core.OpSaleCreate, nil); err != nil {
		return nil, err
	}
	groups, rowErrs, err := export.ReadSales(r)
	if err != nil {
		return nil, core.InvalidInputf("unreadable workbook: %v", err)
	}

	res := &ImportResult{Errors: rowErrors(rowErrs), Invoices: map[string]string{}}
	products := map[string]*core.Product{}

	for _, g := range groups {
		if g.Voided {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: sale %s is voided, skipped", g.Row, g.SourceInvoice))
			continue
		}

		in := g.Input
		in.Items = make([]core.SaleItemInput, 0, len(g.Lines))
		var lineErr string
		for _, l := range g.Lines {
			p, ok := products[strings.ToUpper(l.SKU)]
			if !ok {
				p, err = s.Products.GetProductBySKU(ctx, l.SKU)
				if err != nil {
					if core.KindOf(err) == "" {
						return nil, s.fail("import sales", actor, err)
					}
					lineErr = fmt.Sprintf("Row %d: %v (sale %s skipped)", l.Row, err, g.SourceInvoice)
					break
				}
				products[strings.ToUpper(l.SKU)] = p
			}
			in.Items = append(in.Items, core.SaleItemInput{
				ProductID:   p.ID,
				Quantity:    l.Quantity,
				UnitPrice:   l.UnitPrice,
				DiscountPct: l.DiscountPct,
			})
		}
		if lineErr != "" {
			res.Errors = append(res.Errors, lineErr)
			continue
		}

		sale, err := s.Sales.CreateSale(ctx, in, actor)
		if err != nil {
			if core.KindOf(err) == "" {
				return nil, s.fail("import sales", actor, err)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: sale %s: %v", g.Row, g.SourceInvoice, err))
			continue
		}
		res.Imported++
		res.Invoices[g.SourceInvoice] = sale.InvoiceNumber
		s.cache.PublishSale(ctx, cache.SaleEvent{
			Type:          cache.SaleCreated,
			SaleID:        sale.ID,
			InvoiceNumber: sale.InvoiceNumber,
			Total:         sale.TotalAmount,
			ActorID:       actor.UserID,
		})
	}

	if res.Imported > 0 {
		s.mutated(ctx, "sales imported", actor,
			zap.Int("imported", res.Imported),
			zap.Int("errors", len(res.Errors)))
	}
	return res, nil
}

// ImportPayroll reads a workbook in the payroll export layout and creates one
// record per row. Pay is recomputed from the inputs; rows marked paid are
// paid today when the actor may pay payroll.
func (s *appService) ImportPayroll(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error) {
	if err := s.check(actor, core.OpPayrollWrite, nil); err != nil {
		return nil, err
	}
	rows, rowErrs, err := export.ReadPayroll(r)
	if err != nil {
		return nil, core.InvalidInputf("unreadable workbook: %v", err)
	}

	res := &ImportResult{Errors: rowErrors(rowErrs)}

	employees, err := s.Users.ListEmployees(ctx)
	if err != nil {
		return nil, s.fail("import payroll", actor, err)
	}
	byEmail := make(map[string]int, len(employees))
	for _, e := range employees {
		byEmail[strings.ToLower(e.Email)] = e.ID
	}
	canPay := core.Authorize(actor, core.OpPayrollPay) == nil

	for _, row := range rows {
		id, ok := byEmail[row.EmployeeEmail]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: no active employee with email %s", row.Row, row.EmployeeEmail))
			continue
		}
		in := row.Input
		in.EmployeeID = id

		rec, err := s.Payroll.CreateRecord(ctx, in)
		if err != nil {
			if core.KindOf(err) == "" {
				return nil, s.fail("import payroll", actor, err)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", row.Row, err))
			continue
		}
		res.Imported++

		if !row.IsPaid {
			continue
		}
		if !canPay {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: record %d created unpaid; %s may not pay payroll", row.Row, rec.ID, actor.Role))
			continue
		}
		if _, err := s.Payroll.MarkPaid(ctx, rec.ID, in.PaymentMethod); err != nil {
			if core.KindOf(err) == "" {
				return nil, s.fail("import payroll", actor, err)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: record %d created unpaid: %v", row.Row, rec.ID, err))
			continue
		}
		res.Paid++
	}

	if res.Imported > 0 {
		s.mutated(ctx, "payroll imported", actor,
			zap.Int("imported", res.Imported),
			zap.Int("paid", res.Paid),
			zap.Int("errors", len(res.Errors)))
	}
	return res, nil
}

func rowErrors(errs []export.RowError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.String())
	}
	return out
}
