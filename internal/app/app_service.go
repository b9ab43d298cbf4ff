package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"bizledger/internal/cache"
	"bizledger/internal/core"
	"bizledger/internal/export"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// exportPageSize is the page size used to walk full listings for export.
const exportPageSize = 500

// Options carries the policy knobs read from configuration.
type Options struct {
	COGSMethod     core.COGSMethod
	VoidWindowDays int
}

// Services bundles the core services the application layer drives.
type Services struct {
	Users     core.UserService
	Products  core.ProductService
	Inventory core.InventoryService
	Sales     core.SaleService
	Payroll   core.PayrollService
	Ledger    core.LedgerService
	Financial core.FinancialService
}

// NewCoreServices wires every core service over one pool.
func NewCoreServices(pool *pgxpool.Pool, clock core.Clock, opts Options) Services {
	inventory := core.NewInventoryService(pool, clock)
	return Services{
		Users:     core.NewUserService(pool),
		Products:  core.NewProductService(pool, inventory),
		Inventory: inventory,
		Sales:     core.NewSaleService(pool, inventory, clock, core.SaleOptions{VoidWindowDays: opts.VoidWindowDays}),
		Payroll:   core.NewPayrollService(pool, clock),
		Ledger:    core.NewLedgerService(pool),
		Financial: core.NewFinancialService(pool, clock, core.FinancialOptions{COGSMethod: opts.COGSMethod}),
	}
}

type appService struct {
	Services
	cache     *cache.Cache
	log       *zap.Logger
	validator *validator.Validate
}

// NewAppService constructs an appService that satisfies ApplicationService.
// reports may be nil, which disables report caching and sale events.
func NewAppService(svc Services, reports *cache.Cache, log *zap.Logger) ApplicationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &appService{
		Services:  svc,
		cache:     reports,
		log:       log,
		validator: newValidator(),
	}
}

// ── Gatekeeping ──────────────────────────────────────────────────────────────

// check authorizes actor for op and, when req is non-nil, validates it.
func (s *appService) check(actor core.Actor, op core.Operation, req any) error {
	if err := core.Authorize(actor, op); err != nil {
		s.log.Warn("operation denied",
			zap.String("op", op.String()),
			zap.Int("actor_id", actor.UserID),
			zap.String("role", actor.Role.String()))
		return err
	}
	if req == nil {
		return nil
	}
	return s.validate(req)
}

// fail logs err and returns it unchanged. Domain outcomes are expected and
// logged quietly; anything else is an infrastructure failure.
func (s *appService) fail(action string, actor core.Actor, err error) error {
	if kind := core.KindOf(err); kind != "" {
		s.log.Debug(action+" rejected", zap.String("kind", string(kind)), zap.Error(err))
		return err
	}
	s.log.Error(action+" failed", zap.Int("actor_id", actor.UserID), zap.Error(err))
	return err
}

// mutated drops cached reports and logs the change.
func (s *appService) mutated(ctx context.Context, msg string, actor core.Actor, fields ...zap.Field) {
	s.cache.Invalidate(ctx)
	s.log.Info(msg, append(fields, zap.Int("actor_id", actor.UserID))...)
}

// ── Auth ─────────────────────────────────────────────────────────────────────

func (s *appService) Login(ctx context.Context, req LoginRequest) (*core.User, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	u, err := s.Users.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.fail("login", core.Actor{}, err)
	}
	s.log.Info("user logged in", zap.Int("user_id", u.ID), zap.String("role", u.Role.String()))
	return u, nil
}

func (s *appService) CurrentUser(ctx context.Context, actor core.Actor) (*core.User, error) {
	return s.Users.GetByID(ctx, actor.UserID)
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context, actor core.Actor, filter core.ProductFilter) (*ProductListResult, error) {
	if err := s.check(actor, core.OpProductRead, nil); err != nil {
		return nil, err
	}
	products, page, err := s.Products.ListProducts(ctx, filter)
	if err != nil {
		return nil, s.fail("list products", actor, err)
	}
	return &ProductListResult{Products: products, Page: page}, nil
}

func (s *appService) GetProduct(ctx context.Context, actor core.Actor, id int) (*core.Product, error) {
	if err := s.check(actor, core.OpProductRead, nil); err != nil {
		return nil, err
	}
	return s.Products.GetProduct(ctx, id)
}

func (s *appService) CreateProduct(ctx context.Context, actor core.Actor, req ProductRequest) (*core.Product, error) {
	if err := s.check(actor, core.OpProductWrite, req); err != nil {
		return nil, err
	}
	p, err := s.Products.CreateProduct(ctx, req.toInput(), actor)
	if err != nil {
		return nil, s.fail("create product", actor, err)
	}
	s.mutated(ctx, "product created", actor, zap.Int("product_id", p.ID), zap.String("sku", p.SKU))
	return p, nil
}

func (s *appService) UpdateProduct(ctx context.Context, actor core.Actor, id int, req ProductPatchRequest) (*core.Product, error) {
	if err := s.check(actor, core.OpProductWrite, req); err != nil {
		return nil, err
	}
	p, err := s.Products.UpdateProduct(ctx, id, req.toUpdate())
	if err != nil {
		return nil, s.fail("update product", actor, err)
	}
	s.mutated(ctx, "product updated", actor, zap.Int("product_id", id))
	return p, nil
}

func (s *appService) DeleteProduct(ctx context.Context, actor core.Actor, id int) (*DeleteProductResult, error) {
	if err := s.check(actor, core.OpProductDelete, nil); err != nil {
		return nil, err
	}
	hard, err := s.Products.DeleteProduct(ctx, id)
	if err != nil {
		return nil, s.fail("delete product", actor, err)
	}
	s.mutated(ctx, "product deleted", actor, zap.Int("product_id", id), zap.Bool("hard", hard))
	return &DeleteProductResult{ProductID: id, HardDeleted: hard}, nil
}

func (s *appService) ListCategories(ctx context.Context, actor core.Actor) ([]core.Category, error) {
	if err := s.check(actor, core.OpProductRead, nil); err != nil {
		return nil, err
	}
	return s.Products.ListCategories(ctx)
}

func (s *appService) CreateCategory(ctx context.Context, actor core.Actor, req CategoryRequest) (*core.Category, error) {
	if err := s.check(actor, core.OpCategoryWrite, req); err != nil {
		return nil, err
	}
	c, err := s.Products.CreateCategory(ctx, req.Name, req.Description)
	if err != nil {
		return nil, s.fail("create category", actor, err)
	}
	s.log.Info("category created", zap.Int("category_id", c.ID), zap.Int("actor_id", actor.UserID))
	return c, nil
}

func (s *appService) ImportProducts(ctx context.Context, actor core.Actor, r io.Reader) (*ImportResult, error) {
	if err := s.check(actor, core.OpProductImport, nil); err != nil {
		return nil, err
	}
	rows, rowErrs, err := export.ReadProducts(r)
	if err != nil {
		return nil, core.InvalidInputf("unreadable workbook: %v", err)
	}

	res := &ImportResult{Errors: rowErrors(rowErrs)}

	cats, err := s.Products.ListCategories(ctx)
	if err != nil {
		return nil, s.fail("import products", actor, err)
	}
	categoryIDs := make(map[string]int, len(cats))
	for _, c := range cats {
		categoryIDs[strings.ToLower(c.Name)] = c.ID
	}

	for _, row := range rows {
		in := row.Input
		if row.CategoryName != "" {
			id, ok := categoryIDs[strings.ToLower(row.CategoryName)]
			if !ok {
				c, err := s.Products.CreateCategory(ctx, row.CategoryName, "")
				if err != nil {
					if core.KindOf(err) == "" {
						return nil, s.fail("import products", actor, err)
					}
					res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", row.Row, err))
					continue
				}
				id = c.ID
				categoryIDs[strings.ToLower(c.Name)] = id
				res.CategoriesCreated++
			}
			in.CategoryID = &id
		}

		created, _, err := s.Products.UpsertBySKU(ctx, in, actor)
		if err != nil {
			if core.KindOf(err) == "" {
				return nil, s.fail("import products", actor, err)
			}
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", row.Row, err))
			continue
		}
		if created {
			res.Imported++
		} else {
			res.Updated++
		}
	}

	if res.Imported+res.Updated > 0 {
		s.mutated(ctx, "products imported", actor,
			zap.Int("imported", res.Imported),
			zap.Int("updated", res.Updated),
			zap.Int("errors", len(res.Errors)))
	}
	return res, nil
}

// ── Inventory ────────────────────────────────────────────────────────────────

func (s *appService) ListMovements(ctx context.Context, actor core.Actor, filter core.MovementFilter) (*MovementListResult, error) {
	if err := s.check(actor, core.OpInventoryRead, nil); err != nil {
		return nil, err
	}
	movements, page, err := s.Inventory.ListMovements(ctx, filter)
	if err != nil {
		return nil, s.fail("list movements", actor, err)
	}
	return &MovementListResult{Movements: movements, Page: page}, nil
}

func (s *appService) StockIn(ctx context.Context, actor core.Actor, req StockRequest) (*core.Movement, error) {
	if err := s.check(actor, core.OpStockMutate, req); err != nil {
		return nil, err
	}
	m, err := s.Inventory.StockIn(ctx, req.ProductID, req.Quantity, req.Notes, actor)
	if err != nil {
		return nil, s.fail("stock in", actor, err)
	}
	s.mutated(ctx, "stock in", actor, zap.Int("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
	return m, nil
}

func (s *appService) StockOut(ctx context.Context, actor core.Actor, req StockRequest) (*core.Movement, error) {
	if err := s.check(actor, core.OpStockMutate, req); err != nil {
		return nil, err
	}
	m, err := s.Inventory.StockOut(ctx, req.ProductID, req.Quantity, req.Notes, actor)
	if err != nil {
		return nil, s.fail("stock out", actor, err)
	}
	s.mutated(ctx, "stock out", actor, zap.Int("product_id", req.ProductID), zap.Int("quantity", req.Quantity))
	return m, nil
}

func (s *appService) RecordMovement(ctx context.Context, actor core.Actor, req MovementRequest) (*core.Movement, error) {
	if err := s.check(actor, core.OpStockMutate, req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	m, err := s.Inventory.RecordMovement(ctx, in, actor)
	if err != nil {
		return nil, s.fail("record movement", actor, err)
	}
	s.mutated(ctx, "movement recorded", actor, zap.Int("movement_id", m.ID), zap.String("status", string(m.Status)))
	return m, nil
}

func (s *appService) CompleteMovement(ctx context.Context, actor core.Actor, id int) (*core.Movement, error) {
	if err := s.check(actor, core.OpStockMutate, nil); err != nil {
		return nil, err
	}
	m, err := s.Inventory.CompleteMovement(ctx, id)
	if err != nil {
		return nil, s.fail("complete movement", actor, err)
	}
	s.mutated(ctx, "movement completed", actor, zap.Int("movement_id", id))
	return m, nil
}

func (s *appService) ReverseMovement(ctx context.Context, actor core.Actor, id int) error {
	if err := s.check(actor, core.OpMovementDelete, nil); err != nil {
		return err
	}
	if err := s.Inventory.ReverseMovement(ctx, id); err != nil {
		return s.fail("reverse movement", actor, err)
	}
	s.mutated(ctx, "movement reversed", actor, zap.Int("movement_id", id))
	return nil
}

func (s *appService) LowStock(ctx context.Context, actor core.Actor) (*core.LowStockReport, error) {
	if err := s.check(actor, core.OpInventoryRead, nil); err != nil {
		return nil, err
	}
	return s.Inventory.LowStockReport(ctx)
}

func (s *appService) AuditStock(ctx context.Context, actor core.Actor) ([]core.StockDiscrepancy, error) {
	if err := s.check(actor, core.OpInventoryAudit, nil); err != nil {
		return nil, err
	}
	out, err := s.Inventory.AuditStock(ctx)
	if err != nil {
		return nil, s.fail("audit stock", actor, err)
	}
	if len(out) > 0 {
		s.log.Warn("stock ledger discrepancies found", zap.Int("products", len(out)))
	}
	return out, nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

func (s *appService) ListSales(ctx context.Context, actor core.Actor, filter core.SaleFilter) (*SaleListResult, error) {
	if err := s.check(actor, core.OpSaleRead, nil); err != nil {
		return nil, err
	}
	sales, page, err := s.Sales.ListSales(ctx, filter)
	if err != nil {
		return nil, s.fail("list sales", actor, err)
	}
	return &SaleListResult{Sales: sales, Page: page}, nil
}

func (s *appService) GetSale(ctx context.Context, actor core.Actor, id int) (*core.Sale, error) {
	if err := s.check(actor, core.OpSaleRead, nil); err != nil {
		return nil, err
	}
	return s.Sales.GetSale(ctx, id)
}

func (s *appService) CreateSale(ctx context.Context, actor core.Actor, req SaleRequest) (*core.Sale, error) {
	if err := s.check(actor, core.OpSaleCreate, req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	sale, err := s.Sales.CreateSale(ctx, in, actor)
	if err != nil {
		return nil, s.fail("create sale", actor, err)
	}
	s.mutated(ctx, "sale created", actor,
		zap.Int("sale_id", sale.ID),
		zap.String("invoice", sale.InvoiceNumber),
		zap.String("total", sale.TotalAmount.StringFixed(2)))
	s.cache.PublishSale(ctx, cache.SaleEvent{
		Type:          cache.SaleCreated,
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		Total:         sale.TotalAmount,
		ActorID:       actor.UserID,
	})
	return sale, nil
}

func (s *appService) UpdateSale(ctx context.Context, actor core.Actor, id int, req SalePatchRequest) (*core.Sale, error) {
	if err := s.check(actor, core.OpSaleUpdate, req); err != nil {
		return nil, err
	}
	sale, err := s.Sales.UpdateSale(ctx, id, req.toUpdate())
	if err != nil {
		return nil, s.fail("update sale", actor, err)
	}
	s.mutated(ctx, "sale updated", actor, zap.Int("sale_id", id))
	return sale, nil
}

func (s *appService) VoidSale(ctx context.Context, actor core.Actor, id int, req VoidRequest) (*core.Sale, error) {
	if err := s.check(actor, core.OpSaleVoid, req); err != nil {
		return nil, err
	}
	sale, err := s.Sales.VoidSale(ctx, id, req.Reason, actor)
	if err != nil {
		return nil, s.fail("void sale", actor, err)
	}
	s.mutated(ctx, "sale voided", actor, zap.Int("sale_id", id), zap.String("invoice", sale.InvoiceNumber))
	s.cache.PublishSale(ctx, cache.SaleEvent{
		Type:          cache.SaleVoided,
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		Total:         sale.TotalAmount,
		ActorID:       actor.UserID,
	})
	return sale, nil
}

func (s *appService) ListCustomers(ctx context.Context, actor core.Actor) ([]core.Customer, error) {
	if err := s.check(actor, core.OpSaleRead, nil); err != nil {
		return nil, err
	}
	return s.Sales.ListCustomers(ctx)
}

func (s *appService) CreateCustomer(ctx context.Context, actor core.Actor, req CustomerRequest) (*core.Customer, error) {
	if err := s.check(actor, core.OpCustomerWrite, req); err != nil {
		return nil, err
	}
	c, err := s.Sales.CreateCustomer(ctx, core.CustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return nil, s.fail("create customer", actor, err)
	}
	s.log.Info("customer created", zap.Int("customer_id", c.ID), zap.Int("actor_id", actor.UserID))
	return c, nil
}

// ── Payroll ──────────────────────────────────────────────────────────────────

func (s *appService) ListEmployees(ctx context.Context, actor core.Actor) ([]core.Employee, error) {
	if err := s.check(actor, core.OpEmployeeRead, nil); err != nil {
		return nil, err
	}
	return s.Users.ListEmployees(ctx)
}

func (s *appService) ListPayroll(ctx context.Context, actor core.Actor, filter core.PayrollFilter) (*PayrollListResult, error) {
	if err := s.check(actor, core.OpPayrollRead, nil); err != nil {
		return nil, err
	}
	records, page, err := s.Payroll.ListRecords(ctx, filter)
	if err != nil {
		return nil, s.fail("list payroll", actor, err)
	}
	return &PayrollListResult{Records: records, Page: page}, nil
}

func (s *appService) CreatePayroll(ctx context.Context, actor core.Actor, req PayrollRequest) (*core.PayrollRecord, error) {
	if err := s.check(actor, core.OpPayrollWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toInput()
	if err != nil {
		return nil, err
	}
	rec, err := s.Payroll.CreateRecord(ctx, in)
	if err != nil {
		return nil, s.fail("create payroll", actor, err)
	}
	s.mutated(ctx, "payroll record created", actor,
		zap.Int("record_id", rec.ID),
		zap.Int("employee_id", rec.EmployeeID),
		zap.String("net_pay", rec.NetPay.StringFixed(2)))
	return rec, nil
}

func (s *appService) UpdatePayroll(ctx context.Context, actor core.Actor, id int, req PayrollPatchRequest) (*core.PayrollRecord, error) {
	if err := s.check(actor, core.OpPayrollWrite, req); err != nil {
		return nil, err
	}
	upd, err := req.toUpdate()
	if err != nil {
		return nil, err
	}
	rec, err := s.Payroll.UpdateRecord(ctx, id, upd)
	if err != nil {
		return nil, s.fail("update payroll", actor, err)
	}
	s.mutated(ctx, "payroll record updated", actor, zap.Int("record_id", id))
	return rec, nil
}

func (s *appService) DeletePayroll(ctx context.Context, actor core.Actor, id int) error {
	if err := s.check(actor, core.OpPayrollDelete, nil); err != nil {
		return err
	}
	if err := s.Payroll.DeleteRecord(ctx, id); err != nil {
		return s.fail("delete payroll", actor, err)
	}
	s.mutated(ctx, "payroll record deleted", actor, zap.Int("record_id", id))
	return nil
}

func (s *appService) MarkPayrollPaid(ctx context.Context, actor core.Actor, id int, req MarkPaidRequest) (*core.PayrollRecord, error) {
	if err := s.check(actor, core.OpPayrollPay, req); err != nil {
		return nil, err
	}
	rec, err := s.Payroll.MarkPaid(ctx, id, req.PaymentMethod)
	if err != nil {
		return nil, s.fail("pay payroll", actor, err)
	}
	s.mutated(ctx, "payroll record paid", actor, zap.Int("record_id", id))
	return rec, nil
}

func (s *appService) PayrollSummary(ctx context.Context, actor core.Actor, year, month int) (*core.PayrollSummary, error) {
	if err := s.check(actor, core.OpPayrollRead, nil); err != nil {
		return nil, err
	}
	return s.Payroll.Summary(ctx, year, month)
}

// ── Finance ledgers ──────────────────────────────────────────────────────────

func (s *appService) ListExpenses(ctx context.Context, actor core.Actor, filter core.LedgerFilter) (*ExpenseListResult, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	items, page, err := s.Ledger.ListExpenses(ctx, filter)
	if err != nil {
		return nil, s.fail("list expenses", actor, err)
	}
	return &ExpenseListResult{Expenses: items, Page: page}, nil
}

func (s *appService) CreateExpense(ctx context.Context, actor core.Actor, req ExpenseRequest) (*core.Expense, error) {
	if err := s.check(actor, core.OpFinanceWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toExpense()
	if err != nil {
		return nil, err
	}
	e, err := s.Ledger.CreateExpense(ctx, in, actor)
	if err != nil {
		return nil, s.fail("create expense", actor, err)
	}
	s.mutated(ctx, "expense recorded", actor, zap.Int("expense_id", e.ID), zap.String("category", e.Category))
	return e, nil
}

func (s *appService) ListAssets(ctx context.Context, actor core.Actor) ([]core.Asset, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	return s.Ledger.ListAssets(ctx)
}

func (s *appService) CreateAsset(ctx context.Context, actor core.Actor, req AssetRequest) (*core.Asset, error) {
	if err := s.check(actor, core.OpFinanceWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toAsset()
	if err != nil {
		return nil, err
	}
	a, err := s.Ledger.CreateAsset(ctx, in)
	if err != nil {
		return nil, s.fail("create asset", actor, err)
	}
	s.mutated(ctx, "asset recorded", actor, zap.Int("asset_id", a.ID))
	return a, nil
}

func (s *appService) ListLiabilities(ctx context.Context, actor core.Actor) ([]core.Liability, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	return s.Ledger.ListLiabilities(ctx)
}

func (s *appService) CreateLiability(ctx context.Context, actor core.Actor, req LiabilityRequest) (*core.Liability, error) {
	if err := s.check(actor, core.OpFinanceWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toLiability()
	if err != nil {
		return nil, err
	}
	l, err := s.Ledger.CreateLiability(ctx, in)
	if err != nil {
		return nil, s.fail("create liability", actor, err)
	}
	s.mutated(ctx, "liability recorded", actor, zap.Int("liability_id", l.ID))
	return l, nil
}

func (s *appService) ListEquity(ctx context.Context, actor core.Actor) ([]core.EquityEntry, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	return s.Ledger.ListEquity(ctx)
}

func (s *appService) CreateEquity(ctx context.Context, actor core.Actor, req EquityRequest) (*core.EquityEntry, error) {
	if err := s.check(actor, core.OpFinanceWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toEntry()
	if err != nil {
		return nil, err
	}
	e, err := s.Ledger.CreateEquity(ctx, in)
	if err != nil {
		return nil, s.fail("create equity entry", actor, err)
	}
	s.mutated(ctx, "equity entry recorded", actor, zap.Int("equity_id", e.ID))
	return e, nil
}

func (s *appService) ListCashFlows(ctx context.Context, actor core.Actor, filter core.LedgerFilter) (*CashFlowListResult, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	items, page, err := s.Ledger.ListCashFlows(ctx, filter)
	if err != nil {
		return nil, s.fail("list cash flows", actor, err)
	}
	return &CashFlowListResult{CashFlows: items, Page: page}, nil
}

func (s *appService) CreateCashFlow(ctx context.Context, actor core.Actor, req CashFlowRequest) (*core.CashFlowEntry, error) {
	if err := s.check(actor, core.OpFinanceWrite, req); err != nil {
		return nil, err
	}
	in, err := req.toEntry()
	if err != nil {
		return nil, err
	}
	c, err := s.Ledger.CreateCashFlow(ctx, in)
	if err != nil {
		return nil, s.fail("create cash flow", actor, err)
	}
	s.mutated(ctx, "cash flow recorded", actor, zap.Int("cash_flow_id", c.ID))
	return c, nil
}

func (s *appService) DeleteLedgerEntry(ctx context.Context, actor core.Actor, kind core.LedgerKind, id int) error {
	if err := s.check(actor, core.OpFinanceWrite, nil); err != nil {
		return err
	}
	if err := s.Ledger.DeleteEntry(ctx, kind, id); err != nil {
		return s.fail("delete ledger entry", actor, err)
	}
	s.mutated(ctx, "ledger entry deleted", actor, zap.String("ledger", string(kind)), zap.Int("id", id))
	return nil
}

func (s *appService) GetBudgetTarget(ctx context.Context, actor core.Actor, year int, month *int) (*core.BudgetTarget, error) {
	if err := s.check(actor, core.OpFinanceRead, nil); err != nil {
		return nil, err
	}
	return s.Ledger.GetBudgetTarget(ctx, year, month)
}

func (s *appService) SetBudgetTarget(ctx context.Context, actor core.Actor, req BudgetTargetRequest) (*core.BudgetTarget, error) {
	if err := s.check(actor, core.OpBudgetWrite, req); err != nil {
		return nil, err
	}
	t, err := s.Ledger.UpsertBudgetTarget(ctx, req.toTarget())
	if err != nil {
		return nil, s.fail("set budget target", actor, err)
	}
	s.mutated(ctx, "budget target saved", actor, zap.Int("year", t.Year))
	return t, nil
}

func (s *appService) GetSettings(ctx context.Context, actor core.Actor) (*core.BusinessSettings, error) {
	if err := s.check(actor, core.OpSettingsRead, nil); err != nil {
		return nil, err
	}
	return s.Ledger.GetSettings(ctx)
}

func (s *appService) UpdateSettings(ctx context.Context, actor core.Actor, req SettingsRequest) (*core.BusinessSettings, error) {
	if err := s.check(actor, core.OpSettingsWrite, req); err != nil {
		return nil, err
	}
	out, err := s.Ledger.UpdateSettings(ctx, req.toSettings())
	if err != nil {
		return nil, s.fail("update settings", actor, err)
	}
	s.mutated(ctx, "settings updated", actor)
	return out, nil
}
