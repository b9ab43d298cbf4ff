package core

// Role is the caller's role as stored on the users table.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleOperationsManager Role = "operations_manager"
	RoleFinanceManager    Role = "finance_manager"
	RoleEmployee          Role = "employee"
)

// ParseRole validates a role string coming from storage or a token.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleOperationsManager, RoleFinanceManager, RoleEmployee:
		return r, nil
	}
	return "", InvalidInputf("unknown role %q", s)
}

// Actor identifies the authenticated caller of a core operation.
type Actor struct {
	UserID int
	Role   Role
}

// SystemActor is used by operator tooling (cmd/bizctl, cmd/seed).
var SystemActor = Actor{UserID: 0, Role: RoleAdmin}

// performedBy returns the user id to record on audit columns, or nil for the system actor.
func (a Actor) performedBy() *int {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// Operation names an authorizable core operation.
type Operation string

const (
	OpProductRead    Operation = "product.read"
	OpProductWrite   Operation = "product.write"
	OpProductDelete  Operation = "product.delete"
	OpProductImport  Operation = "product.import"
	OpCategoryWrite  Operation = "category.write"
	OpInventoryRead  Operation = "inventory.read"
	OpStockMutate    Operation = "inventory.mutate"
	OpMovementDelete Operation = "inventory.movement_delete"
	OpInventoryAudit Operation = "inventory.audit"
	OpSaleRead       Operation = "sale.read"
	OpSaleCreate     Operation = "sale.create"
	OpSaleUpdate     Operation = "sale.update"
	OpSaleVoid       Operation = "sale.void"
	OpCustomerWrite  Operation = "customer.write"
	OpPayrollRead    Operation = "payroll.read"
	OpPayrollWrite   Operation = "payroll.write"
	OpPayrollPay     Operation = "payroll.pay"
	OpPayrollDelete  Operation = "payroll.delete"
	OpFinanceRead    Operation = "finance.read"
	OpFinanceWrite   Operation = "finance.write"
	OpBudgetWrite    Operation = "budget.write"
	OpSettingsRead   Operation = "settings.read"
	OpSettingsWrite  Operation = "settings.write"
	OpReportRead     Operation = "report.read"
	OpReportExport   Operation = "report.export"
	OpEmployeeRead   Operation = "employee.read"
)

var (
	anyRole      = []Role{RoleAdmin, RoleOperationsManager, RoleFinanceManager, RoleEmployee}
	adminOnly    = []Role{RoleAdmin}
	operations   = []Role{RoleAdmin, RoleOperationsManager}
	finance      = []Role{RoleAdmin, RoleFinanceManager}
	managersOnly = []Role{RoleAdmin, RoleOperationsManager, RoleFinanceManager}
)

// capabilities is the single source of truth for who may call what.
// Operations missing from the table are denied.
var capabilities = map[Operation][]Role{
	OpProductRead:    anyRole,
	OpProductWrite:   operations,
	OpProductDelete:  adminOnly,
	OpProductImport:  operations,
	OpCategoryWrite:  operations,
	OpInventoryRead:  anyRole,
	OpStockMutate:    operations,
	OpMovementDelete: adminOnly,
	OpInventoryAudit: operations,
	OpSaleRead:       anyRole,
	OpSaleCreate:     operations,
	OpSaleUpdate:     operations,
	OpSaleVoid:       adminOnly,
	OpCustomerWrite:  operations,
	OpPayrollRead:    finance,
	OpPayrollWrite:   finance,
	OpPayrollPay:     finance,
	OpPayrollDelete:  adminOnly,
	OpFinanceRead:    managersOnly,
	OpFinanceWrite:   finance,
	OpBudgetWrite:    finance,
	OpSettingsRead:   anyRole,
	OpSettingsWrite:  adminOnly,
	OpReportRead:     anyRole,
	OpReportExport:   managersOnly,
	OpEmployeeRead:   finance,
}

// Authorize checks actor against the capability table for op.
func Authorize(actor Actor, op Operation) error {
	roles, ok := capabilities[op]
	if !ok {
		return Forbiddenf("operation %s is not permitted", op)
	}
	for _, r := range roles {
		if r == actor.Role {
			return nil
		}
	}
	return Forbiddenf("role %s may not perform %s", actor.Role, op)
}

// AllowedRoles returns the roles permitted for op, for diagnostics and docs.
func AllowedRoles(op Operation) []Role {
	roles := capabilities[op]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

func (r Role) String() string { return string(r) }

func (op Operation) String() string { return string(op) }
