package core_test

import (
	"errors"
	"slices"
	"testing"

	"bizledger/internal/core"
)

func TestAuthorize(t *testing.T) {
	admin := core.Actor{UserID: 1, Role: core.RoleAdmin}
	ops := core.Actor{UserID: 2, Role: core.RoleOperationsManager}
	fin := core.Actor{UserID: 3, Role: core.RoleFinanceManager}
	emp := core.Actor{UserID: 4, Role: core.RoleEmployee}

	tests := []struct {
		op      core.Operation
		allowed []core.Actor
		denied  []core.Actor
	}{
		{core.OpStockMutate, []core.Actor{admin, ops}, []core.Actor{fin, emp}},
		{core.OpPayrollWrite, []core.Actor{admin, fin}, []core.Actor{ops, emp}},
		{core.OpPayrollPay, []core.Actor{admin, fin}, []core.Actor{ops, emp}},
		{core.OpProductDelete, []core.Actor{admin}, []core.Actor{ops, fin, emp}},
		{core.OpSaleVoid, []core.Actor{admin}, []core.Actor{ops, fin, emp}},
		{core.OpSaleCreate, []core.Actor{admin, ops}, []core.Actor{fin, emp}},
		{core.OpProductRead, []core.Actor{admin, ops, fin, emp}, nil},
		{core.OpFinanceRead, []core.Actor{admin, ops, fin}, []core.Actor{emp}},
		{core.OpSettingsWrite, []core.Actor{admin}, []core.Actor{ops, fin, emp}},
	}

	for _, tc := range tests {
		t.Run(tc.op.String(), func(t *testing.T) {
			for _, a := range tc.allowed {
				if err := core.Authorize(a, tc.op); err != nil {
					t.Errorf("role %s: expected access, got %v", a.Role, err)
				}
			}
			for _, a := range tc.denied {
				if err := core.Authorize(a, tc.op); !errors.Is(err, core.ErrForbidden) {
					t.Errorf("role %s: expected Forbidden, got %v", a.Role, err)
				}
			}
		})
	}
}

func TestAuthorize_UnknownOperationDenied(t *testing.T) {
	if err := core.Authorize(core.SystemActor, core.Operation("ledger.rewrite")); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("Expected Forbidden, got %v", err)
	}
}

func TestAuthorize_UnknownRoleDenied(t *testing.T) {
	if err := core.Authorize(core.Actor{UserID: 9, Role: "auditor"}, core.OpProductRead); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("Expected Forbidden, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	r, err := core.ParseRole("finance_manager")
	if err != nil || r != core.RoleFinanceManager {
		t.Errorf("Expected %s, got %s (%v)", core.RoleFinanceManager, r, err)
	}
	if _, err := core.ParseRole("superuser"); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("Expected InvalidInput, got %v", err)
	}
}

func TestAllowedRoles_ReturnsCopy(t *testing.T) {
	want := []core.Role{core.RoleAdmin}
	roles := core.AllowedRoles(core.OpSaleVoid)
	if !slices.Equal(want, roles) {
		t.Fatalf("Expected %v, got %v", want, roles)
	}

	roles[0] = core.RoleEmployee
	if got := core.AllowedRoles(core.OpSaleVoid); !slices.Equal(want, got) {
		t.Errorf("Mutating the result changed the table: %v", got)
	}
}
