package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NotFoundf("product %d not found", 7))

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected errors.Is(err, ErrNotFound)")
	}
	if errors.Is(err, ErrConflict) {
		t.Errorf("NotFound must not match ErrConflict")
	}
	if kind := KindOf(err); kind != KindNotFound {
		t.Errorf("Expected kind %s, got %s", KindNotFound, kind)
	}
	if want := "wrapped: product 7 not found"; err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestKindOf_InfrastructureErrorHasNoKind(t *testing.T) {
	if kind := KindOf(errors.New("connection refused")); kind != "" {
		t.Errorf("Expected no kind for a plain error, got %s", kind)
	}
	if kind := KindOf(nil); kind != "" {
		t.Errorf("Expected no kind for nil, got %s", kind)
	}
}

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		code string
		want ErrorKind
	}{
		{pgUniqueViolation, KindConflict},
		{pgForeignKeyViolation, KindNotFound},
		{pgCheckViolation, KindInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			err := mapWriteError(&pgconn.PgError{Code: tc.code, ConstraintName: "products_sku_key"}, "create product")
			if kind := KindOf(err); kind != tc.want {
				t.Errorf("Expected kind %s, got %s", tc.want, kind)
			}
			if !strings.Contains(err.Error(), "products_sku_key") {
				t.Errorf("Expected the constraint name in %q", err.Error())
			}
		})
	}

	raw := errors.New("broken pipe")
	err := mapWriteError(raw, "create product")
	if !errors.Is(err, raw) {
		t.Errorf("Expected the raw error to stay wrapped, got %v", err)
	}
	if kind := KindOf(err); kind != "" {
		t.Errorf("Expected no kind, got %s", kind)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgUniqueViolation})) {
		t.Errorf("Expected a wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: pgCheckViolation}) {
		t.Errorf("A check violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("nope")) {
		t.Errorf("A plain error is not a unique violation")
	}
}

func TestCheckReference(t *testing.T) {
	for _, ref := range []string{"", "PO-1182", "supplier return", "RMA-INV-20260301-0001"} {
		if err := checkReference(ref); err != nil {
			t.Errorf("checkReference(%q) = %v, want nil", ref, err)
		}
	}
	for _, ref := range []string{"INV-20260301-0001", "inv-20260301-0001", "VOID-INV-20260301-0001", "Void-x"} {
		err := checkReference(ref)
		var de *Error
		if !errors.As(err, &de) || de.Kind != KindInvalidInput {
			t.Errorf("checkReference(%q) = %v, want InvalidInput", ref, err)
			continue
		}
		if _, ok := de.Fields["reference"]; !ok {
			t.Errorf("checkReference(%q) should name the reference field, got %v", ref, de.Fields)
		}
	}
}
