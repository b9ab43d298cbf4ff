package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorKind is the stable classification of a domain failure.
// Adapters map kinds to transport status codes; the message is for humans.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindConflict          ErrorKind = "CONFLICT"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindImmutableRecord   ErrorKind = "IMMUTABLE_RECORD"
	KindAlreadyPaid       ErrorKind = "ALREADY_PAID"
)

// Error is a domain error carrying a kind. Store and connectivity failures are
// never wrapped in an Error, so they stay distinguishable from domain outcomes.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string // optional per-field detail for InvalidInput
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works for every NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrImmutableRecord   = &Error{Kind: KindImmutableRecord}
	ErrAlreadyPaid       = &Error{Kind: KindAlreadyPaid}
)

func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return newError(KindNotFound, format, args...)
}

func InvalidInputf(format string, args ...any) error {
	return newError(KindInvalidInput, format, args...)
}

func InsufficientStockf(format string, args ...any) error {
	return newError(KindInsufficientStock, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newError(KindConflict, format, args...)
}

func Forbiddenf(format string, args ...any) error {
	return newError(KindForbidden, format, args...)
}

func ImmutableRecordf(format string, args ...any) error {
	return newError(KindImmutableRecord, format, args...)
}

func AlreadyPaidf(format string, args ...any) error {
	return newError(KindAlreadyPaid, format, args...)
}

// InvalidFields builds an InvalidInput error with per-field detail.
func InvalidFields(message string, fields map[string]string) error {
	return &Error{Kind: KindInvalidInput, Message: message, Fields: fields}
}

// KindOf returns the domain kind of err, or "" for infrastructure errors.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// ── PostgreSQL error mapping ─────────────────────────────────────────────────

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func pgErrorCode(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgForeignKeyViolation
}

// mapWriteError converts constraint violations raised by a write into domain
// errors. Anything else is wrapped as an infrastructure failure.
func mapWriteError(err error, action string) error {
	code, constraint := pgErrorCode(err)
	switch code {
	case pgUniqueViolation:
		return Conflictf("%s: duplicate value violates %s", action, constraint)
	case pgForeignKeyViolation:
		return NotFoundf("%s: referenced record does not exist (%s)", action, constraint)
	case pgCheckViolation:
		return InvalidInputf("%s: value rejected by %s", action, constraint)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
