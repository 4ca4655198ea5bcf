package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ledger failure so callers can react without parsing messages.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindNotFound          ErrorKind = "not_found"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindConflict          ErrorKind = "conflict"
	KindInternal          ErrorKind = "internal"
)

// Error carries the failure kind plus the offending entity.
type Error struct {
	Kind    ErrorKind
	Entity  string
	ID      string
	Message string
	Err     error
}

// Sentinels for errors.Is checks; they match any Error of the same kind.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInternal          = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	switch {
	case e.Entity != "" && e.ID != "":
		msg = fmt.Sprintf("%s %s: %s", e.Entity, e.ID, msg)
	case e.Entity != "":
		msg = fmt.Sprintf("%s: %s", e.Entity, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Entity == "" && t.ID == ""
}

// KindOf extracts the kind of err, treating anything unclassified as internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func newError(kind ErrorKind, entity, id, format string, args ...any) *Error {
	return &Error{Kind: kind, Entity: entity, ID: id, Message: fmt.Sprintf(format, args...)}
}

// Validationf reports malformed or out-of-range input.
func Validationf(entity, id, format string, args ...any) error {
	return newError(KindValidation, entity, id, format, args...)
}

// NotFound reports a missing entity.
func NotFound(entity, id string) error {
	return newError(KindNotFound, entity, id, "not found")
}

// InsufficientStockf reports a raw or prepared stock shortfall.
func InsufficientStockf(entity, id, format string, args ...any) error {
	return newError(KindInsufficientStock, entity, id, format, args...)
}

// Conflictf reports a referential-integrity violation or a lock timeout.
func Conflictf(entity, id, format string, args ...any) error {
	return newError(KindConflict, entity, id, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(entity string, err error) error {
	return &Error{Kind: KindInternal, Entity: entity, Message: "internal error", Err: err}
}
