package service

import (
	"errors"
	"fmt"

	"posbackend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrorKind classifies failures surfaced to API callers.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindValidation        ErrorKind = "VALIDATION_ERROR"
	KindConflict          ErrorKind = "CONFLICT"
	KindInsufficientStock ErrorKind = "INSUFFICIENT_STOCK"
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindInternal          ErrorKind = "INTERNAL_ERROR"
)

// Error is a classified failure. Message is safe to show to the caller; Err is kept for logs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

// InsufficientStockError reports a line whose quantity exceeds the product's stock.
type InsufficientStockError struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductName, e.Requested, e.Available)
}

// KindOf returns the classification of err; unclassified errors are internal.
func KindOf(err error) ErrorKind {
	var stockErr *InsufficientStockError
	if errors.As(err, &stockErr) {
		return KindInsufficientStock
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// fail passes classified errors through and turns anything else into a logged Internal error.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal {
		return err
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	logrus.WithError(err).WithField("op", op).Error("unexpected failure")
	return &Error{Kind: KindInternal, Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// notFoundOr maps a missing row to NotFound and leaves other errors for fail.
func notFoundOr(err error, format string, args ...interface{}) error {
	if repository.IsNotFound(err) {
		return NotFound(format, args...)
	}
	return err
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, Validation("invalid %s: %q is not a valid id", field, raw)
	}
	return id, nil
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := parseID(*raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseActor(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, Unauthorized("missing or invalid user identity")
	}
	return id, nil
}
