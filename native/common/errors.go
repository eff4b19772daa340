package common

import (
	"errors"
	"fmt"
)

// The engines classify every failure into one of six categories. The first
// five are recoverable by the caller and surfaced verbatim over RPC; Fatal
// marks environment-level faults that abort the whole batch.
var (
	ErrValidation    = errors.New("validation failed")
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrPrecondition  = errors.New("precondition failed")
	ErrExhausted     = errors.New("exhausted")
	ErrFatal         = errors.New("fatal environment failure")
)

type categorized struct {
	category error
	err      error
}

func (c *categorized) Error() string { return c.err.Error() }

func (c *categorized) Unwrap() []error { return []error{c.category, c.err} }

// Wrap attaches a taxonomy category to err. errors.Is matches both the
// category sentinel and any sentinel wrapped inside err.
func Wrap(category, err error) error {
	if err == nil {
		return nil
	}
	return &categorized{category: category, err: err}
}

// Validationf builds a Validation-category error.
func Validationf(format string, args ...any) error {
	return Wrap(ErrValidation, fmt.Errorf(format, args...))
}

// NotFoundf builds a NotFound-category error.
func NotFoundf(format string, args ...any) error {
	return Wrap(ErrNotFound, fmt.Errorf(format, args...))
}

// AlreadyExistsf builds an AlreadyExists-category error.
func AlreadyExistsf(format string, args ...any) error {
	return Wrap(ErrAlreadyExists, fmt.Errorf(format, args...))
}

// Preconditionf builds a Precondition-category error.
func Preconditionf(format string, args ...any) error {
	return Wrap(ErrPrecondition, fmt.Errorf(format, args...))
}

// Exhaustedf builds an Exhausted-category error.
func Exhaustedf(format string, args ...any) error {
	return Wrap(ErrExhausted, fmt.Errorf(format, args...))
}

// Fatalf builds a Fatal-category error.
func Fatalf(format string, args ...any) error {
	return Wrap(ErrFatal, fmt.Errorf(format, args...))
}

// CategoryOf reports the taxonomy sentinel err belongs to, defaulting to
// ErrFatal for unclassified errors so unknown faults fail closed.
func CategoryOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, ErrPrecondition):
		return ErrPrecondition
	case errors.Is(err, ErrExhausted):
		return ErrExhausted
	default:
		return ErrFatal
	}
}
