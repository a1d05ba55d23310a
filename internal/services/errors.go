package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimasrn/finance-ledger/internal/repository"
	"github.com/nimasrn/finance-ledger/pkg/redis"
)

var (
	ErrValidation                     = errors.New("validation failed")
	ErrInvalidTransferEndpoints       = errors.New("transfer source and destination must differ")
	ErrRegisteredInstallmentImmutable = errors.New("registered installment cannot be changed this way")
	ErrRecurrenceInterrupted          = errors.New("recurrence is interrupted")
	ErrNotFound                       = errors.New("not found")
	ErrConcurrentUpdate               = errors.New("another update of the same entry is in progress")
)

// FieldError points at one offending input field, for example
// "lines[2].category_id".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Field + ": " + f.Message
}

// ValidationError collects every problem found in a request so that callers
// can report them together. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when nothing was collected.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, format string, args ...any) error {
	v := &ValidationError{}
	v.Add(field, format, args...)
	return v
}

// notFound maps repository sentinels onto ErrNotFound and leaves other
// errors alone.
func notFound(err error, what string, id int64) error {
	switch {
	case errors.Is(err, repository.ErrTransactionNotFound),
		errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrCategoryNotFound),
		errors.Is(err, repository.ErrBeneficiaryNotFound):
		return fmt.Errorf("%w: %s %d", ErrNotFound, what, id)
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, repository.ErrTransactionNotFound) ||
		errors.Is(err, repository.ErrAccountNotFound) ||
		errors.Is(err, repository.ErrCategoryNotFound) ||
		errors.Is(err, repository.ErrBeneficiaryNotFound)
}

func lockError(err error) error {
	if errors.Is(err, redis.ErrLockNotAcquired) {
		return fmt.Errorf("%w: %v", ErrConcurrentUpdate, err)
	}
	return err
}

// resultLabel classifies an operation outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentUpdate):
		return "locked"
	case errors.Is(err, ErrInvalidTransferEndpoints),
		errors.Is(err, ErrRegisteredInstallmentImmutable),
		errors.Is(err, ErrRecurrenceInterrupted):
		return "rejected"
	}
	return "error"
}
