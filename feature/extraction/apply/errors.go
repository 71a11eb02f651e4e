package apply

import (
	"errors"
	"fmt"

	"listing-manager/core/database"
	"listing-manager/feature/inventory"
)

// ValidationError reports a change whose payload is missing data the
// mutation needs. The change fails, the batch continues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports that the mutation target vanished between diff time
// and apply time. The change fails, the batch continues.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConstraintError reports a storage-level integrity violation, a duplicate
// offer tuple or a referential conflict. The change fails, the batch
// continues.
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string { return e.Message }

// FatalError aborts the whole invocation. It is reserved for recovered
// panics and other states the engine cannot attribute to a single change.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

func constraintf(format string, args ...any) error {
	return &ConstraintError{Message: fmt.Sprintf(format, args...)}
}

// resolveErr maps reference-vocabulary failures onto the apply taxonomy.
func resolveErr(err error) error {
	if errors.Is(err, inventory.ErrEmptyName) {
		return &ValidationError{Message: err.Error()}
	}
	if database.IsDuplicateKeyErr(err) {
		return &ConstraintError{Message: err.Error()}
	}
	return err
}
