package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned for malformed input such as an empty session id.
	ErrValidation = errors.New("validation failed")

	// ErrStorage is returned when durable I/O fails. The index is left untouched.
	ErrStorage = errors.New("storage failure")

	// ErrCorruptRecord is returned when an on-disk record cannot be parsed.
	ErrCorruptRecord = errors.New("corrupt record")
)

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageError wraps err as a storage failure for the given operation.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// CorruptRecordError wraps err as a corrupt record failure for id.
func CorruptRecordError(id string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorruptRecord, id, err)
}
