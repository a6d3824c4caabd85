package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by every store implementation. Services translate
// them into domain errors at their boundary.
var (
	ErrNotFound          = errors.New("entity not found")
	ErrDuplicate         = errors.New("entity already exists")
	ErrInvalidEntity     = errors.New("invalid entity")
	ErrTransactionFailed = errors.New("transaction failed")

	ErrItemNotFound       = fmt.Errorf("%w: item", ErrNotFound)
	ErrCollectionNotFound = fmt.Errorf("%w: collection", ErrNotFound)
	ErrSessionNotFound    = fmt.Errorf("%w: session", ErrNotFound)
	ErrProfileNotFound    = fmt.Errorf("%w: reminder profile", ErrNotFound)
)

// IsNotFoundError reports whether err is any entity's not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
