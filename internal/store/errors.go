package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("entry not found")
	ErrJournalRequired = errors.New("journal id is required")
	// ErrJournalMismatch is returned when an id already exists in another journal.
	ErrJournalMismatch = errors.New("entry belongs to another journal")
)

// StoreError wraps a persistence failure of a store operation.
// The store never retries; callers decide.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
