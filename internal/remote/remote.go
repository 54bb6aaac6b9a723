// Package remote stores sync payloads as named objects.
//
// An ObjectStore is a write-only sink: the sync engine creates one object per
// entry version and never reads it back. Implementations wrap every transport
// or storage failure in ErrIO, which the engine treats as transient.
package remote

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrIO marks a failed upload. It is always retryable.
	ErrIO = errors.New("remote i/o error")
	// ErrInvalidName is returned for object names that are empty or contain a path.
	ErrInvalidName = errors.New("invalid object name")
)

// ObjectStore creates named objects and returns the id the backend assigned.
type ObjectStore interface {
	CreateObject(ctx context.Context, name string, payload []byte) (string, error)
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrIO, op, err)
}
