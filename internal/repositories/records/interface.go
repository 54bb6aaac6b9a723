package records

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/xjournal/internal/models"
)

var ErrNotFound = errors.New("record not found")

// Header is the unencrypted part of a stored record.
type Header struct {
	ID           string
	JournalID    string
	CreatedAt    int64
	LastModified int64
}

// Repository describes storage operations on sealed records.
type Repository interface {
	// Upsert inserts r or fully replaces the row with the same id.
	Upsert(ctx context.Context, r *models.EncryptedRecord) error

	// Header returns the clear columns of the row with the given id in any
	// journal. It is used to keep ids unique and creation times immutable.
	Header(ctx context.Context, id string) (*Header, error)

	// GetByID returns the row or ErrNotFound.
	GetByID(ctx context.Context, id, journalID string) (*models.EncryptedRecord, error)

	// DeleteByID removes the row and reports whether one existed.
	DeleteByID(ctx context.Context, id, journalID string) (bool, error)

	// ListByJournal returns all rows of a journal, newest created first.
	ListByJournal(ctx context.Context, journalID string) ([]models.EncryptedRecord, error)

	// ListRange returns rows with from <= created_at < to, newest created first.
	ListRange(ctx context.Context, journalID string, from, to int64) ([]models.EncryptedRecord, error)

	// ListByStatus returns rows in the given sync state, oldest created first.
	ListByStatus(ctx context.Context, journalID string, status models.SyncStatus) ([]models.EncryptedRecord, error)

	// UpdateSyncStatus sets the sync columns of r only if the stored blob is
	// still r.CiphertextBlob. It reports whether a row was updated.
	UpdateSyncStatus(ctx context.Context, r models.EncryptedRecord, status models.SyncStatus, failure models.FailureKind) (bool, error)
}
