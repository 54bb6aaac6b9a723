// Package store is the entry store: a durable table of sealed records with
// plaintext reads through the codec and live per-journal subscriptions.
//
// Every operation takes a journal id. Mutations of one journal are serialized
// and each one commits in its own transaction before subscribers of that
// journal receive the new snapshot, so observers never see a partial write.
package store

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/xjournal/internal/codec"
	"github.com/dmitrijs2005/xjournal/internal/dbx"
	"github.com/dmitrijs2005/xjournal/internal/logging"
	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/dmitrijs2005/xjournal/internal/repositories/records"
	"github.com/google/uuid"
)

// Codec seals and opens entries. *codec.Codec implements it.
type Codec interface {
	Seal(e models.JournalEntry) (models.EncryptedRecord, error)
	Open(r models.EncryptedRecord) (models.JournalEntry, error)
}

type Store struct {
	db      *sql.DB
	repo    records.Repository
	newRepo func(dbx.DBTX) records.Repository
	codec   Codec
	logger  logging.Logger
	now     func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	subsMu sync.Mutex
	subs   map[string]map[*Subscription]struct{}
}

type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New builds a Store over an already migrated database (see records.OpenDB).
func New(db *sql.DB, c Codec, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:    db,
		repo:  records.NewSQLiteRepository(db),
		codec: c,
		newRepo: func(tx dbx.DBTX) records.Repository {
			return records.NewSQLiteRepository(tx)
		},
		logger: logger.With("component", "store"),
		now:    time.Now,
		locks:  make(map[string]*sync.Mutex),
		subs:   make(map[string]map[*Subscription]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) journalLock(journalID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[journalID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[journalID] = m
	}
	return m
}

// Save seals e and replaces any stored record with the same id.
//
// An empty e.ID creates a new entry with a fresh id and CreatedAt set to now.
// For an existing id the stored CreatedAt is kept. LastModified becomes
// max(now, previous LastModified, CreatedAt) and the sync state is reset to
// NOT_SYNCED. The saved entry is returned.
func (s *Store) Save(ctx context.Context, e models.JournalEntry) (models.JournalEntry, error) {
	if e.JournalID == "" {
		return models.JournalEntry{}, ErrJournalRequired
	}

	mu := s.journalLock(e.JournalID)
	mu.Lock()
	defer mu.Unlock()

	now := s.now().Unix()
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)

		var prevModified int64
		if e.ID == "" {
			e.ID = uuid.NewString()
			e.CreatedAt = now
		} else {
			h, err := repo.Header(ctx, e.ID)
			switch {
			case errors.Is(err, records.ErrNotFound):
				if e.CreatedAt == 0 {
					e.CreatedAt = now
				}
			case err != nil:
				return err
			case h.JournalID != e.JournalID:
				return ErrJournalMismatch
			default:
				e.CreatedAt = h.CreatedAt
				prevModified = h.LastModified
			}
		}

		e.LastModified = max(now, prevModified, e.CreatedAt)
		e.SyncStatus = models.StatusNotSynced
		e.LastSyncError = models.FailureNone

		rec, err := s.codec.Seal(e)
		if err != nil {
			return err
		}
		return repo.Upsert(ctx, &rec)
	})
	if err != nil {
		return models.JournalEntry{}, wrapErr("save", err)
	}

	s.logger.Debug(ctx, "entry saved", "id", e.ID, "journal", e.JournalID)
	s.publish(ctx, e.JournalID)
	return e, nil
}

// Delete removes the entry. Deleting an absent id is a no-op.
func (s *Store) Delete(ctx context.Context, id, journalID string) error {
	if journalID == "" {
		return ErrJournalRequired
	}

	mu := s.journalLock(journalID)
	mu.Lock()
	defer mu.Unlock()

	deleted, err := s.repo.DeleteByID(ctx, id, journalID)
	if err != nil {
		return wrapErr("delete", err)
	}
	if deleted {
		s.logger.Debug(ctx, "entry deleted", "id", id, "journal", journalID)
		s.publish(ctx, journalID)
	}
	return nil
}

// Get returns the decrypted entry or ErrNotFound.
func (s *Store) Get(ctx context.Context, id, journalID string) (*models.JournalEntry, error) {
	rec, err := s.Record(ctx, id, journalID)
	if err != nil {
		return nil, err
	}
	e, err := s.codec.Open(*rec)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Record returns the sealed record as stored, or ErrNotFound.
func (s *Store) Record(ctx context.Context, id, journalID string) (*models.EncryptedRecord, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	rec, err := s.repo.GetByID(ctx, id, journalID)
	if errors.Is(err, records.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get", err)
	}
	return rec, nil
}

// List returns all entries of the journal, newest created first.
func (s *Store) List(ctx context.Context, journalID string) ([]models.JournalEntry, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	recs, err := s.repo.ListByJournal(ctx, journalID)
	if err != nil {
		return nil, wrapErr("list", err)
	}
	return s.openAll(recs)
}

// ListRange returns entries created in [from, to), newest first.
func (s *Store) ListRange(ctx context.Context, journalID string, from, to time.Time) ([]models.JournalEntry, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	recs, err := s.repo.ListRange(ctx, journalID, from.Unix(), to.Unix())
	if err != nil {
		return nil, wrapErr("list range", err)
	}
	return s.openAll(recs)
}

// ListBySyncStatus returns a one-off snapshot of the journal's entries in the
// given state, oldest created first.
func (s *Store) ListBySyncStatus(ctx context.Context, status models.SyncStatus, journalID string) ([]models.JournalEntry, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	recs, err := s.repo.ListByStatus(ctx, journalID, status)
	if err != nil {
		return nil, wrapErr("list by status", err)
	}
	return s.openAll(recs)
}

// Records returns the sealed records of the journal in listing order.
func (s *Store) Records(ctx context.Context, journalID string) ([]models.EncryptedRecord, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	recs, err := s.repo.ListByJournal(ctx, journalID)
	if err != nil {
		return nil, wrapErr("list records", err)
	}
	return recs, nil
}

// RecordsBySyncStatus is ListBySyncStatus without decryption, so that one
// damaged record does not hide the others from the sync engine.
func (s *Store) RecordsBySyncStatus(ctx context.Context, status models.SyncStatus, journalID string) ([]models.EncryptedRecord, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	recs, err := s.repo.ListByStatus(ctx, journalID, status)
	if err != nil {
		return nil, wrapErr("list by status", err)
	}
	return recs, nil
}

// MarkSyncStatus records the outcome of a sync attempt. It is called by the
// sync engine only. The update applies only if rec is still the stored
// version of the entry; a save that happened in between wins, and false is
// returned.
func (s *Store) MarkSyncStatus(ctx context.Context, rec models.EncryptedRecord, status models.SyncStatus, failure models.FailureKind) (bool, error) {
	if rec.JournalID == "" {
		return false, ErrJournalRequired
	}

	mu := s.journalLock(rec.JournalID)
	mu.Lock()
	defer mu.Unlock()

	applied, err := s.repo.UpdateSyncStatus(ctx, rec, status, failure)
	if err != nil {
		return false, wrapErr("mark sync status", err)
	}
	if applied {
		s.publish(ctx, rec.JournalID)
	}
	return applied, nil
}

// ExportAll writes the ciphertext blob of every entry of the journal to w,
// one per line, in listing order. It returns the number of complete lines
// that reached w, also when writing fails part way.
func (s *Store) ExportAll(ctx context.Context, journalID string, w io.Writer) (int, error) {
	if journalID == "" {
		return 0, ErrJournalRequired
	}
	recs, err := s.Records(ctx, journalID)
	if err != nil {
		return 0, err
	}

	lw := &lineCounter{w: w}
	bw := bufio.NewWriter(lw)
	for _, r := range recs {
		if _, err := bw.WriteString(r.CiphertextBlob); err != nil {
			return lw.lines, err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return lw.lines, err
		}
	}
	if err := bw.Flush(); err != nil {
		return lw.lines, err
	}
	return lw.lines, nil
}

// lineCounter counts the newlines accepted by w.
type lineCounter struct {
	w     io.Writer
	lines int
}

func (c *lineCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.lines += bytes.Count(p[:n], []byte{'\n'})
	return n, err
}

func (s *Store) openAll(recs []models.EncryptedRecord) ([]models.JournalEntry, error) {
	out := make([]models.JournalEntry, 0, len(recs))
	for _, r := range recs {
		e, err := s.codec.Open(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func wrapErr(op string, err error) error {
	var se *StoreError
	switch {
	case errors.As(err, &se),
		errors.Is(err, ErrJournalMismatch),
		errors.Is(err, ErrNotFound),
		errors.Is(err, codec.ErrInvalidText),
		errors.Is(err, codec.ErrIntegrity),
		errors.Is(err, codec.ErrMalformedData):
		return err
	}
	return &StoreError{Op: op, Err: err}
}
