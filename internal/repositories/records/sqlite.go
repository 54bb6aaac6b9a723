package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/xjournal/internal/dbx"
	"github.com/dmitrijs2005/xjournal/internal/models"
)

const selectColumns = `id, journal_id, ciphertext_blob, created_at, last_modified, sync_status, last_sync_error`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e *models.EncryptedRecord) error {
	query := `INSERT INTO journal_entries (id, journal_id, ciphertext_blob, created_at, last_modified, sync_status, last_sync_error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET journal_id = excluded.journal_id,
				ciphertext_blob = excluded.ciphertext_blob,
				created_at = excluded.created_at,
				last_modified = excluded.last_modified,
				sync_status = excluded.sync_status,
				last_sync_error = excluded.last_sync_error
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.JournalID, e.CiphertextBlob, e.CreatedAt, e.LastModified, string(e.SyncStatus), string(e.LastSyncError))
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Header(ctx context.Context, id string) (*Header, error) {
	query := `SELECT id, journal_id, created_at, last_modified FROM journal_entries WHERE id = ?`
	h := &Header{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&h.ID, &h.JournalID, &h.CreatedAt, &h.LastModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record header: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id, journalID string) (*models.EncryptedRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM journal_entries WHERE id = ? AND journal_id = ?`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, journalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id, journalID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ? AND journal_id = ?`, id, journalID)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListByJournal(ctx context.Context, journalID string) ([]models.EncryptedRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM journal_entries
		WHERE journal_id = ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, journalID)
}

func (r *SQLiteRepository) ListRange(ctx context.Context, journalID string, from, to int64) ([]models.EncryptedRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM journal_entries
		WHERE journal_id = ? AND created_at >= ? AND created_at < ? ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, journalID, from, to)
}

func (r *SQLiteRepository) ListByStatus(ctx context.Context, journalID string, status models.SyncStatus) ([]models.EncryptedRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM journal_entries
		WHERE journal_id = ? AND sync_status = ? ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, journalID, string(status))
}

func (r *SQLiteRepository) UpdateSyncStatus(ctx context.Context, rec models.EncryptedRecord, status models.SyncStatus, failure models.FailureKind) (bool, error) {
	query := `UPDATE journal_entries SET sync_status = ?, last_sync_error = ?
		WHERE id = ? AND journal_id = ? AND ciphertext_blob = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), string(failure), rec.ID, rec.JournalID, rec.CiphertextBlob)
	if err != nil {
		return false, fmt.Errorf("failed to update sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]models.EncryptedRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select records: %w", err)
	}
	defer rows.Close()

	result := []models.EncryptedRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		result = append(result, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.EncryptedRecord, error) {
	var (
		rec     models.EncryptedRecord
		status  string
		failure string
	)
	if err := s.Scan(&rec.ID, &rec.JournalID, &rec.CiphertextBlob, &rec.CreatedAt, &rec.LastModified, &status, &failure); err != nil {
		return nil, err
	}
	st, err := models.ParseSyncStatus(status)
	if err != nil {
		return nil, err
	}
	rec.SyncStatus = st
	rec.LastSyncError = models.FailureKind(failure)
	return &rec, nil
}
