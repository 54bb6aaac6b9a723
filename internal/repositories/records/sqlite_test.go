package records

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func rec(id, journal string, created int64, status models.SyncStatus) *models.EncryptedRecord {
	return &models.EncryptedRecord{
		ID:             id,
		JournalID:      journal,
		CiphertextBlob: "blob-" + id,
		CreatedAt:      created,
		LastModified:   created,
		SyncStatus:     status,
	}
}

func TestOpenDB_MigrationsAreIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM journal_entries`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestUpsert_InsertAndReplace(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, rec("a", "j1", 10, models.StatusSynced)))

	replaced := rec("a", "j1", 10, models.StatusNotSynced)
	replaced.CiphertextBlob = "blob-a-2"
	replaced.LastModified = 20
	require.NoError(t, r.Upsert(ctx, replaced))

	got, err := r.GetByID(ctx, "a", "j1")
	require.NoError(t, err)
	assert.Equal(t, *replaced, *got)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM journal_entries WHERE id = 'a'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestUpsert_RejectsLastModifiedBeforeCreated(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	bad := rec("a", "j1", 10, models.StatusNotSynced)
	bad.LastModified = 9
	require.Error(t, r.Upsert(context.Background(), bad))
}

func TestGetByID_ScopedToJournal(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, rec("a", "j1", 10, models.StatusNotSynced)))

	_, err := r.GetByID(ctx, "a", "j2")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = r.GetByID(ctx, "nope", "j1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestHeader(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, rec("a", "j1", 10, models.StatusNotSynced)))

	h, err := r.Header(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, Header{ID: "a", JournalID: "j1", CreatedAt: 10, LastModified: 10}, *h)

	_, err = r.Header(ctx, "b")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteByID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, rec("a", "j1", 10, models.StatusNotSynced)))

	deleted, err := r.DeleteByID(ctx, "a", "j2")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = r.DeleteByID(ctx, "a", "j1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = r.DeleteByID(ctx, "a", "j1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListings_OrderAndIsolation(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, rec("old", "j1", 10, models.StatusNotSynced)))
	require.NoError(t, r.Upsert(ctx, rec("new", "j1", 30, models.StatusNotSynced)))
	require.NoError(t, r.Upsert(ctx, rec("mid", "j1", 20, models.StatusSynced)))
	require.NoError(t, r.Upsert(ctx, rec("other", "j2", 15, models.StatusNotSynced)))

	all, err := r.ListByJournal(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(all))

	pending, err := r.ListByStatus(ctx, "j1", models.StatusNotSynced)
	require.NoError(t, err)
	assert.Equal(t, []string{"old", "new"}, ids(pending))

	ranged, err := r.ListRange(ctx, "j1", 10, 30)
	require.NoError(t, err)
	assert.Equal(t, []string{"mid", "old"}, ids(ranged))

	empty, err := r.ListByJournal(ctx, "j3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateSyncStatus_ConditionalOnBlob(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	orig := rec("a", "j1", 10, models.StatusNotSynced)
	require.NoError(t, r.Upsert(ctx, orig))

	ok, err := r.UpdateSyncStatus(ctx, *orig, models.StatusSyncError, models.FailureTransient)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.GetByID(ctx, "a", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSyncError, got.SyncStatus)
	assert.Equal(t, models.FailureTransient, got.LastSyncError)

	edited := *orig
	edited.CiphertextBlob = "blob-a-edited"
	require.NoError(t, r.Upsert(ctx, &edited))

	ok, err = r.UpdateSyncStatus(ctx, *orig, models.StatusSynced, models.FailureNone)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = r.GetByID(ctx, "a", "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotSynced, got.SyncStatus)
}

func TestScan_RejectsUnknownStatus(t *testing.T) {
	db := setupDB(t)
	// bypass the CHECK constraint to simulate a row written by a newer schema
	_, err := db.Exec(`PRAGMA ignore_check_constraints = ON`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO journal_entries (id, journal_id, ciphertext_blob, created_at, last_modified, sync_status)
		VALUES ('x', 'j1', 'b', 1, 1, 'ARCHIVED')`)
	require.NoError(t, err)

	_, err = NewSQLiteRepository(db).GetByID(context.Background(), "x", "j1")
	require.ErrorIs(t, err, models.ErrUnknownSyncStatus)
}

func ids(rs []models.EncryptedRecord) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}
