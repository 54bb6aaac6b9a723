// Package records provides the persistence layer for sealed journal entries.
//
// # Overview
//
// The package defines a Repository interface over models.EncryptedRecord rows
// and a SQLite implementation (SQLiteRepository) that works on a dbx.DBTX, so
// the same code runs on *sql.DB or inside a *sql.Tx.
//
// # Data Model
//
// One row per entry in table journal_entries. id is the primary key and is
// unique across journals; every read path except Header also filters by
// journal_id. Rows are written as full replacements (upsert); only the sync
// status columns are ever updated in place.
//
// Indexes: (journal_id, created_at) for listings and (journal_id, sync_status)
// for the sync outbox scan.
//
// Typical Usage
//
//	db, _ := records.OpenDB(ctx, "journal.db")
//	repo := records.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, &rec)
//	list, _ := repo.ListByJournal(ctx, "j1")
//	ok, _ := repo.UpdateSyncStatus(ctx, rec, models.StatusSynced, models.FailureNone)
package records
