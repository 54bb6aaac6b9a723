// Package models defines the journal entry types shared by the store, the
// codec and the sync engine.
package models

import (
	"errors"
	"fmt"
	"time"
)

// SyncStatus is the outbox state of a single entry.
type SyncStatus string

const (
	StatusNotSynced SyncStatus = "NOT_SYNCED"
	// StatusPendingSync is reserved. Nothing assigns it; the sync engine
	// treats it like StatusNotSynced if a record ever carries it.
	StatusPendingSync SyncStatus = "PENDING_SYNC"
	StatusSynced      SyncStatus = "SYNCED"
	StatusSyncError   SyncStatus = "SYNC_ERROR"
)

var ErrUnknownSyncStatus = errors.New("unknown sync status")

// ParseSyncStatus converts the persisted string form back into a SyncStatus.
func ParseSyncStatus(s string) (SyncStatus, error) {
	switch st := SyncStatus(s); st {
	case StatusNotSynced, StatusPendingSync, StatusSynced, StatusSyncError:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSyncStatus, s)
	}
}

func (s SyncStatus) String() string { return string(s) }

// FailureKind names the reason of the most recent failed sync of an entry.
// The empty kind means the entry has not failed since its last save.
type FailureKind string

const (
	FailureNone      FailureKind = ""
	FailureTransient FailureKind = "transient"
	FailureIntegrity FailureKind = "integrity"
	FailureMalformed FailureKind = "malformed"
	FailureEncode    FailureKind = "encode"
)

// JournalEntry is the plaintext form of an entry. It only lives in memory.
type JournalEntry struct {
	ID        string
	JournalID string
	Title     string
	Content   string

	// CreatedAt and LastModified are unix seconds.
	CreatedAt    int64
	LastModified int64

	SyncStatus    SyncStatus
	LastSyncError FailureKind
}

// Created returns CreatedAt as a UTC time.
func (e JournalEntry) Created() time.Time {
	return time.Unix(e.CreatedAt, 0).UTC()
}

// EncryptedRecord is the persisted form of an entry. ID and JournalID are
// index keys and stay in clear; everything confidential is in CiphertextBlob.
type EncryptedRecord struct {
	ID             string
	JournalID      string
	CiphertextBlob string
	CreatedAt      int64
	LastModified   int64
	SyncStatus     SyncStatus
	LastSyncError  FailureKind
}

// ObjectName is the deterministic remote object name of a record.
func (r EncryptedRecord) ObjectName() string {
	return fmt.Sprintf("%d_%s.dat", r.CreatedAt, r.ID)
}
