// Package syncengine uploads unsynchronized journal entries to a remote
// object store.
//
// A pass over one journal takes a snapshot of the outstanding records, oldest
// first, and handles them one at a time: gate check, transfer envelope,
// upload with a bounded number of attempts, status write-back. Upload
// failures never surface as errors; they end up as SYNC_ERROR on the entry.
// Sync returns an error only when the store fails or ctx is cancelled.
package syncengine

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dmitrijs2005/xjournal/internal/codec"
	"github.com/dmitrijs2005/xjournal/internal/logging"
	"github.com/dmitrijs2005/xjournal/internal/models"
	"github.com/dmitrijs2005/xjournal/internal/remote"
	"github.com/dmitrijs2005/xjournal/internal/store"
	"golang.org/x/sync/errgroup"
)

// Store is the part of *store.Store the engine uses.
type Store interface {
	RecordsBySyncStatus(ctx context.Context, status models.SyncStatus, journalID string) ([]models.EncryptedRecord, error)
	Record(ctx context.Context, id, journalID string) (*models.EncryptedRecord, error)
	MarkSyncStatus(ctx context.Context, rec models.EncryptedRecord, status models.SyncStatus, failure models.FailureKind) (bool, error)
}

// Codec is the part of *codec.Codec the engine uses.
type Codec interface {
	Open(r models.EncryptedRecord) (models.JournalEntry, error)
	SealForTransfer(r models.EncryptedRecord) (models.TransferEnvelope, error)
}

// Gate reports whether network use is currently permitted.
type Gate interface {
	Enabled() bool
}

type Config struct {
	// MaxAttempts bounds the uploads of one entry per pass.
	MaxAttempts int
	// RetryDelay is the pause between attempts. Zero retries immediately.
	RetryDelay time.Duration
	// RetryFailed makes SYNC_ERROR entries eligible again.
	RetryFailed bool
}

func DefaultConfig() Config {
	return Config{MaxAttempts: 3, RetryFailed: true}
}

// Report summarizes one pass over one journal.
type Report struct {
	JournalID string
	Synced    int
	Failed    int
	// Deferred entries were left untouched because the gate was off.
	Deferred int
	// Skipped entries were deleted or synced by someone else in the meantime.
	Skipped int
	// Superseded entries were edited while being uploaded and stay NOT_SYNCED.
	Superseded int
	Uploads    int
}

type Engine struct {
	store   Store
	codec   Codec
	remote  remote.ObjectStore
	gate    Gate
	cfg     Config
	logger  logging.Logger
	metrics *Metrics
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func New(st Store, c Codec, obj remote.ObjectStore, gate Gate, logger logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		codec:   c,
		remote:  obj,
		gate:    gate,
		cfg:     DefaultConfig(),
		logger:  logger.With("component", "syncengine"),
		metrics: NewMetrics(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) eligible(status models.SyncStatus) bool {
	switch status {
	case models.StatusNotSynced, models.StatusPendingSync:
		return true
	case models.StatusSyncError:
		return e.cfg.RetryFailed
	default:
		return false
	}
}

func (e *Engine) pending(ctx context.Context, journalID string) ([]models.EncryptedRecord, error) {
	statuses := []models.SyncStatus{models.StatusNotSynced, models.StatusPendingSync}
	if e.cfg.RetryFailed {
		statuses = append(statuses, models.StatusSyncError)
	}

	var all []models.EncryptedRecord
	for _, st := range statuses {
		recs, err := e.store.RecordsBySyncStatus(ctx, st, journalID)
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}

	slices.SortStableFunc(all, func(a, b models.EncryptedRecord) int {
		if c := cmp.Compare(a.CreatedAt, b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return all, nil
}

// Sync runs one pass over journalID.
func (e *Engine) Sync(ctx context.Context, journalID string) (Report, error) {
	report := Report{JournalID: journalID}
	if journalID == "" {
		return report, store.ErrJournalRequired
	}

	recs, err := e.pending(ctx, journalID)
	if err != nil {
		return report, err
	}
	if len(recs) == 0 {
		return report, nil
	}

	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !e.gate.Enabled() {
			report.Deferred++
			e.metrics.entry(OutcomeDeferred)
			continue
		}

		outcome, uploads, err := e.syncRecord(ctx, rec)
		report.Uploads += uploads
		if err != nil {
			return report, err
		}
		e.metrics.entry(outcome)
		switch outcome {
		case OutcomeSynced:
			report.Synced++
		case OutcomeFailed:
			report.Failed++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeSuperseded:
			report.Superseded++
		}
	}

	if report.Deferred > 0 {
		e.logger.Info(ctx, "sync deferred, gate is disabled", "journal", journalID, "deferred", report.Deferred)
	}
	e.logger.Info(ctx, "sync pass finished", "journal", journalID,
		"synced", report.Synced, "failed", report.Failed, "uploads", report.Uploads)
	return report, nil
}

// syncRecord handles one listed record. It re-reads the record so that the
// upload carries the newest stored version.
func (e *Engine) syncRecord(ctx context.Context, listed models.EncryptedRecord) (string, int, error) {
	rec, err := e.store.Record(ctx, listed.ID, listed.JournalID)
	if errors.Is(err, store.ErrNotFound) {
		return OutcomeSkipped, 0, nil
	}
	if err != nil {
		return "", 0, err
	}
	if !e.eligible(rec.SyncStatus) {
		return OutcomeSkipped, 0, nil
	}

	payload, err := e.envelope(*rec)
	if err != nil {
		kind := codec.FailureKind(err)
		e.logger.Error(ctx, "entry cannot be prepared for sync", "id", rec.ID, "journal", rec.JournalID, "kind", kind)
		return e.finish(ctx, *rec, models.StatusSyncError, kind, OutcomeFailed, 0)
	}

	name := rec.ObjectName()
	att := newAttempts(e.cfg.MaxAttempts, e.cfg.RetryDelay)
	var uploadErr error
	for att.next(ctx) {
		_, uploadErr = e.remote.CreateObject(ctx, name, payload)
		e.metrics.upload(uploadErr)
		if uploadErr == nil {
			break
		}
		e.logger.Warn(ctx, "upload failed", "id", rec.ID, "attempt", att.count(), "error", uploadErr)
	}
	uploads := att.count()

	if uploads > 0 && uploadErr == nil {
		return e.finish(ctx, *rec, models.StatusSynced, models.FailureNone, OutcomeSynced, uploads)
	}
	if !att.exhausted() {
		// cancelled before the bound was reached; the entry stays as it is
		return "", uploads, ctx.Err()
	}

	e.logger.Error(ctx, "upload attempts exhausted", "id", rec.ID, "journal", rec.JournalID, "attempts", uploads)
	return e.finish(ctx, *rec, models.StatusSyncError, models.FailureTransient, OutcomeFailed, uploads)
}

func (e *Engine) envelope(rec models.EncryptedRecord) ([]byte, error) {
	if _, err := e.codec.Open(rec); err != nil {
		return nil, err
	}
	env, err := e.codec.SealForTransfer(rec)
	if err != nil {
		return nil, err
	}
	return codec.MarshalEnvelope(env)
}

// finish writes the outcome back. The write survives cancellation of ctx so
// that a completed upload is not repeated on the next pass.
func (e *Engine) finish(ctx context.Context, rec models.EncryptedRecord, status models.SyncStatus, failure models.FailureKind, outcome string, uploads int) (string, int, error) {
	applied, err := e.store.MarkSyncStatus(context.WithoutCancel(ctx), rec, status, failure)
	if err != nil {
		return "", uploads, err
	}
	if !applied {
		e.logger.Debug(ctx, "entry changed during sync", "id", rec.ID, "journal", rec.JournalID)
		return OutcomeSuperseded, uploads, nil
	}
	return outcome, uploads, nil
}

// SyncJournals syncs several journals concurrently. Reports are returned in
// the order of journalIDs; the first error cancels the remaining passes.
func (e *Engine) SyncJournals(ctx context.Context, journalIDs ...string) ([]Report, error) {
	reports := make([]Report, len(journalIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range journalIDs {
		g.Go(func() error {
			r, err := e.Sync(gctx, id)
			reports[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, err
	}
	return reports, nil
}

// Run syncs journalIDs every interval until ctx is done. Passes are skipped
// while the gate is disabled.
func (e *Engine) Run(ctx context.Context, interval time.Duration, journalIDs ...string) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if e.gate.Enabled() {
			if _, err := e.SyncJournals(ctx, journalIDs...); err != nil && ctx.Err() == nil {
				e.logger.Error(ctx, "sync failed", "error", err)
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
