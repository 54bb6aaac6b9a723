package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/xjournal/internal/models"
)

// Snapshot is the complete, decrypted listing of a journal at one point in
// time. Err is set instead of Entries when the listing could not be produced,
// for example when a record fails to open.
type Snapshot struct {
	Entries []models.JournalEntry
	Err     error
}

// Subscription delivers journal snapshots. Delivery is latest-wins: a slow
// reader skips intermediate snapshots but always ends up with the newest one.
type Subscription struct {
	store     *Store
	journalID string
	ch        chan Snapshot
	once      sync.Once

	// guarded by store.subsMu
	stop   func() bool
	closed bool
}

// C returns the snapshot channel. It is closed by Close.
func (s *Subscription) C() <-chan Snapshot { return s.ch }

// Close unregisters the subscription and closes its channel. It is safe to
// call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		st := s.store
		st.subsMu.Lock()
		defer st.subsMu.Unlock()
		if s.stop != nil {
			s.stop()
		}
		delete(st.subs[s.journalID], s)
		if len(st.subs[s.journalID]) == 0 {
			delete(st.subs, s.journalID)
		}
		s.closed = true
		close(s.ch)
	})
}

// Subscribe registers for snapshots of journalID. The current snapshot is
// available on C immediately, and a new one follows every committed change to
// the journal. The subscription ends when ctx is done or Close is called.
func (s *Store) Subscribe(ctx context.Context, journalID string) (*Subscription, error) {
	if journalID == "" {
		return nil, ErrJournalRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &Subscription{
		store:     s,
		journalID: journalID,
		ch:        make(chan Snapshot, 1),
	}

	// Holding the journal lock orders the initial snapshot before any
	// publish of a later mutation.
	mu := s.journalLock(journalID)
	mu.Lock()
	s.subsMu.Lock()
	if s.subs[journalID] == nil {
		s.subs[journalID] = make(map[*Subscription]struct{})
	}
	s.subs[journalID][sub] = struct{}{}
	s.subsMu.Unlock()

	s.deliver(sub, s.snapshot(context.WithoutCancel(ctx), journalID))
	mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Close)
	s.subsMu.Lock()
	sub.stop = stop
	s.subsMu.Unlock()
	return sub, nil
}

// publish sends a fresh snapshot to every subscriber of journalID.
// Callers hold the journal lock.
func (s *Store) publish(ctx context.Context, journalID string) {
	s.subsMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs[journalID]))
	for sub := range s.subs[journalID] {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	if len(subs) == 0 {
		return
	}

	snap := s.snapshot(context.WithoutCancel(ctx), journalID)
	if snap.Err != nil {
		s.logger.Warn(ctx, "journal snapshot failed", "journal", journalID, "error", snap.Err)
	}
	for _, sub := range subs {
		s.deliver(sub, snap)
	}
}

func (s *Store) snapshot(ctx context.Context, journalID string) Snapshot {
	entries, err := s.List(ctx, journalID)
	if err != nil {
		return Snapshot{Err: err}
	}
	return Snapshot{Entries: entries}
}

// deliver replaces any unread snapshot with snap.
func (s *Store) deliver(sub *Subscription, snap Snapshot) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if sub.closed {
		return
	}
	select {
	case <-sub.ch:
	default:
	}
	select {
	case sub.ch <- snap:
	default:
	}
}
