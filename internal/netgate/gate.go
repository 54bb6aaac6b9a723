// Package netgate holds the switch that decides whether the sync engine may
// use the network.
//
// The gate is enabled by an explicit request that is confirmed by an
// asynchronous connectivity signal, and it follows that signal afterwards:
// a reported loss turns it off, a later report of availability turns it back
// on. Disable turns it off unconditionally and detaches the signal, so late
// reports of the detached request are ignored.
package netgate

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/xjournal/internal/logging"
)

// Connectivity reports network availability. RequestAvailability must not
// block; it calls report asynchronously, possibly many times, until ctx is
// done.
type Connectivity interface {
	RequestAvailability(ctx context.Context, report func(available bool))
}

// Gate is safe for concurrent use. The zero value is not usable; call New.
type Gate struct {
	conn   Connectivity
	logger logging.Logger

	enabled atomic.Bool

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	changed chan struct{}
}

func New(conn Connectivity, logger logging.Logger) *Gate {
	return &Gate{
		conn:    conn,
		logger:  logger.With("component", "netgate"),
		changed: make(chan struct{}),
	}
}

// Enabled reports the current state without blocking.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// RequestEnable asks for the gate to be turned on. If it is already on,
// onResult(true) runs immediately. Otherwise a connectivity request is
// attached and onResult runs once with its first report. onResult may be nil.
//
// The request stays attached until ctx is done, Disable is called or another
// request replaces it.
func (g *Gate) RequestEnable(ctx context.Context, onResult func(enabled bool)) {
	if g.Enabled() {
		if onResult != nil {
			onResult(true)
		}
		return
	}

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.gen++
	gen := g.gen
	reqCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.mu.Unlock()

	var once sync.Once
	g.conn.RequestAvailability(reqCtx, func(available bool) {
		if !g.apply(gen, available) {
			return
		}
		once.Do(func() {
			if onResult != nil {
				onResult(available)
			}
		})
	})
}

// Disable turns the gate off and detaches the current connectivity request.
func (g *Gate) Disable() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.set(false)
}

// WaitEnabled blocks until the gate is on or ctx is done.
func (g *Gate) WaitEnabled(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.enabled.Load() {
			g.mu.Unlock()
			return nil
		}
		ch := g.changed
		g.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// apply records a connectivity report of request gen. It returns false when
// the request has been detached.
func (g *Gate) apply(gen uint64, available bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if gen != g.gen {
		return false
	}
	g.set(available)
	return true
}

// set must be called with mu held.
func (g *Gate) set(on bool) {
	if g.enabled.Load() == on {
		return
	}
	g.enabled.Store(on)
	close(g.changed)
	g.changed = make(chan struct{})

	if on {
		g.logger.Info(context.Background(), "sync gate enabled")
	} else {
		g.logger.Info(context.Background(), "sync gate disabled")
	}
}
