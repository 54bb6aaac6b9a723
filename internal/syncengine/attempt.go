package syncengine

import (
	"context"
	"time"
)

// attempts bounds the uploads of one entry within one pass.
type attempts struct {
	n     int
	max   int
	delay time.Duration
}

func newAttempts(max int, delay time.Duration) *attempts {
	if max < 1 {
		max = 1
	}
	return &attempts{max: max, delay: delay}
}

// next reports whether another attempt may start, waiting for the retry
// delay first when one is configured. It returns false once the bound is
// reached or ctx is done.
func (a *attempts) next(ctx context.Context) bool {
	if a.n >= a.max || ctx.Err() != nil {
		return false
	}
	if a.n > 0 && a.delay > 0 {
		t := time.NewTimer(a.delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return false
		}
	}
	a.n++
	return true
}

func (a *attempts) count() int { return a.n }

func (a *attempts) exhausted() bool { return a.n >= a.max }
