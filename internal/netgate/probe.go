package netgate

import (
	"context"
	"net"
	"time"
)

// Probe is a Connectivity that dials a TCP address on a fixed interval and
// reports availability whenever it changes. The first result is always
// reported.
type Probe struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	dial     func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProbe returns a Probe for addr ("host:port").
func NewProbe(addr string, interval, timeout time.Duration) *Probe {
	d := &net.Dialer{}
	return &Probe{
		addr:     addr,
		interval: interval,
		timeout:  timeout,
		dial:     d.DialContext,
	}
}

func (p *Probe) RequestAvailability(ctx context.Context, report func(available bool)) {
	go p.watch(ctx, report)
}

func (p *Probe) watch(ctx context.Context, report func(bool)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := p.check(ctx)
	if ctx.Err() != nil {
		return
	}
	report(last)

	for {
		select {
		case <-ticker.C:
			ok := p.check(ctx)
			if ctx.Err() != nil {
				return
			}
			if ok != last {
				last = ok
				report(ok)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *Probe) check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Always is a Connectivity that is always available. It serves remotes
// that need no network, such as a local directory.
type Always struct{}

func (Always) RequestAvailability(ctx context.Context, report func(available bool)) {
	go func() {
		if ctx.Err() == nil {
			report(true)
		}
	}()
}
