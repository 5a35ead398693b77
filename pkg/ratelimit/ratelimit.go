package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer spaces consecutive operations at least Delay apart. The first call
// never blocks. It is safe for concurrent use, though callers that rely on
// pacing as a courtesy to an API should call it from a single goroutine.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with the given minimum spacing. A delay <= 0
// disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		delay: delay,
		now:   time.Now,
		sleep: sleepContext,
	}
}

// Delay reports the configured spacing.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait blocks until at least Delay has elapsed since the previous Wait
// returned, or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.last.IsZero() {
		if remaining := p.delay - p.now().Sub(p.last); remaining > 0 {
			if err := p.sleep(ctx, remaining); err != nil {
				return err
			}
		}
	}
	p.last = p.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
