package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestPacer_NoBlockWhenZeroDelay(t *testing.T) {
	p := NewPacer(0)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if time.Since(start) > 10*time.Millisecond {
		t.Errorf("pacer with zero delay should not block")
	}
}

func TestPacer_FirstCallImmediate(t *testing.T) {
	p := NewPacer(time.Second)

	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("first wait should not block, took %v", time.Since(start))
	}
}

func TestPacer_Wait(t *testing.T) {
	p := NewPacer(100 * time.Millisecond)
	ctx := context.Background()

	_ = p.Wait(ctx)

	start := time.Now()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	duration := time.Since(start)
	if duration < 80*time.Millisecond || duration > 250*time.Millisecond {
		t.Errorf("expected wait around 100ms, took %v", duration)
	}
}

func TestPacer_SleepsOnlyRemainder(t *testing.T) {
	p := NewPacer(time.Second)

	now := time.Unix(1000, 0)
	var slept []time.Duration
	p.now = func() time.Time { return now }
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}

	_ = p.Wait(context.Background())
	now = now.Add(300 * time.Millisecond)
	_ = p.Wait(context.Background())
	now = now.Add(2 * time.Second)
	_ = p.Wait(context.Background())

	if len(slept) != 1 {
		t.Fatalf("expected exactly one sleep, got %v", slept)
	}
	if slept[0] != 700*time.Millisecond {
		t.Errorf("expected 700ms sleep, got %v", slept[0])
	}
}

func TestPacer_ContextCancellation(t *testing.T) {
	p := NewPacer(time.Second)
	_ = p.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); err == nil {
		t.Fatalf("expected context canceled error")
	}
}
