package stream

import (
	"context"
	"math/rand"
	"time"

	"crypto-ticker-core/models"
)

// QuoteSink receives price updates emitted by the feed clients. The shared
// market state implements it; the sink decides whether an update wins the
// timestamp race, not the feed.
type QuoteSink interface {
	ApplyQuote(models.PriceQuote) bool
}

// Feed is one long-lived streaming subscription to a provider. Run blocks
// until the context is cancelled, reconnecting internally on every drop.
type Feed interface {
	Name() string
	Run(ctx context.Context)
}

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 120 * time.Second
	backoffFactor  = 1.8
	jitterFraction = 0.25

	// readDeadline is how long a connection may stay silent (no messages,
	// no pings) before it is treated as dead.
	readDeadline = 60 * time.Second

	writeWait = 10 * time.Second
)

// backoff implements the reconnect schedule: exponential growth capped at
// maxBackoff, with jitter so a fleet of tickers does not reconnect against
// the same provider in lockstep.
type backoff struct {
	next time.Duration
}

func newBackoff() *backoff {
	return &backoff{next: initialBackoff}
}

// Delay returns the current wait with jitter applied and advances the
// schedule.
func (b *backoff) Delay() time.Duration {
	cur := b.next
	b.next = time.Duration(float64(b.next) * backoffFactor)
	if b.next > maxBackoff {
		b.next = maxBackoff
	}
	jitter := time.Duration(rand.Float64() * jitterFraction * float64(cur))
	return cur + jitter
}

// Reset restores the schedule after a healthy connection.
func (b *backoff) Reset() {
	b.next = initialBackoff
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
