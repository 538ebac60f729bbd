package rotator

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ActiveSink is the slice of shared state the rotator drives.
type ActiveSink interface {
	SetActiveSymbol(symbol string)
}

// Rotator cycles the active primary symbol through the configured list on
// a fixed wall-clock interval, wrapping at the end. With fewer than two
// symbols rotation is a no-op and the single symbol stays active forever.
type Rotator struct {
	symbols  []string
	interval time.Duration
	sink     ActiveSink
	log      *zap.Logger
}

// New builds a rotator over the main symbol list.
func New(symbols []string, interval time.Duration, sink ActiveSink, log *zap.Logger) *Rotator {
	return &Rotator{
		symbols:  symbols,
		interval: interval,
		sink:     sink,
		log:      log.With(zap.String("component", "rotator")),
	}
}

// Run blocks until ctx is cancelled, advancing the active symbol each
// interval.
func (r *Rotator) Run(ctx context.Context) {
	if len(r.symbols) < 2 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	idx := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idx = (idx + 1) % len(r.symbols)
			r.sink.SetActiveSymbol(r.symbols[idx])
		}
	}
}
