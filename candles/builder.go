package candles

import (
	"time"

	"crypto-ticker-core/models"
)

// Builder folds price ticks into fixed-duration OHLC buckets with a bounded
// history. It is not safe for concurrent use; the shared market state owns
// one builder and serializes access to it.
type Builder struct {
	bucketSeconds int64
	max           int

	closed []models.Candle
	open   *models.Candle
}

// NewBuilder returns a builder producing bucketSeconds-long candles and
// retaining at most max of them (open candle included).
func NewBuilder(bucketSeconds, max int) *Builder {
	if bucketSeconds <= 0 {
		bucketSeconds = 60
	}
	if max <= 0 {
		max = 14
	}
	return &Builder{bucketSeconds: int64(bucketSeconds), max: max}
}

// Apply folds one tick into the candle history. Ticks that fall into a
// bucket older than the open one arrive out of order and are discarded.
// It reports whether the tick was applied.
func (b *Builder) Apply(price float64, ts time.Time) bool {
	idx := models.BucketIndex(ts, b.bucketSeconds)

	if b.open != nil {
		openIdx := models.BucketIndex(b.open.Start, b.bucketSeconds)
		switch {
		case idx < openIdx:
			return false
		case idx == openIdx:
			if price > b.open.High {
				b.open.High = price
			}
			if price < b.open.Low {
				b.open.Low = price
			}
			b.open.Close = price
			return true
		default:
			b.closeOpen()
		}
	}

	b.open = &models.Candle{
		Start:    time.Unix(idx*b.bucketSeconds, 0),
		Duration: time.Duration(b.bucketSeconds) * time.Second,
		Open:     price,
		High:     price,
		Low:      price,
		Close:    price,
	}
	return true
}

// Seed replaces the history with historical candles, typically from a REST
// kline bootstrap. The newest candle becomes the open one so subsequent
// ticks keep folding into it.
func (b *Builder) Seed(history []models.Candle) {
	b.Reset()
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	for _, c := range history[:len(history)-1] {
		b.appendClosed(c)
	}
	b.open = &last
}

// Series returns a copy of the candle history, oldest first, open candle
// last. Length never exceeds the configured maximum.
func (b *Builder) Series() []models.Candle {
	out := make([]models.Candle, 0, len(b.closed)+1)
	out = append(out, b.closed...)
	if b.open != nil {
		out = append(out, *b.open)
	}
	return out
}

// Len returns the number of candles Series would return.
func (b *Builder) Len() int {
	n := len(b.closed)
	if b.open != nil {
		n++
	}
	return n
}

// Reset discards all candle history. Called when the active symbol rotates,
// since the history represents a different instrument.
func (b *Builder) Reset() {
	b.closed = nil
	b.open = nil
}

func (b *Builder) closeOpen() {
	if b.open == nil {
		return
	}
	b.appendClosed(*b.open)
	b.open = nil
}

// appendClosed keeps room for the open candle, evicting oldest first.
func (b *Builder) appendClosed(c models.Candle) {
	b.closed = append(b.closed, c)
	for len(b.closed) > b.max-1 {
		b.closed = b.closed[1:]
	}
}
