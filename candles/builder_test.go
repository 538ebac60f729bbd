package candles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-ticker-core/models"
)

func tick(b *Builder, price float64, t time.Time) bool {
	return b.Apply(price, t)
}

func TestApplyFoldsTicksIntoOneBucket(t *testing.T) {
	b := NewBuilder(60, 14)
	base := time.Unix(1700000040, 0) // bucket-aligned

	for i, price := range []float64{100, 105, 95, 102} {
		require.True(t, tick(b, price, base.Add(time.Duration(i)*time.Second)))
	}

	series := b.Series()
	require.Len(t, series, 1)
	c := series[0]
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 105.0, c.High)
	assert.Equal(t, 95.0, c.Low)
	assert.Equal(t, 102.0, c.Close)
}

func TestOHLCInvariantHoldsThroughoutUpdates(t *testing.T) {
	b := NewBuilder(60, 14)
	base := time.Unix(1700000000, 0)

	prices := []float64{50, 80, 20, 65, 90, 10, 55}
	for i, p := range prices {
		tick(b, p, base.Add(time.Duration(i*13)*time.Second))
		for _, c := range b.Series() {
			assert.GreaterOrEqual(t, c.High, c.Open)
			assert.GreaterOrEqual(t, c.High, c.Close)
			assert.LessOrEqual(t, c.Low, c.Open)
			assert.LessOrEqual(t, c.Low, c.Close)
		}
	}
}

func TestNewBucketClosesOpenCandle(t *testing.T) {
	b := NewBuilder(60, 14)
	base := time.Unix(1700000040, 0) // bucket-aligned

	tick(b, 100, base)
	tick(b, 110, base.Add(30*time.Second))
	tick(b, 120, base.Add(61*time.Second)) // next bucket

	series := b.Series()
	require.Len(t, series, 2)
	assert.Equal(t, 110.0, series[0].Close)
	assert.Equal(t, 120.0, series[1].Open)
	assert.Equal(t, base, series[0].Start)
}

func TestOutOfOrderTickIsDiscarded(t *testing.T) {
	b := NewBuilder(60, 14)
	base := time.Unix(1700000000, 0)

	tick(b, 100, base.Add(70*time.Second))
	applied := tick(b, 999, base) // older bucket

	assert.False(t, applied)
	series := b.Series()
	require.Len(t, series, 1)
	assert.Equal(t, 100.0, series[0].Close)
}

func TestHistoryNeverExceedsMaxAndEvictsOldestFirst(t *testing.T) {
	const max = 3
	b := NewBuilder(60, max)
	base := time.Unix(1700000040, 0) // bucket-aligned

	for i := 0; i < 10; i++ {
		tick(b, float64(100+i), base.Add(time.Duration(i)*time.Minute))
		assert.LessOrEqual(t, b.Len(), max)
	}

	series := b.Series()
	require.Len(t, series, max)
	// Oldest surviving bucket is the one opened 7 minutes in.
	assert.Equal(t, base.Add(7*time.Minute), series[0].Start)
	assert.Equal(t, base.Add(9*time.Minute), series[max-1].Start)
}

func TestResetDiscardsHistory(t *testing.T) {
	b := NewBuilder(60, 14)
	tick(b, 100, time.Unix(1700000000, 0))
	tick(b, 105, time.Unix(1700000070, 0))

	b.Reset()

	assert.Empty(t, b.Series())
	assert.Zero(t, b.Len())
}

func TestSeedInstallsHistoryWithNewestOpen(t *testing.T) {
	b := NewBuilder(60, 14)
	base := time.Unix(1700000000, 0)

	history := []models.Candle{
		{Start: base, Duration: time.Minute, Open: 1, High: 2, Low: 1, Close: 2},
		{Start: base.Add(time.Minute), Duration: time.Minute, Open: 2, High: 3, Low: 2, Close: 3},
	}
	b.Seed(history)

	require.Equal(t, 2, b.Len())

	// A tick in the newest seeded bucket keeps folding into it.
	require.True(t, tick(b, 10, base.Add(90*time.Second)))
	series := b.Series()
	assert.Equal(t, 10.0, series[1].High)
	assert.Equal(t, 10.0, series[1].Close)
	assert.Equal(t, 2.0, series[1].Open)
}
