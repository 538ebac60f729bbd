package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-ticker-core/models"
)

func series(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Close: c}
	}
	return out
}

func TestSMAMatchesHandComputedValues(t *testing.T) {
	got := SMA(series(1, 2, 3, 4, 5, 6), 3)
	require.Len(t, got, 6)

	for i := 0; i < 2; i++ {
		assert.True(t, math.IsNaN(got[i]), "warmup position %d", i)
	}
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 5.0, got[5], 1e-9)
}

func TestSMAShortSeriesReturnsNil(t *testing.T) {
	assert.Nil(t, SMA(series(1, 2), 3))
	assert.Nil(t, SMA(nil, 3))
	assert.Nil(t, SMA(series(1, 2, 3), 0))
}

func TestEMAWarmupAndConvergence(t *testing.T) {
	got := EMA(series(10, 10, 10, 10, 10), 3)
	require.Len(t, got, 5)

	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	// A constant series converges to the constant.
	assert.InDelta(t, 10.0, got[4], 1e-9)
}

func TestClosesPreservesOrder(t *testing.T) {
	assert.Equal(t, []float64{3, 1, 2}, Closes(series(3, 1, 2)))
	assert.Empty(t, Closes(nil))
}
