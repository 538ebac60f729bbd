package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"crypto-ticker-core/models"
)

// OverlayPeriod is the smoothing window used for the chart overlay series.
const OverlayPeriod = 5

// Closes extracts the close prices of a candle series, oldest first.
func Closes(series []models.Candle) []float64 {
	out := make([]float64, len(series))
	for i, c := range series {
		out[i] = c.Close
	}
	return out
}

// SMA returns the simple moving average of the series' closes. Positions
// before the warmup window are NaN. Returns nil when the series is shorter
// than the period.
func SMA(series []models.Candle, period int) []float64 {
	closes := Closes(series)
	if period <= 0 || len(closes) < period {
		return nil
	}
	return markWarmup(talib.Sma(closes, period), period)
}

// EMA returns the exponential moving average of the series' closes, with
// the same warmup and length semantics as SMA.
func EMA(series []models.Candle, period int) []float64 {
	closes := Closes(series)
	if period <= 0 || len(closes) < period {
		return nil
	}
	return markWarmup(talib.Ema(closes, period), period)
}

// markWarmup replaces the zero padding talib emits before the window is
// full with NaN so renderers can skip those points.
func markWarmup(values []float64, period int) []float64 {
	for i := 0; i < period-1 && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}
