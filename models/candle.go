package models

import "time"

// Candle is a single fixed-duration OHLC bucket.
// Invariant: High >= max(Open, Close) and Low <= min(Open, Close).
type Candle struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Open     float64       `json:"open"`
	High     float64       `json:"high"`
	Low      float64       `json:"low"`
	Close    float64       `json:"close"`
}

// BucketIndex returns the bucket a timestamp falls into for the given
// bucket length in seconds.
func BucketIndex(ts time.Time, bucketSeconds int64) int64 {
	return ts.Unix() / bucketSeconds
}
