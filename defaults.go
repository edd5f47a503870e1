package rkv

import "time"

const (
	defaultLockRetryMin = 20 * time.Millisecond
	defaultLockRetryMax = 200 * time.Millisecond
	defaultScanCount    = 100
	defaultDeleteChunk  = 500
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// millis converts d to whole milliseconds, rounding sub-millisecond
// positive durations up so they never turn into "no expiry".
func millis(d time.Duration) int64 {
	ms := d.Milliseconds()
	if ms == 0 && d > 0 {
		return 1
	}
	return ms
}
