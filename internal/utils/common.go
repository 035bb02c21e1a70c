package utils

import "time"

// MinDuration returns the smaller of two durations.
func MinDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// UnixMillis converts t to epoch milliseconds, or nil for the zero time.
func UnixMillis(t time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// UnixSeconds converts t to fractional epoch seconds.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
