package client

import "time"

// BackoffPolicy is a bounded exponential backoff schedule for reconnect
// attempts. Delay is a pure function of the attempt number so the schedule
// can be inspected and tested without waiting.
type BackoffPolicy struct {
	// MaxAttempts is the number of reconnect attempts before giving up.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// Multiplier grows the delay after every attempt.
	Multiplier float64
	// MaxDelay caps the growth.
	MaxDelay time.Duration
}

// DefaultBackoff mirrors the schedule browsers use for flaky networks: a
// quick first retry, then doubling up to half a minute.
var DefaultBackoff = BackoffPolicy{
	MaxAttempts: 10,
	BaseDelay:   500 * time.Millisecond,
	Multiplier:  2,
	MaxDelay:    30 * time.Second,
}

// Delay returns the wait before the given attempt. Attempts are numbered
// from 1; out-of-range attempts return a negative duration meaning "stop".
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || attempt > p.MaxAttempts {
		return -1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if time.Duration(d) >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}
