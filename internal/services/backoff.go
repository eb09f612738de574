package services

import "time"

// backoff produces capped exponential delays: base, 2*base, 4*base, ... max.
type backoff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max}
}

// Next records a failed attempt and returns the delay before the next one.
func (b *backoff) Next() time.Duration {
	b.attempt++
	delay := b.base
	for i := 1; i < b.attempt; i++ {
		delay *= 2
		if delay >= b.max || delay <= 0 {
			return b.max
		}
	}
	if delay > b.max {
		return b.max
	}
	return delay
}

// Attempt returns the number of consecutive failed attempts.
func (b *backoff) Attempt() int {
	return b.attempt
}

// Reset returns the backoff to its base delay.
func (b *backoff) Reset() {
	b.attempt = 0
}
