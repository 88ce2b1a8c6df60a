package autoupdate

import (
	"errors"
	"math"
	"time"

	"github.com/openslides/openslides.go/internal/rand"
	"github.com/openslides/openslides.go/pkg/constants"
)

// Retryer decides how long the channel waits before the next reconnect.
type Retryer interface {
	// NextDelay returns the delay before reconnect attempt number attempt,
	// counted from 0, and whether to try at all. lastErr is the reason the
	// connection was lost or the previous attempt failed.
	NextDelay(attempt int, lastErr error) (time.Duration, bool)

	// Reset is called once a reconnect succeeded.
	Reset()
}

// Backoff is the reconnect policy of a Channel. Attempt n waits
// Delay*Multiplier^n, bounded by MaxDelay and spread by Jitter. A
// Multiplier of 1 or less waits Delay every time.
//
// A rejected session stops the retries regardless of MaxRetries: the server
// refuses every handshake until the user logs in again.
type Backoff struct {
	Delay time.Duration
	// MaxDelay bounds the delay before jitter. 0 or anything above
	// constants.MaxReconnectDelay means constants.MaxReconnectDelay.
	MaxDelay   time.Duration
	Multiplier float64
	// MaxRetries limits the attempts per outage; 0 retries forever.
	MaxRetries int
	// Jitter is the largest deviation as a fraction of the delay, 0 to 1.
	Jitter float64
}

var _ Retryer = (*Backoff)(nil)

// DefaultRetryer retries forever, every constants.DefaultReconnectDelay.
func DefaultRetryer() Retryer {
	return FixedBackoff(constants.DefaultReconnectDelay, 0)
}

// FixedBackoff waits delay before each of at most maxRetries attempts.
func FixedBackoff(delay time.Duration, maxRetries int) *Backoff {
	return &Backoff{Delay: delay, Multiplier: 1, MaxRetries: maxRetries}
}

// ExponentialBackoff starts at 1s, doubles up to 30s and retries forever
// with 30% jitter.
func ExponentialBackoff() *Backoff {
	return &Backoff{
		Delay:      time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
		Jitter:     0.3,
	}
}

func (b *Backoff) NextDelay(attempt int, lastErr error) (time.Duration, bool) {
	if errors.Is(lastErr, constants.ErrSessionRejected) {
		return 0, false
	}
	if b.MaxRetries > 0 && attempt >= b.MaxRetries {
		return 0, false
	}
	return rand.Jitter(b.delay(attempt), b.Jitter), true
}

// delay is the unjittered wait before attempt, within [0, ceiling].
func (b *Backoff) delay(attempt int) time.Duration {
	ceiling := constants.MaxReconnectDelay
	if b.MaxDelay > 0 && b.MaxDelay < ceiling {
		ceiling = b.MaxDelay
	}
	if b.Delay <= 0 {
		return 0
	}
	if b.Multiplier <= 1 || attempt <= 0 {
		return min(b.Delay, ceiling)
	}

	// Compared as floats so that a large attempt saturates instead of
	// overflowing time.Duration.
	d := float64(b.Delay) * math.Pow(b.Multiplier, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(ceiling) {
		return ceiling
	}
	return time.Duration(d)
}

func (b *Backoff) Reset() {}
