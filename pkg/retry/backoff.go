package retry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes the delay curve between attempts.
type Policy struct {
	// InitialInterval is the delay after the first failed attempt.
	InitialInterval time.Duration

	// Multiplier grows the delay per attempt.
	Multiplier float64

	// RandomizationFactor is the jitter ratio: the delay is drawn from
	// [d*(1-f), d*(1+f)]. Zero disables jitter.
	RandomizationFactor float64

	// MaxInterval caps the un-jittered delay.
	MaxInterval time.Duration
}

// DefaultPolicy returns the delay curve used when none is configured:
// 200ms growing by 1.3x per attempt with 10% jitter, capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval:     200 * time.Millisecond,
		Multiplier:          1.3,
		RandomizationFactor: 0.1,
		MaxInterval:         30 * time.Second,
	}
}

// Delay returns the delay to sleep after the given 1-based attempt failed.
// Without jitter the result is a pure, non-decreasing function of attempt
// bounded by MaxInterval; with jitter it is bounded by
// MaxInterval*(1+RandomizationFactor).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// RetryAfter extracts a server-supplied retry hint. Only the numeric
// seconds form is honored; HTTP-date values and garbage are ignored.
func RetryAfter(h http.Header) (time.Duration, bool) {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	secs, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs*1000) * time.Millisecond, true
}
