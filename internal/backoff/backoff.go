// Package backoff computes the delay before a failed notification becomes
// eligible for another attempt.
package backoff

import (
	"math"
	"time"

	"github.com/wb-go/wbf/retry"
)

const defaultFactor = 2

// Policy is an exponential backoff with a cap.
//
// The base delay and growth factor come from a retry.Strategy so the same
// configuration block drives both in-process retries and delivery backoff.
type Policy struct {
	Base   time.Duration
	Factor float64
	Max    time.Duration
}

// FromStrategy builds a Policy from a retry.Strategy and a maximum delay.
// A zero or sub-unit Backoff falls back to doubling.
func FromStrategy(s retry.Strategy, maxDelay time.Duration) Policy {
	return Policy{Base: s.Delay, Factor: s.Backoff, Max: maxDelay}
}

// Delay returns min(Base * Factor^(attempt-1), Max). Attempts below 1 are
// treated as the first attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	factor := p.Factor
	if factor < 1 {
		factor = defaultFactor
	}

	d := float64(p.Base) * math.Pow(factor, float64(attempt-1))
	switch {
	case math.IsNaN(d):
		// Zero base times an overflowed factor.
		d = 0
	case math.IsInf(d, 1) || d >= float64(math.MaxInt64):
		d = float64(math.MaxInt64)
	}

	if p.Max > 0 && d >= float64(p.Max) {
		return p.Max
	}
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(d)
}
