package orchestrator

import (
	"math/rand"
	"time"
)

const (
	backoffBase   = 250 * time.Millisecond
	backoffFactor = 2
	backoffCap    = 5 * time.Second
	backoffJitter = 0.2 // +/- 20%
)

// backoffDelay returns the delay before retry attempt n (1-indexed: the
// delay before the first retry, after the initial attempt failed), per
// spec.md §4.3's retry curve: base 250ms, factor 2, capped at 5s, with
// +/-20% jitter so concurrent retries of the same tool don't thunder.
func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(backoffBase)
	for i := 1; i < attempt; i++ {
		delay *= backoffFactor
		if delay >= float64(backoffCap) {
			delay = float64(backoffCap)
			break
		}
	}
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	delay *= jitter
	if delay < 0 {
		delay = 0
	}
	if delay > float64(backoffCap)*(1+backoffJitter) {
		delay = float64(backoffCap) * (1 + backoffJitter)
	}
	return time.Duration(delay)
}
