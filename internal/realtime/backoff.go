package realtime

import (
	"math/rand/v2"
	"time"
)

// Backoff computes reconnection delays: Initial doubled per attempt, capped at Max, then
// spread by ±Jitter (a fraction of the delay).
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64

	random func() float64
}

// Delay returns the wait before the given 1-based reconnection attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := b.Initial
	for i := 1; i < attempt; i++ {
		if b.Max > 0 && delay >= b.Max {
			break
		}
		delay *= 2
	}
	if b.Jitter > 0 {
		random := b.random
		if random == nil {
			random = rand.Float64
		}
		deviation := b.Jitter * float64(delay)
		delay = time.Duration(float64(delay) - deviation + 2*deviation*random())
	}
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay
}
