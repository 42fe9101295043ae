package main

import (
	"math/rand/v2"
	"time"
)

const jitterWindow = 250 * time.Millisecond

// pollBackoff spaces out polls: the base interval while idle, doubling up to
// max across consecutive failures. Each delay gets up to jitterWindow extra so
// replicas do not poll in lockstep.
type pollBackoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
	jitter  func(time.Duration) time.Duration
}

func newPollBackoff(base, max time.Duration) *pollBackoff {
	return &pollBackoff{
		base: base,
		max:  max,
		jitter: func(d time.Duration) time.Duration {
			return d + rand.N(jitterWindow)
		},
	}
}

func (b *pollBackoff) idle() time.Duration {
	b.reset()
	return b.jitter(b.base)
}

func (b *pollBackoff) failure() time.Duration {
	if b.current <= 0 {
		b.current = b.base
	}
	b.current = min(b.current*2, b.max)
	return b.jitter(b.current)
}

func (b *pollBackoff) reset() {
	b.current = 0
}
