package helpers

import "time"

// Limited exponential backoff for retry delays.
// Not safe for concurrent use, keep one per retrying goroutine.
// First delay is Min, each Failure multiplies next delay by K up to Max.
//
// Use scenario:
//
//	for {
//	  err := op()
//	  time.Sleep(backoff.DelayAfter(err==nil))
//	}
type Backoff struct {
	Min time.Duration
	Max time.Duration
	K   float32
	Res time.Duration // delay resolution for nice logs, default=1ms

	next time.Duration
}

// DelayAfter returns 0 after success, growing delay after consecutive failures.
func (b *Backoff) DelayAfter(success bool) time.Duration {
	if success {
		b.Reset()
		return 0
	}
	return b.Failure()
}

// Failure returns current delay and increases next one.
func (b *Backoff) Failure() time.Duration {
	if b.next == 0 {
		b.next = b.Min
	}
	delay := b.limit(b.next)
	k := b.K
	if k < 1 {
		k = 2
	}
	b.next = b.limit(time.Duration(float32(b.next) * k))
	return delay
}

func (b *Backoff) Reset() { b.next = 0 }

func (b *Backoff) limit(d time.Duration) time.Duration {
	if d < b.Min {
		d = b.Min
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	return b.round(d)
}

func (b *Backoff) round(d time.Duration) time.Duration {
	res := b.Res
	if res == 0 {
		res = 1 * time.Millisecond
	}
	return d / res * res
}
