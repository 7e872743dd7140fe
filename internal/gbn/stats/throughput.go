// Package stats computes delivered-throughput estimates for reporting
// to the harness summary and to Prometheus, without coupling the
// protocol packages to any particular reporting sink.
package stats

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sample is one delivery observation: how many bits arrived at a point
// in time.
type sample struct {
	at   time.Time
	bits float64
}

// ThroughputSampler estimates delivered bits/sec over a trailing window,
// the same sliding-window idea the teacher's rate-limiting middleware
// applies to request admission, here applied to a read-side metric
// instead of an admission decision. Recomputation of the windowed sum is
// itself rate-limited via a token bucket so a hot delivery path calling
// Record many times per millisecond doesn't pay for a full window scan
// on every call.
type ThroughputSampler struct {
	mu      sync.Mutex
	window  time.Duration
	samples []sample

	recomputeLimiter *rate.Limiter
	cachedBitsPerSec float64
}

// NewThroughputSampler creates a sampler estimating throughput over the
// trailing window duration, recomputing its cached estimate at most
// once every window/10 (or once per millisecond if window/10 is zero).
func NewThroughputSampler(window time.Duration) *ThroughputSampler {
	every := window / 10
	if every <= 0 {
		every = time.Millisecond
	}
	return &ThroughputSampler{
		window:           window,
		recomputeLimiter: rate.NewLimiter(rate.Every(every), 1),
	}
}

// Record registers a delivery of n bytes at time at.
func (s *ThroughputSampler) Record(at time.Time, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, sample{at: at, bits: float64(n) * 8})
}

// BitsPerSecond returns the estimated delivered-bits-per-second rate as
// of now, trimming samples that have aged out of the window. The
// underlying recompute is throttled by recomputeLimiter; calls that
// arrive faster than that get the last cached value.
func (s *ThroughputSampler) BitsPerSecond(now time.Time) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recomputeLimiter.AllowN(now, 1) {
		return s.cachedBitsPerSec
	}

	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	s.samples = s.samples[i:]

	var total float64
	for _, sm := range s.samples {
		total += sm.bits
	}
	if len(s.samples) == 0 {
		s.cachedBitsPerSec = 0
		return 0
	}
	span := now.Sub(s.samples[0].at)
	if span <= 0 {
		span = s.window
	}
	s.cachedBitsPerSec = total / span.Seconds()
	return s.cachedBitsPerSec
}
