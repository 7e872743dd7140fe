package clock

import (
	"sync"
	"time"
)

// Realtime is a Clock backed by the wall clock and time.AfterFunc, for
// driving the engine against a real network instead of a simulation (the
// live demo harness in cmd/gbnsim uses this).
type Realtime struct {
	start time.Time

	mu      sync.Mutex
	pending map[*realtimeHandle]struct{}

	dispatch sync.Mutex // serializes callbacks, so they never run concurrently
}

// NewRealtime creates a Realtime clock whose Now() starts at zero and
// tracks time.Since(start) from then on.
func NewRealtime() *Realtime {
	return &Realtime{
		start:   time.Now(),
		pending: make(map[*realtimeHandle]struct{}),
	}
}

func (r *Realtime) Now() Time {
	return Time(time.Since(r.start))
}

type realtimeHandle struct {
	r     *Realtime
	timer *time.Timer
}

func (h *realtimeHandle) Cancel() {
	h.timer.Stop()
	h.r.mu.Lock()
	delete(h.r.pending, h)
	h.r.mu.Unlock()
}

func (r *Realtime) Schedule(delay time.Duration, fn func()) Handle {
	if delay < 0 {
		delay = 0
	}
	h := &realtimeHandle{r: r}
	h.timer = time.AfterFunc(delay, func() {
		r.mu.Lock()
		_, stillPending := r.pending[h]
		delete(r.pending, h)
		r.mu.Unlock()
		if stillPending {
			r.dispatch.Lock()
			defer r.dispatch.Unlock()
			fn()
		}
	})
	r.mu.Lock()
	r.pending[h] = struct{}{}
	r.mu.Unlock()
	return h
}

func (r *Realtime) Cancel(h Handle) {
	if h == nil {
		return
	}
	h.Cancel()
}

// Stop cancels every still-pending timer, for clean shutdown.
func (r *Realtime) Stop() {
	r.mu.Lock()
	handles := make([]*realtimeHandle, 0, len(r.pending))
	for h := range r.pending {
		handles = append(handles, h)
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.Cancel()
	}
}
