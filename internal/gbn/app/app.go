// Package app provides the thin upper-layer traffic source and sink the
// spec treats as external collaborators to the engine: a periodic
// payload generator driving LinkEndpoint.Send, and a sink counting
// delivered bytes and timestamping the last delivery. Neither type knows
// anything about sequencing, windows, or retransmission — they only see
// the Send/OnReceive down-call and up-call surface.
package app

import (
	"sync"
	"time"

	"github.com/gbnarq/engine/pkg/addr"
	"github.com/gbnarq/engine/pkg/clock"
)

// Sender is the down-call side: a LinkEndpoint's Send method, exposed as
// an interface so app.Sender never needs to import the endpoint package.
type Sender interface {
	Send(payload []byte, dest addr.Address, proto uint16) bool
}

// PayloadGen produces the next payload to offer, given the 0-indexed
// count of payloads already generated. A fixed-size generator ignores n.
type PayloadGen func(n int) []byte

// FixedPayload returns a PayloadGen that always returns a zero-filled
// payload of the given size, a convenient default for throughput
// scenarios where payload content does not matter.
func FixedPayload(size int) PayloadGen {
	return func(int) []byte {
		return make([]byte, size)
	}
}

// AppSender periodically offers a payload to a Sender at a fixed
// interval, for up to Count payloads (or forever if Count <= 0). It is
// the application traffic generator the spec's overview calls "thin":
// it does not retry a rejected Send (a full tx_queue is backpressure the
// application is expected to react to by slowing down, which this
// minimal generator does not model).
type AppSender struct {
	clk    clock.Clock
	sender Sender
	dest   addr.Address
	proto  uint16
	gen    PayloadGen
	count  int

	mu       sync.Mutex
	sent     int
	admitted int
	rejected int
	handle   clock.Handle
}

// NewAppSender creates an AppSender that, once Start is called, offers a
// payload every interval to dest via sender, until count payloads have
// been offered (count <= 0 means unbounded).
func NewAppSender(clk clock.Clock, sender Sender, dest addr.Address, proto uint16, gen PayloadGen, count int) *AppSender {
	if gen == nil {
		gen = FixedPayload(64)
	}
	return &AppSender{clk: clk, sender: sender, dest: dest, proto: proto, gen: gen, count: count}
}

// Stats is a snapshot of an AppSender's progress.
type Stats struct {
	Sent     int
	Admitted int
	Rejected int
}

// Stats returns a snapshot of how many payloads have been offered so far
// and how many were admitted vs. rejected by the tx_queue.
func (a *AppSender) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Sent: a.sent, Admitted: a.admitted, Rejected: a.rejected}
}

// Start begins the periodic offer loop, scheduling the first tick
// immediately and each subsequent tick interval after the previous one
// fired (ticks never drift with Send latency, since Send itself never
// blocks).
func (a *AppSender) Start(interval time.Duration) {
	a.tick(interval)
}

func (a *AppSender) tick(interval time.Duration) {
	a.mu.Lock()
	if a.count > 0 && a.sent >= a.count {
		a.mu.Unlock()
		return
	}
	payload := a.gen(a.sent)
	a.sent++
	a.mu.Unlock()

	admitted := a.sender.Send(payload, a.dest, a.proto)

	a.mu.Lock()
	if admitted {
		a.admitted++
	} else {
		a.rejected++
	}
	done := a.count > 0 && a.sent >= a.count
	a.mu.Unlock()

	if !done {
		a.handle = a.clk.Schedule(interval, func() { a.tick(interval) })
	}
}

// Stop cancels any pending tick.
func (a *AppSender) Stop() {
	if a.handle != nil {
		a.clk.Cancel(a.handle)
		a.handle = nil
	}
}

// Sink is the up-call side: it counts delivered bytes and payloads and
// timestamps the most recent delivery, the minimal bookkeeping §2's
// overview describes for the AppReceiver role.
type Sink struct {
	mu           sync.Mutex
	payloads     int
	bytes        int64
	lastDelivery clock.Time
	lastSrc      addr.Address
	history      [][]byte
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{}
}

// OnReceive is wired into a LinkEndpoint's Hooks.OnDeliver callback via a
// small adapter (see BindHook), counting the payload and recording when
// it arrived.
func (s *Sink) OnReceive(now clock.Time, payload []byte, proto uint16, src addr.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads++
	s.bytes += int64(len(payload))
	s.lastDelivery = now
	s.lastSrc = src
	cp := make([]byte, len(payload))
	copy(cp, payload)
	s.history = append(s.history, cp)
}

// BindHook adapts Sink.OnReceive to the endpoint.Hooks.OnDeliver shape,
// which carries no clock — the caller supplies the clock so the sink can
// still timestamp deliveries without importing the endpoint package.
func (s *Sink) BindHook(clk clock.Clock) func(payload []byte, proto uint16, src addr.Address) {
	return func(payload []byte, proto uint16, src addr.Address) {
		s.OnReceive(clk.Now(), payload, proto, src)
	}
}

// SinkStats is a snapshot of everything a Sink has observed.
type SinkStats struct {
	Payloads     int
	Bytes        int64
	LastDelivery clock.Time
	LastSrc      addr.Address
}

// Stats returns a snapshot of the sink's counters.
func (s *Sink) Stats() SinkStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SinkStats{Payloads: s.payloads, Bytes: s.bytes, LastDelivery: s.lastDelivery, LastSrc: s.lastSrc}
}

// History returns every payload delivered so far, in delivery order. The
// returned slice is a defensive copy.
func (s *Sink) History() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.history))
	copy(out, s.history)
	return out
}
