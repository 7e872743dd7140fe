// Package window implements the sender's sliding window: the ordered set
// of in-flight frames awaiting cumulative acknowledgement, and the bounded
// transmit queue feeding it. Both are driven entirely by sequence numbers
// and an injected clock.Handle per entry — neither type talks to a clock
// or a channel directly, matching the design notes' call for the window
// to be a pure data structure the endpoint drives.
package window

import (
	"fmt"

	"github.com/gbnarq/engine/internal/gbn/frame"
	"github.com/gbnarq/engine/pkg/clock"
)

// Entry is one in-flight, unacknowledged frame plus the bookkeeping the
// endpoint needs to retransmit or cancel it.
type Entry struct {
	Frame   frame.Frame
	Meta    frame.Meta
	Handle  clock.Handle
	SentAt  clock.Time
	Retries int
}

// Window is the sender's sliding window of in-flight frames, ordered by
// sequence number. Sequence numbers are assigned by the caller (the
// endpoint owns next_seq, since it must advance on every admitted send
// regardless of whether the window has room) — Window only ever appends
// already-stamped frames and enforces ordering/capacity.
type Window struct {
	size    int
	modulus uint64

	entries []Entry // ordered oldest-first, len <= size
}

// New creates an empty Window. size is the maximum number of in-flight
// frames (spec's WindowSize); modulus is the sequence-number space
// (spec's MAX_SEQ), which must be strictly greater than size or the
// window could wrap onto itself.
func New(size int, modulus uint64) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window: size must be positive, got %d", size)
	}
	if modulus <= uint64(size) {
		return nil, fmt.Errorf("window: modulus %d must exceed window size %d", modulus, size)
	}
	return &Window{size: size, modulus: modulus}, nil
}

// Len reports how many frames are currently in flight.
func (w *Window) Len() int { return len(w.entries) }

// Empty reports whether no frames are in flight.
func (w *Window) Empty() bool { return len(w.entries) == 0 }

// Full reports whether the window has no room for another frame.
func (w *Window) Full() bool { return len(w.entries) >= w.size }

// Base returns the sequence number of the oldest unacknowledged frame and
// whether one exists.
func (w *Window) Base() (uint64, bool) {
	if len(w.entries) == 0 {
		return 0, false
	}
	return w.entries[0].Frame.Seq, true
}

// Front returns the oldest in-flight entry. The second return value is
// false if the window is empty.
func (w *Window) Front() (Entry, bool) {
	if len(w.entries) == 0 {
		return Entry{}, false
	}
	return w.entries[0], true
}

// Entries returns the in-flight entries, oldest first. The returned slice
// shares the window's own storage: it is safe to range over, but must not
// be modified or retained past the next mutating call.
func (w *Window) Entries() []Entry {
	return w.entries
}

// Push admits an already-stamped frame into the back of the window. The
// caller must have already checked Full() and assigned f.Seq.
func (w *Window) Push(f frame.Frame, meta frame.Meta, h clock.Handle, sentAt clock.Time) error {
	if w.Full() {
		return fmt.Errorf("window: push on full window (size %d)", w.size)
	}
	w.entries = append(w.entries, Entry{Frame: f, Meta: meta, Handle: h, SentAt: sentAt})
	return nil
}

// Ack applies a cumulative acknowledgement. ackSeq is the receiver's
// expected_seq — the next sequence number it still needs — which makes it
// an EXCLUSIVE upper bound on what has been accepted: every in-flight
// entry whose seq strictly precedes ackSeq (in half-space, modular order)
// has been received and is popped and returned, oldest first. An entry
// whose seq equals ackSeq is the frame the receiver is still waiting for
// and must NOT be popped — treating ackSeq as inclusive would acknowledge
// a frame that was never delivered the moment a gap produces a re-ack of
// the same expected_seq for every subsequent out-of-order arrival. Stale
// or duplicate acks (ackSeq does not advance past the current front) and
// acks referencing sequence numbers beyond anything sent both simply pop
// nothing. Their timer Handles are NOT cancelled here — that is the
// caller's responsibility, since only the caller (the endpoint) knows
// whether a fresh timer should be armed for the new front.
func (w *Window) Ack(ackSeq uint64) []Entry {
	if len(w.entries) == 0 {
		return nil
	}
	last := w.entries[len(w.entries)-1].Frame.Seq
	upperBound := frame.SeqAdd(last, 1, w.modulus)
	if !frame.SeqLE(ackSeq, upperBound, w.modulus) {
		return nil // ack references a sequence number not yet in flight
	}

	var acked []Entry
	for len(w.entries) > 0 && frame.SeqLT(w.entries[0].Frame.Seq, ackSeq, w.modulus) {
		acked = append(acked, w.entries[0])
		w.entries = w.entries[1:]
	}
	return acked
}

// SetHandle replaces the timer Handle of the i'th in-flight entry, used
// when a deadline is cancelled and rescheduled (a Go-Back-N timeout
// resetting the front's deadline, or a TC firing resetting the next
// entry's deadline before transmitting it).
func (w *Window) SetHandle(i int, h clock.Handle, sentAt clock.Time) {
	w.entries[i].Handle = h
	w.entries[i].SentAt = sentAt
}

// MarkRetransmitted increments the retry count of the i'th in-flight
// entry, used every time the TC handler re-walks the window after a
// Go-Back-N timeout and re-sends an already-sent entry.
func (w *Window) MarkRetransmitted(i int) {
	w.entries[i].Retries++
}
