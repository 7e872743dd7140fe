// Package receiver implements the Go-Back-N receive side: tracking the
// next expected sequence number, accepting or discarding inbound data
// frames, and producing the cumulative ACK to send back.
package receiver

import "github.com/gbnarq/engine/internal/gbn/frame"

// Receiver tracks the next expected sequence number on one direction of a
// link and decides, frame by frame, whether to deliver it to the
// application or discard it.
type Receiver struct {
	modulus  uint64
	expected uint64
}

// New creates a Receiver expecting sequence number 0 first.
func New(modulus uint64) *Receiver {
	return &Receiver{modulus: modulus}
}

// Outcome describes what a Receiver did with an inbound data frame.
type Outcome int

const (
	// Delivered means the frame was exactly the expected next frame, in
	// order, and should be handed to the application.
	Delivered Outcome = iota
	// DuplicateOrOutOfOrder means the frame's sequence number was not the
	// expected one (a retransmission of something already delivered, or a
	// frame that arrived out of order because an earlier one was lost)
	// and must be discarded per the Go-Back-N receiver contract.
	DuplicateOrOutOfOrder
)

// Receive processes an inbound data frame and reports both what happened
// to it and the cumulative ACK to send in response. The ACK always carries
// expected_seq as it stands once this frame's outcome has been decided —
// the next sequence number the receiver still needs, i.e. the exclusive
// upper bound of what has been accepted so far. On Delivered, that is the
// just-delivered frame's own seq plus one; on DuplicateOrOutOfOrder,
// expected_seq is untouched, so the ack re-asserts the same boundary as
// the last ack sent. A Go-Back-N receiver ACKs every non-corrupt data
// frame it sees, including duplicates and out-of-order arrivals, which is
// what drives the sender's retransmission once a gap is filled; the
// sender's window must treat this ack.Seq as an exclusive bound (pop
// everything strictly before it) rather than popping through it, or a
// still-missing frame sharing the ack's seq would be acknowledged without
// ever having arrived.
func (r *Receiver) Receive(f frame.Frame) (Outcome, frame.Frame) {
	if f.Seq != r.expected {
		return DuplicateOrOutOfOrder, frame.Frame{Seq: r.expected, IsAck: true}
	}
	r.expected = frame.SeqAdd(r.expected, 1, r.modulus)
	return Delivered, frame.Frame{Seq: r.expected, IsAck: true}
}

// Expected returns the next sequence number this receiver is waiting for.
func (r *Receiver) Expected() uint64 { return r.expected }
