package receiver

import (
	"testing"

	"github.com/gbnarq/engine/internal/gbn/frame"
)

func TestInOrderDeliveryAdvancesExpected(t *testing.T) {
	r := New(16)
	for i := uint64(0); i < 5; i++ {
		out, ack := r.Receive(frame.Frame{Seq: i})
		if out != Delivered {
			t.Fatalf("seq %d: got %v, want Delivered", i, out)
		}
		// ack.Seq is the exclusive next-needed bound, i.e. i+1, not i.
		if !ack.IsAck || ack.Seq != i+1 {
			t.Fatalf("seq %d: ack = %+v, want seq %d", i, ack, i+1)
		}
	}
	if r.Expected() != 5 {
		t.Fatalf("Expected() = %d, want 5", r.Expected())
	}
}

func TestOutOfOrderIsDiscardedAndAcksExpected(t *testing.T) {
	r := New(16)
	r.Receive(frame.Frame{Seq: 0})
	out, ack := r.Receive(frame.Frame{Seq: 2}) // gap: seq 1 was lost
	if out != DuplicateOrOutOfOrder {
		t.Fatalf("got %v, want DuplicateOrOutOfOrder", out)
	}
	if r.Expected() != 1 {
		t.Fatalf("Expected() = %d, want 1 (unchanged)", r.Expected())
	}
	if !ack.IsAck || ack.Seq != 1 {
		t.Fatalf("ack = %+v, want cumulative ack for seq 1 (current expected)", ack)
	}
}

func TestDuplicateRetransmitIsDiscardedAndReAcksCurrentExpected(t *testing.T) {
	r := New(16)
	r.Receive(frame.Frame{Seq: 0})
	r.Receive(frame.Frame{Seq: 1})

	out, ack := r.Receive(frame.Frame{Seq: 1}) // duplicate retransmission
	if out != DuplicateOrOutOfOrder {
		t.Fatalf("got %v, want DuplicateOrOutOfOrder", out)
	}
	// expected_seq has already advanced to 2 by the time this duplicate
	// arrives, so the re-sent cumulative ack must carry 2, not the
	// duplicate's own seq of 1.
	if !ack.IsAck || ack.Seq != 2 {
		t.Fatalf("ack = %+v, want cumulative ack for current expected_seq 2", ack)
	}
}

func TestFirstFrameEverOutOfOrderStillAcks(t *testing.T) {
	r := New(16)
	out, ack := r.Receive(frame.Frame{Seq: 5}) // nothing delivered yet, expects 0
	if out != DuplicateOrOutOfOrder {
		t.Fatalf("got %v, want DuplicateOrOutOfOrder", out)
	}
	if !ack.IsAck || ack.Seq != 0 {
		t.Fatalf("ack = %+v, want cumulative ack for expected_seq 0", ack)
	}
}

func TestExpectedWrapsAtModulus(t *testing.T) {
	r := New(4)
	for i := uint64(0); i < 4; i++ {
		r.Receive(frame.Frame{Seq: i})
	}
	if r.Expected() != 0 {
		t.Fatalf("Expected() = %d, want 0 (wrapped)", r.Expected())
	}
	out, _ := r.Receive(frame.Frame{Seq: 0})
	if out != Delivered {
		t.Fatalf("got %v, want Delivered after wraparound", out)
	}
}
