package frame

import (
	"bytes"
	"testing"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	cases := []Frame{
		{Seq: 0, IsAck: false, Payload: nil},
		{Seq: 1, IsAck: true, Payload: nil},
		{Seq: 65535, IsAck: false, Payload: []byte("hello world")},
		{Seq: 1 << 40, IsAck: true, Payload: bytes.Repeat([]byte{0xab}, 300)},
	}

	for _, want := range cases {
		raw, err := want.Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if len(raw) != HeaderSize+len(want.Payload) {
			t.Fatalf("len(raw) = %d, want %d", len(raw), HeaderSize+len(want.Payload))
		}

		var got Frame
		if err := got.Unmarshal(raw); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got.Seq != want.Seq {
			t.Errorf("Seq = %d, want %d", got.Seq, want.Seq)
		}
		if got.IsAck != want.IsAck {
			t.Errorf("IsAck = %v, want %v", got.IsAck, want.IsAck)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("Payload = %v, want %v", got.Payload, want.Payload)
		}
	}
}

func TestUnmarshalRejectsShortBuffer(t *testing.T) {
	var f Frame
	if err := f.Unmarshal(make([]byte, HeaderSize-1)); err == nil {
		t.Fatal("expected error on short buffer")
	}
}

func TestUnmarshalRejectsBadAckOctet(t *testing.T) {
	raw := make([]byte, HeaderSize)
	raw[8] = 2
	var f Frame
	if err := f.Unmarshal(raw); err == nil {
		t.Fatal("expected error on invalid isAck octet")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	orig := Frame{Seq: 7, Payload: []byte{1, 2, 3}}
	clone := orig.Clone()

	clone.Payload[0] = 0xff
	if orig.Payload[0] == 0xff {
		t.Fatal("mutating clone's payload affected the original")
	}
	if clone.Seq != orig.Seq {
		t.Fatalf("clone.Seq = %d, want %d", clone.Seq, orig.Seq)
	}
}

func TestCloneOfNilPayload(t *testing.T) {
	orig := Frame{Seq: 1}
	clone := orig.Clone()
	if clone.Payload != nil {
		t.Fatalf("Clone of nil payload produced non-nil: %v", clone.Payload)
	}
}

func TestSeqLEHalfSpace(t *testing.T) {
	const mod = 16

	if !SeqLE(0, 0, mod) {
		t.Error("a == b must be <=")
	}
	if !SeqLE(0, 7, mod) {
		t.Error("0 should precede 7 within half-space")
	}
	if SeqLE(0, 8, mod) {
		t.Error("0 to 8 is exactly half the modulus, should not count as <=")
	}
	// Wraparound: 15 precedes 2 (going 15 -> 0 -> 1 -> 2).
	if !SeqLE(15, 2, mod) {
		t.Error("15 should precede 2 across wraparound")
	}
	if SeqLE(2, 15, mod) {
		t.Error("2 should not precede 15 across wraparound (15 is behind 2)")
	}
}

func TestSeqLTExcludesEqual(t *testing.T) {
	if SeqLT(5, 5, 16) {
		t.Error("SeqLT(5, 5) must be false")
	}
	if !SeqLT(5, 6, 16) {
		t.Error("SeqLT(5, 6) must be true")
	}
}

func TestSeqAddWraps(t *testing.T) {
	if got := SeqAdd(15, 1, 16); got != 0 {
		t.Fatalf("SeqAdd(15, 1, 16) = %d, want 0", got)
	}
}

func TestSeqDistance(t *testing.T) {
	if d := SeqDistance(14, 2, 16); d != 4 {
		t.Fatalf("SeqDistance(14, 2, 16) = %d, want 4", d)
	}
}

