// Package frame implements the Go-Back-N wire unit and the out-of-band
// metadata the engine carries beside it. A Frame never carries its own
// source/destination/protocol — those are a Meta sidecar, attached at
// the endpoint and kept alongside the window entry for the life of a
// retransmittable frame, exactly as the design notes require.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/gbnarq/engine/pkg/addr"
)

const (
	// DefaultMaxSeq is the default sequence-number modulus.
	DefaultMaxSeq uint64 = 65536

	// DefaultMTU is the default maximum frame size (header + payload).
	DefaultMTU = 65535

	// HeaderSize is the abstract wire header size: 8 octets of sequence
	// number plus 1 octet of isAck flag. It intentionally does not grow
	// with payload size or carry any TLV-style framing.
	HeaderSize = 9
)

// Frame is the unit that crosses the Channel.
type Frame struct {
	Seq     uint64
	IsAck   bool
	Payload []byte
}

// Meta is the sidecar metadata the spec says is attached at the endpoint
// and never serialized across the (abstract) wire: source, destination and
// a protocol identifier, needed for routing within the Channel and for
// reconstructing retransmissions.
type Meta struct {
	Src   addr.Address
	Dst   addr.Address
	Proto uint16
}

// SizeBits returns the on-wire size of the frame in bits, used to compute
// serialization delay.
func (f Frame) SizeBits() int {
	return (HeaderSize + len(f.Payload)) * 8
}

// Clone returns an independent deep copy of f, so that per-receiver
// mutation (header strip, payload hand-off) on one copy can never be
// observed by another endpoint sharing the same logical transmission.
func (f Frame) Clone() Frame {
	var payload []byte
	if f.Payload != nil {
		payload = make([]byte, len(f.Payload))
		copy(payload, f.Payload)
	}
	return Frame{Seq: f.Seq, IsAck: f.IsAck, Payload: payload}
}

// Marshal serializes the frame to the abstract wire layout: seq (8 octets,
// big-endian), isAck (1 octet, 0 or 1), payload.
func (f Frame) Marshal() ([]byte, error) {
	buf := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint64(buf[0:8], f.Seq)
	if f.IsAck {
		buf[8] = 1
	}
	copy(buf[HeaderSize:], f.Payload)
	return buf, nil
}

// Unmarshal parses the abstract wire layout produced by Marshal.
func (f *Frame) Unmarshal(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("frame: too small: need at least %d bytes, got %d", HeaderSize, len(data))
	}
	f.Seq = binary.BigEndian.Uint64(data[0:8])
	switch data[8] {
	case 0:
		f.IsAck = false
	case 1:
		f.IsAck = true
	default:
		return fmt.Errorf("frame: invalid isAck octet: %d", data[8])
	}
	if n := len(data) - HeaderSize; n > 0 {
		f.Payload = make([]byte, n)
		copy(f.Payload, data[HeaderSize:])
	} else {
		f.Payload = nil
	}
	return nil
}

// String renders a short diagnostic form of the frame.
func (f Frame) String() string {
	kind := "DATA"
	if f.IsAck {
		kind = "ACK"
	}
	return fmt.Sprintf("Frame{%s seq=%d len=%d}", kind, f.Seq, len(f.Payload))
}
