// Package addr provides the 48-bit, MAC-like endpoint address used to
// identify LinkEndpoints on a Channel. The engine treats addresses as
// opaque values; it never inspects their bytes beyond equality and the
// broadcast/multicast classification in Classify.
package addr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the length of an Address in bytes (48 bits).
const Size = 6

// Address is a 48-bit identifier, unique per endpoint.
type Address [Size]byte

// Broadcast is the all-ones address; frames destined to it are delivered
// to every endpoint on the channel.
var Broadcast = Address{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Zero is the unset address.
var Zero = Address{}

// New generates a random locally-administered address using crypto/rand.
// Bit 1 of the first octet (the locally-administered bit) is set and bit 0
// (the multicast bit) is cleared, so New never collides with Broadcast or a
// multicast address.
func New() (Address, error) {
	var a Address
	if _, err := rand.Read(a[:]); err != nil {
		return Zero, fmt.Errorf("addr: generate random address: %w", err)
	}
	a[0] &^= 0x01 // clear multicast bit
	a[0] |= 0x02  // set locally-administered bit
	return a, nil
}

// FromString parses a colon- or hyphen-separated hex address, e.g.
// "02:1a:2b:3c:4d:5e".
func FromString(s string) (Address, error) {
	cleaned := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(cleaned) != Size*2 {
		return Zero, fmt.Errorf("addr: invalid address length: expected %d hex chars, got %d", Size*2, len(cleaned))
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return Zero, fmt.Errorf("addr: invalid address %q: %w", s, err)
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool {
	return a == Zero
}

// IsBroadcast reports whether the address is the broadcast address.
func (a Address) IsBroadcast() bool {
	return a == Broadcast
}

// IsMulticast reports whether the address has the multicast bit set and is
// not the broadcast address.
func (a Address) IsMulticast() bool {
	return a[0]&0x01 != 0 && !a.IsBroadcast()
}

// String returns the colon-separated hex form of the address.
func (a Address) String() string {
	parts := make([]string, Size)
	for i, b := range a {
		parts[i] = hex.EncodeToString([]byte{b})
	}
	return strings.Join(parts, ":")
}

// PacketType classifies an inbound frame by its destination address,
// relative to a given endpoint's own address. It mirrors the ns-3
// NetDevice::PacketType enum the original gbn-net-device.cc used to decide
// whether to hand a frame up the stack or only to the promiscuous tap.
type PacketType int

const (
	// PacketHost is a unicast frame addressed to the local endpoint.
	PacketHost PacketType = iota
	// PacketBroadcast is addressed to Broadcast.
	PacketBroadcast
	// PacketMulticast is addressed to a multicast address.
	PacketMulticast
	// PacketOtherHost is unicast to some other endpoint.
	PacketOtherHost
)

func (t PacketType) String() string {
	switch t {
	case PacketHost:
		return "HOST"
	case PacketBroadcast:
		return "BROADCAST"
	case PacketMulticast:
		return "MULTICAST"
	case PacketOtherHost:
		return "OTHERHOST"
	default:
		return "UNKNOWN"
	}
}

// Classify reports how a frame addressed to dst should be treated by an
// endpoint whose own address is self.
func Classify(dst, self Address) PacketType {
	switch {
	case dst.IsBroadcast():
		return PacketBroadcast
	case dst.IsMulticast():
		return PacketMulticast
	case dst == self:
		return PacketHost
	default:
		return PacketOtherHost
	}
}
