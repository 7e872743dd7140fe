// Package config defines the recognized link configuration options and
// their defaults, loaded with go-zero's conf package the same way the
// rest of the stack loads its YAML/JSON configuration.
package config

import "fmt"

// ErrorModelKind selects which errormodel.Model implementation a link
// configuration builds.
type ErrorModelKind string

const (
	ErrorModelNone      ErrorModelKind = "none"
	ErrorModelBernoulli ErrorModelKind = "bernoulli"
)

// ErrorModelConfig configures the per-receiver corruption oracle.
type ErrorModelConfig struct {
	Kind ErrorModelKind `json:",default=none,options=none|bernoulli"`
	P    float64        `json:",default=0"`
	Seed int64          `json:",default=1"`
}

// EndpointConfig is the recognized set of link configuration options.
type EndpointConfig struct {
	// DataRate is the link serialization rate in bits/second. Zero means
	// infinite (no serialization delay).
	DataRate uint64 `json:",default=0"`

	// DelayMillis records a channel propagation delay. The endpoint does
	// not read it; the delay in effect is the one passed to channel.New.
	DelayMillis int64 `json:",default=0"`

	ReceiveErrorModel ErrorModelConfig `json:",optional"`

	// PointToPointMode caps the channel at two endpoints. It does not
	// change how the receive path classifies broadcast or multicast
	// destinations.
	PointToPointMode bool `json:",default=false"`

	// TxQueueCapacity bounds the sender's backlog FIFO.
	TxQueueCapacity int `json:",default=1000000"`

	// WindowSize is the sender window, W.
	WindowSize int `json:",default=10"`

	// RTOMillis is the fixed retransmission timeout.
	RTOMillis int64 `json:",default=1000"`

	// MTU is the maximum frame size, header included.
	MTU int `json:",default=65535"`

	// MaxSeq is the sequence-number modulus.
	MaxSeq uint64 `json:",default=65536"`
}

// Validate checks the invariants the rest of the engine assumes hold:
// MaxSeq must exceed WindowSize (or the window could wrap onto itself),
// MTU must be large enough to carry a zero-length payload's header, and
// a Bernoulli error model's P must be a probability.
func (c EndpointConfig) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("config: WindowSize must be positive, got %d", c.WindowSize)
	}
	if c.MaxSeq <= uint64(c.WindowSize) {
		return fmt.Errorf("config: MaxSeq (%d) must exceed WindowSize (%d)", c.MaxSeq, c.WindowSize)
	}
	if c.MTU < 9 {
		return fmt.Errorf("config: MTU must be at least the 9-octet header, got %d", c.MTU)
	}
	if c.TxQueueCapacity <= 0 {
		return fmt.Errorf("config: TxQueueCapacity must be positive, got %d", c.TxQueueCapacity)
	}
	if c.RTOMillis <= 0 {
		return fmt.Errorf("config: RTOMillis must be positive, got %d", c.RTOMillis)
	}
	switch c.ReceiveErrorModel.Kind {
	case ErrorModelNone, "":
	case ErrorModelBernoulli:
		if c.ReceiveErrorModel.P < 0 || c.ReceiveErrorModel.P > 1 {
			return fmt.Errorf("config: ReceiveErrorModel.P must be in [0, 1], got %g", c.ReceiveErrorModel.P)
		}
	default:
		return fmt.Errorf("config: unrecognized ReceiveErrorModel.Kind %q", c.ReceiveErrorModel.Kind)
	}
	return nil
}
