// Package errormodel implements the per-receiver corruption oracle: a
// stateless (or seeded-stateful) decision of whether an inbound frame
// should be treated as corrupt before any protocol processing runs.
package errormodel

import (
	"fmt"
	"math/rand"

	"github.com/gbnarq/engine/internal/gbn/frame"
)

// Model decides whether an inbound frame is corrupt.
type Model interface {
	// IsCorrupt reports whether f should be treated as corrupted on
	// arrival. Implementations must not mutate f.
	IsCorrupt(f frame.Frame) bool
}

// None never marks a frame corrupt; it is the default, matching the
// spec's zero-loss default configuration.
type None struct{}

// IsCorrupt always reports false.
func (None) IsCorrupt(frame.Frame) bool { return false }

// Bernoulli marks each inbound frame corrupt independently with
// probability P, regardless of frame size — the default model the spec
// calls for. It is seeded explicitly (rather than from a global source)
// so a run is reproducible given the same Seed.
type Bernoulli struct {
	P   float64
	rng *rand.Rand
}

// NewBernoulli creates a Bernoulli error model with the given corruption
// probability and seed. p must be in [0, 1].
func NewBernoulli(p float64, seed int64) (*Bernoulli, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("errormodel: p must be in [0, 1], got %g", p)
	}
	return &Bernoulli{P: p, rng: rand.New(rand.NewSource(seed))}, nil
}

// IsCorrupt draws one Bernoulli(P) trial.
func (b *Bernoulli) IsCorrupt(frame.Frame) bool {
	if b.P <= 0 {
		return false
	}
	if b.P >= 1 {
		return true
	}
	return b.rng.Float64() < b.P
}
