package errormodel

import (
	"testing"

	"github.com/gbnarq/engine/internal/gbn/frame"
)

func TestNoneNeverCorrupts(t *testing.T) {
	var m None
	for i := 0; i < 100; i++ {
		if m.IsCorrupt(frame.Frame{Seq: uint64(i)}) {
			t.Fatal("None reported corruption")
		}
	}
}

func TestBernoulliZeroNeverCorrupts(t *testing.T) {
	m, err := NewBernoulli(0, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if m.IsCorrupt(frame.Frame{}) {
			t.Fatal("p=0 model reported corruption")
		}
	}
}

func TestBernoulliOneAlwaysCorrupts(t *testing.T) {
	m, err := NewBernoulli(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1000; i++ {
		if !m.IsCorrupt(frame.Frame{}) {
			t.Fatal("p=1 model reported no corruption")
		}
	}
}

func TestBernoulliIsReproducibleGivenSeed(t *testing.T) {
	a, _ := NewBernoulli(0.5, 42)
	b, _ := NewBernoulli(0.5, 42)

	for i := 0; i < 500; i++ {
		if a.IsCorrupt(frame.Frame{}) != b.IsCorrupt(frame.Frame{}) {
			t.Fatalf("same-seeded models diverged at trial %d", i)
		}
	}
}

func TestBernoulliRejectsBadP(t *testing.T) {
	if _, err := NewBernoulli(-0.1, 1); err == nil {
		t.Error("expected error for negative p")
	}
	if _, err := NewBernoulli(1.1, 1); err == nil {
		t.Error("expected error for p > 1")
	}
}

func TestBernoulliRoughlyMatchesRate(t *testing.T) {
	m, _ := NewBernoulli(0.3, 7)
	n := 20000
	corrupt := 0
	for i := 0; i < n; i++ {
		if m.IsCorrupt(frame.Frame{}) {
			corrupt++
		}
	}
	rate := float64(corrupt) / float64(n)
	if rate < 0.25 || rate > 0.35 {
		t.Fatalf("observed corruption rate %.3f, want close to 0.3", rate)
	}
}
