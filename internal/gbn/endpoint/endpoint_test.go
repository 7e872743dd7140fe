package endpoint

import (
	"testing"
	"time"

	"github.com/gbnarq/engine/internal/gbn/channel"
	"github.com/gbnarq/engine/internal/gbn/config"
	"github.com/gbnarq/engine/internal/gbn/errormodel"
	"github.com/gbnarq/engine/internal/gbn/frame"
	"github.com/gbnarq/engine/pkg/addr"
	"github.com/gbnarq/engine/pkg/clock"
)

func testConfig(windowSize int) config.EndpointConfig {
	return config.EndpointConfig{
		DataRate:        5_000_000,
		WindowSize:      windowSize,
		MaxSeq:          65536,
		MTU:             65535,
		TxQueueCapacity: 1000,
		RTOMillis:       1000,
	}
}

func mustAddr(last byte) addr.Address {
	var a addr.Address
	a[5] = last
	return a
}

type harness struct {
	sim *clock.Sim
	ch  *channel.Channel
	a   *LinkEndpoint
	b   *LinkEndpoint

	delivered []string
}

func newHarness(t *testing.T, windowSize int, delay time.Duration, em errormodel.Model) *harness {
	t.Helper()
	sim := clock.NewSim()
	ch := channel.New(sim, delay, false)
	h := &harness{sim: sim, ch: ch}

	cfg := testConfig(windowSize)
	var err error
	h.a, err = New(mustAddr(1), sim, ch, cfg, nil, Hooks{}, nil)
	if err != nil {
		t.Fatalf("New(a): %v", err)
	}
	h.b, err = New(mustAddr(2), sim, ch, cfg, em, Hooks{
		OnDeliver: func(payload []byte, proto uint16, src addr.Address) {
			h.delivered = append(h.delivered, string(payload))
		},
	}, nil)
	if err != nil {
		t.Fatalf("New(b): %v", err)
	}
	if err := ch.Attach(h.a); err != nil {
		t.Fatal(err)
	}
	if err := ch.Attach(h.b); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestLosslessStopAndWaitDeliversAllInOrder(t *testing.T) {
	h := newHarness(t, 1, 2*time.Millisecond, errormodel.None{})

	payloads := []string{"p0", "p1", "p2", "p3", "p4"}
	for _, p := range payloads {
		if !h.a.Send([]byte(p), h.b.Address(), 7) {
			t.Fatalf("Send(%q) not admitted", p)
		}
	}

	h.sim.RunFor(200 * time.Millisecond)

	if len(h.delivered) != len(payloads) {
		t.Fatalf("delivered %d payloads, want %d: %v", len(h.delivered), len(payloads), h.delivered)
	}
	for i, p := range payloads {
		if h.delivered[i] != p {
			t.Fatalf("delivered[%d] = %q, want %q (out of order)", i, h.delivered[i], p)
		}
	}
}

// dropNth corrupts exactly the n'th data frame it observes (1-indexed, by
// arrival order), modeling spec scenario 3: window=10, loss on the 3rd
// frame. Frames 4-10 then arrive while expected_seq is still 2, so each
// triggers a duplicate ACK for seq=2 — the sequence-gated Ack fix must
// keep those from being misread as sliding the window forward.
type dropNth struct {
	n    int
	seen int
}

func (d *dropNth) IsCorrupt(f frame.Frame) bool {
	if f.IsAck {
		return false
	}
	d.seen++
	return d.seen == d.n
}

func TestWindowRecoversFromSingleLossWithoutMisreadingDuplicateAcks(t *testing.T) {
	em := &dropNth{n: 3}
	h := newHarness(t, 10, 2*time.Millisecond, em)

	for i := 0; i < 10; i++ {
		if !h.a.Send([]byte{byte(i)}, h.b.Address(), 1) {
			t.Fatalf("Send #%d not admitted", i)
		}
	}

	h.sim.RunFor(5 * time.Second)

	if len(h.delivered) != 10 {
		t.Fatalf("delivered %d payloads, want 10 (expected full recovery after go-back-n retransmission)", len(h.delivered))
	}
	for i := 0; i < 10; i++ {
		if h.delivered[i][0] != byte(i) {
			t.Fatalf("delivered[%d] = %v, want payload %d (out of order or duplicated)", i, []byte(h.delivered[i]), i)
		}
	}
}

type dropAll struct{}

func (dropAll) IsCorrupt(frame.Frame) bool { return true }

func TestTimeoutDrivenRetransmissionWhenBothFramesLost(t *testing.T) {
	h := newHarness(t, 2, 2*time.Millisecond, dropAll{})

	h.a.Send([]byte("x"), h.b.Address(), 1)
	h.a.Send([]byte("y"), h.b.Address(), 1)

	h.sim.RunFor(500 * time.Millisecond)
	if h.a.WindowLen() != 2 {
		t.Fatalf("WindowLen() = %d before timeout, want 2 (still awaiting ack/timeout)", h.a.WindowLen())
	}

	var retransmits int
	h.a.hooks.OnRetransmit = func(seq uint64, retries int) { retransmits++ }

	h.sim.RunFor(700 * time.Millisecond) // past rto=1s from admission
	if retransmits == 0 {
		t.Fatal("expected at least one retransmission after rto elapsed with both frames lost")
	}
	if h.a.WindowLen() != 2 {
		t.Fatal("window should still hold both unacknowledged frames after a go-back-n retransmit pass")
	}
}

func TestSendRejectsPayloadLargerThanMTU(t *testing.T) {
	h := newHarness(t, 1, 0, errormodel.None{})
	h.a.cfg.MTU = 16
	if h.a.Send(make([]byte, 32), h.b.Address(), 1) {
		t.Fatal("Send should reject a payload that overflows MTU")
	}
}

func TestPromiscuousHookSeesOtherHostTraffic(t *testing.T) {
	sim := clock.NewSim()
	ch := channel.New(sim, 0, false)
	cfg := testConfig(4)

	var tapped int
	tap, err := New(mustAddr(3), sim, ch, cfg, nil, Hooks{
		Promiscuous: func(f frame.Frame, meta frame.Meta, pt addr.PacketType) {
			if pt == addr.PacketOtherHost {
				tapped++
			}
		},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(mustAddr(1), sim, ch, cfg, nil, Hooks{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(mustAddr(2), sim, ch, cfg, nil, Hooks{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ch.Attach(tap)
	ch.Attach(a)
	ch.Attach(b)

	a.Send([]byte("hi"), b.Address(), 1)
	sim.Run()

	if tapped == 0 {
		t.Fatal("promiscuous hook never observed other-host traffic")
	}
}
