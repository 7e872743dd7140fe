package scenario

import (
	"testing"
	"time"

	"github.com/gbnarq/engine/internal/gbn/app"
	"github.com/gbnarq/engine/internal/gbn/config"
	"github.com/gbnarq/engine/internal/gbn/errormodel"
	"github.com/gbnarq/engine/pkg/clock"
)

func testCfg() config.EndpointConfig {
	return config.EndpointConfig{
		DataRate:        5_000_000,
		WindowSize:      10,
		MaxSeq:          65536,
		MTU:             65535,
		TxQueueCapacity: 1000,
		RTOMillis:       1000,
	}
}

func TestScenarioDeliversTrafficBetweenTwoNodes(t *testing.T) {
	sim := clock.NewSim()
	s, err := New(sim, []NodeSpec{{Name: "a"}, {Name: "b"}}, Options{
		EndpointConfig: testCfg(),
		Delay:          2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, _ := s.Node("a")
	b, _ := s.Node("b")

	sender := app.NewAppSender(sim, a.Endpoint, b.Address, 7, app.FixedPayload(128), 20)
	sender.Start(10 * time.Millisecond)

	sim.RunFor(2 * time.Second)

	stats := b.Sink.Stats()
	if stats.Payloads != 20 {
		t.Fatalf("delivered %d payloads, want 20", stats.Payloads)
	}
	if stats.Bytes != 20*128 {
		t.Fatalf("delivered %d bytes, want %d", stats.Bytes, 20*128)
	}
}

func TestScenarioRejectsFewerThanTwoNodes(t *testing.T) {
	sim := clock.NewSim()
	_, err := New(sim, []NodeSpec{{Name: "solo"}}, Options{EndpointConfig: testCfg()})
	if err == nil {
		t.Fatal("expected error constructing a scenario with one node")
	}
}

func TestScenarioNodeLookupMissIsFalse(t *testing.T) {
	sim := clock.NewSim()
	s, err := New(sim, []NodeSpec{{Name: "a"}, {Name: "b"}}, Options{EndpointConfig: testCfg()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := s.Node("nope"); ok {
		t.Fatal("expected lookup miss for unknown node name")
	}
}

func TestScenarioCorruptionStillRecoversViaGoBackN(t *testing.T) {
	sim := clock.NewSim()
	em, err := errormodel.NewBernoulli(0.3, 42)
	if err != nil {
		t.Fatalf("NewBernoulli: %v", err)
	}
	s, err := New(sim, []NodeSpec{{Name: "a"}, {Name: "b", ErrorModel: em}}, Options{
		EndpointConfig: testCfg(),
		Delay:          1 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a, _ := s.Node("a")
	b, _ := s.Node("b")
	sender := app.NewAppSender(sim, a.Endpoint, b.Address, 1, app.FixedPayload(32), 10)
	sender.Start(5 * time.Millisecond)

	sim.RunFor(10 * time.Second)

	if b.Sink.Stats().Payloads != 10 {
		t.Fatalf("delivered %d payloads, want 10 even with lossy error model", b.Sink.Stats().Payloads)
	}
}
