// Package scenario is the harness glue: it wires a Channel, a set of
// LinkEndpoints, their ErrorModels, and app traffic generators/sinks
// into one runnable unit driven by a clock.Clock, mirroring how the
// teacher's svc.ServiceContext assembles a gateway's collaborators from
// a Config. None of this is protocol logic — it is addressing, event
// bookkeeping, and wiring, exactly the "harness glue" slice the spec's
// overview tables at ~10%.
package scenario

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gbnarq/engine/internal/gbn/app"
	"github.com/gbnarq/engine/internal/gbn/channel"
	"github.com/gbnarq/engine/internal/gbn/config"
	"github.com/gbnarq/engine/internal/gbn/endpoint"
	"github.com/gbnarq/engine/internal/gbn/errormodel"
	"github.com/gbnarq/engine/internal/gbn/frame"
	"github.com/gbnarq/engine/internal/gbn/metrics"
	"github.com/gbnarq/engine/internal/gbn/observer"
	"github.com/gbnarq/engine/internal/gbn/stats"
	"github.com/gbnarq/engine/internal/gbn/tracing"
	"github.com/gbnarq/engine/pkg/addr"
	"github.com/gbnarq/engine/pkg/clock"
)

// epoch anchors clock.Time values (elapsed durations) to an absolute
// time.Time so stats.ThroughputSampler, which windows on wall-clock-
// shaped timestamps, can be reused unmodified against either the
// deterministic Sim clock or the Realtime clock.
var epoch = time.Unix(0, 0)

func absoluteTime(t clock.Time) time.Time {
	return epoch.Add(time.Duration(t))
}

// NodeSpec describes one LinkEndpoint to create and attach.
type NodeSpec struct {
	// Name is a human-readable label used in metrics and observer events.
	Name string
	// ErrorModel is this node's receive-side corruption oracle. Nil means
	// errormodel.None{}.
	ErrorModel errormodel.Model
}

// Node is a fully wired endpoint plus its app-layer sink.
type Node struct {
	Name       string
	Address    addr.Address
	Endpoint   *endpoint.LinkEndpoint
	Sink       *app.Sink
	Throughput *stats.ThroughputSampler
}

// Scenario is a complete, runnable instance of the engine: one Channel,
// a handful of Nodes attached to it, and whatever AppSenders the caller
// starts against them.
type Scenario struct {
	Clock   clock.Clock
	Channel *channel.Channel
	Nodes   []*Node
	Metrics *metrics.Metrics
	Windows *metrics.WindowCollector
	Hub     *observer.Hub

	log *zap.Logger
}

// Options configures Scenario construction. EndpointConfig is shared by
// every node (the spec does not model per-node heterogeneous windows or
// rates); Metrics/Hub may be nil to disable instrumentation.
type Options struct {
	EndpointConfig config.EndpointConfig
	PointToPoint   bool
	Delay          time.Duration
	Metrics        *metrics.Metrics
	Hub            *observer.Hub
	Tracer         *tracing.Tracer
	Log            *zap.Logger
}

// New builds a Scenario with one Channel and len(specs) attached Nodes,
// each with a freshly generated Address and its own app.Sink wired to
// OnDeliver. clk drives every scheduled event in the scenario.
func New(clk clock.Clock, specs []NodeSpec, opts Options) (*Scenario, error) {
	if len(specs) < 2 {
		return nil, fmt.Errorf("scenario: need at least 2 nodes, got %d", len(specs))
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ch := channel.New(clk, opts.Delay, opts.PointToPoint)
	var windows *metrics.WindowCollector
	if opts.Metrics != nil {
		windows = metrics.NewWindowCollector("gbn", "scenario")
	}

	s := &Scenario{
		Clock:   clk,
		Channel: ch,
		Metrics: opts.Metrics,
		Windows: windows,
		Hub:     opts.Hub,
		log:     log,
	}

	for _, spec := range specs {
		a, err := addr.New()
		if err != nil {
			return nil, fmt.Errorf("scenario: generate address for %q: %w", spec.Name, err)
		}
		node := &Node{Name: spec.Name, Address: a, Sink: app.NewSink(), Throughput: stats.NewThroughputSampler(time.Second)}

		hooks := s.buildHooks(node)
		ep, err := endpoint.New(a, clk, ch, opts.EndpointConfig, spec.ErrorModel, hooks, log.With(zap.String("node", spec.Name)))
		if err != nil {
			return nil, fmt.Errorf("scenario: create endpoint %q: %w", spec.Name, err)
		}
		node.Endpoint = ep
		if opts.Tracer != nil {
			ep.SetTracer(opts.Tracer)
		}

		if err := ch.Attach(ep); err != nil {
			return nil, fmt.Errorf("scenario: attach endpoint %q: %w", spec.Name, err)
		}
		if windows != nil {
			windows.Add(metrics.EndpointSampler{Name: spec.Name, WindowLen: ep.WindowLen, TxQueueLen: ep.TxQueueLen})
		}
		s.Nodes = append(s.Nodes, node)
	}
	return s, nil
}

// buildHooks wires a node's endpoint.Hooks to its Sink, the Metrics
// counters, and the observer Hub, all of which are optional.
func (s *Scenario) buildHooks(node *Node) endpoint.Hooks {
	name := node.Name
	m := s.Metrics
	hub := s.Hub

	return endpoint.Hooks{
		OnSend: func(f frame.Frame, serDelay time.Duration) {
			if m == nil {
				return
			}
			kind := "data"
			if f.IsAck {
				kind = "ack"
			}
			m.FramesSent.WithLabelValues(name, kind).Inc()
			m.SerializationSeconds.WithLabelValues(name).Observe(serDelay.Seconds())
		},
		OnDeliver: func(payload []byte, proto uint16, src addr.Address) {
			now := s.Clock.Now()
			node.Sink.OnReceive(now, payload, proto, src)
			node.Throughput.Record(absoluteTime(now), len(payload))
			if m != nil {
				m.FramesDelivered.WithLabelValues(name).Inc()
			}
			if hub != nil {
				hub.Broadcast(observer.Event{Time: s.Clock.Now().String(), Endpoint: name, Kind: "deliver", PayloadLen: len(payload)})
			}
		},
		OnDrop: func(reason string, f frame.Frame, meta frame.Meta) {
			if m != nil {
				m.FramesDropped.WithLabelValues(name, reason).Inc()
			}
			if hub != nil {
				hub.Broadcast(observer.Event{Time: s.Clock.Now().String(), Endpoint: name, Kind: "drop", Reason: reason, Seq: f.Seq})
			}
		},
		OnRetransmit: func(seq uint64, retries int) {
			if m != nil {
				m.Retransmissions.WithLabelValues(name).Inc()
			}
			if hub != nil {
				hub.Broadcast(observer.Event{Time: s.Clock.Now().String(), Endpoint: name, Kind: "retransmit", Seq: seq})
			}
		},
		OnTimeout: func() {
			if m != nil {
				m.Timeouts.WithLabelValues(name).Inc()
			}
			if hub != nil {
				hub.Broadcast(observer.Event{Time: s.Clock.Now().String(), Endpoint: name, Kind: "timeout"})
			}
		},
		OnAckAccepted: func(ackSeq uint64, nAcked int) {
			if m != nil {
				m.AcksAccepted.WithLabelValues(name).Inc()
			}
		},
	}
}

// ThroughputBitsPerSecond reports the node's estimated delivered
// bits/sec as of the given clock time, handling the clock.Time ->
// time.Time anchoring stats.ThroughputSampler needs internally.
func (n *Node) ThroughputBitsPerSecond(now clock.Time) float64 {
	return n.Throughput.BitsPerSecond(absoluteTime(now))
}

// Node looks up a node by name, for test and harness code addressing
// peers by label instead of by generated Address.
func (s *Scenario) Node(name string) (*Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}
