// Package endpoint implements the LinkEndpoint state machine: the merged
// sender and receiver side of a single device on a Channel. This is the
// core of the engine — window admission and pacing, the single
// retransmission timer and its Go-Back-N recovery, and receive-side
// expected-sequence tracking and cumulative ACK generation.
package endpoint

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gbnarq/engine/internal/gbn/channel"
	"github.com/gbnarq/engine/internal/gbn/config"
	"github.com/gbnarq/engine/internal/gbn/errormodel"
	"github.com/gbnarq/engine/internal/gbn/frame"
	"github.com/gbnarq/engine/internal/gbn/receiver"
	"github.com/gbnarq/engine/internal/gbn/tracing"
	"github.com/gbnarq/engine/internal/gbn/window"
	"github.com/gbnarq/engine/pkg/addr"
	"github.com/gbnarq/engine/pkg/clock"
)

// ChannelLink is the subset of Channel a LinkEndpoint needs: broadcasting
// a frame to every other attached endpoint.
type ChannelLink interface {
	Send(f frame.Frame, meta frame.Meta, sender channel.Receiver)
}

// Hooks are the optional observability callbacks a LinkEndpoint invokes
// as it processes traffic. Every field may be left nil.
type Hooks struct {
	// OnDeliver is the upper-layer up-call: invoked only for
	// unicast-to-self, in-order data frames that passed the error model.
	OnDeliver func(payload []byte, proto uint16, src addr.Address)

	// Promiscuous is invoked for every frame this endpoint observes,
	// including ones addressed to other hosts, mirroring a network tap.
	Promiscuous func(f frame.Frame, meta frame.Meta, pt addr.PacketType)

	// OnDrop fires whenever a frame is discarded, with a short reason tag
	// ("corrupt", "duplicate-or-out-of-order", "other-host").
	OnDrop func(reason string, f frame.Frame, meta frame.Meta)

	// OnRetransmit fires each time an already-sent window entry is put
	// back on the wire following a Go-Back-N timeout.
	OnRetransmit func(seq uint64, retries int)

	// OnTimeout fires on every Go-Back-N timer expiry, even a stale one
	// against an empty window.
	OnTimeout func()

	// OnAckAccepted fires when a received ACK passes the sequence gate
	// and advances the window.
	OnAckAccepted func(ackSeq uint64, nAcked int)

	// OnSend fires every time a frame (data or ACK) is handed to the
	// Channel, including retransmissions, tagged with its serialization
	// delay so callers can report both a frame count and a timing
	// distribution.
	OnSend func(f frame.Frame, serDelay time.Duration)
}

// LinkEndpoint is one device attached to a Channel.
type LinkEndpoint struct {
	address addr.Address
	clk     clock.Clock
	ch      ChannelLink
	cfg     config.EndpointConfig
	errMod  errormodel.Model
	hooks   Hooks
	log     *zap.Logger

	window  *window.Window
	txQueue *window.TxQueue
	recv    *receiver.Receiver

	nextSeq        uint64
	cursor         int // inflight_cursor: index of next untransmitted window entry
	txHandle       clock.Handle
	retransmitPass bool // true while the TC chain is re-walking the window after a timeout

	tracer  *tracing.Tracer
	spanCtx map[uint64]context.Context // seq -> context of its most recent transmit span
}

// New constructs a LinkEndpoint bound to clk and ch, with its own local
// address and the given configuration. cfg is validated; errMod may be
// nil, in which case errormodel.None{} is used (no loss).
func New(a addr.Address, clk clock.Clock, ch ChannelLink, cfg config.EndpointConfig, errMod errormodel.Model, hooks Hooks, log *zap.Logger) (*LinkEndpoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w, err := window.New(cfg.WindowSize, cfg.MaxSeq)
	if err != nil {
		return nil, err
	}
	q, err := window.NewTxQueue(cfg.TxQueueCapacity)
	if err != nil {
		return nil, err
	}
	if errMod == nil {
		errMod = errormodel.None{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	serDelay := serializationDelay(cfg.MTU*8, cfg.DataRate)
	if serDelay >= time.Duration(cfg.RTOMillis)*time.Millisecond {
		return nil, fmt.Errorf("endpoint: rto (%dms) must exceed worst-case serialization delay (%s) for MTU %d at rate %d",
			cfg.RTOMillis, serDelay, cfg.MTU, cfg.DataRate)
	}
	return &LinkEndpoint{
		address: a,
		clk:     clk,
		ch:      ch,
		cfg:     cfg,
		errMod:  errMod,
		hooks:   hooks,
		log:     log,
		window:  w,
		txQueue: q,
		recv:    receiver.New(cfg.MaxSeq),
		spanCtx: make(map[uint64]context.Context),
	}, nil
}

// Address returns the endpoint's local address, satisfying channel.Receiver.
func (e *LinkEndpoint) Address() addr.Address { return e.address }

// SetTracer attaches the per-frame OpenTelemetry tracer. Nil (the default)
// or a disabled Tracer makes every span operation below a no-op.
func (e *LinkEndpoint) SetTracer(t *tracing.Tracer) { e.tracer = t }

// rto returns the fixed retransmission timeout as a time.Duration.
func (e *LinkEndpoint) rto() time.Duration {
	return time.Duration(e.cfg.RTOMillis) * time.Millisecond
}

// serializationDelay computes size_bits(f)/rate when rate > 0, else 0.
// It does not check the result against rto; New rejects a configuration
// whose MTU-sized frame would not fit beneath rto.
func serializationDelay(sizeBits int, rateBitsPerSec uint64) time.Duration {
	if rateBitsPerSec == 0 {
		return 0
	}
	seconds := float64(sizeBits) / float64(rateBitsPerSec)
	return time.Duration(seconds * float64(time.Second))
}

func (e *LinkEndpoint) frameDelay(f frame.Frame) time.Duration {
	return serializationDelay(f.SizeBits(), e.cfg.DataRate)
}

// Send is the upper-layer down-call. It stamps a header with the next
// sequence number, attempts to enqueue the frame, and if the window has
// room, immediately admits it and kicks off (or continues) the
// transmit-complete chain. It reports whether the frame was admitted
// (ultimate delivery is asynchronous).
func (e *LinkEndpoint) Send(payload []byte, dest addr.Address, proto uint16) bool {
	if frame.HeaderSize+len(payload) > e.cfg.MTU {
		return false
	}

	seq := e.nextSeq
	e.nextSeq = frame.SeqAdd(e.nextSeq, 1, e.cfg.MaxSeq)

	var dst [6]byte
	copy(dst[:], dest.Bytes())
	p := window.Pending{Seq: seq, Payload: payload, Dst: dst, Proto: proto}
	if err := e.txQueue.Push(p); err != nil {
		return false
	}

	e.admitFromQueue()
	return true
}

// admitFromQueue moves the front of the transmit queue into the window,
// if the window has room, arming a fresh retransmission deadline and
// kicking the TC chain if none is running. It reports whether an entry
// was admitted.
func (e *LinkEndpoint) admitFromQueue() bool {
	if e.window.Full() {
		return false
	}
	p, ok := e.txQueue.Pop()
	if !ok {
		return false
	}

	var dst addr.Address
	copy(dst[:], p.Dst[:])
	f := frame.Frame{Seq: p.Seq, IsAck: false, Payload: p.Payload}
	meta := frame.Meta{Src: e.address, Dst: dst, Proto: p.Proto}

	handle := e.clk.Schedule(e.rto(), e.onTimeout)
	_ = e.window.Push(f, meta, handle, e.clk.Now())

	entries := e.window.Entries()
	newIdx := len(entries) - 1
	if e.cursor == newIdx && e.txHandle == nil {
		e.txHandle = e.clk.Schedule(e.frameDelay(f), e.onTxComplete)
	}
	return true
}

// onTxComplete is the transmit-complete event. It hands the frame at
// inflight_cursor to the channel, advances the cursor, and if another
// untransmitted entry remains, refreshes its deadline and schedules the
// next TC.
func (e *LinkEndpoint) onTxComplete() {
	e.txHandle = nil

	entries := e.window.Entries()
	if e.cursor >= len(entries) {
		return // caught up; nothing untransmitted
	}

	if e.retransmitPass {
		e.window.MarkRetransmitted(e.cursor)
	}
	entry := entries[e.cursor]
	if entry.Retries > 0 && e.hooks.OnRetransmit != nil {
		e.hooks.OnRetransmit(entry.Frame.Seq, entry.Retries)
	}
	e.startTransmitSpan(entry.Frame.Seq)
	e.ch.Send(entry.Frame, entry.Meta, e)
	if e.hooks.OnSend != nil {
		e.hooks.OnSend(entry.Frame, e.frameDelay(entry.Frame))
	}
	e.cursor++

	if e.cursor < len(entries) {
		next := entries[e.cursor]
		e.clk.Cancel(next.Handle)
		h := e.clk.Schedule(e.rto(), e.onTimeout)
		e.window.SetHandle(e.cursor, h, e.clk.Now())
		e.txHandle = e.clk.Schedule(e.frameDelay(next.Frame), e.onTxComplete)
	} else {
		e.retransmitPass = false
	}
}

// onTimeout is the Go-Back-N retransmission event: the oldest
// unacknowledged frame's deadline has expired. The whole window is
// retransmitted starting from the front by resetting inflight_cursor to
// zero; the front's own deadline is refreshed immediately, and the TC
// chain (if idle) is restarted to walk every entry again.
func (e *LinkEndpoint) onTimeout() {
	if e.hooks.OnTimeout != nil {
		e.hooks.OnTimeout()
	}
	if e.window.Empty() {
		return // stale fire: the window drained before this timer ran
	}

	e.cursor = 0
	e.retransmitPass = true
	front, _ := e.window.Front()
	e.clk.Cancel(front.Handle)
	h := e.clk.Schedule(e.rto(), e.onTimeout)
	e.window.SetHandle(0, h, e.clk.Now())

	if e.txHandle == nil {
		e.txHandle = e.clk.Schedule(e.frameDelay(front.Frame), e.onTxComplete)
	}
}

// handleAck applies the sender ACK-received action: a sequence-gated
// cumulative pop of the window (see window.Window.Ack), cancelling the
// acknowledged entries' deadlines, sliding inflight_cursor back by the
// number of entries removed, and draining as much of the transmit queue
// back into the window as now fits.
func (e *LinkEndpoint) handleAck(ackSeq uint64) {
	acked := e.window.Ack(ackSeq)
	if len(acked) == 0 {
		return // stale or out-of-range ACK, per the sequence gate
	}
	for _, entry := range acked {
		e.clk.Cancel(entry.Handle)
		e.endTransmitSpanWithAck(entry.Frame.Seq, ackSeq)
	}
	e.cursor -= len(acked)
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.hooks.OnAckAccepted != nil {
		e.hooks.OnAckAccepted(ackSeq, len(acked))
	}

	for e.admitFromQueue() {
	}
}

// OnReceive is the Channel's delivery callback, invoked once per
// attached peer after the propagation delay. It implements the full
// receive path: error-model consultation, packet-type classification,
// ACK vs. data dispatch, and cumulative-ACK generation.
func (e *LinkEndpoint) OnReceive(f frame.Frame, meta frame.Meta) {
	if e.errMod.IsCorrupt(f) {
		if e.hooks.OnDrop != nil {
			e.hooks.OnDrop("corrupt", f, meta)
		}
		return // no ACK is sent on corruption; never reaches the promiscuous tap
	}

	pt := addr.Classify(meta.Dst, e.address)
	if e.hooks.Promiscuous != nil {
		e.hooks.Promiscuous(f, meta, pt)
	}

	if pt == addr.PacketOtherHost {
		if e.hooks.OnDrop != nil {
			e.hooks.OnDrop("other-host", f, meta)
		}
		return // delivered only to the promiscuous observer above
	}

	if f.IsAck {
		e.handleAck(f.Seq)
		return
	}

	rxCtx, rxSpan := e.startSpan(context.Background(), "frame.receive", f.Seq, false)

	out, ack := e.recv.Receive(f)
	ackMeta := frame.Meta{Src: e.address, Dst: meta.Src, Proto: meta.Proto}
	_, ackSpan := e.startSpan(rxCtx, "frame.ack.send", ack.Seq, true)
	e.ch.Send(ack, ackMeta, e)
	if e.hooks.OnSend != nil {
		e.hooks.OnSend(ack, 0) // ACKs bypass sender pacing, per design note 3
	}
	ackSpan.End()

	if out == receiver.Delivered {
		if pt == addr.PacketHost && e.hooks.OnDeliver != nil {
			e.hooks.OnDeliver(f.Payload, meta.Proto, meta.Src)
		}
	} else if e.hooks.OnDrop != nil {
		e.hooks.OnDrop("duplicate-or-out-of-order", f, meta)
	}
	rxSpan.End()
}

// startSpan is a nil-safe wrapper around the tracer: a nil or disabled
// Tracer makes it a no-op returning the input context and a no-op span.
func (e *LinkEndpoint) startSpan(ctx context.Context, name string, seq uint64, isAck bool) (context.Context, trace.Span) {
	if e.tracer == nil || !e.tracer.IsEnabled() {
		return ctx, trace.SpanFromContext(ctx)
	}
	return e.tracer.StartFrameSpan(ctx, name, e.address.String(), seq, isAck)
}

// startTransmitSpan opens (or re-opens, on a Go-Back-N retransmit) the span
// covering one on-the-wire transmission attempt for seq, keeping its
// context so a later matching ACK can be linked as a child span.
func (e *LinkEndpoint) startTransmitSpan(seq uint64) {
	if e.tracer == nil || !e.tracer.IsEnabled() {
		return
	}
	ctx, span := e.tracer.StartFrameSpan(context.Background(), "frame.transmit", e.address.String(), seq, false)
	span.End()
	e.spanCtx[seq] = ctx
}

// endTransmitSpanWithAck closes out seq's transmit span bookkeeping and
// records a child span for the cumulative ACK that retired it.
func (e *LinkEndpoint) endTransmitSpanWithAck(seq, ackSeq uint64) {
	if e.tracer == nil || !e.tracer.IsEnabled() {
		return
	}
	ctx, ok := e.spanCtx[seq]
	if !ok {
		return
	}
	delete(e.spanCtx, seq)
	_, span := e.tracer.StartFrameSpan(ctx, "frame.ack.received", e.address.String(), ackSeq, true)
	span.End()
}

// WindowLen reports how many frames are currently in flight, for metrics.
func (e *LinkEndpoint) WindowLen() int { return e.window.Len() }

// TxQueueLen reports how many payloads are backlogged awaiting window
// room, for metrics.
func (e *LinkEndpoint) TxQueueLen() int { return e.txQueue.Len() }
