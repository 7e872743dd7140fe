// Package channel implements the shared broadcast medium that connects
// LinkEndpoints: per-hop propagation delay, directed blacklist
// suppression, and point-to-point enrollment enforcement.
package channel

import (
	"fmt"
	"time"

	"github.com/gbnarq/engine/internal/gbn/frame"
	"github.com/gbnarq/engine/pkg/addr"
	"github.com/gbnarq/engine/pkg/clock"
)

// Receiver is the subset of LinkEndpoint the Channel needs to deliver a
// frame: an address to identify it and a callback to hand the frame to.
// Endpoint packages satisfy this without the channel importing endpoint,
// keeping the dependency direction one-way.
type Receiver interface {
	Address() addr.Address
	OnReceive(f frame.Frame, meta frame.Meta)
}

// Channel is the shared medium. It is accessed only from within event
// callbacks (the discrete-event model's single-threaded guarantee), so it
// needs no internal locking.
type Channel struct {
	clk   clock.Clock
	delay time.Duration

	pointToPoint bool
	endpoints    []Receiver
	blacklist    map[addr.Address]map[addr.Address]struct{} // from -> set of blocked to
}

// New creates a Channel driven by clk with the given fixed propagation
// delay. If pointToPoint is true, Attach refuses a third endpoint.
func New(clk clock.Clock, delay time.Duration, pointToPoint bool) *Channel {
	return &Channel{
		clk:          clk,
		delay:        delay,
		pointToPoint: pointToPoint,
		blacklist:    make(map[addr.Address]map[addr.Address]struct{}),
	}
}

// Attach enrolls an endpoint on the channel.
func (c *Channel) Attach(r Receiver) error {
	if c.pointToPoint && len(c.endpoints) >= 2 {
		return fmt.Errorf("channel: point-to-point mode allows at most 2 endpoints")
	}
	c.endpoints = append(c.endpoints, r)
	return nil
}

// NEndpoints reports how many endpoints are attached.
func (c *Channel) NEndpoints() int { return len(c.endpoints) }

// Endpoint returns the i'th attached endpoint.
func (c *Channel) Endpoint(i int) Receiver { return c.endpoints[i] }

// Blacklist directs the channel to suppress delivery of frames sent by
// from to the endpoint to, until Unblacklist is called.
func (c *Channel) Blacklist(from, to addr.Address) {
	set, ok := c.blacklist[from]
	if !ok {
		set = make(map[addr.Address]struct{})
		c.blacklist[from] = set
	}
	set[to] = struct{}{}
}

// Unblacklist removes a previously installed block.
func (c *Channel) Unblacklist(from, to addr.Address) {
	if set, ok := c.blacklist[from]; ok {
		delete(set, to)
	}
}

func (c *Channel) blocked(from, to addr.Address) bool {
	set, ok := c.blacklist[from]
	if !ok {
		return false
	}
	_, blocked := set[to]
	return blocked
}

// Send broadcasts f to every attached endpoint other than sender, except
// ones blacklisted against sender, scheduling each delivery independently
// after the channel's propagation delay. Each recipient gets its own deep
// copy so header-strip mutation by one receiver never leaks to another.
// The copy is handed to an arbitrary Receiver implementation that may
// retain it past the call (a promiscuous tap, a test double), so it is a
// plain heap copy rather than a pooled buffer: a sync.Pool-backed copy
// here would let a later, unrelated Send recycle a backing array some
// earlier receiver is still holding onto.
func (c *Channel) Send(f frame.Frame, meta frame.Meta, sender Receiver) {
	for _, r := range c.endpoints {
		if r == sender {
			continue
		}
		if c.blocked(meta.Src, r.Address()) {
			continue
		}
		r := r
		cp := f.Clone()
		c.clk.Schedule(c.delay, func() {
			r.OnReceive(cp, meta)
		})
	}
}
