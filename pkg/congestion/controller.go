// Package congestion implements the TCP-style admission control used by the
// sender: slow start below ssthresh, linear growth above it, multiplicative
// decrease on loss, and a hard reset to the floor on timeout.
package congestion

import "sync/atomic"

// Default window parameters.
const (
	MinCwnd         = 10
	MaxCwnd         = 10000
	InitialCwnd     = 1000
	InitialSsthresh = 5000
)

// Controller tracks the congestion window triple. Each field is an
// independent atomic; no pair of reads is coherent across fields, which is
// sufficient for single observers (the send loop reads CanSend, the ACK
// task adjusts the window).
type Controller struct {
	cwnd     atomic.Uint64
	ssthresh atomic.Uint64
	inflight atomic.Uint64

	minCwnd atomic.Uint64
	maxCwnd atomic.Uint64
}

// New returns a controller with the given initial window and threshold. The
// window floor and ceiling start at MinCwnd and MaxCwnd; initialCwnd is
// stored as given and is not clamped to them.
func New(initialCwnd, initialSsthresh uint64) *Controller {
	c := &Controller{}
	c.minCwnd.Store(MinCwnd)
	c.maxCwnd.Store(MaxCwnd)
	c.cwnd.Store(initialCwnd)
	c.ssthresh.Store(initialSsthresh)
	return c
}

// NewDefault returns a controller with the standard initial window.
func NewDefault() *Controller {
	return New(InitialCwnd, InitialSsthresh)
}

func (c *Controller) Cwnd() uint64     { return c.cwnd.Load() }
func (c *Controller) Ssthresh() uint64 { return c.ssthresh.Load() }
func (c *Controller) Inflight() uint64 { return c.inflight.Load() }

// CanSend reports whether the window admits another packet.
func (c *Controller) CanSend() bool {
	return c.inflight.Load() < c.cwnd.Load()
}

// PacketSent records one more packet in flight.
func (c *Controller) PacketSent() {
	c.inflight.Add(1)
}

// PacketAcked retires one packet from flight. Saturates at zero so a
// spurious ack is tolerated rather than treated as a bug.
func (c *Controller) PacketAcked() {
	c.decInflight()
}

// PacketLost retires one packet from flight without an ack.
func (c *Controller) PacketLost() {
	c.decInflight()
}

func (c *Controller) decInflight() {
	for {
		n := c.inflight.Load()
		if n == 0 {
			return
		}
		if c.inflight.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// OnAckReceived grows the window on a clean ack and halves it when the ack
// reported loss.
func (c *Controller) OnAckReceived(hasLoss bool) {
	if hasLoss {
		c.decreaseOnLoss()
	} else {
		c.increase()
	}
}

// OnDuplicateAck applies multiplicative decrease.
func (c *Controller) OnDuplicateAck() {
	c.decreaseOnLoss()
}

// OnTimeout applies multiplicative decrease and resets the window to the
// floor, restarting slow start.
func (c *Controller) OnTimeout() {
	c.decreaseOnLoss()
	c.cwnd.Store(c.minCwnd.Load())
}

// Utilization returns inflight/cwnd.
func (c *Controller) Utilization() float64 {
	cwnd := c.cwnd.Load()
	if cwnd == 0 {
		return 0
	}
	return float64(c.inflight.Load()) / float64(cwnd)
}

// ResetInflight clears the in-flight count.
func (c *Controller) ResetInflight() {
	c.inflight.Store(0)
}

// SetMinCwnd adjusts the window floor.
func (c *Controller) SetMinCwnd(min uint64) { c.minCwnd.Store(min) }

// SetMaxCwnd adjusts the window ceiling.
func (c *Controller) SetMaxCwnd(max uint64) { c.maxCwnd.Store(max) }

// InSlowStart reports whether the next clean ack doubles the window.
func (c *Controller) InSlowStart() bool {
	return c.cwnd.Load() < c.ssthresh.Load()
}

func (c *Controller) increase() {
	cwnd := c.cwnd.Load()
	max := c.maxCwnd.Load()
	var next uint64
	if cwnd < c.ssthresh.Load() {
		next = cwnd * 2 // slow start
	} else {
		next = cwnd + 1 // congestion avoidance
	}
	if next > max {
		next = max
	}
	c.cwnd.Store(next)
}

func (c *Controller) decreaseOnLoss() {
	cwnd := c.cwnd.Load()
	min := c.minCwnd.Load()
	half := cwnd / 2
	if half < min {
		half = min
	}
	c.cwnd.Store(half)
	c.ssthresh.Store(half)
}
