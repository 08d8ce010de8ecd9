// Package reliability implements both halves of the window-based delivery
// protocol: the sender's pending-packet table driven by SACK frames, and
// the receiver's dedup set, contiguous watermark, and ACK construction.
package reliability

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/TeoSlayer/udpbench/pkg/wire"
)

// Pending is the sender's per-sequence record, held from transmission until
// cumulative acknowledgement. A set (present) bit in a SACK bitmap does not
// remove it.
type Pending struct {
	Seq         uint64
	SendTsNs    uint64
	Retransmits int
}

// AckFunc receives exactly one event per acknowledged sequence:
// (seq, first send timestamp, ack receive timestamp, retransmit count).
type AckFunc func(seq, sendTsNs, ackRecvTsNs uint64, retransmits int)

// RetransmitFunc observes each retransmission after the frame has been
// handed to the transmit function.
type RetransmitFunc func(seq uint64, retransmits int)

// Engine is the sender-side reliability engine. All pending-table access is
// serialized on one mutex; callbacks are dispatched after the critical
// section so they may re-enter the engine.
type Engine struct {
	mu      sync.Mutex
	pending map[uint64]*Pending

	packetSize     int
	maxRetransmits int // observational cap, the engine never gives up
	stopped        atomic.Bool

	transmit     func(frame []byte) error
	ackFn        AckFunc
	retransmitFn RetransmitFunc
	now          func() uint64
}

// NewEngine returns an engine emitting data frames of packetSize bytes
// through transmit. clock supplies ack-receive timestamps.
func NewEngine(packetSize int, transmit func([]byte) error, clock func() uint64) *Engine {
	if packetSize < wire.MinMessageSize {
		packetSize = wire.MinMessageSize
	}
	return &Engine{
		pending:        make(map[uint64]*Pending),
		packetSize:     packetSize,
		maxRetransmits: 3,
		transmit:       transmit,
		now:            clock,
	}
}

// SetAckFunc installs the per-sequence acknowledgement callback.
func (e *Engine) SetAckFunc(fn AckFunc) { e.ackFn = fn }

// SetRetransmitFunc installs the retransmission observer.
func (e *Engine) SetRetransmitFunc(fn RetransmitFunc) { e.retransmitFn = fn }

// SetMaxRetransmits adjusts the observational retransmit cap.
func (e *Engine) SetMaxRetransmits(n int) { e.maxRetransmits = n }

// Send transmits a fresh data frame and records it as pending. The caller
// guarantees seq strictly increases across calls. On transmit failure the
// sequence is not recorded and the error is returned.
func (e *Engine) Send(seq, sendTsNs uint64) error {
	frame := wire.AppendData(seq, sendTsNs, e.packetSize)
	if err := e.transmit(frame); err != nil {
		return err
	}
	e.mu.Lock()
	e.pending[seq] = &Pending{Seq: seq, SendTsNs: sendTsNs}
	e.mu.Unlock()
	return nil
}

// ackEvent is an acknowledgement collected under the lock for dispatch
// after release.
type ackEvent struct {
	seq         uint64
	sendTsNs    uint64
	retransmits int
}

// OnSACK parses a SACK frame and applies it: sequences at or below the
// cumulative ack are acknowledged and removed; in-window sequences reported
// missing are retransmitted once, reusing the original send timestamp.
// Returns the number of sequences acknowledged and retransmitted, so the
// caller can signal the congestion controller.
func (e *Engine) OnSACK(data []byte) (acked, retransmitted int, err error) {
	ackSeq, missing, err := wire.ParseSACK(data)
	if err != nil {
		return 0, 0, err
	}

	now := e.now()

	e.mu.Lock()
	var events []ackEvent
	for seq, p := range e.pending {
		if seq <= ackSeq {
			events = append(events, ackEvent{seq: seq, sendTsNs: p.SendTsNs, retransmits: p.Retransmits})
			delete(e.pending, seq)
		}
	}
	var resend []*Pending
	for _, seq := range missing {
		p, ok := e.pending[seq]
		if !ok {
			continue
		}
		p.Retransmits++
		resend = append(resend, &Pending{Seq: p.Seq, SendTsNs: p.SendTsNs, Retransmits: p.Retransmits})
	}
	e.mu.Unlock()

	// Ack events fire in increasing-sequence order, outside the lock.
	sort.Slice(events, func(i, j int) bool { return events[i].seq < events[j].seq })
	for _, ev := range events {
		if e.ackFn != nil {
			e.ackFn(ev.seq, ev.sendTsNs, now, ev.retransmits)
		}
	}

	// Retransmissions are fire-and-forget: a failed resend is not surfaced.
	for _, p := range resend {
		frame := wire.AppendData(p.Seq, p.SendTsNs, e.packetSize)
		_ = e.transmit(frame)
		if e.retransmitFn != nil {
			e.retransmitFn(p.Seq, p.Retransmits)
		}
	}

	return len(events), len(resend), nil
}

// PendingCount returns the current pending-table size.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// PendingSequences returns a sorted snapshot of pending sequence numbers.
func (e *Engine) PendingSequences() []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	seqs := make([]uint64, 0, len(e.pending))
	for seq := range e.pending {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs
}

// IsPending reports whether seq is still awaiting acknowledgement.
func (e *Engine) IsPending(seq uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.pending[seq]
	return ok
}

// PendingEntry returns a copy of the pending record for seq.
func (e *Engine) PendingEntry(seq uint64) (Pending, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.pending[seq]
	if !ok {
		return Pending{}, false
	}
	return *p, true
}

// Stop signals shutdown. Idempotent.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	return e.stopped.Load()
}
