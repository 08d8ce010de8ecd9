package reliability

import (
	"sync"

	"github.com/TeoSlayer/udpbench/pkg/wire"
)

// Tracker is the receiver-side ACK engine: it deduplicates incoming
// sequences, advances the contiguous watermark, and builds SACK frames on
// the configured cadence. All state including the cadence counter is
// guarded by one mutex.
type Tracker struct {
	mu              sync.Mutex
	received        map[uint64]uint64 // seq → receive timestamp ns
	highest         uint64            // all of 1..highest have been received
	windowSize      int
	ackPeriod       int
	packetsSinceAck uint64
}

// NewTracker returns a tracker reporting windowSize sequences above the
// watermark per ACK, acknowledging every ackPeriod-th packet.
func NewTracker(windowSize, ackPeriod int) *Tracker {
	if windowSize <= 0 {
		windowSize = wire.DefaultWindowSize
	}
	if ackPeriod <= 0 {
		ackPeriod = 1
	}
	return &Tracker{
		received:   make(map[uint64]uint64),
		windowSize: windowSize,
		ackPeriod:  ackPeriod,
	}
}

// OnData records a received sequence. Returns true for a first-seen
// sequence, false for a duplicate. First-seen sequences advance the
// watermark greedily.
func (t *Tracker) OnData(seq, recvTsNs uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.received[seq]; dup {
		return false
	}
	t.received[seq] = recvTsNs
	t.packetsSinceAck++

	for {
		if _, ok := t.received[t.highest+1]; !ok {
			break
		}
		t.highest++
	}
	return true
}

// IsDuplicate reports whether seq has already been received.
func (t *Tracker) IsDuplicate(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.received[seq]
	return ok
}

// ShouldAck reports whether enough packets have arrived since the last ACK.
func (t *Tracker) ShouldAck() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.packetsSinceAck >= uint64(t.ackPeriod)
}

// ForceAck makes the next ShouldAck return true.
func (t *Tracker) ForceAck() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.packetsSinceAck = uint64(t.ackPeriod)
}

// BuildAck constructs a SACK frame for the current watermark and missing
// set, and resets the cadence counter. The frame covers windowSize
// sequences above the watermark; anything beyond stays invisible to the
// sender until the watermark advances.
func (t *Tracker) BuildAck() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	var missing []uint64
	windowEnd := t.highest + uint64(t.windowSize)
	for seq := t.highest + 1; seq <= windowEnd; seq++ {
		if _, ok := t.received[seq]; !ok {
			missing = append(missing, seq)
		}
	}
	t.packetsSinceAck = 0
	return wire.AppendSACK(t.highest, missing, t.windowSize)
}

// MissingUpTo returns the sequences in (watermark, upTo] not yet received.
func (t *Tracker) MissingUpTo(upTo uint64) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var missing []uint64
	for seq := t.highest + 1; seq <= upTo; seq++ {
		if _, ok := t.received[seq]; !ok {
			missing = append(missing, seq)
		}
	}
	return missing
}

// ReceivedCount returns the number of distinct sequences received.
func (t *Tracker) ReceivedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.received)
}

// HighestContiguous returns the watermark: every sequence in 1..H has
// arrived.
func (t *Tracker) HighestContiguous() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.highest
}

// CleanupBefore evicts received entries strictly below seq to bound memory.
// Entries above the watermark are never evicted: dropping them would
// re-report present sequences as missing and stall the watermark.
func (t *Tracker) CleanupBefore(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq > t.highest+1 {
		seq = t.highest + 1
	}
	for s := range t.received {
		if s < seq {
			delete(t.received, s)
		}
	}
}
