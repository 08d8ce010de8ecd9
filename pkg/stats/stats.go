// Package stats aggregates per-packet latency samples and run-level
// throughput counters for the end-of-run summary.
package stats

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Latency accumulates one-way or round-trip latency samples in nanoseconds.
// Samples are kept in memory for percentile computation at end of run.
type Latency struct {
	Count   uint64
	SumNs   uint64
	MinNs   uint64
	MaxNs   uint64
	Samples []uint64
}

// Add records one latency sample.
func (l *Latency) Add(latencyNs uint64) {
	if l.Count == 0 || latencyNs < l.MinNs {
		l.MinNs = latencyNs
	}
	if latencyNs > l.MaxNs {
		l.MaxNs = latencyNs
	}
	l.Count++
	l.SumNs += latencyNs
	l.Samples = append(l.Samples, latencyNs)
}

// MeanUs returns the mean latency in microseconds.
func (l *Latency) MeanUs() float64 {
	if l.Count == 0 {
		return 0
	}
	return float64(l.SumNs) / float64(l.Count) / 1000.0
}

// MinUs returns the minimum latency in microseconds.
func (l *Latency) MinUs() float64 { return float64(l.MinNs) / 1000.0 }

// MaxUs returns the maximum latency in microseconds.
func (l *Latency) MaxUs() float64 { return float64(l.MaxNs) / 1000.0 }

// PercentileNs returns the p-th percentile sample (p in [0, 100]) as
// element floor(p*(n-1)/100) of the sorted samples. Zero when empty.
func (l *Latency) PercentileNs(p float64) uint64 {
	if len(l.Samples) == 0 {
		return 0
	}
	sorted := make([]uint64, len(l.Samples))
	copy(sorted, l.Samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(math.Floor(p * float64(len(sorted)-1) / 100.0))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// PercentileUs returns PercentileNs in microseconds.
func (l *Latency) PercentileUs(p float64) float64 {
	return float64(l.PercentileNs(p)) / 1000.0
}

// Reset clears all samples and counters.
func (l *Latency) Reset() {
	*l = Latency{}
}

// Throughput tracks packet and byte counters between Start and End stamps.
// Timestamps are monotonic nanoseconds (process-start epoch).
type Throughput struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	StartNs         uint64
	EndNs           uint64
}

// DurationSeconds returns the elapsed collection time in seconds.
func (t *Throughput) DurationSeconds() float64 {
	if t.EndNs <= t.StartNs {
		return 0
	}
	return float64(t.EndNs-t.StartNs) / 1e9
}

// PacketRate returns sent packets per second over the collection window.
func (t *Throughput) PacketRate() float64 {
	d := t.DurationSeconds()
	if d == 0 {
		return 0
	}
	return float64(t.PacketsSent) / d
}

// ThroughputMbps returns sent megabits per second.
func (t *Throughput) ThroughputMbps() float64 {
	d := t.DurationSeconds()
	if d == 0 {
		return 0
	}
	return float64(t.BytesSent) * 8.0 / (d * 1e6)
}

// LossRate returns (sent-received)/sent.
func (t *Throughput) LossRate() float64 {
	if t.PacketsSent == 0 {
		return 0
	}
	return float64(t.PacketsSent-t.PacketsReceived) / float64(t.PacketsSent)
}

// Collector is the shared, mutex-guarded aggregate both endpoint tasks
// write into.
type Collector struct {
	mu         sync.Mutex
	latency    Latency
	throughput Throughput

	progressInterval uint64
	lastProgressNs   uint64

	now func() uint64
}

// NewCollector returns a collector stamping times with clock.
func NewCollector(clock func() uint64) *Collector {
	if clock == nil {
		clock = monotonicNs
	}
	return &Collector{progressInterval: 1000, now: clock}
}

var processStart = time.Now()

// monotonicNs is nanoseconds since process start on the steady clock.
func monotonicNs() uint64 {
	return uint64(time.Since(processStart))
}

// Now exposes the collector's clock.
func (c *Collector) Now() uint64 { return c.now() }

// StartCollection stamps the beginning of the run.
func (c *Collector) StartCollection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throughput.StartNs = c.now()
	c.lastProgressNs = c.throughput.StartNs
}

// EndCollection stamps the end of the run.
func (c *Collector) EndCollection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throughput.EndNs = c.now()
}

// AddLatency records recvTs-sendTs when positive. Samples where the clock
// domains disagree are dropped.
func (c *Collector) AddLatency(sendTsNs, recvTsNs uint64) {
	if recvTsNs <= sendTsNs {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency.Add(recvTsNs - sendTsNs)
}

// AddPacketSent counts one outbound packet of the given size.
func (c *Collector) AddPacketSent(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throughput.PacketsSent++
	c.throughput.BytesSent += uint64(bytes)
}

// AddPacketReceived counts one inbound packet of the given size.
func (c *Collector) AddPacketReceived(bytes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.throughput.PacketsReceived++
	c.throughput.BytesReceived += uint64(bytes)
}

// SetProgressInterval sets how many received packets elapse between
// progress reports.
func (c *Collector) SetProgressInterval(n uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.progressInterval = n
	}
}

// ShouldReportProgress returns true once per progressInterval packets or
// once per second, whichever comes first.
func (c *Collector) ShouldReportProgress() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.throughput.PacketsReceived%c.progressInterval == 0 ||
		now-c.lastProgressNs > uint64(time.Second) {
		c.lastProgressNs = now
		return true
	}
	return false
}

// LatencyStats returns a snapshot of the latency aggregate. The sample
// vector is copied so the caller can sort it freely.
func (c *Collector) LatencyStats() Latency {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.latency
	snap.Samples = append([]uint64(nil), c.latency.Samples...)
	return snap
}

// ThroughputStats returns a snapshot of the throughput counters.
func (c *Collector) ThroughputStats() Throughput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.throughput
}

// Reset clears both aggregates.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latency.Reset()
	c.throughput = Throughput{}
}
