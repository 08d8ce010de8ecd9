package congestion

import (
	"log/slog"
	"sync"
)

// Stats counts controller events. Purely observational: the Monitor applies
// the same transitions as the bare controller.
type Stats struct {
	TotalAcks                 uint64
	TotalLosses               uint64
	TotalTimeouts             uint64
	SlowStartEvents           uint64
	CongestionAvoidanceEvents uint64
}

// LossRate returns losses/(acks+losses).
func (s Stats) LossRate() float64 {
	events := s.TotalAcks + s.TotalLosses
	if events == 0 {
		return 0
	}
	return float64(s.TotalLosses) / float64(events)
}

// Monitor wraps a Controller with event counters and optional per-transition
// diagnostic logging.
type Monitor struct {
	*Controller

	mu      sync.Mutex
	stats   Stats
	verbose bool
	log     *slog.Logger
}

// NewMonitor wraps ctrl. When verbose, window transitions log at Debug.
func NewMonitor(ctrl *Controller, verbose bool) *Monitor {
	return &Monitor{Controller: ctrl, verbose: verbose, log: slog.Default()}
}

// OnAckReceived counts the event, then applies the controller transition.
func (m *Monitor) OnAckReceived(hasLoss bool) {
	m.mu.Lock()
	m.stats.TotalAcks++
	if hasLoss {
		m.stats.TotalLosses++
	} else if m.InSlowStart() {
		m.stats.SlowStartEvents++
	} else {
		m.stats.CongestionAvoidanceEvents++
	}
	lossRate := m.stats.LossRate()
	m.mu.Unlock()

	before := m.Cwnd()
	m.Controller.OnAckReceived(hasLoss)

	if m.verbose {
		after := m.Cwnd()
		switch {
		case hasLoss:
			m.log.Debug("cwnd loss event", "cwnd_before", before, "cwnd_after", after, "loss_rate", lossRate)
		case after != before:
			m.log.Debug("cwnd increase", "cwnd_before", before, "cwnd_after", after)
		}
	}
}

// OnTimeout counts the event, then applies the controller transition.
func (m *Monitor) OnTimeout() {
	m.mu.Lock()
	m.stats.TotalTimeouts++
	m.mu.Unlock()

	before := m.Cwnd()
	m.Controller.OnTimeout()
	if m.verbose {
		m.log.Debug("cwnd timeout", "cwnd_before", before, "cwnd_after", m.Cwnd())
	}
}

// Stats returns a snapshot of the event counters.
func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// ResetStats zeroes the event counters.
func (m *Monitor) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = Stats{}
}
