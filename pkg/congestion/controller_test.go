package congestion

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Parallel()

	c := NewDefault()
	assert.Equal(t, uint64(1000), c.Cwnd())
	assert.Equal(t, uint64(5000), c.Ssthresh())
	assert.Zero(t, c.Inflight())
	assert.True(t, c.CanSend())
}

// Slow start doubles until ssthresh, then linear growth, capped at max;
// one loss halves the window.
func TestSlowStartAvoidanceLoss(t *testing.T) {
	t.Parallel()

	c := NewDefault()

	c.OnAckReceived(false)
	assert.Equal(t, uint64(2000), c.Cwnd())
	c.OnAckReceived(false)
	assert.Equal(t, uint64(4000), c.Cwnd())
	c.OnAckReceived(false)
	assert.Equal(t, uint64(8000), c.Cwnd(), "doubling crosses ssthresh")
	c.OnAckReceived(false)
	assert.Equal(t, uint64(8001), c.Cwnd(), "above ssthresh growth is linear")

	for i := 0; i < 16; i++ {
		c.OnAckReceived(false)
	}
	assert.Equal(t, uint64(8017), c.Cwnd())

	c.OnAckReceived(true)
	assert.Equal(t, uint64(4008), c.Cwnd())
	assert.Equal(t, uint64(4008), c.Ssthresh())
}

func TestSlowStartReachesMaxInFourDoublings(t *testing.T) {
	t.Parallel()

	c := New(1000, 20000)
	c.SetMaxCwnd(MaxCwnd)
	for i := 0; i < 4; i++ {
		c.OnAckReceived(false)
	}
	assert.Equal(t, uint64(MaxCwnd), c.Cwnd())

	// Further acks stay pinned at the ceiling.
	c.OnAckReceived(false)
	assert.Equal(t, uint64(MaxCwnd), c.Cwnd())

	// One loss at the ceiling halves both the window and the threshold.
	c.OnAckReceived(true)
	assert.Equal(t, uint64(5000), c.Cwnd())
	assert.Equal(t, uint64(5000), c.Ssthresh())
}

func TestTimeoutResetsToFloor(t *testing.T) {
	t.Parallel()

	c := New(4000, 5000)
	c.OnTimeout()
	assert.Equal(t, uint64(MinCwnd), c.Cwnd())
	assert.Equal(t, uint64(2000), c.Ssthresh())
}

func TestDuplicateAckHalves(t *testing.T) {
	t.Parallel()

	c := New(1000, 5000)
	c.OnDuplicateAck()
	assert.Equal(t, uint64(500), c.Cwnd())
	assert.Equal(t, uint64(500), c.Ssthresh())
}

func TestCwndNeverLeavesBounds(t *testing.T) {
	t.Parallel()

	c := NewDefault()
	for i := 0; i < 200; i++ {
		c.OnAckReceived(i%3 == 0)
		cwnd := c.Cwnd()
		require.GreaterOrEqual(t, cwnd, uint64(MinCwnd))
		require.LessOrEqual(t, cwnd, uint64(MaxCwnd))
	}
	for i := 0; i < 50; i++ {
		c.OnAckReceived(true)
	}
	assert.Equal(t, uint64(MinCwnd), c.Cwnd())
}

func TestAdmission(t *testing.T) {
	t.Parallel()

	c := New(2, 5000)
	assert.True(t, c.CanSend())
	c.PacketSent()
	assert.True(t, c.CanSend())
	c.PacketSent()
	assert.False(t, c.CanSend(), "window full")
	c.PacketAcked()
	assert.True(t, c.CanSend())
}

func TestInflightSaturatesAtZero(t *testing.T) {
	t.Parallel()

	c := NewDefault()
	c.PacketAcked()
	c.PacketLost()
	assert.Zero(t, c.Inflight(), "spurious acks are tolerated")

	c.PacketSent()
	c.PacketAcked()
	c.PacketAcked()
	assert.Zero(t, c.Inflight())
}

func TestInflightNonNegativeUnderConcurrency(t *testing.T) {
	t.Parallel()

	c := NewDefault()
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.PacketSent()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				c.PacketAcked()
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Inflight(), uint64(4000))
}

func TestUtilization(t *testing.T) {
	t.Parallel()

	c := New(10, 5000)
	assert.Zero(t, c.Utilization())
	for i := 0; i < 5; i++ {
		c.PacketSent()
	}
	assert.InDelta(t, 0.5, c.Utilization(), 1e-9)

	c.ResetInflight()
	assert.Zero(t, c.Inflight())
}

func TestMonitorCountsEvents(t *testing.T) {
	t.Parallel()

	m := NewMonitor(New(1000, 4000), false)

	m.OnAckReceived(false) // slow start: 1000 < 4000
	m.OnAckReceived(false) // 2000 < 4000, slow start
	m.OnAckReceived(false) // 4000 >= 4000, avoidance
	m.OnAckReceived(true)
	m.OnTimeout()

	s := m.Stats()
	assert.Equal(t, uint64(4), s.TotalAcks)
	assert.Equal(t, uint64(1), s.TotalLosses)
	assert.Equal(t, uint64(1), s.TotalTimeouts)
	assert.Equal(t, uint64(2), s.SlowStartEvents)
	assert.Equal(t, uint64(1), s.CongestionAvoidanceEvents)
	assert.InDelta(t, 0.2, s.LossRate(), 1e-9)

	m.ResetStats()
	assert.Zero(t, m.Stats().TotalAcks)
}
