package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// testClock provides a controllable time source for pacing tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(rate float64) (*Limiter, *testClock) {
	clock := &testClock{now: time.Unix(0, 0)}
	l := New(rate)
	l.now = clock.Now
	l.sleep = clock.Advance
	return l, clock
}

func TestIntervalDerivation(t *testing.T) {
	t.Parallel()

	l := New(1000)
	assert.Equal(t, time.Millisecond, l.Interval())
	assert.Equal(t, float64(1000), l.Rate())

	l.SetRate(4)
	assert.Equal(t, 250*time.Millisecond, l.Interval())
}

func TestZeroRateDisablesPacing(t *testing.T) {
	t.Parallel()

	for _, rate := range []float64{0, -5} {
		l, _ := newTestLimiter(rate)
		assert.Zero(t, l.Interval())
		for i := 0; i < 100; i++ {
			assert.True(t, l.CanSend())
		}
	}
}

func TestPacingFloor(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(100) // 10ms interval
	l.MarkSent()

	assert.False(t, l.CanSend())
	clock.Advance(5 * time.Millisecond)
	assert.False(t, l.CanSend())
	clock.Advance(5 * time.Millisecond)
	assert.True(t, l.CanSend())
}

func TestWaitForNextSendStamps(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(100)
	l.MarkSent()
	start := clock.Now()

	l.WaitForNextSend()
	waited := clock.Now().Sub(start)
	assert.GreaterOrEqual(t, waited, 10*time.Millisecond)
	assert.False(t, l.CanSend(), "WaitForNextSend stamps the send time")
}

// The pacer is a floor on spacing, not an average-rate governor: a long
// idle period earns no burst credit.
func TestNoBurstAfterUnderrun(t *testing.T) {
	t.Parallel()

	l, clock := newTestLimiter(100)
	l.MarkSent()
	clock.Advance(time.Second)

	assert.True(t, l.CanSend())
	l.MarkSent()
	assert.False(t, l.CanSend(), "one send consumes the whole idle credit")
}
