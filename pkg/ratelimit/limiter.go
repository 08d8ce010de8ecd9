// Package ratelimit paces outbound messages to a target rate. The limiter
// is a floor on inter-send spacing, not an average-rate governor: it never
// bursts to recover from underruns.
package ratelimit

import "time"

const spinSleep = 10 * time.Microsecond

// Limiter enforces a minimum interval between sends. Methods are not safe
// for concurrent use; the single send loop owns it.
type Limiter struct {
	targetRate float64
	interval   time.Duration
	lastSend   time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New returns a limiter for the given rate in messages per second. A rate
// of zero or below disables pacing.
func New(msgsPerSec float64) *Limiter {
	l := &Limiter{now: time.Now, sleep: time.Sleep}
	l.SetRate(msgsPerSec)
	return l
}

// SetRate changes the target rate and derives the send interval.
func (l *Limiter) SetRate(msgsPerSec float64) {
	l.targetRate = msgsPerSec
	if msgsPerSec > 0 {
		l.interval = time.Duration(float64(time.Second) / msgsPerSec)
	} else {
		l.interval = 0
	}
}

// Rate returns the configured target rate.
func (l *Limiter) Rate() float64 { return l.targetRate }

// Interval returns the derived minimum spacing between sends.
func (l *Limiter) Interval() time.Duration { return l.interval }

// CanSend reports whether the interval since the last send has elapsed.
func (l *Limiter) CanSend() bool {
	if l.interval == 0 {
		return true
	}
	return l.now().Sub(l.lastSend) >= l.interval
}

// WaitForNextSend blocks until CanSend, then stamps the send time.
func (l *Limiter) WaitForNextSend() {
	for !l.CanSend() {
		l.sleep(spinSleep)
	}
	l.MarkSent()
}

// MarkSent stamps the last-send time.
func (l *Limiter) MarkSent() {
	l.lastSend = l.now()
}
