package bench

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/TeoSlayer/udpbench/internal/pool"
	"github.com/TeoSlayer/udpbench/pkg/config"
	"github.com/TeoSlayer/udpbench/pkg/csvlog"
	"github.com/TeoSlayer/udpbench/pkg/logging"
	"github.com/TeoSlayer/udpbench/pkg/reliability"
	"github.com/TeoSlayer/udpbench/pkg/stats"
	"github.com/TeoSlayer/udpbench/pkg/wire"
)

// Receiver runs the benchmark's receiving side: a single-threaded read
// loop that tracks delivery and answers with SACK frames on the configured
// cadence.
type Receiver struct {
	cfg config.ReceiverConfig

	conn    *net.UDPConn
	tracker *reliability.Tracker

	collector *stats.Collector
	logger    *csvlog.Logger

	// Locked to the first peer that sends data; the benchmark is
	// single-sender by design. Atomic because ForceAck may come from a
	// signal handler goroutine.
	senderAddr atomic.Pointer[net.UDPAddr]

	running atomic.Bool
	log     *slog.Logger
}

// NewReceiver wires a receiver endpoint over a bound socket.
func NewReceiver(cfg config.ReceiverConfig, conn *net.UDPConn, logger *csvlog.Logger) *Receiver {
	r := &Receiver{
		cfg:       cfg,
		conn:      conn,
		tracker:   reliability.NewTracker(cfg.WindowSize, cfg.AckPeriod),
		collector: stats.NewCollector(nil),
		logger:    logger,
		log:       logging.Component("receiver"),
	}
	r.collector.SetProgressInterval(cfg.ProgressInterval)
	return r
}

// Run reads datagrams until Stop is called. Every first-seen sequence is
// logged and counted; ACKs go out per the cadence after each datagram.
func (r *Receiver) Run() error {
	r.running.Store(true)
	r.collector.StartCollection()
	r.log.Info("listening", "port", r.cfg.ListenPort, "window", r.cfg.WindowSize, "ack_period", r.cfg.AckPeriod)

	buf := pool.GetDatagram()
	defer pool.PutDatagram(buf)

	for r.running.Load() {
		r.conn.SetReadDeadline(time.Now().Add(ackReadDeadline))
		n, addr, err := r.conn.ReadFromUDP(*buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if !r.running.Load() {
				break
			}
			r.log.Warn("read failed", "err", err)
			continue
		}
		if n == 0 {
			continue
		}

		recvTs := r.collector.Now()
		seq, sendTs, err := wire.ParseData((*buf)[:n])
		if err != nil {
			r.log.Debug("dropping malformed data frame", "size", n)
			continue
		}

		if r.senderAddr.Load() == nil {
			r.senderAddr.Store(addr)
			r.log.Info("sender locked", "addr", addr.String())
		}

		if r.tracker.OnData(seq, recvTs) {
			if err := r.logger.LogReceiver(seq, recvTs, sendTs); err != nil {
				r.log.Warn("log write failed", "seq", seq, "err", err)
			}
			r.collector.AddPacketReceived(n)
			r.collector.AddLatency(sendTs, recvTs)

			if r.collector.ShouldReportProgress() {
				tp := r.collector.ThroughputStats()
				fmt.Fprintf(os.Stdout, "Received packets: %d (latest seq: %d)\r", tp.PacketsReceived, seq)
			}
		}

		r.sendAckIfNeeded()
	}

	r.collector.EndCollection()
	fmt.Fprintln(os.Stdout)
	r.log.Info("receiver finished",
		"received", r.tracker.ReceivedCount(),
		"highest_contiguous", r.tracker.HighestContiguous())
	return r.logger.Flush()
}

func (r *Receiver) sendAckIfNeeded() {
	addr := r.senderAddr.Load()
	if addr == nil || !r.tracker.ShouldAck() {
		return
	}
	frame := r.tracker.BuildAck()
	if _, err := r.conn.WriteToUDP(frame, addr); err != nil {
		r.log.Debug("ack send failed", "err", err)
	}
}

// ForceAck emits an ACK regardless of cadence, e.g. before shutdown.
func (r *Receiver) ForceAck() {
	r.tracker.ForceAck()
	r.sendAckIfNeeded()
}

// Stop ends the read loop at its next deadline tick.
func (r *Receiver) Stop() {
	r.running.Store(false)
}

// Tracker exposes the ACK engine for diagnostics.
func (r *Receiver) Tracker() *reliability.Tracker { return r.tracker }

// Collector exposes the stats aggregate for the final summary.
func (r *Receiver) Collector() *stats.Collector { return r.collector }
