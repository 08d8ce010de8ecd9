// Package bench composes the wire codec, reliability engines, congestion
// controller, rate limiter, and stats into the two benchmark endpoints.
package bench

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TeoSlayer/udpbench/internal/pool"
	"github.com/TeoSlayer/udpbench/pkg/config"
	"github.com/TeoSlayer/udpbench/pkg/congestion"
	"github.com/TeoSlayer/udpbench/pkg/csvlog"
	"github.com/TeoSlayer/udpbench/pkg/logging"
	"github.com/TeoSlayer/udpbench/pkg/ratelimit"
	"github.com/TeoSlayer/udpbench/pkg/reliability"
	"github.com/TeoSlayer/udpbench/pkg/stats"
)

const (
	cwndSpinSleep   = 10 * time.Microsecond
	ackIdleSleep    = 100 * time.Microsecond
	ackReadDeadline = 100 * time.Millisecond
)

var errShortWrite = errors.New("short datagram write")

// Sender drives the benchmark's sending side: the paced, window-limited
// send loop plus the background ACK task.
type Sender struct {
	cfg config.SenderConfig

	conn *net.UDPConn
	peer *net.UDPAddr

	engine    *reliability.Engine
	ctrl      *congestion.Monitor
	limiter   *ratelimit.Limiter
	collector *stats.Collector
	logger    *csvlog.Logger
	progress  *stats.Reporter

	running atomic.Bool
	ackWG   sync.WaitGroup
	log     *slog.Logger
}

// NewSender wires a sender endpoint over an open socket. The logger
// receives one row per acknowledged sequence.
func NewSender(cfg config.SenderConfig, conn *net.UDPConn, peer *net.UDPAddr, logger *csvlog.Logger) *Sender {
	s := &Sender{
		cfg:       cfg,
		conn:      conn,
		peer:      peer,
		limiter:   ratelimit.New(cfg.TargetRate),
		collector: stats.NewCollector(nil),
		logger:    logger,
		progress:  stats.NewReporter(cfg.TotalMsgs),
		log:       logging.Component("sender"),
	}

	ctrl := congestion.New(cfg.InitialCwnd, cfg.InitialSsthresh)
	ctrl.SetMinCwnd(cfg.MinCwnd)
	ctrl.SetMaxCwnd(cfg.MaxCwnd)
	s.ctrl = congestion.NewMonitor(ctrl, cfg.VerboseCwnd)

	s.engine = reliability.NewEngine(cfg.MessageSize, s.transmit, s.collector.Now)
	s.engine.SetMaxRetransmits(cfg.MaxRetransmits)
	s.engine.SetAckFunc(func(seq, sendTs, ackRecvTs uint64, retransmits int) {
		if err := s.logger.LogSender(seq, sendTs, ackRecvTs, retransmits); err != nil {
			s.log.Warn("log write failed", "seq", seq, "err", err)
		}
		s.collector.AddPacketReceived(cfg.MessageSize)
		s.ctrl.PacketAcked()
	})
	return s
}

func (s *Sender) transmit(frame []byte) error {
	n, err := s.conn.WriteToUDP(frame, s.peer)
	if err != nil {
		return err
	}
	if n < len(frame) {
		return errShortWrite
	}
	return nil
}

// Run sends the configured number of messages, drains trailing ACKs, and
// shuts the ACK task down. Blocks until complete.
func (s *Sender) Run() error {
	s.running.Store(true)
	s.ackWG.Add(1)
	go s.ackLoop()

	s.collector.StartCollection()
	s.log.Info("sending",
		"peer", s.peer.String(),
		"message_size", s.cfg.MessageSize,
		"target_rate", s.cfg.TargetRate,
		"total_msgs", s.cfg.TotalMsgs)

	lastDecile := -1
	for seq := uint64(1); seq <= s.cfg.TotalMsgs; seq++ {
		for !s.ctrl.CanSend() {
			time.Sleep(cwndSpinSleep)
		}
		s.limiter.WaitForNextSend()

		sendTs := s.collector.Now()
		if err := s.engine.Send(seq, sendTs); err != nil {
			// Send failure is silent: the sequence never becomes pending
			// and inflight stays untouched.
			continue
		}
		s.ctrl.PacketSent()
		s.collector.AddPacketSent(s.cfg.MessageSize)
		s.progress.Increment()

		if decile := int(s.progress.Percentage()) / 10; decile > lastDecile {
			lastDecile = decile
			s.progress.Print()
		}
	}

	fmt.Fprintln(os.Stdout)
	s.log.Info("all messages submitted, draining trailing acks",
		"drain_seconds", s.cfg.DrainSeconds, "pending", s.engine.PendingCount())
	time.Sleep(time.Duration(s.cfg.DrainSeconds) * time.Second)

	s.running.Store(false)
	s.ackWG.Wait()
	s.engine.Stop()
	s.collector.EndCollection()

	s.log.Info("sender finished",
		"sent", s.cfg.TotalMsgs,
		"acked", s.collector.ThroughputStats().PacketsReceived,
		"still_pending", s.engine.PendingCount())
	return s.logger.Flush()
}

// ackLoop reads SACK frames until Run clears the running flag. Reads use a
// short deadline so the shutdown flag is observed promptly.
func (s *Sender) ackLoop() {
	defer s.ackWG.Done()
	buf := pool.GetDatagram()
	defer pool.PutDatagram(buf)

	for s.running.Load() {
		s.conn.SetReadDeadline(time.Now().Add(ackReadDeadline))
		n, _, err := s.conn.ReadFromUDP(*buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			time.Sleep(ackIdleSleep)
			continue
		}
		if n == 0 {
			time.Sleep(ackIdleSleep)
			continue
		}

		_, retransmitted, err := s.engine.OnSACK((*buf)[:n])
		if err != nil {
			s.log.Debug("dropping malformed ack frame", "size", n)
			continue
		}
		s.ctrl.OnAckReceived(retransmitted > 0)
	}
}

// Collector exposes the stats aggregate for the final summary.
func (s *Sender) Collector() *stats.Collector { return s.collector }

// CongestionStats exposes the controller's event counters.
func (s *Sender) CongestionStats() congestion.Stats { return s.ctrl.Stats() }

// PendingCount reports sequences still awaiting acknowledgement.
func (s *Sender) PendingCount() int { return s.engine.PendingCount() }
