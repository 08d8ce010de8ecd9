package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/TeoSlayer/udpbench/pkg/bench"
	"github.com/TeoSlayer/udpbench/pkg/config"
	"github.com/TeoSlayer/udpbench/pkg/csvlog"
	"github.com/TeoSlayer/udpbench/pkg/logging"
	"github.com/TeoSlayer/udpbench/pkg/netutil"
	"github.com/TeoSlayer/udpbench/pkg/stats"
)

func main() {
	defaults := config.DefaultSender()

	configPath := flag.String("config", "", "path to config file (JSON)")
	recvIP := flag.String("recv-ip", "", "IP address of the receiver (e.g. 127.0.0.1)")
	port := flag.Int("port", 0, "UDP port number of the receiver")
	msgSize := flag.Int("msg-size", defaults.MessageSize, "total message size in bytes (minimum 16 for headers)")
	rate := flag.Float64("rate", 0, "target sending rate in messages per second (0 = unpaced)")
	totalMsgs := flag.Uint64("total-msgs", 0, "total number of messages to send")
	logPath := flag.String("log", "", "path to output CSV log file")
	initialCwnd := flag.Uint64("initial-cwnd", defaults.InitialCwnd, "initial congestion window")
	initialSsthresh := flag.Uint64("initial-ssthresh", defaults.InitialSsthresh, "initial slow-start threshold")
	minCwnd := flag.Uint64("min-cwnd", defaults.MinCwnd, "congestion window floor")
	maxCwnd := flag.Uint64("max-cwnd", defaults.MaxCwnd, "congestion window ceiling")
	maxRetx := flag.Int("max-retransmits", defaults.MaxRetransmits, "observational retransmit cap per sequence")
	verboseCwnd := flag.Bool("verbose-cwnd", false, "log congestion window transitions")
	drain := flag.Int("drain-seconds", defaults.DrainSeconds, "seconds to wait for trailing ACKs after the last send")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "text", "log format (text, json)")
	flag.Parse()

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		config.ApplyToFlags(cfg)
	}

	logging.Setup(*logLevel, *logFormat)

	cfg := config.SenderConfig{
		ReceiverIP:      *recvIP,
		Port:            *port,
		MessageSize:     *msgSize,
		TargetRate:      *rate,
		TotalMsgs:       *totalMsgs,
		LogPath:         *logPath,
		InitialCwnd:     *initialCwnd,
		InitialSsthresh: *initialSsthresh,
		MinCwnd:         *minCwnd,
		MaxCwnd:         *maxCwnd,
		MaxRetransmits:  *maxRetx,
		VerboseCwnd:     *verboseCwnd,
		DrainSeconds:    *drain,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	fmt.Printf("UDP Sender configuration:\n")
	fmt.Printf("  Target: %s:%d\n", cfg.ReceiverIP, cfg.Port)
	fmt.Printf("  Message size: %d bytes\n", cfg.MessageSize)
	fmt.Printf("  Target rate: %d msgs/sec\n", int(cfg.TargetRate))
	fmt.Printf("  Total messages: %d\n", cfg.TotalMsgs)
	fmt.Printf("  Logging to: %s\n", cfg.LogPath)

	conn, peer, err := netutil.Dial(cfg.ReceiverIP, cfg.Port)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create socket: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger, err := csvlog.Open(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	sender := bench.NewSender(cfg, conn, peer, logger)
	if err := sender.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "sender: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sender finished. Sent %d messages.\n", cfg.TotalMsgs)
	fmt.Printf("Check %s for results.\n", cfg.LogPath)

	c := sender.Collector()
	stats.WriteSummary(os.Stdout, c.LatencyStats(), c.ThroughputStats())
}
