package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/TeoSlayer/udpbench/pkg/bench"
	"github.com/TeoSlayer/udpbench/pkg/config"
	"github.com/TeoSlayer/udpbench/pkg/csvlog"
	"github.com/TeoSlayer/udpbench/pkg/logging"
	"github.com/TeoSlayer/udpbench/pkg/netutil"
	"github.com/TeoSlayer/udpbench/pkg/stats"
)

func main() {
	defaults := config.DefaultReceiver()

	configPath := flag.String("config", "", "path to config file (JSON)")
	port := flag.Int("port", 0, "UDP port to listen on")
	logPath := flag.String("log", "", "path to output CSV log file")
	windowSize := flag.Int("window", defaults.WindowSize, "SACK window size in sequences (multiple of 8)")
	ackPeriod := flag.Int("ack-period", defaults.AckPeriod, "send an ACK every N received packets")
	progressInterval := flag.Uint64("progress-interval", defaults.ProgressInterval, "packets between progress reports")
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

	cfg := config.ReceiverConfig{
		ListenPort:       *port,
		LogPath:          *logPath,
		WindowSize:       *windowSize,
		AckPeriod:        *ackPeriod,
		ProgressInterval: *progressInterval,
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	conn, err := netutil.Listen(cfg.ListenPort)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind socket: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	logger, err := csvlog.Open(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	fmt.Printf("UDP Receiver listening on port %d (logging to %s)\n", cfg.ListenPort, cfg.LogPath)

	receiver := bench.NewReceiver(cfg, conn, logger)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		receiver.ForceAck()
		receiver.Stop()
	}()

	if err := receiver.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "receiver: %v\n", err)
		os.Exit(1)
	}

	c := receiver.Collector()
	stats.WriteSummary(os.Stdout, c.LatencyStats(), c.ThroughputStats())
}
