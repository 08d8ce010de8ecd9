// Package config defines the benchmark endpoint configurations and the
// JSON-file override mechanism shared by both CLIs.
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/TeoSlayer/udpbench/pkg/congestion"
	"github.com/TeoSlayer/udpbench/pkg/netutil"
	"github.com/TeoSlayer/udpbench/pkg/wire"
)

// SenderConfig is the full sender endpoint configuration.
type SenderConfig struct {
	ReceiverIP  string
	Port        int
	MessageSize int
	TargetRate  float64 // messages per second; <= 0 disables pacing
	TotalMsgs   uint64
	LogPath     string

	InitialCwnd     uint64
	InitialSsthresh uint64
	MinCwnd         uint64
	MaxCwnd         uint64
	MaxRetransmits  int
	VerboseCwnd     bool
	DrainSeconds    int // wait for trailing ACKs after the last send
}

// DefaultSender returns a sender config with protocol defaults filled in.
func DefaultSender() SenderConfig {
	return SenderConfig{
		MessageSize:     wire.MinMessageSize,
		InitialCwnd:     congestion.InitialCwnd,
		InitialSsthresh: congestion.InitialSsthresh,
		MinCwnd:         congestion.MinCwnd,
		MaxCwnd:         congestion.MaxCwnd,
		MaxRetransmits:  3,
		DrainSeconds:    2,
	}
}

// Validate checks the argument surface the CLI exposes.
func (c *SenderConfig) Validate() error {
	if !netutil.ValidIP(c.ReceiverIP) {
		return fmt.Errorf("invalid receiver IP %q", c.ReceiverIP)
	}
	if !netutil.ValidPort(c.Port) {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MessageSize < wire.MinMessageSize {
		return fmt.Errorf("message size must be at least %d bytes for headers", wire.MinMessageSize)
	}
	if c.TotalMsgs == 0 {
		return fmt.Errorf("total messages must be positive")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log path required")
	}
	if c.MinCwnd == 0 || c.MaxCwnd < c.MinCwnd {
		return fmt.Errorf("cwnd bounds invalid: min=%d max=%d", c.MinCwnd, c.MaxCwnd)
	}
	if c.InitialCwnd < c.MinCwnd || c.InitialCwnd > c.MaxCwnd {
		return fmt.Errorf("initial cwnd %d outside [%d, %d]", c.InitialCwnd, c.MinCwnd, c.MaxCwnd)
	}
	return nil
}

// ReceiverConfig is the full receiver endpoint configuration.
type ReceiverConfig struct {
	ListenPort int
	LogPath    string

	WindowSize       int
	AckPeriod        int
	ProgressInterval uint64
}

// DefaultReceiver returns a receiver config with protocol defaults.
func DefaultReceiver() ReceiverConfig {
	return ReceiverConfig{
		WindowSize:       wire.DefaultWindowSize,
		AckPeriod:        1,
		ProgressInterval: 1000,
	}
}

// Validate checks the argument surface the CLI exposes.
func (c *ReceiverConfig) Validate() error {
	if !netutil.ValidPort(c.ListenPort) {
		return fmt.Errorf("invalid port %d", c.ListenPort)
	}
	if c.LogPath == "" {
		return fmt.Errorf("log path required")
	}
	if c.WindowSize <= 0 || c.WindowSize%8 != 0 {
		return fmt.Errorf("window size must be a positive multiple of 8, got %d", c.WindowSize)
	}
	if c.AckPeriod <= 0 {
		return fmt.Errorf("ack period must be positive, got %d", c.AckPeriod)
	}
	return nil
}

// Load reads a JSON config file and returns it as a map.
func Load(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg map[string]interface{}
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyToFlags overrides flag defaults from config for any flag not
// explicitly set on the command line. Call this AFTER flag.Parse().
// Keys in the config can use either hyphens or underscores (e.g.
// "ack-period" or "ack_period" both match the -ack-period flag).
func ApplyToFlags(cfg map[string]interface{}) {
	ApplyToFlagSet(flag.CommandLine, cfg)
}

// ApplyToFlagSet is ApplyToFlags over an explicit flag set.
func ApplyToFlagSet(fs *flag.FlagSet, cfg map[string]interface{}) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicit[f.Name] = true
	})

	fs.VisitAll(func(f *flag.Flag) {
		if explicit[f.Name] {
			return
		}
		val, ok := cfg[f.Name]
		if !ok {
			val, ok = cfg[strings.ReplaceAll(f.Name, "-", "_")]
		}
		if !ok {
			return
		}
		switch v := val.(type) {
		case string:
			f.Value.Set(v)
		case float64:
			f.Value.Set(fmt.Sprintf("%v", v))
		case bool:
			f.Value.Set(fmt.Sprintf("%v", v))
		}
	})
}
