package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSender() SenderConfig {
	cfg := DefaultSender()
	cfg.ReceiverIP = "127.0.0.1"
	cfg.Port = 9000
	cfg.TotalMsgs = 1000
	cfg.LogPath = "out.csv"
	return cfg
}

func TestSenderValidate(t *testing.T) {
	t.Parallel()

	sender := validSender()
	require.NoError(t, sender.Validate())

	cases := []struct {
		name   string
		mutate func(*SenderConfig)
	}{
		{"bad ip", func(c *SenderConfig) { c.ReceiverIP = "example.com" }},
		{"bad port", func(c *SenderConfig) { c.Port = 0 }},
		{"small message", func(c *SenderConfig) { c.MessageSize = 15 }},
		{"zero messages", func(c *SenderConfig) { c.TotalMsgs = 0 }},
		{"no log", func(c *SenderConfig) { c.LogPath = "" }},
		{"bad cwnd bounds", func(c *SenderConfig) { c.MaxCwnd = 5; c.MinCwnd = 10 }},
	}
	for _, tc := range cases {
		cfg := validSender()
		tc.mutate(&cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}
}

func TestReceiverValidate(t *testing.T) {
	t.Parallel()

	cfg := DefaultReceiver()
	cfg.ListenPort = 9000
	cfg.LogPath = "out.csv"
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.WindowSize = 100 // not a multiple of 8
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.AckPeriod = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.ListenPort = 70000
	assert.Error(t, bad.Validate())
}

func TestLoadAndApplyToFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"ack-period": 8,
		"window_size": 512,
		"log-level": "debug"
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	ackPeriod := fs.Int("ack-period", 1, "")
	windowSize := fs.Int("window-size", 256, "")
	logLevel := fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"-ack-period", "2"}))

	ApplyToFlagSet(fs, cfg)

	assert.Equal(t, 2, *ackPeriod, "command-line value wins")
	assert.Equal(t, 512, *windowSize, "underscore key matches")
	assert.Equal(t, "debug", *logLevel)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/cfg.json")
	assert.Error(t, err)
}
