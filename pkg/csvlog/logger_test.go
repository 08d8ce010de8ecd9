package csvlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sender.csv")
	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.LogSender(1, 100, 250, 0))
	require.NoError(t, l.LogSender(2, 200, 380, 1))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "seq,send_ts_ns,ack_recv_ts_ns,retransmits", lines[0])
	assert.Equal(t, "1,100,250,0", lines[1])
	assert.Equal(t, "2,200,380,1", lines[2])
}

func TestReceiverLog(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "receiver.csv")
	l, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, l.LogReceiver(7, 5000, 4000))
	require.NoError(t, l.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "seq,recv_ts_ns,send_ts_ns", lines[0])
	assert.Equal(t, "7,5000,4000", lines[1])

	require.NoError(t, l.Close())
}

func TestHeaderWrittenOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.csv")
	l, err := Open(path)
	require.NoError(t, err)

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, l.LogReceiver(i, i*10, i*5))
	}
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "seq,"), "exactly one header row")
}

func TestOpenFailure(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "missing", "log.csv"))
	assert.Error(t, err)
}
