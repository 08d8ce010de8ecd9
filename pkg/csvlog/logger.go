// Package csvlog writes the per-packet timing records both endpoints emit
// for offline analysis.
//
// Sender schema:   seq,send_ts_ns,ack_recv_ts_ns,retransmits
// Receiver schema: seq,recv_ts_ns,send_ts_ns
package csvlog

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

const (
	senderHeader   = "seq,send_ts_ns,ack_recv_ts_ns,retransmits"
	receiverHeader = "seq,recv_ts_ns,send_ts_ns"
)

// Logger appends CSV rows to a file. The header row is written lazily on
// the first record so one Logger type serves both schemas.
type Logger struct {
	mu            sync.Mutex
	f             *os.File
	w             *bufio.Writer
	headerWritten bool
}

// Open creates (or truncates) the log file at path.
func Open(path string) (*Logger, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &Logger{f: f, w: bufio.NewWriter(f)}, nil
}

// LogSender appends one sender-side record.
func (l *Logger) LogSender(seq, sendTsNs, ackRecvTsNs uint64, retransmits int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writeHeader(senderHeader); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.w, "%d,%d,%d,%d\n", seq, sendTsNs, ackRecvTsNs, retransmits)
	return err
}

// LogReceiver appends one receiver-side record.
func (l *Logger) LogReceiver(seq, recvTsNs, sendTsNs uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writeHeader(receiverHeader); err != nil {
		return err
	}
	_, err := fmt.Fprintf(l.w, "%d,%d,%d\n", seq, recvTsNs, sendTsNs)
	return err
}

func (l *Logger) writeHeader(header string) error {
	if l.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(l.w, header); err != nil {
		return err
	}
	l.headerWritten = true
	return nil
}

// Flush forces buffered rows to disk.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Flush()
}

// Close flushes and closes the file. Safe to call once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
