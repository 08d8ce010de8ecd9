// Package netutil sets up the IPv4 UDP sockets both endpoints run on:
// large buffers, address reuse, and strict address validation.
package netutil

import (
	"context"
	"fmt"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// DefaultBufferSize is the socket send/receive buffer size (4 MiB).
const DefaultBufferSize = 4 * 1024 * 1024

// ValidIP reports whether s is an IPv4 dotted-quad address.
func ValidIP(s string) bool {
	ip := net.ParseIP(s)
	return ip != nil && ip.To4() != nil
}

// ValidPort reports whether p is a usable UDP port.
func ValidPort(p int) bool {
	return p > 0 && p < 65536
}

// reuseAddr marks the socket SO_REUSEADDR before bind.
func reuseAddr(network, address string, c syscall.RawConn) error {
	var serr error
	err := c.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return serr
}

// Listen binds an IPv4 UDP socket on port with reuse-address set and the
// default buffer sizes applied.
func Listen(port int) (*net.UDPConn, error) {
	if !ValidPort(port) {
		return nil, fmt.Errorf("invalid port %d", port)
	}
	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind udp port %d: %w", port, err)
	}
	conn := pc.(*net.UDPConn)
	if err := ConfigureBuffers(conn, DefaultBufferSize, DefaultBufferSize); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Dial opens an IPv4 UDP socket bound to an ephemeral local port and
// resolves the peer address. The
// connection stays unconnected so one socket carries both data out and
// ACKs back.
func Dial(ip string, port int) (*net.UDPConn, *net.UDPAddr, error) {
	if !ValidIP(ip) {
		return nil, nil, fmt.Errorf("invalid IPv4 address %q", ip)
	}
	if !ValidPort(port) {
		return nil, nil, fmt.Errorf("invalid port %d", port)
	}
	peer := &net.UDPAddr{IP: net.ParseIP(ip).To4(), Port: port}

	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, nil, fmt.Errorf("open udp socket: %w", err)
	}
	conn := pc.(*net.UDPConn)
	if err := ConfigureBuffers(conn, DefaultBufferSize, DefaultBufferSize); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, peer, nil
}

// ConfigureBuffers applies send and receive buffer sizes.
func ConfigureBuffers(conn *net.UDPConn, sendBuf, recvBuf int) error {
	if err := conn.SetWriteBuffer(sendBuf); err != nil {
		return fmt.Errorf("set send buffer: %w", err)
	}
	if err := conn.SetReadBuffer(recvBuf); err != nil {
		return fmt.Errorf("set receive buffer: %w", err)
	}
	return nil
}
