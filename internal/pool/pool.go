package pool

import "sync"

// Datagram read buffers. Both the sender's ACK task and the receiver's
// main loop recycle these instead of allocating per read.
const DatagramBufSize = 2048 // same value as wire.MaxPacketSize

var datagramPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, DatagramBufSize)
		return &b
	},
}

// GetDatagram returns a datagram-sized buffer from the pool.
func GetDatagram() *[]byte {
	return datagramPool.Get().(*[]byte)
}

// PutDatagram returns a datagram buffer to the pool.
func PutDatagram(b *[]byte) {
	if b == nil || cap(*b) < DatagramBufSize {
		return
	}
	*b = (*b)[:DatagramBufSize]
	datagramPool.Put(b)
}
