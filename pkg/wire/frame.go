package wire

import (
	"encoding/binary"
	"errors"
)

// Wire layout, data frame (>= 16 bytes):
//
//	Byte  0-7:   Sequence Number (big-endian)
//	Byte  8-15:  Send Timestamp, nanoseconds (big-endian)
//	Byte  16-:   Zero padding up to the configured message size
//
// Wire layout, SACK frame (>= 10 bytes):
//
//	Byte  0-7:   Cumulative ACK Sequence (big-endian)
//	Byte  8-9:   Bitmap Length in bytes (big-endian)
//	Byte  10-:   Bitmap, LSB-first within each byte; bit i set iff
//	             sequence ack_seq+1+i was received
const (
	DataHeaderSize = 16
	AckHeaderSize  = 10
)

// Frame size limits shared by both endpoints.
const (
	MinMessageSize    = 16   // data frame cannot be smaller than its header
	MaxPacketSize     = 2048 // datagram read buffer size
	DefaultWindowSize = 256  // SACK window span in sequences
)

// ErrMalformedFrame is returned for datagrams shorter than their declared
// frame. It is the codec's only failure mode.
var ErrMalformedFrame = errors.New("malformed frame")

// AppendData serializes a data frame into a fresh buffer of size bytes
// (clamped up to the header size). Bytes past the header stay zero.
func AppendData(seq, ts uint64, size int) []byte {
	if size < DataHeaderSize {
		size = DataHeaderSize
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint64(buf[0:8], seq)
	binary.BigEndian.PutUint64(buf[8:16], ts)
	return buf
}

// ParseData extracts the sequence and send timestamp from a data frame.
func ParseData(data []byte) (seq, ts uint64, err error) {
	if len(data) < DataHeaderSize {
		return 0, 0, ErrMalformedFrame
	}
	seq = binary.BigEndian.Uint64(data[0:8])
	ts = binary.BigEndian.Uint64(data[8:16])
	return seq, ts, nil
}

// AppendSACK serializes a SACK frame covering window sequences above ackSeq.
// Every in-window slot starts marked present; slots named in missing are
// cleared. Sequences outside (ackSeq, ackSeq+window] are ignored.
func AppendSACK(ackSeq uint64, missing []uint64, window int) []byte {
	if window <= 0 {
		window = DefaultWindowSize
	}
	bitmapLen := window / 8
	buf := make([]byte, AckHeaderSize+bitmapLen)
	binary.BigEndian.PutUint64(buf[0:8], ackSeq)
	binary.BigEndian.PutUint16(buf[8:10], uint16(bitmapLen))

	bitmap := buf[AckHeaderSize:]
	for i := range bitmap {
		bitmap[i] = 0xFF
	}
	for _, seq := range missing {
		if seq <= ackSeq || seq > ackSeq+uint64(window) {
			continue
		}
		bit := seq - ackSeq - 1
		bitmap[bit/8] &^= 1 << (bit % 8)
	}
	return buf
}

// ParseSACK extracts the cumulative ACK and the missing set from a SACK
// frame. A clear bit within the first bitmap_len*8 positions denotes a
// missing sequence ack_seq+1+i.
func ParseSACK(data []byte) (ackSeq uint64, missing []uint64, err error) {
	if len(data) < AckHeaderSize {
		return 0, nil, ErrMalformedFrame
	}
	ackSeq = binary.BigEndian.Uint64(data[0:8])
	bitmapLen := int(binary.BigEndian.Uint16(data[8:10]))
	if len(data) < AckHeaderSize+bitmapLen {
		return 0, nil, ErrMalformedFrame
	}

	bitmap := data[AckHeaderSize : AckHeaderSize+bitmapLen]
	for i := 0; i < bitmapLen*8; i++ {
		if bitmap[i/8]>>(i%8)&1 == 0 {
			missing = append(missing, ackSeq+1+uint64(i))
		}
	}
	return ackSeq, missing, nil
}
