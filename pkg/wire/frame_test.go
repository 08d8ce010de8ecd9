package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataFrameLayout(t *testing.T) {
	t.Parallel()

	frame := AppendData(42, 1_000_000_000, 16)
	require.Len(t, frame, 16)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2A}, frame[0:8])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x3B, 0x9A, 0xCA, 0x00}, frame[8:16])

	seq, ts, err := ParseData(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)
	assert.Equal(t, uint64(1_000_000_000), ts)
}

func TestDataFramePadding(t *testing.T) {
	t.Parallel()

	frame := AppendData(7, 99, 256)
	require.Len(t, frame, 256)
	for i := DataHeaderSize; i < len(frame); i++ {
		require.Zero(t, frame[i], "padding byte %d", i)
	}

	// Undersized requests clamp up to the header.
	assert.Len(t, AppendData(1, 1, 4), DataHeaderSize)
}

func TestDataFrameRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seq, ts uint64
		size    int
	}{
		{1, 0, 16},
		{0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF, 16},
		{123456789, 987654321012345678, 1024},
	}
	for _, tc := range cases {
		seq, ts, err := ParseData(AppendData(tc.seq, tc.ts, tc.size))
		require.NoError(t, err)
		assert.Equal(t, tc.seq, seq)
		assert.Equal(t, tc.ts, ts)
	}
}

func TestParseDataRejectsShortFrame(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1, 8, 15} {
		_, _, err := ParseData(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformedFrame, "size %d", n)
	}
}

func TestSACKRoundTrip(t *testing.T) {
	t.Parallel()

	ackSeq := uint64(100)
	missing := []uint64{101, 105, 200, 357} // 357 is past the window, dropped

	frame := AppendSACK(ackSeq, missing, DefaultWindowSize)
	require.Len(t, frame, AckHeaderSize+DefaultWindowSize/8)

	gotAck, gotMissing, err := ParseSACK(frame)
	require.NoError(t, err)
	assert.Equal(t, ackSeq, gotAck)
	assert.Equal(t, []uint64{101, 105, 200}, gotMissing)
}

func TestSACKEmptyMissing(t *testing.T) {
	t.Parallel()

	frame := AppendSACK(3, nil, DefaultWindowSize)
	gotAck, gotMissing, err := ParseSACK(frame)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), gotAck)
	assert.Empty(t, gotMissing)
}

// Bit polarity: a set bit means the sequence was received; parsers report
// clear bits as missing.
func TestSACKBitPolarity(t *testing.T) {
	t.Parallel()

	// H=3, seq 4 missing, seq 5 present.
	frame := AppendSACK(3, []uint64{4}, DefaultWindowSize)
	require.Len(t, frame, AckHeaderSize+32)

	bitmap := frame[AckHeaderSize:]
	assert.Zero(t, bitmap[0]&0x01, "bit 0 (seq 4) must be clear")
	assert.NotZero(t, bitmap[0]&0x02, "bit 1 (seq 5) must be set")

	_, missing, err := ParseSACK(frame)
	require.NoError(t, err)
	assert.Equal(t, []uint64{4}, missing)
}

func TestParseSACKRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 5, 9} {
		_, _, err := ParseSACK(make([]byte, n))
		assert.ErrorIs(t, err, ErrMalformedFrame, "size %d", n)
	}

	// bitmap_len larger than the remaining bytes
	frame := AppendSACK(1, nil, 256)
	truncated := frame[:AckHeaderSize+4]
	_, _, err := ParseSACK(truncated)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}

func TestSACKWindowRestriction(t *testing.T) {
	t.Parallel()

	// Sequences at or below ackSeq and above ackSeq+window never appear.
	frame := AppendSACK(10, []uint64{5, 10, 11, 10 + DefaultWindowSize, 11 + DefaultWindowSize}, DefaultWindowSize)
	_, missing, err := ParseSACK(frame)
	require.NoError(t, err)
	assert.Equal(t, []uint64{11, 10 + DefaultWindowSize}, missing)
}
