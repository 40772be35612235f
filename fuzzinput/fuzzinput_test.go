package fuzzinput

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNextAdvances asserts that sequential reads return adjacent slices of
// the buffer.
func TestNextAdvances(t *testing.T) {
	t.Parallel()

	d := New([]byte{1, 2, 3, 4, 5})

	b, ok := d.Next(2)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2}, b)

	b, ok = d.Next(3)
	require.True(t, ok)
	require.Equal(t, []byte{3, 4, 5}, b)

	require.Zero(t, d.Remaining())
}

// TestNextExhaustion asserts that a read past the end fails and that every
// subsequent read fails too, regardless of size.
func TestNextExhaustion(t *testing.T) {
	t.Parallel()

	d := New([]byte{1, 2, 3})

	_, ok := d.Next(4)
	require.False(t, ok)

	// Even a read that would have fit before the failed one must now
	// report exhaustion: the run is over.
	_, ok = d.Next(1)
	require.False(t, ok)
}

// TestPeekDoesNotAdvance asserts that peeking leaves the offset untouched,
// both on success and on failure.
func TestPeekDoesNotAdvance(t *testing.T) {
	t.Parallel()

	d := New([]byte{0xAB, 0xCD, 0xEF})

	b, ok := d.Peek(2)
	require.True(t, ok)
	require.Equal(t, []byte{0xAB, 0xCD}, b)

	_, ok = d.Peek(4)
	require.False(t, ok)

	b, ok = d.Next(3)
	require.True(t, ok)
	require.Equal(t, []byte{0xAB, 0xCD, 0xEF}, b)
}

// TestBigEndianDecoding asserts the fixed-width integer helpers decode in
// network byte order.
func TestBigEndianDecoding(t *testing.T) {
	t.Parallel()

	d := New([]byte{
		0x01, 0x02,
		0x01, 0x02, 0x03, 0x04,
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		0xFF,
	})

	v16, ok := d.NextUint16()
	require.True(t, ok)
	require.Equal(t, uint16(0x0102), v16)

	v32, ok := d.NextUint32()
	require.True(t, ok)
	require.Equal(t, uint32(0x01020304), v32)

	v64, ok := d.NextUint64()
	require.True(t, ok)
	require.Equal(t, uint64(0x0102030405060708), v64)

	b, ok := d.NextByte()
	require.True(t, ok)
	require.Equal(t, byte(0xFF), b)

	_, ok = d.NextByte()
	require.False(t, ok)
}

// TestPeekUint16 asserts that the non-advancing integer peek matches a
// subsequent read.
func TestPeekUint16(t *testing.T) {
	t.Parallel()

	d := New([]byte{0xBE, 0xEF})

	peeked, ok := d.PeekUint16()
	require.True(t, ok)

	read, ok := d.NextUint16()
	require.True(t, ok)
	require.Equal(t, peeked, read)

	_, ok = d.PeekUint16()
	require.False(t, ok)
}

// TestEmptyInput asserts that a zero-length buffer fails every operation
// without panicking.
func TestEmptyInput(t *testing.T) {
	t.Parallel()

	d := New(nil)

	_, ok := d.Next(1)
	require.False(t, ok)
	_, ok = d.Peek(1)
	require.False(t, ok)
	_, ok = d.NextUint64()
	require.False(t, ok)

	// A zero-length read of an empty buffer is still in bounds.
	b, ok := d.Next(0)
	require.True(t, ok)
	require.Empty(t, b)
}
