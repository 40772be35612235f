// Package fuzzinput provides a bounds checked cursor over a fuzz engine's
// input buffer. Every structured value the harness consumes is carved out of
// a single immutable byte slice through this cursor, so a run over identical
// bytes always observes identical values. Running out of input is not an
// error, it is the normal way a fuzz iteration ends.
package fuzzinput

import (
	"encoding/binary"
)

// Data owns the raw input buffer for a single fuzz iteration together with
// the current read offset. The offset only ever moves forward. A Data is
// used by exactly one goroutine and is discarded at the end of the
// iteration.
type Data struct {
	data    []byte
	readPos int
}

// New wraps the passed buffer in a fresh cursor positioned at offset zero.
// The buffer is not copied and must not be mutated while the cursor is in
// use.
func New(data []byte) *Data {
	return &Data{
		data: data,
	}
}

// Next returns the next n bytes of input and advances the cursor past them.
// If fewer than n bytes remain, the cursor is left in a terminal state and
// false is returned. Callers treat a false return as "input exhausted, stop
// the entire run". The returned slice aliases the underlying buffer and must
// be treated as read-only.
func (d *Data) Next(n int) ([]byte, bool) {
	if d.readPos+n > len(d.data) {
		// Park the cursor at the end so that every subsequent read
		// also reports exhaustion.
		d.readPos = len(d.data)
		return nil, false
	}

	start := d.readPos
	d.readPos += n

	return d.data[start : start+n], true
}

// Peek returns the next n bytes of input without advancing the cursor. The
// same exhaustion semantics as Next apply, except that a failed peek leaves
// the offset untouched.
func (d *Data) Peek(n int) ([]byte, bool) {
	if d.readPos+n > len(d.data) {
		return nil, false
	}

	return d.data[d.readPos : d.readPos+n], true
}

// NextByte consumes a single byte of input.
func (d *Data) NextByte() (byte, bool) {
	b, ok := d.Next(1)
	if !ok {
		return 0, false
	}

	return b[0], true
}

// NextUint16 consumes two bytes of input decoded as a big-endian unsigned
// integer.
func (d *Data) NextUint16() (uint16, bool) {
	b, ok := d.Next(2)
	if !ok {
		return 0, false
	}

	return binary.BigEndian.Uint16(b), true
}

// NextUint32 consumes four bytes of input decoded as a big-endian unsigned
// integer.
func (d *Data) NextUint32() (uint32, bool) {
	b, ok := d.Next(4)
	if !ok {
		return 0, false
	}

	return binary.BigEndian.Uint32(b), true
}

// NextUint64 consumes eight bytes of input decoded as a big-endian unsigned
// integer.
func (d *Data) NextUint64() (uint64, bool) {
	b, ok := d.Next(8)
	if !ok {
		return 0, false
	}

	return binary.BigEndian.Uint64(b), true
}

// PeekUint16 decodes the next two bytes as a big-endian unsigned integer
// without advancing the cursor.
func (d *Data) PeekUint16() (uint16, bool) {
	b, ok := d.Peek(2)
	if !ok {
		return 0, false
	}

	return binary.BigEndian.Uint16(b), true
}

// Remaining reports how many unread bytes are left in the buffer.
func (d *Data) Remaining() int {
	return len(d.data) - d.readPos
}
