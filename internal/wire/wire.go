// Package wire implements the deterministic big-endian binary framing shared
// by every on-the-wire type in tracebox: fixed-width fields, length-prefixed
// blobs, NUL-terminated strings, and tagged optional fields.
//
// There is no third-party codec in play here on purpose: the framing is a
// small, fully deterministic byte layout, not a general serialization
// problem, and every type in this tree implements its own EncodeTo/DecodeFrom
// pair against the cursor types below rather than reflecting over struct
// tags.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnexpectedEOF is returned when a Reader runs out of bytes mid-field.
var ErrUnexpectedEOF = errors.New("wire: unexpected end of buffer")

// ErrTrailingBytes is returned by callers that require a Reader to be fully
// consumed once decoding finishes.
var ErrTrailingBytes = errors.New("wire: trailing bytes after decode")

// Writer accumulates an encoded record. The zero value is not usable; use
// NewWriter.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf.WriteByte(b)
}

// WriteUint32 appends a big-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteRaw appends b verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

// WriteFixed appends b, which must have exactly n bytes. It panics on a
// length mismatch: fixed-width fields are a programmer invariant, not
// caller-facing input.
func (w *Writer) WriteFixed(b []byte, n int) {
	if len(b) != n {
		panic(fmt.Sprintf("wire: fixed field has %d bytes, want %d", len(b), n))
	}
	w.buf.Write(b)
}

// WriteLenPrefixed appends a big-endian uint32 length followed by b.
func (w *Writer) WriteLenPrefixed(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf.Write(b)
}

// WriteNulString appends s followed by a single NUL byte. The caller must
// ensure s contains no embedded NUL; callers in this tree validate that at
// construction time (see pkg/segment).
func (w *Writer) WriteNulString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0x00)
}

// WriteOption writes the tagged-option encoding used throughout the wire
// formats here: 0x00 for absent, 0xff followed by encode's output for
// present. This mirrors original_source's RWOption<T> without requiring a
// generic encodable-value interface; callers supply the encode step as a
// closure.
func (w *Writer) WriteOption(present bool, encode func(*Writer)) {
	if !present {
		w.WriteByte(0x00)
		return
	}
	w.WriteByte(0xff)
	encode(w)
}

// Reader walks a byte slice field by field.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len reports the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.buf) - r.pos
}

// Remaining returns the unread tail of the buffer without advancing.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}

// Done reports whether the Reader has no unread bytes left.
func (r *Reader) Done() bool {
	return r.Len() == 0
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.Len() < 1 {
		return 0, ErrUnexpectedEOF
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Len() < 4 {
		return 0, ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

// ReadFixed reads exactly n bytes and returns a fresh copy of them.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if r.Len() < n {
		return nil, ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadLenPrefixed reads a big-endian uint32 length followed by that many
// bytes.
func (r *Reader) ReadLenPrefixed() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	return r.ReadFixed(int(n))
}

// ReadMagic reads len(expected) bytes and fails unless they match exactly.
func (r *Reader) ReadMagic(expected []byte) error {
	got, err := r.ReadFixed(len(expected))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, expected) {
		return fmt.Errorf("wire: magic mismatch, got %x want %x", got, expected)
	}
	return nil
}

// ReadNulString reads bytes up to and including the next NUL byte and
// returns the bytes before it as a string.
func (r *Reader) ReadNulString() (string, error) {
	idx := bytes.IndexByte(r.buf[r.pos:], 0x00)
	if idx < 0 {
		return "", ErrUnexpectedEOF
	}
	s := string(r.buf[r.pos : r.pos+idx])
	r.pos += idx + 1
	return s, nil
}

// ReadOption reads the tagged-option encoding written by Writer.WriteOption.
// It returns whether the value was present; when present, decode is called
// to consume the value's encoding from the Reader.
func (r *Reader) ReadOption(decode func(*Reader) error) (bool, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch tag {
	case 0x00:
		return false, nil
	case 0xff:
		if err := decode(r); err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, fmt.Errorf("wire: invalid option tag %#x", tag)
	}
}

// RequireConsumed returns ErrTrailingBytes if r has unread bytes left. Use it
// at the top level of a Parse function; nested DecodeFrom calls should not
// call it, since they are expected to leave the cursor positioned for the
// next sibling field.
func (r *Reader) RequireConsumed() error {
	if !r.Done() {
		return ErrTrailingBytes
	}
	return nil
}
