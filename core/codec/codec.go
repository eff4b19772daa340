package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"commune/crypto"
)

// The account payload wire format is part of the protocol contract: 64-bit
// integers are little-endian fixed width, strings carry a 32-bit
// little-endian length prefix, optional fields a single presence byte.
// Every record starts with a kind byte and a version byte.

var (
	// ErrShortBuffer marks payloads that end before the declared layout.
	ErrShortBuffer = errors.New("codec: short buffer")
	// ErrTrailingBytes marks payloads longer than the declared layout.
	ErrTrailingBytes = errors.New("codec: trailing bytes")
)

// Writer accumulates a record payload.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated payload.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) I64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *Writer) Bool(v bool) {
	if v {
		w.U8(1)
	} else {
		w.U8(0)
	}
}

func (w *Writer) Address(a crypto.Address) {
	w.buf = append(w.buf, a[:]...)
}

// OptionAddress encodes a presence byte followed by the address when set.
// The zero address is treated as absent.
func (w *Writer) OptionAddress(a crypto.Address) {
	if a.IsZero() {
		w.U8(0)
		return
	}
	w.U8(1)
	w.Address(a)
}

// String encodes a 32-bit little-endian length prefix followed by the raw
// UTF-8 bytes.
func (w *Writer) String(s string) {
	w.U32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// ByteSlice encodes a 32-bit length prefix followed by the raw bytes.
func (w *Writer) ByteSlice(b []byte) {
	w.U32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// Reader decodes a record payload, accumulating the first error encountered.
// After an error every accessor returns the zero value.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader wraps a payload for decoding.
func NewReader(b []byte) *Reader { return &Reader{buf: b} }

// Err returns the first decoding error, if any.
func (r *Reader) Err() error { return r.err }

// Done verifies the payload was consumed exactly.
func (r *Reader) Done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%w: %d bytes remain", ErrTrailingBytes, len(r.buf)-r.off)
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) I64() int64 {
	return int64(r.U64())
}

func (r *Reader) Bool() bool {
	switch r.U8() {
	case 0:
		return false
	case 1:
		return true
	default:
		if r.err == nil {
			r.err = errors.New("codec: invalid bool byte")
		}
		return false
	}
}

func (r *Reader) Address() crypto.Address {
	b := r.take(crypto.AddressLength)
	if b == nil {
		return crypto.Address{}
	}
	var a crypto.Address
	copy(a[:], b)
	return a
}

func (r *Reader) OptionAddress() crypto.Address {
	if !r.Bool() {
		return crypto.Address{}
	}
	return r.Address()
}

// String decodes a length-prefixed string, rejecting lengths above max.
func (r *Reader) String(max int) string {
	n := r.U32()
	if r.err != nil {
		return ""
	}
	if int(n) > max {
		r.err = fmt.Errorf("codec: string length %d exceeds bound %d", n, max)
		return ""
	}
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// ByteSlice decodes a length-prefixed byte slice, rejecting lengths above
// max. An empty slice decodes as nil so records round-trip exactly.
func (r *Reader) ByteSlice(max int) []byte {
	n := r.U32()
	if r.err != nil {
		return nil
	}
	if int(n) > max {
		r.err = fmt.Errorf("codec: slice length %d exceeds bound %d", n, max)
		return nil
	}
	if n == 0 {
		return nil
	}
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Header writes the record kind and version bytes that prefix every payload.
func (w *Writer) Header(kind, version uint8) {
	w.U8(kind)
	w.U8(version)
}

// Header consumes and verifies the record kind and version bytes.
func (r *Reader) Header(kind, version uint8) {
	gotKind := r.U8()
	gotVersion := r.U8()
	if r.err != nil {
		return
	}
	if gotKind != kind {
		r.err = fmt.Errorf("codec: record kind %#x, want %#x", gotKind, kind)
		return
	}
	if gotVersion != version {
		r.err = fmt.Errorf("codec: unsupported record version %d", gotVersion)
	}
}
