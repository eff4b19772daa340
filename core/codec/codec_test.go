package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"commune/crypto"
)

func TestRoundTrip(t *testing.T) {
	addr := crypto.Address{0xAB, 0x01}
	w := NewWriter()
	w.Header(3, 1)
	w.U8(7)
	w.U32(70_000)
	w.U64(1 << 40)
	w.I64(-12345)
	w.Bool(true)
	w.Address(addr)
	w.OptionAddress(crypto.ZeroAddress)
	w.OptionAddress(addr)
	w.String("hello")
	w.ByteSlice([]byte{1, 2, 3})

	r := NewReader(w.Bytes())
	r.Header(3, 1)
	require.Equal(t, uint8(7), r.U8())
	require.Equal(t, uint32(70_000), r.U32())
	require.Equal(t, uint64(1<<40), r.U64())
	require.Equal(t, int64(-12345), r.I64())
	require.True(t, r.Bool())
	require.Equal(t, addr, r.Address())
	require.True(t, r.OptionAddress().IsZero())
	require.Equal(t, addr, r.OptionAddress())
	require.Equal(t, "hello", r.String(16))
	require.Equal(t, []byte{1, 2, 3}, r.ByteSlice(16))
	require.NoError(t, r.Done())
}

func TestEmptyByteSliceDecodesNil(t *testing.T) {
	w := NewWriter()
	w.ByteSlice(nil)

	r := NewReader(w.Bytes())
	require.Nil(t, r.ByteSlice(16))
	require.NoError(t, r.Done())
}

func TestTrailingBytes(t *testing.T) {
	w := NewWriter()
	w.U64(1)
	w.U8(0xFF)

	r := NewReader(w.Bytes())
	_ = r.U64()
	require.ErrorIs(t, r.Done(), ErrTrailingBytes)
}

func TestShortBuffer(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_ = r.U64()
	require.ErrorIs(t, r.Done(), ErrShortBuffer)
}

func TestStringBound(t *testing.T) {
	w := NewWriter()
	w.String("exceeds")

	r := NewReader(w.Bytes())
	_ = r.String(3)
	require.Error(t, r.Done())
}

func TestHeaderMismatch(t *testing.T) {
	w := NewWriter()
	w.Header(2, 1)

	r := NewReader(w.Bytes())
	r.Header(3, 1)
	require.Error(t, r.Done())

	r = NewReader(w.Bytes())
	r.Header(2, 9)
	require.Error(t, r.Done())
}

func TestErrorSticks(t *testing.T) {
	r := NewReader(nil)
	_ = r.U32()
	require.ErrorIs(t, r.Err(), ErrShortBuffer)
	require.Equal(t, uint64(0), r.U64())
	require.Equal(t, "", r.String(10))
	require.ErrorIs(t, r.Done(), ErrShortBuffer)
}
