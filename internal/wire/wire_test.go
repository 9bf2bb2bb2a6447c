package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteByte(0x42)
	w.WriteUint32(123456789)
	w.WriteFixed([]byte{1, 2, 3, 4}, 4)
	w.WriteLenPrefixed([]byte("hello"))
	w.WriteNulString("a name")

	r := NewReader(w.Bytes())

	b, err := r.ReadByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x42), b)

	u, err := r.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(123456789), u)

	fixed, err := r.ReadFixed(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, fixed)

	lp, err := r.ReadLenPrefixed()
	require.NoError(t, err)
	require.Equal(t, "hello", string(lp))

	s, err := r.ReadNulString()
	require.NoError(t, err)
	require.Equal(t, "a name", s)

	require.NoError(t, r.RequireConsumed())
}

func TestReaderUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadFixed(4)
	require.ErrorIs(t, err, ErrUnexpectedEOF)
}

func TestReadMagicMismatch(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	err := r.ReadMagic([]byte{9, 9, 9, 9})
	require.Error(t, err)
}

func TestOptionRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteOption(false, func(*Writer) {})
	w.WriteOption(true, func(w *Writer) { w.WriteUint32(7) })

	r := NewReader(w.Bytes())
	present, err := r.ReadOption(func(*Reader) error { return nil })
	require.NoError(t, err)
	require.False(t, present)

	var got uint32
	present, err = r.ReadOption(func(r *Reader) error {
		v, err := r.ReadUint32()
		got = v
		return err
	})
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, uint32(7), got)
}

func TestRequireConsumedFailsOnTrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.ReadByte()
	require.NoError(t, err)
	require.ErrorIs(t, r.RequireConsumed(), ErrTrailingBytes)
}
