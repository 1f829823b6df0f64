package circbuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sos/mem"
)

func TestWriteReadRoundTrip(t *testing.T) {
	frames := mem.New(1, nil)
	cb, ok := New(frames)
	require.True(t, ok)
	defer cb.Close()

	cb.Write([]byte("hello"))
	require.Equal(t, 5, cb.Len())

	buf := make([]byte, 5)
	n := cb.Read(buf)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, 0, cb.Len())
}

func TestOverflowDropsOldestBytes(t *testing.T) {
	frames := mem.New(1, nil)
	cb, _ := New(frames)
	defer cb.Close()

	cap := mem.PageSize
	full := make([]byte, cap)
	for i := range full {
		full[i] = byte('x')
	}
	cb.Write(full)
	cb.Write([]byte("Y")) // overflow by one byte

	require.Equal(t, cap, cb.Len())
	buf := make([]byte, cap)
	cb.Read(buf)
	require.Equal(t, byte('Y'), buf[cap-1], "the most recent byte must survive overflow, the oldest must be dropped")
}

func TestPartialRead(t *testing.T) {
	frames := mem.New(1, nil)
	cb, _ := New(frames)
	defer cb.Close()

	cb.Write([]byte("abcdef"))
	buf := make([]byte, 3)
	n := cb.Read(buf)
	require.Equal(t, 3, n)
	require.Equal(t, "abc", string(buf))
	require.Equal(t, 3, cb.Len())
}
