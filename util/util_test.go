package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinMax(t *testing.T) {
	require.Equal(t, 3, Min(3, 7))
	require.Equal(t, 7, Max(3, 7))
	require.Equal(t, -2, Min(-2, 5))
}

func TestRoundupRounddown(t *testing.T) {
	require.Equal(t, 4096, Roundup(1, 4096))
	require.Equal(t, 4096, Roundup(4096, 4096))
	require.Equal(t, 8192, Roundup(4097, 4096))
	require.Equal(t, 0, Rounddown(4095, 4096))
	require.Equal(t, 4096, Rounddown(4096, 4096))
}

func TestWritenReadnRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	Writen(buf, 4, 0, 0x1234)
	Writen(buf, 4, 4, 99)
	require.Equal(t, 0x1234, Readn(buf, 4, 0))
	require.Equal(t, 99, Readn(buf, 4, 4))
}

func TestReadnOutOfBoundsPanics(t *testing.T) {
	buf := make([]byte, 4)
	require.Panics(t, func() { Readn(buf, 8, 0) })
	require.Panics(t, func() { Readn(buf, 4, -1) })
}
