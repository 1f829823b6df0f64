package swap

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sos/defs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "swap.img"), 4)
	require.NoError(t, err)
	defer s.Close()

	slot, ok := s.Alloc()
	require.True(t, ok)

	data := make([]byte, SlotSize)
	for i := range data {
		data[i] = byte(i)
	}
	s.WriteAsync(slot, data, "tok1")
	c := recvWithin(t, s.Completions, time.Second)
	require.Equal(t, defs.OK, c.Err)
	require.Equal(t, "tok1", c.Token)

	s.ReadAsync(slot, "tok2")
	c = recvWithin(t, s.Completions, time.Second)
	require.Equal(t, defs.OK, c.Err)
	require.Equal(t, data, c.Data)
}

func TestReadDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "swap.img"), 2)
	require.NoError(t, err)
	defer s.Close()

	slot, _ := s.Alloc()
	data := make([]byte, SlotSize)
	s.WriteAsync(slot, data, nil)
	recvWithin(t, s.Completions, time.Second)

	// Corrupt the payload directly on disk, bypassing WriteAsync.
	buf := make([]byte, 1)
	buf[0] = 0xFF
	_, err = s.f.WriteAt(buf, int64(slot)*int64(slotStride))
	require.NoError(t, err)

	s.ReadAsync(slot, nil)
	c := recvWithin(t, s.Completions, time.Second)
	require.Equal(t, defs.ESwapIOFailure, c.Err)
}

func TestAllocFreeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "swap.img"), 1)
	require.NoError(t, err)
	defer s.Close()

	slot, ok := s.Alloc()
	require.True(t, ok)
	_, ok = s.Alloc()
	require.False(t, ok)

	s.Free(slot)
	require.Equal(t, 1, s.FreeCount())
}

func TestWriteWrongSizeRejected(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "swap.img"), 1)
	require.NoError(t, err)
	defer s.Close()

	slot, _ := s.Alloc()
	s.WriteAsync(slot, []byte{1, 2, 3}, nil)
	c := recvWithin(t, s.Completions, time.Second)
	require.Equal(t, defs.EInvalidArgument, c.Err)
}

func recvWithin(t *testing.T, ch chan Completion, d time.Duration) Completion {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(d):
		t.Fatal("timed out waiting for completion")
		return Completion{}
	}
}
