package stat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sos/util"
)

func TestBytesPacksFields(t *testing.T) {
	ps := NewProcStatus(42, 17, 1000, "init")
	b := ps.Bytes()
	require.Len(t, b, RecordSize)
	require.Equal(t, 42, util.Readn(b, 4, 0))
	require.Equal(t, 17, util.Readn(b, 4, 4))
	require.Equal(t, 1000, util.Readn(b, 4, 8))
	require.Equal(t, "init", string(b[12:16]))
}

func TestCommandTruncation(t *testing.T) {
	long := "a-very-long-command-name-that-does-not-fit"
	ps := NewProcStatus(1, 1, 1, long)
	require.Equal(t, long[:CommandNameLen-1], string(ps.Command[:len(long[:CommandNameLen-1])]))
}

func TestPackAll(t *testing.T) {
	all := []ProcStatus{NewProcStatus(1, 1, 1, "a"), NewProcStatus(2, 2, 2, "b")}
	b := PackAll(all)
	require.Len(t, b, RecordSize*2)
}
