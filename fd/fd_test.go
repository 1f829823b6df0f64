package fd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sos/defs"
)

type fakeFops struct {
	closed   bool
	reopened int
}

func (f *fakeFops) Read(dst []byte) (int, defs.Err_t)  { return 0, defs.OK }
func (f *fakeFops) Write(src []byte) (int, defs.Err_t) { return len(src), defs.OK }
func (f *fakeFops) Close() defs.Err_t                  { f.closed = true; return defs.OK }
func (f *fakeFops) Reopen() defs.Err_t                 { f.reopened++; return defs.OK }

func TestInstallGetRemove(t *testing.T) {
	tbl := NewTable(4)
	fops := &fakeFops{}
	idx, err := tbl.Install(&Fd{Fops: fops, Perms: Read | Write})
	require.Equal(t, defs.OK, err)
	require.Equal(t, 0, idx)

	got, err := tbl.Get(idx)
	require.Equal(t, defs.OK, err)
	require.Same(t, fops, got.Fops)

	_, err = tbl.Remove(idx)
	require.Equal(t, defs.OK, err)
	_, err = tbl.Get(idx)
	require.Equal(t, defs.ENotFound, err)
}

func TestInstallLowestFreeSlot(t *testing.T) {
	tbl := NewTable(4)
	tbl.Install(&Fd{Fops: &fakeFops{}})
	tbl.Install(&Fd{Fops: &fakeFops{}})
	tbl.Remove(0)
	idx, _ := tbl.Install(&Fd{Fops: &fakeFops{}})
	require.Equal(t, 0, idx)
}

func TestTableExhaustion(t *testing.T) {
	tbl := NewTable(1)
	_, err := tbl.Install(&Fd{Fops: &fakeFops{}})
	require.Equal(t, defs.OK, err)
	_, err = tbl.Install(&Fd{Fops: &fakeFops{}})
	require.Equal(t, defs.EOutOfMemory, err)
}

func TestForkReopensEveryLiveDescriptor(t *testing.T) {
	tbl := NewTable(4)
	fops := &fakeFops{}
	tbl.Install(&Fd{Fops: fops, Perms: Read})

	nt, err := tbl.Fork()
	require.Equal(t, defs.OK, err)
	require.Equal(t, 1, fops.reopened)

	got, _ := nt.Get(0)
	require.Same(t, fops, got.Fops)
}

func TestCloseOnExec(t *testing.T) {
	tbl := NewTable(4)
	keep := &fakeFops{}
	drop := &fakeFops{}
	tbl.Install(&Fd{Fops: keep, Perms: Read})
	tbl.Install(&Fd{Fops: drop, Perms: Read | Cloexec})

	tbl.CloseOnExec()
	require.False(t, keep.closed)
	require.True(t, drop.closed)
}

func TestCloseAll(t *testing.T) {
	tbl := NewTable(2)
	a := &fakeFops{}
	tbl.Install(&Fd{Fops: a})
	tbl.CloseAll()
	require.True(t, a.closed)
	_, err := tbl.Get(0)
	require.Equal(t, defs.ENotFound, err)
}
