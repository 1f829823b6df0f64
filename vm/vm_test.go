package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sos/defs"
	"sos/mem"
)

func TestAddRegionRejectsOverlap(t *testing.T) {
	as := New()
	require.Equal(t, defs.OK, as.AddRegion(Region{Start: 0x1000, Len: 0x1000, Perms: defs.R | defs.W}))
	err := as.AddRegion(Region{Start: 0x1800, Len: 0x1000, Perms: defs.R})
	require.Equal(t, defs.EInvalidArgument, err)
}

func TestFindRegion(t *testing.T) {
	as := New()
	as.AddRegion(Region{Start: 0x1000, Len: 0x2000, Perms: defs.R | defs.W})
	r, ok := as.FindRegion(0x1500)
	require.True(t, ok)
	require.Equal(t, uintptr(0x1000), r.Start)

	_, ok = as.FindRegion(0x5000)
	require.False(t, ok)
}

func TestFaultOutsideRegion(t *testing.T) {
	as := New()
	_, err := as.Fault(0x9999, false)
	require.Equal(t, defs.EFaultOutsideRegion, err)
}

func TestFaultPermissionDenied(t *testing.T) {
	as := New()
	as.AddRegion(Region{Start: 0x1000, Len: 0x1000, Perms: defs.R})
	_, err := as.Fault(0x1000, true)
	require.Equal(t, defs.EPermissionDenied, err)
}

func TestMapLookupResident(t *testing.T) {
	as := New()
	frames := mem.New(1, nil)
	id, _ := frames.Alloc()
	as.Map(0x2000, id, defs.R|defs.W)

	pte, ok := as.Lookup(0x2000)
	require.True(t, ok)
	require.True(t, pte.Resident)
	require.Equal(t, id, pte.Frame)
}

func TestSwapOutSwapInCycle(t *testing.T) {
	as := New()
	frames := mem.New(2, nil)
	id, _ := frames.Alloc()
	as.Map(0x3000, id, defs.R|defs.W)

	as.MarkSwapped(0x3000, 7)
	pte, ok := as.Lookup(0x3000)
	require.True(t, ok)
	require.False(t, pte.Resident)
	require.True(t, pte.Swapped)
	require.EqualValues(t, 7, pte.Slot)

	id2, _ := frames.Alloc()
	as.MarkResident(0x3000, id2)
	pte, _ = as.Lookup(0x3000)
	require.True(t, pte.Resident)
	require.Equal(t, id2, pte.Frame)
}

func TestTouchSetsAccessedAndDirty(t *testing.T) {
	as := New()
	frames := mem.New(1, nil)
	id, _ := frames.Alloc()
	as.Map(0x4000, id, defs.R|defs.W)
	as.Touch(0x4000, true)

	pte, _ := as.Lookup(0x4000)
	require.True(t, pte.Accessed)
	require.True(t, pte.Dirty)

	as.ClearAccessed(0x4000)
	pte, _ = as.Lookup(0x4000)
	require.False(t, pte.Accessed)
}

func TestResidentPagesWalksAcrossOuterEntries(t *testing.T) {
	as := New()
	frames := mem.New(2, nil)
	id1, _ := frames.Alloc()
	id2, _ := frames.Alloc()
	as.Map(0x0, id1, defs.R)
	as.Map(uintptr(1)<<22, id2, defs.R) // distinct outer index

	seen := 0
	as.ResidentPages(func(va uintptr, pte *PTE) { seen++ })
	require.Equal(t, 2, seen)
}

func TestRemoveRegion(t *testing.T) {
	as := New()
	as.AddRegion(Region{Start: 0x1000, Len: 0x1000, Perms: defs.R})
	r, found := as.RemoveRegion(0x1000)
	require.True(t, found)
	require.Equal(t, uintptr(0x1000), r.Start)

	_, found = as.RemoveRegion(0x1000)
	require.False(t, found)
}
