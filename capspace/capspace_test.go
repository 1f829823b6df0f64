package capspace

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sos/defs"
	"sos/mem"
)

func TestGrantRetypeLookup(t *testing.T) {
	cs := New()
	idx, ok := cs.GrantUntyped(defs.R | defs.W)
	require.True(t, ok)

	frames := mem.New(1, nil)
	id, ok := frames.Alloc()
	require.True(t, ok)

	require.Equal(t, defs.OK, cs.Retype(idx, id))

	slot, err := cs.Lookup(idx)
	require.Equal(t, defs.OK, err)
	require.Equal(t, KindFrame, slot.Kind)
	require.Equal(t, id, slot.FrameID)
}

func TestRetypeRejectsNonUntyped(t *testing.T) {
	cs := New()
	idx, _ := cs.GrantUntyped(defs.R)
	cs.Retype(idx, 0)
	require.Equal(t, defs.EInvalidArgument, cs.Retype(idx, 0))
}

func TestRevokeReturnsSlotForReuse(t *testing.T) {
	cs := New()
	idx, _ := cs.GrantUntyped(defs.R)
	require.Equal(t, defs.OK, cs.Revoke(idx))

	_, err := cs.Lookup(idx)
	require.Equal(t, defs.ENotFound, err)
}

func TestExhaustion(t *testing.T) {
	cs := New()
	for i := 0; i < NSlots; i++ {
		_, ok := cs.GrantUntyped(defs.R)
		require.True(t, ok)
	}
	_, ok := cs.GrantUntyped(defs.R)
	require.False(t, ok)
}

func TestLookupOutOfRange(t *testing.T) {
	cs := New()
	_, err := cs.Lookup(-1)
	require.Equal(t, defs.EInvalidArgument, err)
	_, err = cs.Lookup(NSlots)
	require.Equal(t, defs.EInvalidArgument, err)
}
