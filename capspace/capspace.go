// Package capspace models SOS's capability space: the fixed id space of
// capability slots a process can name, and the retyping of raw Untyped
// memory into typed objects (here, just Frame-backed pages). It is
// grounded on a small fixed pool of ids handed out from an availability
// set and panicking on a double free — the same discipline a capability
// slot table needs, just scaled up from a handful of vectors to a
// per-process slot table.
package capspace

import (
	"sos/defs"
	"sos/mem"
)

// Kind names what a capability slot currently holds.
type Kind int

const (
	KindEmpty Kind = iota
	KindUntyped
	KindFrame
)

// Slot is one entry in a CSpace: either empty, an Untyped region
// available for retyping, or a Frame capability naming a live page in
// the frame table.
type Slot struct {
	Kind    Kind
	Rights  defs.Rights
	FrameID mem.FrameID
}

// CSpace is one process's capability table, a fixed-size array of
// slots addressed by small integer index — the "capability" itself is
// just that index.
type CSpace struct {
	slots []Slot
	avail map[int]bool
}

// NSlots is the number of capability slots given to each new process.
const NSlots = 256

// New builds an empty CSpace with NSlots slots, all available, mirroring
// msivecs's avail set construction.
func New() *CSpace {
	cs := &CSpace{
		slots: make([]Slot, NSlots),
		avail: make(map[int]bool, NSlots),
	}
	for i := 0; i < NSlots; i++ {
		cs.avail[i] = true
	}
	return cs
}

// allocSlot pops an arbitrary available index, as Msi_alloc does over
// its vector set.
func (cs *CSpace) allocSlot() (int, bool) {
	for i := range cs.avail {
		delete(cs.avail, i)
		return i, true
	}
	return 0, false
}

// freeSlot returns index to the available set, panicking on a double
// free exactly as Msi_free does.
func (cs *CSpace) freeSlot(index int) {
	if cs.avail[index] {
		panic("capspace: double free of slot")
	}
	cs.avail[index] = true
}

// GrantUntyped installs an Untyped slot of the given rights, returning
// its index. Untyped slots carry no frame until retyped.
func (cs *CSpace) GrantUntyped(rights defs.Rights) (int, bool) {
	i, ok := cs.allocSlot()
	if !ok {
		return 0, false
	}
	cs.slots[i] = Slot{Kind: KindUntyped, Rights: rights}
	return i, true
}

// Retype converts the Untyped slot at index into a Frame capability
// backed by id, consuming the Untyped slot in place — this stands in
// for the microkernel's real retype operation, scoped down to the one
// object type (a page frame) SOS ever retypes.
func (cs *CSpace) Retype(index int, id mem.FrameID) defs.Err_t {
	if index < 0 || index >= len(cs.slots) {
		return defs.EInvalidArgument
	}
	s := &cs.slots[index]
	if s.Kind != KindUntyped {
		return defs.EInvalidArgument
	}
	s.Kind = KindFrame
	s.FrameID = id
	return defs.OK
}

// Lookup returns the slot at index.
func (cs *CSpace) Lookup(index int) (Slot, defs.Err_t) {
	if index < 0 || index >= len(cs.slots) {
		return Slot{}, defs.EInvalidArgument
	}
	s := cs.slots[index]
	if s.Kind == KindEmpty {
		return Slot{}, defs.ENotFound
	}
	return s, defs.OK
}

// Revoke clears the slot at index and returns it to the available set.
// Revoking a Frame slot does not free the underlying frame — callers
// that own the frame's lifetime (package vm) do that explicitly, since
// one frame can be named by multiple capability slots (shared regions).
func (cs *CSpace) Revoke(index int) defs.Err_t {
	if index < 0 || index >= len(cs.slots) {
		return defs.EInvalidArgument
	}
	if cs.slots[index].Kind == KindEmpty {
		return defs.ENotFound
	}
	cs.slots[index] = Slot{}
	cs.freeSlot(index)
	return defs.OK
}
