// Package vm is the per-process Address Space: a two-level page table
// plus an ordered region list. Two deliberate departures from a more
// literal port of a Unix-style Vm_t/page-fault path:
//   - No copy-on-write. A COW bit pair on the PTE exists in real kernels
//     mainly to make fork() cheap; fork is out of scope here, so PTE
//     carries only Resident/Frame/Slot/Swapped/Perms/Accessed/Dirty.
//   - No raw hardware pmap. A real kernel walks actual x86 page-table
//     pages via physical-address bit-twiddling. SOS does not have
//     access to the underlying page tables — the microkernel owns
//     those — so the two-level table here is an ordinary Go
//     array-of-arrays keyed by virtual page number, and "installing a
//     mapping" means recording it here and asking the microkernel (via
//     a capability, package capspace) to do the real mapping. That
//     capability call is outside this package's scope; vm only keeps
//     the bookkeeping that decides what *should* be mapped.
package vm

import (
	"sort"

	"sos/defs"
	"sos/mem"
)

const (
	pageBits  = 12
	innerBits = 10
	outerBits = 10

	innerSize = 1 << innerBits
	outerSize = 1 << outerBits
)

// PageSize is re-exported from mem for callers that only import vm.
const PageSize = mem.PageSize

// Kind distinguishes how a region's pages are sourced when faulted in.
type Kind int

const (
	KindAnon   Kind = iota // demand-zero, swappable
	KindStack              // demand-zero, swappable, grows down
	KindFile               // backed by a remote file (package remotefs)
)

// Region describes one contiguous, non-overlapping VA range
//. Regions never overlap within an address
// space; AddRegion enforces this.
type Region struct {
	Start uintptr
	Len   uintptr
	Perms defs.Rights
	Kind  Kind
}

func (r Region) end() uintptr { return r.Start + r.Len }
func (r Region) contains(va uintptr) bool {
	return va >= r.Start && va < r.end()
}

// PTE is one page-table-entry equivalent: bookkeeping only, no real
// hardware bits.
type PTE struct {
	Resident bool        // frame holds live data, vs swapped-out or unmapped
	Frame    mem.FrameID // valid iff Resident
	Slot     int32       // swap.SlotID iff !Resident && Swapped
	Swapped  bool        // page has been evicted to swap at least once
	Perms    defs.Rights
	Accessed bool
	Dirty    bool
}

// AddressSpace is one process's page table plus region list.
type AddressSpace struct {
	regions []Region
	outer   []*[innerSize]PTE
}

// New returns an empty address space.
func New() *AddressSpace {
	return &AddressSpace{
		outer: make([]*[innerSize]PTE, outerSize),
	}
}

func split(va uintptr) (o, i, off int) {
	o = int((va >> (pageBits + innerBits)) & (outerSize - 1))
	i = int((va >> pageBits) & (innerSize - 1))
	off = int(va & (1<<pageBits - 1))
	return
}

func pageBase(va uintptr) uintptr {
	return va &^ (1<<pageBits - 1)
}

// AddRegion inserts a new region, rejecting overlap with any existing
// one.
func (as *AddressSpace) AddRegion(r Region) defs.Err_t {
	for _, existing := range as.regions {
		if r.Start < existing.end() && existing.Start < r.end() {
			return defs.EInvalidArgument
		}
	}
	as.regions = append(as.regions, r)
	sort.Slice(as.regions, func(i, j int) bool { return as.regions[i].Start < as.regions[j].Start })
	return defs.OK
}

// RemoveRegion deletes the region starting exactly at start and returns
// it; the region's PTEs are left in place. Found reports whether such a
// region existed.
func (as *AddressSpace) RemoveRegion(start uintptr) (r Region, found bool) {
	for i := range as.regions {
		if as.regions[i].Start == start {
			r = as.regions[i]
			as.regions = append(as.regions[:i], as.regions[i+1:]...)
			return r, true
		}
	}
	return Region{}, false
}

// FindRegion returns the region containing va, if any.
func (as *AddressSpace) FindRegion(va uintptr) (Region, bool) {
	for _, r := range as.regions {
		if r.contains(va) {
			return r, true
		}
	}
	return Region{}, false
}

// Regions returns the region list in ascending start order. Callers
// must not mutate the returned slice.
func (as *AddressSpace) Regions() []Region {
	return as.regions
}

// lookupSlot returns a pointer to va's PTE, allocating the inner table
// for va's outer index when create is true and returning nil when it is
// false and that table does not exist (the two-level table is sparse:
// most outer entries are nil until a region's first page fault touches
// them).
func (as *AddressSpace) lookupSlot(va uintptr, create bool) *PTE {
	o, i, _ := split(va)
	if as.outer[o] == nil {
		if !create {
			return nil
		}
		as.outer[o] = &[innerSize]PTE{}
	}
	return &as.outer[o][i]
}

// Lookup returns the PTE mapping va's containing page, if the outer
// table entry has ever been allocated.
func (as *AddressSpace) Lookup(va uintptr) (PTE, bool) {
	pte := as.lookupSlot(va, false)
	if pte == nil {
		return PTE{}, false
	}
	return *pte, true
}

// Map installs a resident mapping for the page containing va.
func (as *AddressSpace) Map(va uintptr, frame mem.FrameID, perms defs.Rights) {
	pte := as.lookupSlot(va, true)
	*pte = PTE{Resident: true, Frame: frame, Perms: perms}
}

// MarkSwapped records that va's page now lives at slot in swap,
// clearing residency.
func (as *AddressSpace) MarkSwapped(va uintptr, slot int32) {
	pte := as.lookupSlot(va, true)
	pte.Resident = false
	pte.Swapped = true
	pte.Slot = slot
	pte.Dirty = false
}

// MarkResident installs frame as va's backing page after a swap-in,
// preserving the permission bits already recorded.
func (as *AddressSpace) MarkResident(va uintptr, frame mem.FrameID) {
	pte := as.lookupSlot(va, true)
	pte.Resident = true
	pte.Frame = frame
}

// Touch marks va's page accessed (and dirty, if wr) — called on every
// successful access so the clock hand (package evict) has fresh
// reference bits to consult.
func (as *AddressSpace) Touch(va uintptr, wr bool) {
	pte := as.lookupSlot(va, false)
	if pte == nil {
		return
	}
	pte.Accessed = true
	if wr {
		pte.Dirty = true
	}
}

// ClearAccessed resets the accessed bit, used by the clock algorithm
// when it gives a page its second chance.
func (as *AddressSpace) ClearAccessed(va uintptr) {
	pte := as.lookupSlot(va, false)
	if pte != nil {
		pte.Accessed = false
	}
}

// ResidentPages calls f for every page currently resident, passing its
// virtual address and PTE — proc.ProcStatus counts a process's resident
// pages this way.
func (as *AddressSpace) ResidentPages(f func(va uintptr, pte *PTE)) {
	for o, inner := range as.outer {
		if inner == nil {
			continue
		}
		for i := range inner {
			if inner[i].Resident {
				va := uintptr(o)<<(pageBits+innerBits) | uintptr(i)<<pageBits
				f(va, &inner[i])
			}
		}
	}
}

// Fault resolves a page fault at faultva: EFaultOutsideRegion if no
// region covers it, EPermissionDenied if the access violates the
// region's rights, or OK with the region identified for the caller
// (dispatch.Engine.HandleFault) to perform the actual fill — vm itself
// never allocates frames or talks to swap, keeping it a pure
// bookkeeping layer.
func (as *AddressSpace) Fault(faultva uintptr, write bool) (Region, defs.Err_t) {
	r, ok := as.FindRegion(faultva)
	if !ok {
		return Region{}, defs.EFaultOutsideRegion
	}
	if write && r.Perms&defs.W == 0 {
		return Region{}, defs.EPermissionDenied
	}
	if !write && r.Perms&defs.R == 0 {
		return Region{}, defs.EPermissionDenied
	}
	return r, defs.OK
}

// PageBase rounds va down to its containing page's base address.
func PageBase(va uintptr) uintptr {
	return pageBase(va)
}
