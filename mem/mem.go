// Package mem is the Frame Table: the ground-truth owner of every RAM
// page the root task hands out. It is a dense frame-id/free-list
// allocator, narrowed to a single-threaded design (no per-CPU free
// lists, no atomics — the cooperative scheduling model needs neither)
// and backed by ordinary Go memory instead of raw physical pages, since
// SOS does not own real physical memory directly — the microkernel
// does, and hands SOS untyped memory to retype (package capspace stands
// in for that retyping step).
package mem

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PageSize is the size of one frame in bytes.
const PageSize = 4096

// FrameID is a dense index into the frame table. Frame 0 is a valid
// frame (the first one Alloc hands out); callers compare against
// ErrNoFrame.
type FrameID int32

// ErrNoFrame is returned by Alloc when the table is exhausted.
const ErrNoFrame FrameID = -1

// frame is one entry in the table, minus the backing-page capability
// (a capspace slot) which callers attach separately since not every frame
// is capability-backed in this rewrite (the console/debug scratch
// frames are SOS-internal only).
type frame struct {
	bytes    []byte
	refcount int32
	nextFree FrameID
	inUse    bool
}

// Table is the frame table: owns every frame, mapped into SOS's own
// window (frame.bytes) for direct access.
type Table struct {
	frames  []frame
	freeHd  FrameID
	freeLen int
	log     *logrus.Entry
}

// New allocates a Table covering n frames, all initially free. This
// models a reservation loop over physical memory, minus the per-CPU
// split a multi-core kernel needs (the cooperative single-threaded
// model here needs only one free list).
func New(n int, log *logrus.Entry) *Table {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	t := &Table{
		frames: make([]frame, n),
		freeHd: 0,
		log:    log,
	}
	for i := range t.frames {
		t.frames[i].bytes = make([]byte, PageSize)
		if i == n-1 {
			t.frames[i].nextFree = ErrNoFrame
		} else {
			t.frames[i].nextFree = FrameID(i + 1)
		}
	}
	t.freeLen = n
	t.log.WithField("frames", n).Info("frame table reserved")
	return t
}

// Alloc pops a frame off the free list, zeroes its bytes and returns
// its id. Returns ErrNoFrame and false on exhaustion — callers convert this to
// defs.EOutOfMemory, never panic.
func (t *Table) Alloc() (FrameID, bool) {
	if t.freeHd == ErrNoFrame {
		t.log.Warn("frame table exhausted")
		return ErrNoFrame, false
	}
	id := t.freeHd
	f := &t.frames[id]
	t.freeHd = f.nextFree
	t.freeLen--
	f.inUse = true
	f.refcount = 1
	for i := range f.bytes {
		f.bytes[i] = 0
	}
	return id, true
}

// Free pushes a frame back onto the free list. Panics if the frame was
// not allocated — a double free is a programming error in this model,
// never a client-triggerable condition (frame ids never cross the IPC
// boundary).
func (t *Table) Free(id FrameID) {
	f := t.mustFrame(id)
	if !f.inUse {
		panic(fmt.Sprintf("mem: double free of frame %d", id))
	}
	f.inUse = false
	f.refcount = 0
	f.nextFree = t.freeHd
	t.freeHd = id
	t.freeLen++
}

// Refup increments a frame's reference count (used when a block page or
// shared structure gains an additional owner).
func (t *Table) Refup(id FrameID) {
	f := t.mustFrame(id)
	f.refcount++
}

// Refdown decrements a frame's reference count and frees it if it
// reached zero, returning true if it was freed.
func (t *Table) Refdown(id FrameID) bool {
	f := t.mustFrame(id)
	f.refcount--
	if f.refcount < 0 {
		panic("mem: refcount underflow")
	}
	if f.refcount == 0 {
		t.Free(id)
		return true
	}
	return false
}

// Bytes returns the SOS-visible window onto a frame's bytes, standing
// in for sos_map/Dmap — A's "mapped into SOS's
// own address space at a fixed offset derived from its index".
func (t *Table) Bytes(id FrameID) []byte {
	return t.mustFrame(id).bytes
}

func (t *Table) mustFrame(id FrameID) *frame {
	if id < 0 || int(id) >= len(t.frames) {
		panic(fmt.Sprintf("mem: frame id %d out of range", id))
	}
	return &t.frames[id]
}

// FreeCount returns the number of frames currently on the free list.
func (t *Table) FreeCount() int {
	return t.freeLen
}

// Total returns the frame table's fixed capacity.
func (t *Table) Total() int {
	return len(t.frames)
}
