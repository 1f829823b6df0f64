// Package fd is the open-file-descriptor table,
// grounded on fd.Fd_t / Copyfd / Close_panic in fd.go.
package fd

import (
	"sos/defs"
	"sos/fdops"
)

// Permission bits, carried over from FD_READ/FD_WRITE/
// FD_CLOEXEC constants.
const (
	Read    = 0x1
	Write   = 0x2
	Cloexec = 0x4
)

// Fd is one open file descriptor: a device handler plus the
// permissions this particular descriptor was opened with (the same
// handler can back descriptors with different permissions after a
// Copyfd, e.g. dup2 onto a read-only alias).
type Fd struct {
	Fops  fdops.Fdops_i
	Perms int
}

// Copy duplicates fd by reopening its handler — used by PROC_CREATE to
// hand inherited descriptors to a child and by any future dup().
func Copy(f *Fd) (*Fd, defs.Err_t) {
	nf := &Fd{}
	*nf = *f
	if err := nf.Fops.Reopen(); err != defs.OK {
		return nil, err
	}
	return nf, defs.OK
}

// ClosePanic closes f, panicking if the handler reports failure — used
// at the handful of call sites (process teardown) where a close
// failure would mean SOS's own bookkeeping is already corrupt, exactly
// as Close_panic does.
func ClosePanic(f *Fd) {
	if f.Fops.Close() != defs.OK {
		panic("fd: close must succeed")
	}
}

// Table is a fixed-size, densely-indexed table of open descriptors —
// one per process.
type Table struct {
	slots []*Fd
}

// NewTable returns a Table with size slots, all empty.
func NewTable(size int) *Table {
	return &Table{slots: make([]*Fd, size)}
}

// Install places f in the lowest-numbered free slot, POSIX-style,
// returning the slot index.
func (t *Table) Install(f *Fd) (int, defs.Err_t) {
	for i, s := range t.slots {
		if s == nil {
			t.slots[i] = f
			return i, defs.OK
		}
	}
	return -1, defs.EOutOfMemory
}

// InstallAt places f at exactly index, used by dup2-style semantics;
// closes whatever was previously there.
func (t *Table) InstallAt(index int, f *Fd) defs.Err_t {
	if index < 0 || index >= len(t.slots) {
		return defs.EInvalidArgument
	}
	if old := t.slots[index]; old != nil {
		ClosePanic(old)
	}
	t.slots[index] = f
	return defs.OK
}

// Get returns the descriptor at index.
func (t *Table) Get(index int) (*Fd, defs.Err_t) {
	if index < 0 || index >= len(t.slots) {
		return nil, defs.EInvalidArgument
	}
	f := t.slots[index]
	if f == nil {
		return nil, defs.ENotFound
	}
	return f, defs.OK
}

// Remove clears slot index and returns what was there, without closing
// it — callers that want the teardown side effect call ClosePanic (or
// Fops.Close directly) themselves.
func (t *Table) Remove(index int) (*Fd, defs.Err_t) {
	if index < 0 || index >= len(t.slots) {
		return nil, defs.EInvalidArgument
	}
	f := t.slots[index]
	if f == nil {
		return nil, defs.ENotFound
	}
	t.slots[index] = nil
	return f, defs.OK
}

// CloseAll closes every live descriptor, used during process teardown.
func (t *Table) CloseAll() {
	for i, f := range t.slots {
		if f != nil {
			ClosePanic(f)
			t.slots[i] = nil
		}
	}
}

// CloseOnExec closes every descriptor opened with Cloexec, used when a
// process's descriptor table is inherited across an exec-like
// operation.
func (t *Table) CloseOnExec() {
	for i, f := range t.slots {
		if f != nil && f.Perms&Cloexec != 0 {
			ClosePanic(f)
			t.slots[i] = nil
		}
	}
}

// Fork duplicates every live descriptor into a freshly allocated
// Table of the same size, used by PROC_CREATE.
func (t *Table) Fork() (*Table, defs.Err_t) {
	nt := NewTable(len(t.slots))
	for i, f := range t.slots {
		if f == nil {
			continue
		}
		nf, err := Copy(f)
		if err != defs.OK {
			return nil, err
		}
		nt.slots[i] = nf
	}
	return nt, defs.OK
}
