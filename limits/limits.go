// Package limits tracks system-wide resource caps — process count,
// resident-frame budget, open swap slots — narrowed to the handful of
// resources this root task actually meters.
package limits

import "sync/atomic"

// Atomic is a resource counter that can be taken and given back without
// going negative.
type Atomic struct {
	avail int64
}

// NewAtomic returns a counter initialised with n available units.
func NewAtomic(n int64) *Atomic {
	return &Atomic{avail: n}
}

// Take tries to reserve n units, returning false if that would make the
// counter negative.
func (a *Atomic) Take(n int64) bool {
	if atomic.AddInt64(&a.avail, -n) >= 0 {
		return true
	}
	atomic.AddInt64(&a.avail, n)
	return false
}

// Give returns n units to the counter.
func (a *Atomic) Give(n int64) {
	atomic.AddInt64(&a.avail, n)
}

// Avail reports the units currently available.
func (a *Atomic) Avail() int64 {
	return atomic.LoadInt64(&a.avail)
}

// Sys holds the default system-wide limits for one SOS instance.
type Sys struct {
	Procs     *Atomic // max concurrently live processes
	Frames    *Atomic // max resident (non-swapped) frames system-wide
	SwapSlots *Atomic // max outstanding swap slots
}

// Default returns limits sized generously but finitely.
func Default() *Sys {
	return &Sys{
		Procs:     NewAtomic(1024),
		Frames:    NewAtomic(1 << 18),
		SwapSlots: NewAtomic(1 << 16),
	}
}
