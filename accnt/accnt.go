// Package accnt accumulates per-process accounting information; it is
// not part of the PROC_STATUS record. Nanoseconds of syscall-handling time and of
// time spent waiting on swap/remote I/O are tracked separately so an
// operator can see how much of a process's wall-clock went to paging.
package accnt

import (
	"sync"
	"time"
)

// Accnt holds one process's accounting counters. All fields are
// protected by the embedded mutex since Snapshot may be called from
// the debug/operator surface concurrently with the single-threaded
// scheduler mutating it between yields.
type Accnt struct {
	mu       sync.Mutex
	HandleNs int64 // time spent inside syscall/fault handlers
	WaitNs   int64 // time spent waiting on swap or remote I/O callbacks
}

// Now returns the current time, factored out so tests can fake it if
// ever needed; mirrors Accnt_t.Now.
func Now() time.Time {
	return time.Now()
}

// AddHandle adds d to the handler-time counter.
func (a *Accnt) AddHandle(d time.Duration) {
	a.mu.Lock()
	a.HandleNs += int64(d)
	a.mu.Unlock()
}

// AddWait adds d to the I/O-wait counter. The scheduler does not call
// it when a suspended continuation resumes, so WaitNs stays zero unless
// a caller adds to it directly.
func (a *Accnt) AddWait(d time.Duration) {
	a.mu.Lock()
	a.WaitNs += int64(d)
	a.mu.Unlock()
}

// Snapshot returns a consistent copy of the counters.
func (a *Accnt) Snapshot() (handle, wait time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return time.Duration(a.HandleNs), time.Duration(a.WaitNs)
}
