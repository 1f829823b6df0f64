// Package statsd is SOS's observability counter block: a flat struct
// of named atomic counters, snapshotted on demand rather than pushed,
// that sosctl's debug surface renders as a table.
package statsd

import "sync/atomic"

// Counters holds every counter SOS maintains. Fields are exported so
// statusfile.FromCounters can copy them into the status file.
type Counters struct {
	PageFaults      int64
	PageInsFromSwap int64
	PageOutsToSwap  int64
	Evictions       int64
	SyscallsHandled int64
	ForkCount       int64
	ExecCount       int64
	ExitCount       int64
	IRQPreemptions  int64
	RemoteIOErrors  int64
	SwapIOErrors    int64
}

// Inc atomically bumps the counter field points at by one; callers
// pass the address of one of c's fields, e.g. c.Inc(&c.PageFaults).
func (c *Counters) Inc(field *int64) {
	atomic.AddInt64(field, 1)
}

// Snapshot returns a copy of the counters, safe to read without racing
// further increments.
func (c *Counters) Snapshot() Counters {
	return Counters{
		PageFaults:      atomic.LoadInt64(&c.PageFaults),
		PageInsFromSwap: atomic.LoadInt64(&c.PageInsFromSwap),
		PageOutsToSwap:  atomic.LoadInt64(&c.PageOutsToSwap),
		Evictions:       atomic.LoadInt64(&c.Evictions),
		SyscallsHandled: atomic.LoadInt64(&c.SyscallsHandled),
		ForkCount:       atomic.LoadInt64(&c.ForkCount),
		ExecCount:       atomic.LoadInt64(&c.ExecCount),
		ExitCount:       atomic.LoadInt64(&c.ExitCount),
		IRQPreemptions:  atomic.LoadInt64(&c.IRQPreemptions),
		RemoteIOErrors:  atomic.LoadInt64(&c.RemoteIOErrors),
		SwapIOErrors:    atomic.LoadInt64(&c.SwapIOErrors),
	}
}
