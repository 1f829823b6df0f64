package dispatch

import (
	"sos/defs"
	"sos/evict"
	"sos/mem"
	"sos/proc"
	"sos/sched"
	"sos/swap"
	"sos/vm"
)

// HandleFault resolves a page fault at faultva for p: demand-zero fill
// for a never-touched anonymous page, swap-in for a page previously
// evicted, or an error for an out-of-region or permission-violating
// access. done is called
// exactly once, synchronously for the fast paths and from a resumed
// continuation after a swap-in completes.
func (e *Engine) HandleFault(p *proc.Process, faultva uintptr, write bool, done func(defs.Err_t)) {
	region, err := p.AS.Fault(faultva, write)
	if err != defs.OK {
		done(err)
		return
	}
	page := vm.PageBase(faultva)
	owner := evict.Owner{Pid: p.Pid, VA: page}

	pte, had := p.AS.Lookup(page)
	if had && pte.Swapped && !pte.Resident {
		e.swapIn(p, page, owner, region, done)
		return
	}

	frame, ok := e.allocFrame(p)
	if !ok {
		if !e.reclaimOne(done) {
			return
		}
		frame, ok = e.allocFrame(p)
		if !ok {
			done(defs.EOutOfMemory)
			return
		}
	}
	p.AS.Map(page, frame, region.Perms)
	p.AS.Touch(page, write)
	e.Evict.Track(owner, p.AS)
	done(defs.OK)
}

// allocFrame takes one frame against the system-wide budget, refusing
// if the system-wide resident-frame limit is exhausted even when the
// frame table itself still has room — the two limits are independent
//.
func (e *Engine) allocFrame(p *proc.Process) (mem.FrameID, bool) {
	if !e.Limits.Frames.Take(1) {
		return mem.ErrNoFrame, false
	}
	id, ok := e.Frames.Alloc()
	if !ok {
		e.Limits.Frames.Give(1)
		return mem.ErrNoFrame, false
	}
	return id, true
}

// reclaimOne evicts the clock hand's current pick to make room for the
// fault currently in progress, returning false if done has already
// been called with a terminal error (no evictable page exists at all).
func (e *Engine) reclaimOne(done func(defs.Err_t)) bool {
	victim, err := e.Evict.Pick()
	if err != defs.OK {
		done(defs.EOutOfMemory)
		return false
	}
	vp, ok := e.Procs.Get(victim.Pid)
	if !ok {
		e.Evict.Untrack(victim)
		return true
	}
	pte, ok := vp.AS.Lookup(victim.VA)
	if !ok || !pte.Resident {
		e.Evict.Untrack(victim)
		return true
	}
	e.Evict.Pin(victim)
	slot, ok := e.Swap.Alloc()
	if !ok {
		e.Evict.Unpin(victim)
		done(defs.EOutOfMemory)
		return false
	}
	data := append([]byte(nil), e.Frames.Bytes(pte.Frame)...)
	e.Stats.Inc(&e.Stats.PageOutsToSwap)
	freedFrame := pte.Frame
	e.Sched.WaitSwap(slot, sched.WaitKey{Token: vp.Token(), Tag: slot}, func(ev sched.Event) {
		e.Evict.Unpin(victim)
		if ev.SwapDone == nil || ev.SwapDone.Err != defs.OK {
			e.Swap.Free(slot)
			e.Stats.Inc(&e.Stats.SwapIOErrors)
			return
		}
		vp.AS.MarkSwapped(victim.VA, int32(slot))
		e.Limits.Frames.Give(1)
		e.Frames.Free(freedFrame)
	})
	e.Swap.WriteAsync(slot, data, slot)
	return true
}

// swapIn reads a previously evicted page back into a fresh frame,
// calling done once it is resident again.
func (e *Engine) swapIn(p *proc.Process, page uintptr, owner evict.Owner, region vm.Region, done func(defs.Err_t)) {
	pte, _ := p.AS.Lookup(page)
	slot := pte.Slot
	e.Evict.Pin(owner)
	e.Sched.WaitSwap(swap.SlotID(slot), sched.WaitKey{Token: p.Token(), Tag: slot}, func(ev sched.Event) {
		e.Evict.Unpin(owner)
		if ev.SwapDone == nil || ev.SwapDone.Err != defs.OK {
			e.Stats.Inc(&e.Stats.SwapIOErrors)
			done(defs.ESwapIOFailure)
			return
		}
		frame, ok := e.allocFrame(p)
		if !ok {
			done(defs.EOutOfMemory)
			return
		}
		copy(e.Frames.Bytes(frame), ev.SwapDone.Data)
		p.AS.MarkResident(page, frame)
		p.AS.Touch(page, false)
		e.Swap.Free(swap.SlotID(slot))
		e.Evict.Track(owner, p.AS)
		e.Stats.Inc(&e.Stats.PageInsFromSwap)
		done(defs.OK)
	})
	e.Swap.ReadAsync(swap.SlotID(slot), slot)
}
