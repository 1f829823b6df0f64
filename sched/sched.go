// Package sched is the Continuation Scheduler: a single event loop
// that runs ready work to completion or suspension, and resumes
// suspended work when its I/O completes. Grounded on the shape of
// dispatch visible in the justanotherdot-biscuit kernel entry point
// (one core loop pulling requests and handing them to handlers) and on
// a "current execution context" cell, narrowed from a goroutine-per-
// thread model to ordinary Go closures run synchronously on one
// goroutine: a continuation is just a func(Event) stored in a map and
// invoked inline by Run, never a blocked goroutine waiting on a channel.
package sched

import (
	"time"

	"sos/defs"
	"sos/proc"
	"sos/remotefs"
	"sos/statsd"
	"sos/swap"
)

// WaitKey identifies one suspended continuation: which process it
// belongs to (for the stale-callback check) and an opaque tag the
// issuing code chose (e.g. the swap slot or remote request it is
// waiting on).
type WaitKey struct {
	Token proc.Token
	Tag   any
}

// Continuation is resumed with the completion payload that woke it:
// exactly one of SwapDone/RemoteDone/TimerDone is populated, selected
// by which Wait* call registered it.
type Continuation func(Event)

// Event carries whichever completion woke a continuation.
type Event struct {
	SwapDone   *swap.Completion
	RemoteDone *remotefs.Completion
	TimerDone  bool
}

// Scheduler is SOS's single event loop.
type Scheduler struct {
	procs *proc.Table
	stats *statsd.Counters

	ready []func()

	waitingSwap   map[swap.SlotID]waitEntry
	waitingRemote map[any]waitEntry

	swapSrc   *swap.Store
	remoteSrc *remotefs.Client

	current defs.Pid_t // set for the duration of the continuation Run is executing

	external chan func() // enqueue requests from goroutines outside the event loop (timers)
	quit     chan struct{}
}

type waitEntry struct {
	key  WaitKey
	cont Continuation
}

// New builds a Scheduler wired to the given swap store and remote
// filesystem client, whose Completions channels it will select over.
func New(procs *proc.Table, stats *statsd.Counters, swapSrc *swap.Store, remoteSrc *remotefs.Client) *Scheduler {
	return &Scheduler{
		procs:         procs,
		stats:         stats,
		waitingSwap:   make(map[swap.SlotID]waitEntry),
		waitingRemote: make(map[any]waitEntry),
		swapSrc:       swapSrc,
		remoteSrc:     remoteSrc,
		external:      make(chan func(), 64),
		quit:          make(chan struct{}),
	}
}

// Defer is safe to call from any goroutine (a time.AfterFunc callback,
// most commonly) to schedule fn on the event loop. Unlike Enqueue, it
// does not run inline — it posts to a channel Run selects on — since
// callers of Defer are, by construction, not running on the event
// loop's own goroutine.
func (s *Scheduler) Defer(fn func()) {
	s.external <- fn
}

// Current returns the pid whose continuation is presently executing, 0
// if none (only valid to call from within work enqueued via Enqueue or
// a Continuation callback).
func (s *Scheduler) Current() defs.Pid_t {
	return s.current
}

// Enqueue schedules fn to run on a future tick of the event loop, as
// ready work with no pending I/O — used for newly dispatched syscalls
// and for continuations that can resume immediately.
func (s *Scheduler) Enqueue(pid defs.Pid_t, fn func()) {
	s.ready = append(s.ready, func() {
		s.current = pid
		fn()
		s.current = 0
	})
}

// WaitSwap suspends the calling continuation until slot's pending I/O
// completes, storing key so the completion handler can discard a stale
// callback for a process that has since exited.
func (s *Scheduler) WaitSwap(slot swap.SlotID, key WaitKey, cont Continuation) {
	s.waitingSwap[slot] = waitEntry{key: key, cont: cont}
}

// WaitRemote suspends the calling continuation until the remote
// request tagged tag completes.
func (s *Scheduler) WaitRemote(tag any, key WaitKey, cont Continuation) {
	s.waitingRemote[tag] = waitEntry{key: key, cont: cont}
}

// Stop requests that Run return after the current tick.
func (s *Scheduler) Stop() {
	close(s.quit)
}

// Run drains the ready queue and services completions until Stop is
// called. Each tick: run every currently-ready closure to exhaustion
// (new work enqueued during the tick is picked up on the next pass),
// then block on whichever of swap/remote completions, or a fixed tick
// interval for timer-driven work, arrives first — an ordinary select
// standing in for the interrupt-preemption point a real kernel has
// here, since SOS has no hardware interrupts of its own to preempt on.
func (s *Scheduler) Run() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.drainReady()
		select {
		case <-s.quit:
			return
		case c := <-s.swapSrc.Completions:
			s.stats.Inc(&s.stats.IRQPreemptions)
			s.deliverSwap(c)
		case c := <-s.remoteSrc.Completions:
			s.stats.Inc(&s.stats.IRQPreemptions)
			s.deliverRemote(c)
		case fn := <-s.external:
			fn()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) drainReady() {
	for len(s.ready) > 0 {
		fn := s.ready[0]
		s.ready = s.ready[1:]
		fn()
	}
}

func (s *Scheduler) deliverSwap(c swap.Completion) {
	we, ok := s.waitingSwap[c.Slot]
	if !ok {
		return
	}
	delete(s.waitingSwap, c.Slot)
	if !s.procs.Valid(we.key.Token) {
		return // stale callback: the process that issued this wait is gone
	}
	s.Enqueue(we.key.Token.Pid, func() {
		we.cont(Event{SwapDone: &c})
	})
}

func (s *Scheduler) deliverRemote(c remotefs.Completion) {
	tag := c.Req.Token
	we, ok := s.waitingRemote[tag]
	if !ok {
		return
	}
	delete(s.waitingRemote, tag)
	if !s.procs.Valid(we.key.Token) {
		return
	}
	s.Enqueue(we.key.Token.Pid, func() {
		we.cont(Event{RemoteDone: &c})
	})
}
