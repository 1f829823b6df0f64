// Package proc is the process table: the Process record, its
// capability space, address space and fd table, and the pid allocator
// with stale-callback defense. Grounded on a mutex-guarded map from id
// to per-execution-context state, narrowed from per-thread to
// per-process since the cooperative scheduling model has exactly one
// execution context active at a time rather than one goroutine per
// thread — a forked-runtime "current thread" cell is replaced by a
// field of sched.Scheduler that it sets before invoking each
// continuation.
package proc

import (
	"time"

	"sos/accnt"
	"sos/capspace"
	"sos/defs"
	"sos/fd"
	"sos/hashtable"
	"sos/stat"
	"sos/vm"
)

// Status is a process's lifecycle state.
type Status int

const (
	StatusRunning Status = iota
	StatusZombie         // exited, awaiting a WAITPID to reap it
)

// Token identifies one process incarnation, guarding against a stale
// I/O or timer callback landing on a reused pid after the original
// process has exited. Two tokens
// are equal only if they name the same pid AND the same start time.
type Token struct {
	Pid       defs.Pid_t
	StartTime int64 // UnixNano
}

// Process is one SOS-managed process.
type Process struct {
	Pid       defs.Pid_t
	Parent    defs.Pid_t
	Command   string
	StartTime time.Time

	CSpace *capspace.CSpace
	AS     *vm.AddressSpace
	Fds    *fd.Table
	Accnt  *accnt.Accnt

	Status     Status
	ExitStatus int32

	children []defs.Pid_t
	waiters  []chan defs.Pid_t // blocked WAITPID continuations, woken on any child exit
}

// Token returns the stale-callback guard token for this incarnation.
func (p *Process) Token() Token {
	return Token{Pid: p.Pid, StartTime: p.StartTime.UnixNano()}
}

// ProcStatus renders this process's PROC_STATUS record.
func (p *Process) ProcStatus() stat.ProcStatus {
	pages := 0
	p.AS.ResidentPages(func(uintptr, *vm.PTE) { pages++ })
	return stat.NewProcStatus(
		int32(p.Pid),
		int32(pages),
		int32(p.StartTime.UnixMilli()),
		p.Command,
	)
}

// Table is the system-wide process table: pid -> *Process, plus the
// pid allocator.
type Table struct {
	procs  *hashtable.Table[defs.Pid_t, *Process]
	nextID defs.Pid_t
}

// NewTable returns an empty process table. Pids start at 1 (0 is
// reserved as "no such process", mirroring // interfaces never emitting pid 0 as a live result).
func NewTable() *Table {
	return &Table{
		procs:  hashtable.New[defs.Pid_t, *Process](256, hashtable.IntHash[defs.Pid_t]),
		nextID: 1,
	}
}

// New allocates a fresh pid and registers a new Process under it.
func (t *Table) New(parent defs.Pid_t, command string, fdSize int) *Process {
	pid := t.nextID
	t.nextID++
	p := &Process{
		Pid:       pid,
		Parent:    parent,
		Command:   command,
		StartTime: time.Now(),
		CSpace:    capspace.New(),
		AS:        vm.New(),
		Fds:       fd.NewTable(fdSize),
		Accnt:     &accnt.Accnt{},
		Status:    StatusRunning,
	}
	t.procs.Set(pid, p)
	if parent != 0 {
		if par, ok := t.procs.Get(parent); ok {
			par.children = append(par.children, pid)
		}
	}
	return p
}

// Get looks up a process by pid.
func (t *Table) Get(pid defs.Pid_t) (*Process, bool) {
	return t.procs.Get(pid)
}

// Valid reports whether tok still names a live incarnation — the
// check every swap/remote-I/O completion callback must perform before
// touching process state.
func (t *Table) Valid(tok Token) bool {
	p, ok := t.procs.Get(tok.Pid)
	if !ok {
		return false
	}
	return p.StartTime.UnixNano() == tok.StartTime
}

// Exit transitions pid to StatusZombie and wakes any process blocked in
// WAITPID on it (or on any child, for the wildcard wait). Every queued
// waiter is woken with the dying pid — each waiter's continuation
// re-checks whether the pid it cares about actually matches once woken,
// rather than the table picking one winner itself.
func (t *Table) Exit(pid defs.Pid_t, status int32) {
	p, ok := t.procs.Get(pid)
	if !ok {
		return
	}
	p.Status = StatusZombie
	p.ExitStatus = status
	if par, ok := t.procs.Get(p.Parent); ok {
		for _, ch := range par.waiters {
			ch <- pid
		}
		par.waiters = nil
	}
}

// AwaitChild registers a channel to be signalled the next time any
// child of pid exits (WAITPID's blocking path). The scheduler polls
// this channel as part of its event set.
func (t *Table) AwaitChild(pid defs.Pid_t) (<-chan defs.Pid_t, bool) {
	p, ok := t.procs.Get(pid)
	if !ok {
		return nil, false
	}
	ch := make(chan defs.Pid_t, 1)
	p.waiters = append(p.waiters, ch)
	return ch, true
}

// Reap removes a zombie process from the table entirely, called once
// its exit status has been collected by WAITPID.
func (t *Table) Reap(pid defs.Pid_t) {
	t.procs.Del(pid)
}

// Children returns the live child pids of pid.
func (t *Table) Children(pid defs.Pid_t) []defs.Pid_t {
	p, ok := t.procs.Get(pid)
	if !ok {
		return nil
	}
	return append([]defs.Pid_t(nil), p.children...)
}

// Count reports the number of processes currently tracked, live or
// zombie — reported in the status file written by cmd/sos.
func (t *Table) Count() int {
	return t.procs.Len()
}

// Each calls f for every tracked process, used by PROC_STATUS's
// all-processes query.
func (t *Table) Each(f func(*Process)) {
	t.procs.Each(func(_ defs.Pid_t, p *Process) { f(p) })
}
