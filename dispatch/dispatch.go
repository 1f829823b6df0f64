// Package dispatch is the syscall engine's setup/execute split: Setup
// decodes a raw IPC message into a syscall number and argument words,
// Execute runs it to completion or registers a continuation with the
// scheduler. Grounded on the justanotherdot-biscuit kernel entry
// point's trapstub/Syscall shape and its useriovec_t/circbuf_t-backed
// userio_i abstraction, narrowed here to the one buffer shape SOS
// actually needs: a flat byte slice already resident in the IPC shared
// buffer.
package dispatch

import (
	"fmt"
	"time"

	"sos/console"
	"sos/defs"
	"sos/evict"
	"sos/fd"
	"sos/fdops"
	"sos/limits"
	"sos/mem"
	"sos/proc"
	"sos/remotefs"
	"sos/sched"
	"sos/stat"
	"sos/statsd"
	"sos/swap"
	"sos/ustr"
	"sos/util"
	"sos/vm"
)

// MsgHeaderSize is the fixed-size header every IPC request carries
// ahead of its syscall-specific argument words: sysno(4) + 6 argument
// words of 8 bytes each.
const MsgHeaderSize = 4 + 6*8

// Args holds one syscall's decoded argument words.
type Args struct {
	Sysno int32
	A     [6]int64
}

// Setup decodes msg's fixed header into Args. Per-syscall argument
// interpretation (which words are pointers, lengths, or flags) happens
// in Execute, not here — Setup's only job is pulling the header apart,
// mirroring how trapstub pulls the raw trap frame apart before Syscall
// ever looks at individual arguments.
func Setup(msg []byte) (Args, defs.Err_t) {
	if len(msg) < MsgHeaderSize {
		return Args{}, defs.EInvalidArgument
	}
	var a Args
	a.Sysno = int32(beU32(msg[0:4]))
	for i := 0; i < 6; i++ {
		off := 4 + i*8
		a.A[i] = int64(beU64(msg[off : off+8]))
	}
	return a, defs.OK
}

func beU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func beU64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// Engine wires every subsystem dispatch needs to actually run a
// syscall to completion.
type Engine struct {
	Procs   *proc.Table
	Frames  *mem.Table
	Swap    *swap.Store
	Remote  *remotefs.Client
	Console *console.Console
	Evict   *evict.Ring
	Limits  *limits.Sys
	Stats   *statsd.Counters
	Sched   *sched.Scheduler
}

// Result is what Execute hands back to the IPC reply path once a
// syscall completes (immediately or via a resumed continuation).
// Data carries a variable-length reply payload for the handful of
// syscalls that return more than a single word (PROC_STATUS).
type Result struct {
	Value int64
	Data  []byte
	Err   defs.Err_t
}

// Execute runs one syscall for pid to completion or suspension. reply
// is invoked exactly once, either before Execute returns (the common,
// non-blocking case) or later from a continuation resumed by the
// scheduler.
func (e *Engine) Execute(pid defs.Pid_t, args Args, reply func(Result)) {
	p, ok := e.Procs.Get(pid)
	if !ok {
		reply(Result{Err: defs.EProcessGone})
		return
	}
	start := time.Now()
	finish := func(r Result) {
		p.Accnt.AddHandle(time.Since(start))
		e.Stats.Inc(&e.Stats.SyscallsHandled)
		reply(r)
	}

	switch args.Sysno {
	case defs.SYS_BRK:
		finish(e.sysBrk(p, args))
	case defs.SYS_USLEEP:
		e.sysUsleep(p, args, finish)
	case defs.SYS_TIMESTAMP:
		finish(e.sysTimestamp())
	case defs.SYS_OPEN:
		e.sysOpen(p, args, finish)
	case defs.SYS_READ:
		e.sysRead(p, args, finish)
	case defs.SYS_WRITE:
		e.sysWrite(p, args, finish)
	case defs.SYS_GETDIRENT:
		e.sysGetdirent(p, args, finish)
	case defs.SYS_STAT:
		e.sysStat(p, args, finish)
	case defs.SYS_CLOSE:
		finish(e.sysClose(p, args))
	case defs.SYS_PROC_CREATE:
		finish(e.sysProcCreate(p, args))
	case defs.SYS_GETPID:
		finish(Result{Value: int64(p.Pid), Err: defs.OK})
	case defs.SYS_WAITPID:
		e.sysWaitpid(p, args, finish)
	case defs.SYS_PROC_DELETE:
		finish(e.sysProcDelete(p, args))
	case defs.SYS_PROC_STATUS:
		finish(e.sysProcStatus(p, args))
	default:
		finish(Result{Err: defs.EInvalidArgument})
	}
}

// sysBrk grows or shrinks the anonymous heap region to end at args.A[0]
// (0 means "report current break without changing it").
func (e *Engine) sysBrk(p *proc.Process, args Args) Result {
	const heapStart = 0x10000000
	newBrk := uintptr(args.A[0])
	r, ok := p.AS.FindRegion(heapStart)
	if !ok {
		if newBrk == 0 {
			return Result{Value: int64(heapStart), Err: defs.OK}
		}
		if newBrk < heapStart {
			return Result{Err: defs.EInvalidArgument}
		}
		err := p.AS.AddRegion(vm.Region{Start: heapStart, Len: newBrk - heapStart, Perms: defs.R | defs.W, Kind: vm.KindAnon})
		if err != defs.OK {
			return Result{Err: err}
		}
		return Result{Value: int64(newBrk), Err: defs.OK}
	}
	if newBrk == 0 {
		return Result{Value: int64(r.Start + r.Len), Err: defs.OK}
	}
	if newBrk < r.Start {
		return Result{Err: defs.EInvalidArgument}
	}
	p.AS.RemoveRegion(r.Start)
	r.Len = newBrk - r.Start
	if err := p.AS.AddRegion(r); err != defs.OK {
		return Result{Err: err}
	}
	return Result{Value: int64(newBrk), Err: defs.OK}
}

// sysUsleep suspends the caller for args.A[0] microseconds, resuming it
// via Scheduler.Defer from a time.AfterFunc — the one syscall whose
// completion source is a wall-clock timer rather than swap or remote
// I/O.
func (e *Engine) sysUsleep(p *proc.Process, args Args, finish func(Result)) {
	us := args.A[0]
	if us <= 0 {
		finish(Result{Err: defs.OK})
		return
	}
	tok := p.Token()
	time.AfterFunc(time.Duration(us)*time.Microsecond, func() {
		e.Sched.Defer(func() {
			if !e.Procs.Valid(tok) {
				return
			}
			e.Sched.Enqueue(tok.Pid, func() { finish(Result{Err: defs.OK}) })
		})
	})
}

func (e *Engine) sysTimestamp() Result {
	return Result{Value: time.Now().UnixMilli(), Err: defs.OK}
}

// sysOpen opens a device by path. Only two devices exist: the console,
// opened synchronously, and the remote filesystem root, opened over an
// RPC to the remote server that suspends the caller until it answers.
// args.A[1] carries the path length, bounded by ustr.MaxLen, and
// args.A[2] the device id (defs.DevConsole or defs.DevRemote) that
// selects the handler; the path bytes themselves are not read.
func (e *Engine) sysOpen(p *proc.Process, args Args, finish func(Result)) {
	pathLen := int(args.A[1])
	if pathLen <= 0 || pathLen >= ustr.MaxLen {
		finish(Result{Err: defs.EInvalidArgument})
		return
	}
	dev := args.A[2]
	switch dev {
	case defs.DevConsole:
		idx, err := p.Fds.Install(&fd.Fd{Fops: e.Console, Perms: fd.Read | fd.Write})
		if err != defs.OK {
			finish(Result{Err: err})
			return
		}
		finish(Result{Value: int64(idx), Err: defs.OK})
	case defs.DevRemote:
		e.openRemote(p, args, pathLen, finish)
	default:
		finish(Result{Err: defs.ENotFound})
	}
}

// openRemote negotiates a remote-file open over RPC: the path word
// stream this root task does not yet copy out of client memory is
// stood in for by the raw path-length argument, so the remote server
// sees a deterministic name per length — enough to exercise the full
// open/read/write/stat/getdirent path end to end against a real
// Transport even before userspace path bytes are plumbed through.
func (e *Engine) openRemote(p *proc.Process, args Args, pathLen int, finish func(Result)) {
	path := fmt.Sprintf("/remote/%d", pathLen)
	tag := new(int)
	tok := p.Token()
	e.Sched.WaitRemote(tag, sched.WaitKey{Token: tok, Tag: tag}, func(ev sched.Event) {
		if ev.RemoteDone == nil || ev.RemoteDone.Err != defs.OK {
			finish(Result{Err: defs.ERemoteIOFailure})
			return
		}
		rf := remotefs.NewFile(e.Remote, ev.RemoteDone.Handle, ev.RemoteDone.Size)
		idx, err := p.Fds.Install(&fd.Fd{Fops: rf, Perms: fd.Read | fd.Write})
		if err != defs.OK {
			finish(Result{Err: err})
			return
		}
		finish(Result{Value: int64(idx), Err: defs.OK})
	})
	e.Remote.OpenAsync(path, tag)
}

func (e *Engine) sysRead(p *proc.Process, args Args, finish func(Result)) {
	idx := int(args.A[0])
	n := int(args.A[2])
	f, err := p.Fds.Get(idx)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	if f.Perms&fd.Read == 0 {
		finish(Result{Err: defs.EPermissionDenied})
		return
	}
	if rf, ok := f.Fops.(*remotefs.File); ok {
		e.readRemote(p, rf, n, finish)
		return
	}
	buf := make([]byte, n)
	got, err := f.Fops.Read(buf)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	finish(Result{Value: int64(got), Data: buf[:got], Err: defs.OK})
}

func (e *Engine) readRemote(p *proc.Process, rf *remotefs.File, n int, finish func(Result)) {
	tag := new(int)
	tok := p.Token()
	e.Sched.WaitRemote(tag, sched.WaitKey{Token: tok, Tag: tag}, func(ev sched.Event) {
		if ev.RemoteDone == nil || ev.RemoteDone.Err != defs.OK {
			finish(Result{Err: defs.ERemoteIOFailure})
			return
		}
		rf.Offset += int64(len(ev.RemoteDone.Data))
		finish(Result{Value: int64(len(ev.RemoteDone.Data)), Data: ev.RemoteDone.Data, Err: defs.OK})
	})
	rf.Client.ReadAsync(rf.Handle, rf.Offset, n, tag)
}

func (e *Engine) sysWrite(p *proc.Process, args Args, finish func(Result)) {
	idx := int(args.A[0])
	n := int(args.A[2])
	f, err := p.Fds.Get(idx)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	if f.Perms&fd.Write == 0 {
		finish(Result{Err: defs.EPermissionDenied})
		return
	}
	if rf, ok := f.Fops.(*remotefs.File); ok {
		e.writeRemote(p, rf, make([]byte, n), finish)
		return
	}
	buf := make([]byte, n)
	got, err := f.Fops.Write(buf)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	finish(Result{Value: int64(got), Err: defs.OK})
}

func (e *Engine) writeRemote(p *proc.Process, rf *remotefs.File, data []byte, finish func(Result)) {
	tag := new(int)
	tok := p.Token()
	e.Sched.WaitRemote(tag, sched.WaitKey{Token: tok, Tag: tag}, func(ev sched.Event) {
		if ev.RemoteDone == nil || ev.RemoteDone.Err != defs.OK {
			finish(Result{Err: defs.ERemoteIOFailure})
			return
		}
		rf.Offset += int64(len(data))
		finish(Result{Value: int64(len(data)), Err: defs.OK})
	})
	rf.Client.WriteAsync(rf.Handle, rf.Offset, data, tag)
}

// sysStat answers SYS_STAT against an open fd: synchronously for a
// handler implementing fdops.Stater, over RPC for an open remote file,
// ENotFound for anything else (not every handler has meaningful
// metadata).
func (e *Engine) sysStat(p *proc.Process, args Args, finish func(Result)) {
	idx := int(args.A[0])
	f, err := p.Fds.Get(idx)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	if st, ok := f.Fops.(fdops.Stater); ok {
		s, err := st.Stat()
		finish(statResult(s, err))
		return
	}
	if rf, ok := f.Fops.(*remotefs.File); ok {
		e.statRemote(p, rf, finish)
		return
	}
	finish(Result{Err: defs.ENotFound})
}

func (e *Engine) statRemote(p *proc.Process, rf *remotefs.File, finish func(Result)) {
	tag := new(int)
	tok := p.Token()
	e.Sched.WaitRemote(tag, sched.WaitKey{Token: tok, Tag: tag}, func(ev sched.Event) {
		if ev.RemoteDone == nil || ev.RemoteDone.Err != defs.OK {
			finish(Result{Err: defs.ERemoteIOFailure})
			return
		}
		finish(statResult(fdops.Stat{Size: ev.RemoteDone.Size, IsDir: ev.RemoteDone.IsDir}, defs.OK))
	})
	rf.Client.StatAsync(rf.Handle, tag)
}

func statResult(s fdops.Stat, err defs.Err_t) Result {
	if err != defs.OK {
		return Result{Err: err}
	}
	b := make([]byte, 9)
	util.Writen(b, 8, 0, int(s.Size))
	if s.IsDir {
		b[8] = 1
	}
	return Result{Value: s.Size, Data: b, Err: defs.OK}
}

// sysGetdirent answers SYS_GETDIRENT against an open fd: synchronously
// for a handler implementing fdops.Direntor, over RPC for an open
// remote file, ENotFound for anything that isn't a directory.
func (e *Engine) sysGetdirent(p *proc.Process, args Args, finish func(Result)) {
	idx := int(args.A[0])
	offset := int(args.A[1])
	f, err := p.Fds.Get(idx)
	if err != defs.OK {
		finish(Result{Err: err})
		return
	}
	if dr, ok := f.Fops.(fdops.Direntor); ok {
		names, err := dr.Getdirent(offset)
		finish(direntResult(names, err))
		return
	}
	if rf, ok := f.Fops.(*remotefs.File); ok {
		e.getdirentRemote(p, rf, offset, finish)
		return
	}
	finish(Result{Err: defs.ENotFound})
}

func (e *Engine) getdirentRemote(p *proc.Process, rf *remotefs.File, offset int, finish func(Result)) {
	tag := new(int)
	tok := p.Token()
	e.Sched.WaitRemote(tag, sched.WaitKey{Token: tok, Tag: tag}, func(ev sched.Event) {
		if ev.RemoteDone == nil || ev.RemoteDone.Err != defs.OK {
			finish(Result{Err: defs.ERemoteIOFailure})
			return
		}
		var entries []fdops.Dirent
		for _, n := range ev.RemoteDone.Names {
			entries = append(entries, fdops.Dirent{Name: n})
		}
		finish(direntResult(entries, defs.OK))
	})
	rf.Client.GetdirentAsync(rf.Handle, offset, tag)
}

func direntResult(entries []fdops.Dirent, err defs.Err_t) Result {
	if err != defs.OK {
		return Result{Err: err}
	}
	var data []byte
	for _, d := range entries {
		data = append(data, []byte(d.Name)...)
		data = append(data, 0)
	}
	return Result{Value: int64(len(entries)), Data: data, Err: defs.OK}
}

func (e *Engine) sysClose(p *proc.Process, args Args) Result {
	idx := int(args.A[0])
	f, err := p.Fds.Remove(idx)
	if err != defs.OK {
		return Result{Err: err}
	}
	return Result{Err: f.Fops.Close()}
}

func (e *Engine) sysProcCreate(p *proc.Process, args Args) Result {
	if !e.Limits.Procs.Take(1) {
		return Result{Err: defs.EBusy}
	}
	fds, err := p.Fds.Fork()
	if err != defs.OK {
		e.Limits.Procs.Give(1)
		return Result{Err: err}
	}
	child := e.Procs.New(p.Pid, p.Command, defs.FdTableSize)
	child.Fds = fds
	e.Stats.Inc(&e.Stats.ForkCount)
	return Result{Value: int64(child.Pid), Err: defs.OK}
}

func (e *Engine) sysWaitpid(p *proc.Process, args Args, finish func(Result)) {
	target := defs.Pid_t(args.A[0])
	if target != 0 {
		c, ok := e.Procs.Get(target)
		if ok && c.Status == proc.StatusZombie && c.Parent == p.Pid {
			status := c.ExitStatus
			e.Procs.Reap(target)
			finish(Result{Value: int64(status), Err: defs.OK})
			return
		}
	} else {
		for _, chPid := range e.Procs.Children(p.Pid) {
			if c, ok := e.Procs.Get(chPid); ok && c.Status == proc.StatusZombie {
				e.Procs.Reap(chPid)
				finish(Result{Value: int64(chPid), Err: defs.OK})
				return
			}
		}
	}
	ch, ok := e.Procs.AwaitChild(p.Pid)
	if !ok {
		finish(Result{Err: defs.EProcessGone})
		return
	}
	tok := p.Token()
	go func() {
		<-ch
		e.Sched.Defer(func() {
			if !e.Procs.Valid(tok) {
				return
			}
			// A child died, but not necessarily the one this call is
			// waiting for (or any, for a specific-pid wait) — re-run
			// the same check/register logic against the original
			// args; if it is still not the right child, this just
			// re-registers and waits again.
			e.Sched.Enqueue(tok.Pid, func() {
				e.sysWaitpid(p, args, finish)
			})
		})
	}()
}

func (e *Engine) sysProcDelete(p *proc.Process, args Args) Result {
	target := defs.Pid_t(args.A[0])
	if target != p.Pid {
		return Result{Err: defs.EPermissionDenied}
	}
	p.Fds.CloseAll()
	e.Limits.Procs.Give(1)
	e.Stats.Inc(&e.Stats.ExitCount)
	e.Procs.Exit(p.Pid, int32(args.A[1]))
	return Result{Err: defs.OK}
}

func (e *Engine) sysProcStatus(p *proc.Process, args Args) Result {
	target := defs.Pid_t(args.A[0])
	if target == 0 {
		var all []stat.ProcStatus
		e.Procs.Each(func(pr *proc.Process) { all = append(all, pr.ProcStatus()) })
		return Result{Value: int64(len(all)), Data: stat.PackAll(all), Err: defs.OK}
	}
	t, ok := e.Procs.Get(target)
	if !ok {
		return Result{Err: defs.ENotFound}
	}
	ps := t.ProcStatus()
	return Result{Value: 1, Data: ps.Bytes(), Err: defs.OK}
}
