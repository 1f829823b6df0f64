// Package defs holds the handful of types and constants shared by every
// other package: process/thread ids, the syscall-number table, and the
// error kind used on every fallible operation in the root task.
package defs

import "gvisor.dev/gvisor/pkg/errors/linuxerr"

// Pid_t identifies a process. Pids are recycled; a Process's StartTime
// token disambiguates a reused pid from the process that previously held
// it (see the stale-callback defense in package sched).
type Pid_t int

// Err_t is the error kind returned by every fallible core operation. A
// zero value means success. Negative values follow a "negative errno"
// convention so a raw Err_t can be compared against zero without
// unwrapping.
type Err_t int

// Error kinds this root task can return. These are not errno values
// themselves — Errno() below maps each to the POSIX errno placed in
// MR0 on a UserException reply.
const (
	OK Err_t = 0

	EOutOfMemory Err_t = -(iota + 1)
	EInvalidArgument
	EPermissionDenied
	ENotFound
	EBusy
	EFaultOutsideRegion
	ESwapIOFailure
	ERemoteIOFailure
	EProcessGone
)

// Errno maps an internal error kind to the positive errno value placed
// in MR0 on a syscall's UserException reply. Errno values come from
// gvisor's linuxerr table rather than a hand-rolled constant block,
// since that table is already an accurate POSIX errno surface.
func (e Err_t) Errno() int {
	switch e {
	case OK:
		return 0
	case EOutOfMemory:
		return int(linuxerr.ENOMEM.Errno())
	case EInvalidArgument:
		return int(linuxerr.EINVAL.Errno())
	case EPermissionDenied:
		return int(linuxerr.EPERM.Errno())
	case ENotFound:
		return int(linuxerr.ENOENT.Errno())
	case EBusy:
		return int(linuxerr.EBUSY.Errno())
	case EFaultOutsideRegion:
		return int(linuxerr.EFAULT.Errno())
	case ESwapIOFailure:
		return int(linuxerr.EIO.Errno())
	case ERemoteIOFailure:
		return int(linuxerr.EIO.Errno())
	case EProcessGone:
		return int(linuxerr.ESRCH.Errno())
	default:
		return int(linuxerr.EINVAL.Errno())
	}
}

// Fatal reports whether an error kind kills the process that raised it
// rather than merely being surfaced to the client.
func (e Err_t) Fatal() bool {
	switch e {
	case ESwapIOFailure, EFaultOutsideRegion, EProcessGone:
		return true
	default:
		return false
	}
}

// Syscall numbers.
const (
	SYS_BRK         = 3
	SYS_USLEEP      = 4
	SYS_TIMESTAMP   = 5
	SYS_OPEN        = 6
	SYS_READ        = 7
	SYS_WRITE       = 8
	SYS_GETDIRENT   = 9
	SYS_STAT        = 10
	SYS_CLOSE       = 11
	SYS_PROC_CREATE = 12
	SYS_GETPID      = 13
	SYS_WAITPID     = 14
	SYS_PROC_DELETE = 15
	SYS_PROC_STATUS = 16
)

// Rights bitset for a memory region.
type Rights uint8

const (
	R Rights = 1 << iota
	W
	X
)

// Device identifiers for the two device handlers this root task wires:
// the serial console and the remote file system. sysOpen selects the
// device by this id, passed in args.A[2]; no lookup by filename takes
// place.
const (
	DevConsole = 1
	DevRemote  = 2
)

// IPC reply labels.
const (
	LabelOK            = 0
	LabelUserException = 1
)

// Client address-space layout.
const (
	ClientStackStart = 0x80000000
	ClientStackEnd   = 0x90000000
	ClientIPCBufVA   = 0xA0000000
)

// FdTableSize is the fixed per-process fd table size.
const FdTableSize = 1024
