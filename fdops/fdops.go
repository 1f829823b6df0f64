// Package fdops defines the device-handler interface every open file
// descriptor dispatches through, shaped around how fd.Fd in fd/fd.go
// actually calls it (Fops.Reopen(), Fops.Close()): small, Err_t-returning
// methods rather than a wider io.ReadWriteCloser surface.
package fdops

import "sos/defs"

// Fdops_i is implemented by every device/file handler SYS_READ,
// SYS_WRITE, and SYS_CLOSE dispatch through: the console, an open
// remote file (package remotefs's File), and any future device.
type Fdops_i interface {
	// Read copies into dst, returning the number of bytes read.
	Read(dst []byte) (int, defs.Err_t)
	// Write copies from src, returning the number of bytes written.
	Write(src []byte) (int, defs.Err_t)
	// Close releases any resources the handler holds.
	Close() defs.Err_t
	// Reopen is called when a descriptor is duplicated; handlers that hold a
	// refcounted resource bump it here.
	Reopen() defs.Err_t
}

// Stat is the file metadata SYS_STAT reports back to the caller.
type Stat struct {
	Size  int64
	IsDir bool
}

// Dirent is one directory entry SYS_GETDIRENT reports back to the
// caller.
type Dirent struct {
	Name string
}

// Stater is implemented by handlers that can answer SYS_STAT
// synchronously — currently just the console, whose metadata needs no
// RPC. The remote filesystem client answers SYS_STAT too, but over an
// async round trip dispatch drives directly rather than through this
// interface, since suspending a continuation needs the scheduler.
type Stater interface {
	Stat() (Stat, defs.Err_t)
}

// Direntor mirrors Stater for SYS_GETDIRENT: a handler that can list
// its entries without an RPC. A handler with neither Stater nor
// Direntor simply isn't a directory — SYS_GETDIRENT against it reports
// ENotFound.
type Direntor interface {
	Getdirent(offset int) ([]Dirent, defs.Err_t)
}
