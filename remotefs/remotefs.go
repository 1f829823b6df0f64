// Package remotefs is the async remote-file client, adapted the same
// way package swap is: a request is launched, and completion is
// delivered on a channel the scheduler selects on, instead of blocking
// the caller on a wait channel.
package remotefs

import (
	"sos/defs"
)

// Handle identifies one open remote file.
type Handle int32

// Completion is delivered on a Client's Completions channel once a
// request finishes. Which fields besides Req/Err are populated depends
// on Req.Kind: Data for ReqRead, Handle/Size for ReqOpen, Size/IsDir
// for ReqStat, Names for ReqGetdirent.
type Completion struct {
	Req    Request
	Data   []byte
	Handle Handle
	Size   int64
	IsDir  bool
	Names  []string
	Err    defs.Err_t
}

// RequestKind enumerates the operations a remote file server accepts.
type RequestKind int

const (
	ReqOpen RequestKind = iota
	ReqRead
	ReqWrite
	ReqStat
	ReqGetdirent
)

// Request describes one outstanding remote I/O operation.
type Request struct {
	Kind   RequestKind
	File   Handle
	Path   string // populated for ReqOpen
	Offset int64
	Len    int
	Data   []byte // populated for ReqWrite
	Token  any
}

// OpenResult is what a Transport hands back to a ReqOpen's deliver
// callback: the remote handle and its size, or an error.
type OpenResult struct {
	Handle Handle
	Size   int64
}

// StatResult is what a Transport hands back to a ReqStat's deliver
// callback.
type StatResult struct {
	Size  int64
	IsDir bool
}

// DirentResult is what a Transport hands back to a ReqGetdirent's
// deliver callback.
type DirentResult struct {
	Names []string
}

// Transport is implemented by whatever carries requests to the remote
// file server — an IPC endpoint in production, a fake in tests.
type Transport interface {
	// Send ships req to the server and must eventually call deliver
	// exactly once with the result: []byte for ReqRead, nil for
	// ReqWrite, *OpenResult for ReqOpen, *StatResult for ReqStat, and
	// *DirentResult for ReqGetdirent.
	Send(req Request, deliver func(result any, err defs.Err_t))
}

// Client is the remote filesystem client used by file-backed vm
// regions and by open remote files (package remotefs's File). It owns
// no goroutines of its own: Transport implementations are responsible
// for not blocking the caller of Send.
type Client struct {
	transport   Transport
	Completions chan Completion
}

// New wraps transport in a Client.
func New(transport Transport) *Client {
	return &Client{transport: transport, Completions: make(chan Completion, 64)}
}

// OpenAsync negotiates a remote file open by path, delivering a
// Completion with the assigned Handle and Size (or an error).
func (c *Client) OpenAsync(path string, token any) {
	req := Request{Kind: ReqOpen, Path: path, Token: token}
	c.transport.Send(req, func(result any, err defs.Err_t) {
		comp := Completion{Req: req, Err: err}
		if or, ok := result.(*OpenResult); ok && or != nil {
			comp.Handle, comp.Size = or.Handle, or.Size
		}
		c.Completions <- comp
	})
}

// ReadAsync issues a read of len bytes at offset from file, delivering
// a Completion with the data (or an error) asynchronously.
func (c *Client) ReadAsync(file Handle, offset int64, length int, token any) {
	req := Request{Kind: ReqRead, File: file, Offset: offset, Len: length, Token: token}
	c.transport.Send(req, func(result any, err defs.Err_t) {
		data, _ := result.([]byte)
		c.Completions <- Completion{Req: req, Data: data, Err: err}
	})
}

// WriteAsync issues a write of data at offset to file.
func (c *Client) WriteAsync(file Handle, offset int64, data []byte, token any) {
	req := Request{Kind: ReqWrite, File: file, Offset: offset, Len: len(data), Data: data, Token: token}
	c.transport.Send(req, func(_ any, err defs.Err_t) {
		c.Completions <- Completion{Req: req, Err: err}
	})
}

// StatAsync requests metadata for file, delivering a Completion with
// Size/IsDir populated (or an error).
func (c *Client) StatAsync(file Handle, token any) {
	req := Request{Kind: ReqStat, File: file, Token: token}
	c.transport.Send(req, func(result any, err defs.Err_t) {
		comp := Completion{Req: req, Err: err}
		if sr, ok := result.(*StatResult); ok && sr != nil {
			comp.Size, comp.IsDir = sr.Size, sr.IsDir
		}
		c.Completions <- comp
	})
}

// GetdirentAsync requests the directory entries of file starting at
// offset, delivering a Completion with Names populated (or an error).
func (c *Client) GetdirentAsync(file Handle, offset int, token any) {
	req := Request{Kind: ReqGetdirent, File: file, Offset: int64(offset), Token: token}
	c.transport.Send(req, func(result any, err defs.Err_t) {
		comp := Completion{Req: req, Err: err}
		if dr, ok := result.(*DirentResult); ok && dr != nil {
			comp.Names = dr.Names
		}
		c.Completions <- comp
	})
}

// File is one open remote-backed file descriptor: a Client plus a
// Handle and a current read/write offset. It implements
// fdops.Fdops_i so it can live in a process's fd table, but Read and
// Write exist only to satisfy that interface — sysRead/sysWrite detect
// *File with a type assertion and drive ReadAsync/WriteAsync directly,
// since a remote read or write must suspend the calling continuation
// rather than block the event loop the way a synchronous method would.
type File struct {
	Client *Client
	Handle Handle
	Offset int64
	Size   int64
	refs   int32
}

// NewFile wraps an opened remote handle for the fd table.
func NewFile(client *Client, handle Handle, size int64) *File {
	return &File{Client: client, Handle: handle, Size: size, refs: 1}
}

// Read implements fdops.Fdops_i. Never actually called: dispatch routes
// SYS_READ against a *File through ReadAsync instead.
func (f *File) Read(dst []byte) (int, defs.Err_t) { return 0, defs.EBusy }

// Write implements fdops.Fdops_i. Never actually called: dispatch
// routes SYS_WRITE against a *File through WriteAsync instead.
func (f *File) Write(src []byte) (int, defs.Err_t) { return 0, defs.EBusy }

// Close implements fdops.Fdops_i: drops this descriptor's reference.
// The remote handle itself is not released here — a multi-descriptor
// close protocol is out of scope — cleanup happens when process exit
// closes every fd.
func (f *File) Close() defs.Err_t {
	f.refs--
	return defs.OK
}

// Reopen implements fdops.Fdops_i: bumps the descriptor's refcount.
func (f *File) Reopen() defs.Err_t {
	f.refs++
	return defs.OK
}
