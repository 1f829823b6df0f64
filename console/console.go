// Package console is the serial-console device handler, grounded on circbuf-backed line-discipline
// devices: a single shared circbuf.Cb that every open descriptor reads
// and writes through, since there is exactly one console for the whole
// SOS instance.
package console

import (
	"sos/circbuf"
	"sos/defs"
	"sos/fdops"
	"sos/mem"
)

// Console is the shared console device. It implements fdops.Fdops_i.
type Console struct {
	rx *circbuf.Cb // bytes arriving from the operator terminal
	tx *circbuf.Cb // bytes queued for the operator terminal
}

// New allocates the console's two page-backed ring buffers.
func New(frames *mem.Table) (*Console, bool) {
	rx, ok := circbuf.New(frames)
	if !ok {
		return nil, false
	}
	tx, ok := circbuf.New(frames)
	if !ok {
		rx.Close()
		return nil, false
	}
	return &Console{rx: rx, tx: tx}, true
}

// Shutdown releases the console's backing pages. Only called at
// process-server shutdown, since the console device outlives every
// process that opens it.
func (c *Console) Shutdown() {
	c.rx.Close()
	c.tx.Close()
}

// Feed is called by the boot entry point's terminal-input loop to push
// bytes typed at the operator terminal into the device's rx buffer.
func (c *Console) Feed(p []byte) {
	c.rx.Write(p)
}

// Drain is called by the boot entry point to pull bytes queued for the
// operator terminal out of the device's tx buffer.
func (c *Console) Drain(p []byte) int {
	return c.tx.Read(p)
}

// Read implements fdops.Fdops_i: a SYS_READ against the console
// returns whatever input is currently buffered, never blocking — an
// empty read is a legitimate zero-byte result, not EOF, since more
// input may arrive later.
func (c *Console) Read(dst []byte) (int, defs.Err_t) {
	return c.rx.Read(dst), defs.OK
}

// Write implements fdops.Fdops_i: queues src for the operator terminal.
func (c *Console) Write(src []byte) (int, defs.Err_t) {
	c.tx.Write(src)
	return len(src), defs.OK
}

// Close implements fdops.Fdops_i for a per-descriptor close: the shared
// device itself is unaffected, only this descriptor's reference to it
// is dropped (nothing to do, since Console holds no per-descriptor
// state).
func (c *Console) Close() defs.Err_t {
	return defs.OK
}

// Reopen implements fdops.Fdops_i: duplicating a console descriptor is
// always legal and cheap.
func (c *Console) Reopen() defs.Err_t {
	return defs.OK
}

// Stat implements fdops.Stater. The console has no meaningful size; it
// reports zero and answers synchronously since there is no remote
// server to ask.
func (c *Console) Stat() (fdops.Stat, defs.Err_t) {
	return fdops.Stat{Size: 0, IsDir: false}, defs.OK
}
