// Package circbuf is a page-backed circular byte buffer. It backs the
// console device handler (package console): one page of storage, read
// and write cursors that wrap, and a dropped-oldest-byte policy on
// overflow rather than blocking the writer — this root task has no
// interrupt-time writer to protect, but the console device still must
// never stall dispatch on a slow or absent reader.
package circbuf

import "sos/mem"

// Cb is a single-page circular buffer.
type Cb struct {
	frames  *mem.Table
	frameID mem.FrameID
	head    int // next byte to read
	tail    int // next byte to write
	full    bool
}

// New allocates a page from frames to back the buffer.
func New(frames *mem.Table) (*Cb, bool) {
	id, ok := frames.Alloc()
	if !ok {
		return nil, false
	}
	return &Cb{frames: frames, frameID: id}, true
}

// Close releases the backing page.
func (c *Cb) Close() {
	c.frames.Free(c.frameID)
}

func (c *Cb) cap() int {
	return len(c.frames.Bytes(c.frameID))
}

// Len reports how many unread bytes are currently buffered.
func (c *Cb) Len() int {
	if c.full {
		return c.cap()
	}
	if c.tail >= c.head {
		return c.tail - c.head
	}
	return c.cap() - c.head + c.tail
}

// Write appends p to the buffer, overwriting the oldest unread bytes if
// p would overflow capacity (never blocks, never errors).
func (c *Cb) Write(p []byte) {
	buf := c.frames.Bytes(c.frameID)
	for _, b := range p {
		buf[c.tail] = b
		c.tail = (c.tail + 1) % len(buf)
		if c.full {
			c.head = (c.head + 1) % len(buf)
		}
		if c.tail == c.head {
			c.full = true
		}
	}
}

// Read drains up to len(p) unread bytes into p, returning the count
// read.
func (c *Cb) Read(p []byte) int {
	buf := c.frames.Bytes(c.frameID)
	n := 0
	for n < len(p) && (c.full || c.head != c.tail) {
		p[n] = buf[c.head]
		c.head = (c.head + 1) % len(buf)
		c.full = false
		n++
	}
	return n
}
