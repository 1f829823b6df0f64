// Package swap is the Swap Store: a fixed-slot backing file that evicted
// pages are written to and read back from. It is grounded on the
// Bdev_block_t / Disk_i request-and-ack pattern, but turned inside out:
// instead of a block handing itself to a Disk_i and blocking on an
// AckCh, the Store here launches the actual Pread/Pwrite on a worker
// goroutine and reports completion on a channel the scheduler selects
// on, since nothing may block the single dispatch goroutine on I/O.
package swap

import (
	"context"
	"hash/crc32"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"

	"sos/defs"
	"sos/mem"
)

// maxConcurrentIO bounds how many Pread/Pwrite calls run at once, so a
// burst of page-outs can't spawn thousands of goroutines contending for
// the same backing file's disk bandwidth.
const maxConcurrentIO = 32

// SlotSize is one swap slot's payload size, equal to a frame.
const SlotSize = mem.PageSize

// trailerSize is the CRC32 checksum appended after each slot's payload,
// giving ReadAsync a cheap way to detect a torn or corrupted write.
const trailerSize = 4
const slotStride = SlotSize + trailerSize

// SlotID indexes a slot in the swap file.
type SlotID int32

// ErrNoSlot is returned by Alloc when the swap file is full.
const ErrNoSlot SlotID = -1

// Completion is delivered on a Store's Completions channel when an
// async Read or Write finishes.
type Completion struct {
	Slot  SlotID
	Token any // caller-supplied, round-tripped unchanged
	Data  []byte
	Err   defs.Err_t
}

// Store is a fixed-capacity swap file plus a free-slot list.
type Store struct {
	f           *os.File
	nslots      int
	mu          sync.Mutex
	freeHd      SlotID
	freeLen     int
	nextFree    []SlotID
	inUse       []bool
	Completions chan Completion
	io          *semaphore.Weighted
}

// Open creates (or truncates) path as a swap file with room for nslots
// slots, and preallocates its size so Pwrite never needs to extend it
// mid-flight.
func Open(path string, nslots int) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(nslots) * int64(slotStride)); err != nil {
		f.Close()
		return nil, err
	}
	s := &Store{
		f:           f,
		nslots:      nslots,
		nextFree:    make([]SlotID, nslots),
		inUse:       make([]bool, nslots),
		Completions: make(chan Completion, 64),
		io:          semaphore.NewWeighted(maxConcurrentIO),
	}
	for i := 0; i < nslots; i++ {
		if i == nslots-1 {
			s.nextFree[i] = ErrNoSlot
		} else {
			s.nextFree[i] = SlotID(i + 1)
		}
	}
	s.freeLen = nslots
	return s, nil
}

// Close releases the backing file descriptor.
func (s *Store) Close() error {
	return s.f.Close()
}

// Alloc reserves a free slot.
func (s *Store) Alloc() (SlotID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.freeHd == ErrNoSlot && s.freeLen == 0 {
		return ErrNoSlot, false
	}
	id := s.freeHd
	s.freeHd = s.nextFree[id]
	s.freeLen--
	s.inUse[id] = true
	return id, true
}

// Free returns slot to the free list.
func (s *Store) Free(slot SlotID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inUse[slot] {
		panic("swap: double free of slot")
	}
	s.inUse[slot] = false
	s.nextFree[slot] = s.freeHd
	s.freeHd = slot
	s.freeLen++
}

// FreeCount reports the number of unused slots.
func (s *Store) FreeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeLen
}

// WriteAsync writes data (exactly SlotSize bytes) plus its checksum to
// slot, delivering a Completion once the write lands. token is
// round-tripped unchanged so the caller can correlate it back to the
// continuation that issued the write.
func (s *Store) WriteAsync(slot SlotID, data []byte, token any) {
	if len(data) != SlotSize {
		s.Completions <- Completion{Slot: slot, Token: token, Err: defs.EInvalidArgument}
		return
	}
	buf := make([]byte, slotStride)
	copy(buf, data)
	sum := crc32.ChecksumIEEE(data)
	putBE32(buf[SlotSize:], sum)
	go func() {
		_ = s.io.Acquire(context.Background(), 1)
		_, err := unix.Pwrite(int(s.f.Fd()), buf, int64(slot)*int64(slotStride))
		s.io.Release(1)
		e := defs.OK
		if err != nil {
			e = defs.ESwapIOFailure
		}
		s.Completions <- Completion{Slot: slot, Token: token, Err: e}
	}()
}

// ReadAsync reads slot's payload back, verifying its checksum, and
// delivers a Completion carrying the recovered bytes or
// defs.ESwapIOFailure if the checksum does not match.
func (s *Store) ReadAsync(slot SlotID, token any) {
	go func() {
		_ = s.io.Acquire(context.Background(), 1)
		buf := make([]byte, slotStride)
		_, err := unix.Pread(int(s.f.Fd()), buf, int64(slot)*int64(slotStride))
		s.io.Release(1)
		if err != nil {
			s.Completions <- Completion{Slot: slot, Token: token, Err: defs.ESwapIOFailure}
			return
		}
		data := buf[:SlotSize]
		want := getBE32(buf[SlotSize:])
		if crc32.ChecksumIEEE(data) != want {
			s.Completions <- Completion{Slot: slot, Token: token, Err: defs.ESwapIOFailure}
			return
		}
		s.Completions <- Completion{Slot: slot, Token: token, Data: data, Err: defs.OK}
	}()
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func getBE32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
