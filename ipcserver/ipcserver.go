// Package ipcserver is the request-receive endpoint for the root task:
// it accepts connections, frames inbound messages off them the way
// tinyrange-cc's bindings/c/ipc/protocol.go frames its helper-process
// RPCs (a small fixed header ahead of a payload), and feeds each
// decoded request into dispatch.Setup/Engine.Execute or
// Engine.HandleFault. Every request is run via Scheduler.Defer so the
// actual syscall or fault handling always executes on the event loop's
// own goroutine, never on the goroutine that read it off the wire.
package ipcserver

import (
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"sos/defs"
	"sos/dispatch"
	"sos/sched"
)

// Message kinds a connection may send, carried in the first byte of
// each request header.
const (
	KindSyscall byte = 0
	KindFault   byte = 1
)

// faultPayloadSize is faultva(8) + a write-access flag(1).
const faultPayloadSize = 8 + 1

// requestHeaderSize is kind(1) + pid(4), ahead of the kind-specific
// payload.
const requestHeaderSize = 1 + 4

// Serve accepts connections on l until it is closed, handling each on
// its own goroutine. It returns once Accept starts failing (normally
// because l was closed during shutdown).
func Serve(l net.Listener, engine *dispatch.Engine, sch *sched.Scheduler, log *logrus.Entry) error {
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go handleConn(conn, engine, sch, log)
	}
}

// handleConn runs one connection's request loop: each request is handed
// to the scheduler with Defer and the loop reads the next request
// without waiting for the reply, which the continuation writes to conn
// when it finishes.
func handleConn(conn net.Conn, engine *dispatch.Engine, sch *sched.Scheduler, log *logrus.Entry) {
	defer conn.Close()
	for {
		header := make([]byte, requestHeaderSize)
		if _, err := io.ReadFull(conn, header); err != nil {
			if !errors.Is(err, io.EOF) && log != nil {
				log.WithError(err).Debug("ipcserver: connection closed")
			}
			return
		}
		kind := header[0]
		pid := defs.Pid_t(int32(binary.BigEndian.Uint32(header[1:5])))

		switch kind {
		case KindSyscall:
			if !handleSyscall(conn, pid, engine, sch, log) {
				return
			}
		case KindFault:
			if !handleFault(conn, pid, engine, sch, log) {
				return
			}
		default:
			if log != nil {
				log.WithField("kind", kind).Warn("ipcserver: unknown message kind")
			}
			return
		}
	}
}

func handleSyscall(conn net.Conn, pid defs.Pid_t, engine *dispatch.Engine, sch *sched.Scheduler, log *logrus.Entry) bool {
	payload := make([]byte, dispatch.MsgHeaderSize)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return false
	}
	args, setupErr := dispatch.Setup(payload)
	if setupErr != defs.OK {
		return writeSyscallReply(conn, dispatch.Result{Err: setupErr}, log)
	}
	sch.Defer(func() {
		engine.Execute(pid, args, func(r dispatch.Result) {
			writeSyscallReply(conn, r, log)
		})
	})
	return true
}

func handleFault(conn net.Conn, pid defs.Pid_t, engine *dispatch.Engine, sch *sched.Scheduler, log *logrus.Entry) bool {
	payload := make([]byte, faultPayloadSize)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return false
	}
	faultva := uintptr(binary.BigEndian.Uint64(payload[0:8]))
	write := payload[8] != 0
	sch.Defer(func() {
		p, ok := engine.Procs.Get(pid)
		if !ok {
			writeFaultReply(conn, defs.EProcessGone, log)
			return
		}
		engine.HandleFault(p, faultva, write, func(err defs.Err_t) {
			writeFaultReply(conn, err, log)
		})
	})
	return true
}

// writeSyscallReply frames r as err(4) + value(8) + datalen(4) + data.
func writeSyscallReply(conn net.Conn, r dispatch.Result, log *logrus.Entry) bool {
	buf := make([]byte, 4+8+4+len(r.Data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(r.Err)))
	binary.BigEndian.PutUint64(buf[4:12], uint64(r.Value))
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(r.Data)))
	copy(buf[16:], r.Data)
	if _, err := conn.Write(buf); err != nil {
		if log != nil {
			log.WithError(err).Debug("ipcserver: reply write failed")
		}
		return false
	}
	return true
}

// writeFaultReply frames a bare err(4) reply.
func writeFaultReply(conn net.Conn, err defs.Err_t, log *logrus.Entry) bool {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(int32(err)))
	if _, werr := conn.Write(buf[:]); werr != nil {
		if log != nil {
			log.WithError(werr).Debug("ipcserver: fault reply write failed")
		}
		return false
	}
	return true
}
