// Package stat defines the packed process-status record returned by
// PROC_STATUS, grounded on a fixed-layout-with-accessors idiom.
package stat

import "sos/util"

// CommandNameLen is the fixed width of the NUL-padded command name
// field in a packed ProcStatus record.
const CommandNameLen = 32

// RecordSize is the wire size in bytes of one packed ProcStatus record:
// pid(4) + size-in-pages(4) + start-time-ms(4) + command(32).
const RecordSize = 4 + 4 + 4 + CommandNameLen

// ProcStatus mirrors the fixed-layout-with-accessors idiom of a packed
// status record.
type ProcStatus struct {
	Pid         int32
	SizePages   int32
	StartTimeMs int32
	Command     [CommandNameLen]byte
}

// NewProcStatus builds a ProcStatus, truncating command to
// CommandNameLen-1 bytes and NUL-padding the remainder.
func NewProcStatus(pid int32, sizePages int32, startTimeMs int32, command string) ProcStatus {
	var ps ProcStatus
	ps.Pid = pid
	ps.SizePages = sizePages
	ps.StartTimeMs = startTimeMs
	n := copy(ps.Command[:CommandNameLen-1], command)
	_ = n
	return ps
}

// Bytes packs the record into its wire form.
func (ps *ProcStatus) Bytes() []byte {
	b := make([]byte, RecordSize)
	off := 0
	util.Writen(b, 4, off, int(ps.Pid))
	off += 4
	util.Writen(b, 4, off, int(ps.SizePages))
	off += 4
	util.Writen(b, 4, off, int(ps.StartTimeMs))
	off += 4
	copy(b[off:], ps.Command[:])
	return b
}

// PackAll packs a slice of ProcStatus records back-to-back, as returned
// by PROC_STATUS for "all processes" queries.
func PackAll(all []ProcStatus) []byte {
	out := make([]byte, 0, RecordSize*len(all))
	for i := range all {
		out = append(out, all[i].Bytes()...)
	}
	return out
}
