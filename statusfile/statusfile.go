// Package statusfile is the ambient observability channel between a
// running sos instance and the separate sosctl process: since the root
// task exposes no network listener of its own, sos periodically writes a JSON snapshot
// of its counters to disk, and sosctl polls that same file.
package statusfile

import (
	"encoding/json"
	"os"
	"time"

	"sos/statsd"
)

// Snapshot is one point-in-time view of a running instance.
type Snapshot struct {
	Time           time.Time `json:"time"`
	Procs          int       `json:"procs"`
	FramesFree     int       `json:"frames_free"`
	FramesTotal    int       `json:"frames_total"`
	SwapFree       int       `json:"swap_free"`
	PageFaults     int64     `json:"page_faults"`
	PageIns        int64     `json:"page_ins_from_swap"`
	PageOuts       int64     `json:"page_outs_to_swap"`
	Evictions      int64     `json:"evictions"`
	SyscallsServed int64     `json:"syscalls_handled"`
}

// Write atomically overwrites path with snap's JSON encoding. The
// write-to-temp-then-rename avoids sosctl ever observing a half-written
// file mid-poll.
func Write(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads the most recently written Snapshot at path.
func Read(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

// FromCounters builds a Snapshot from a live counters block plus the
// gauge values the caller already has on hand (statsd only tracks
// cumulative counters, not point-in-time gauges).
func FromCounters(c statsd.Counters, procs, framesFree, framesTotal, swapFree int) Snapshot {
	s := c.Snapshot()
	return Snapshot{
		Procs:          procs,
		FramesFree:     framesFree,
		FramesTotal:    framesTotal,
		SwapFree:       swapFree,
		PageFaults:     s.PageFaults,
		PageIns:        s.PageInsFromSwap,
		PageOuts:       s.PageOutsToSwap,
		Evictions:      s.Evictions,
		SyscallsServed: s.SyscallsHandled,
	}
}
