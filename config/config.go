// Package config is SOS's boot configuration, grounded on dh-cli's config.Config: a flat TOML
// document unmarshalled with pelletier/go-toml/v2, with defaults
// filled in for anything the file omits.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Boot is the top-level sos.toml document.
type Boot struct {
	Memory Memory `toml:"memory,omitempty"`
	Swap   Swap   `toml:"swap,omitempty"`
	Limits Limits `toml:"limits,omitempty"`
	Log    Log    `toml:"log,omitempty"`
	Status Status `toml:"status,omitempty"`
	IPC    IPC    `toml:"ipc,omitempty"`
}

// IPC configures the root task's request-receive endpoint: the Unix
// domain socket clients send syscall and page-fault messages over.
type IPC struct {
	SocketPath string `toml:"socket_path,omitempty"`
}

// Status configures the periodic JSON snapshot sosctl's "watch"
// subcommand polls; it is sos's only channel to an external observer
// since the root task exposes no network surface of its own.
type Status struct {
	Path       string `toml:"path,omitempty"`
	IntervalMs int    `toml:"interval_ms,omitempty"`
}

// Memory configures the frame table.
type Memory struct {
	FrameCount int `toml:"frame_count,omitempty"`
}

// Swap configures the swap store.
type Swap struct {
	Path  string `toml:"path,omitempty"`
	Slots int    `toml:"slots,omitempty"`
}

// Limits configures the system-wide resource caps.
type Limits struct {
	MaxProcs     int64 `toml:"max_procs,omitempty"`
	MaxFrames    int64 `toml:"max_frames,omitempty"`
	MaxSwapSlots int64 `toml:"max_swap_slots,omitempty"`
}

// Log configures the logrus-backed ambient logger.
type Log struct {
	Level string `toml:"level,omitempty"`
	JSON  bool   `toml:"json,omitempty"`
}

// Default returns a Boot configuration with conservative, generously
// sized defaults — enough for sosctl's bundled demo workload without
// ever reading a config file.
func Default() Boot {
	return Boot{
		Memory: Memory{FrameCount: 1 << 16},
		Swap:   Swap{Path: "sos.swap", Slots: 1 << 14},
		Limits: Limits{MaxProcs: 1024, MaxFrames: 1 << 16, MaxSwapSlots: 1 << 14},
		Log:    Log{Level: "info"},
		Status: Status{Path: "sos.status.json", IntervalMs: 1000},
		IPC:    IPC{SocketPath: "sos.sock"},
	}
}

// Load reads and parses a sos.toml file at path, filling any omitted
// field from Default(). A missing file is not an error: it returns
// Default() unchanged, same as dh-cli's Load treating ENOENT as "use
// defaults" rather than failing boot.
func Load(path string) (Boot, error) {
	b := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return Boot{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &b); err != nil {
		return Boot{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return b, nil
}

// Save writes b to path as TOML, used by sosctl's "config init".
func Save(path string, b Boot) error {
	data, err := toml.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
