package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	b, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), b)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sos.toml")
	want := Default()
	want.Memory.FrameCount = 123
	want.Swap.Slots = 7

	require.NoError(t, Save(path, want))
	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

// boot.toml fixtures for a handful of partial configs, bundled as one
// txtar archive so each case's raw TOML lives next to the others
// instead of as scattered string literals.
var bootFixtures = []byte(`
-- minimal.toml --
[memory]
frame_count = 4096

-- swap-only.toml --
[swap]
path = "custom.swap"
slots = 256

-- full.toml --
[memory]
frame_count = 8192

[swap]
path = "other.swap"
slots = 512

[limits]
max_procs = 64
max_frames = 8192
max_swap_slots = 512

[log]
level = "debug"
json = true
`)

func TestLoadPartialFixturesFillDefaults(t *testing.T) {
	arc := txtar.Parse(bootFixtures)
	require.Len(t, arc.Files, 3)

	dir := t.TempDir()
	byName := make(map[string]string)
	for _, f := range arc.Files {
		p := filepath.Join(dir, f.Name)
		require.NoError(t, os.WriteFile(p, f.Data, 0o644))
		byName[f.Name] = p
	}

	minimal, err := Load(byName["minimal.toml"])
	require.NoError(t, err)
	require.Equal(t, 4096, minimal.Memory.FrameCount)
	require.Equal(t, Default().Swap, minimal.Swap) // untouched section keeps defaults

	swapOnly, err := Load(byName["swap-only.toml"])
	require.NoError(t, err)
	require.Equal(t, "custom.swap", swapOnly.Swap.Path)
	require.Equal(t, 256, swapOnly.Swap.Slots)
	require.Equal(t, Default().Memory, swapOnly.Memory)

	full, err := Load(byName["full.toml"])
	require.NoError(t, err)
	require.Equal(t, "debug", full.Log.Level)
	require.True(t, full.Log.JSON)
	require.EqualValues(t, 64, full.Limits.MaxProcs)
}
