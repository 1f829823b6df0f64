package statsd

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncAndSnapshot(t *testing.T) {
	c := &Counters{}
	c.Inc(&c.PageFaults)
	c.Inc(&c.PageFaults)
	atomic.AddInt64(&c.Evictions, 5)

	snap := c.Snapshot()
	require.EqualValues(t, 2, snap.PageFaults)
	require.EqualValues(t, 5, snap.Evictions)
	require.EqualValues(t, 0, snap.SyscallsHandled)
}
