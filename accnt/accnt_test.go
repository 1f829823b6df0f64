package accnt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddHandleAndWaitAccumulate(t *testing.T) {
	a := &Accnt{}
	a.AddHandle(5 * time.Millisecond)
	a.AddHandle(2 * time.Millisecond)
	a.AddWait(10 * time.Millisecond)

	handle, wait := a.Snapshot()
	require.Equal(t, 7*time.Millisecond, handle)
	require.Equal(t, 10*time.Millisecond, wait)
}
