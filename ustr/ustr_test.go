package ustr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromStringRoundTrip(t *testing.T) {
	u := FromString("/bin/init")
	require.Equal(t, "/bin/init", u.String())
	require.Equal(t, len("/bin/init"), u.Len())
	require.True(t, u.Valid())
}

func TestTruncation(t *testing.T) {
	long := strings.Repeat("a", MaxLen+50)
	u := FromString(long)
	require.Equal(t, MaxLen-1, u.Len())
}

func TestEmptyIsInvalid(t *testing.T) {
	u := FromString("")
	require.False(t, u.Valid())
}
