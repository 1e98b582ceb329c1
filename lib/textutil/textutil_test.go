package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneOf(t *testing.T) {
	choices := []string{"full", "mono"}

	match, ok := OneOf(" MONO\n", choices)
	require.True(t, ok)
	require.Equal(t, "mono", match)

	_, ok = OneOf("grayscale", choices)
	require.False(t, ok)
}

func TestClosest(t *testing.T) {
	choices := []string{"full", "mono"}

	require.Equal(t, "mono", Closest("mnoo", choices))
	require.Equal(t, "full", Closest("ful", choices))
	require.Equal(t, "", Closest("xyzzy", choices))
}
