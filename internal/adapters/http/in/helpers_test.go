package in

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"a", "b", "c"}, splitCSV("a, b ,c"))
	require.Nil(t, splitCSV(""))
	require.Nil(t, splitCSV("   "))
}

func TestParseUintQuery(t *testing.T) {
	require.EqualValues(t, 20, parseUintQuery("", 20))
	require.EqualValues(t, 20, parseUintQuery("not-a-number", 20))
	require.EqualValues(t, 5, parseUintQuery("5", 20))
}
