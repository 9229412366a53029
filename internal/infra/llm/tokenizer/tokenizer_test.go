package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCount(t *testing.T) {
	counter, err := New("")
	if err != nil {
		t.Skipf("encoding unavailable offline: %v", err)
	}

	require.Zero(t, counter.Count(""))
	short := counter.Count("timestamp,usage\n2025-01-01,10\n")
	long := counter.Count("timestamp,usage\n2025-01-01,10\n2025-01-02,11\n2025-01-03,12\n")
	require.Positive(t, short)
	require.Greater(t, long, short)
}
