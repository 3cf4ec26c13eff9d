package cmds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLineTimestamp(t *testing.T) {
	at, ok := lineTimestamp("2026-08-26T10:00:00Z something happened")
	require.True(t, ok)
	require.Equal(t, 2026, at.Year())

	at, ok = lineTimestamp("2026-08-26 10:00:00 something happened")
	require.True(t, ok)
	require.Equal(t, 26, at.Day())

	_, ok = lineTimestamp("plain text with no date prefix whatsoever")
	require.False(t, ok)

	_, ok = lineTimestamp("")
	require.False(t, ok)
}

func TestFilterSince(t *testing.T) {
	lines := []string{
		"2026-08-26T09:00:00Z early",
		"2026-08-26T11:00:00Z late",
		"no timestamp here at all honestly",
	}
	cutoff := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)

	out := filterSince(lines, cutoff)
	require.Equal(t, []string{
		"2026-08-26T11:00:00Z late",
		"no timestamp here at all honestly",
	}, out)

	// Zero cutoff keeps everything.
	require.Equal(t, lines, filterSince(lines, time.Time{}))
}
