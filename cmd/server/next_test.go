package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextCommand_MonthEnd(t *testing.T) {
	t.Setenv("TZ_NAME", "UTC")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"next", "2024-01-31", "--type", "monthly", "--count", "3", "--rrule"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	// three dates, then the DTSTART and RRULE lines
	require.Len(t, lines, 5)
	require.True(t, strings.HasPrefix(lines[0], "2024-02-29"))
	require.True(t, strings.HasPrefix(lines[2], "2024-04-29"))
	require.True(t, strings.HasPrefix(lines[3], "DTSTART:20240131"))
	require.True(t, strings.HasPrefix(lines[4], "RRULE:"))
	require.Contains(t, lines[4], "FREQ=MONTHLY")
}

func TestNextCommand_RejectsNonRecurringType(t *testing.T) {
	t.Setenv("TZ_NAME", "UTC")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"next", "2024-01-31", "--type", "none", "--rrule=false", "--count", "1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.Error(t, rootCmd.Execute())
}
