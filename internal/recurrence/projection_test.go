package recurrence

import (
	"testing"

	"lifeplanner-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPreview_ChainsLikeSpawns(t *testing.T) {
	c := New(testLoc, 9)
	anchor := mustDate(t, c, "2024-01-31")

	dates, err := c.Preview(anchor, models.RecurrenceMonthly, 1, 3)
	require.NoError(t, err)

	got := make([]string, 0, len(dates))
	for _, d := range dates {
		got = append(got, c.FormatDate(d))
	}
	require.Equal(t, []string{"2024-02-29", "2024-03-29", "2024-04-29"}, got)
}

func TestPreview_InvalidType(t *testing.T) {
	c := New(testLoc, 9)
	anchor := mustDate(t, c, "2024-01-31")
	_, err := c.Preview(anchor, models.RecurrenceNone, 1, 3)
	require.ErrorIs(t, err, ErrInvalidRecurrenceType)
}

func TestRollForward(t *testing.T) {
	c := New(testLoc, 9)
	next := mustDate(t, c, "2024-03-01")
	today := mustDate(t, c, "2024-03-20")

	got, err := c.RollForward(next, today, models.RecurrenceWeekly, 1)
	require.NoError(t, err)
	require.Equal(t, "2024-03-22", c.FormatDate(got))

	// already in the future: unchanged
	got, err = c.RollForward(today, today, models.RecurrenceWeekly, 1)
	require.NoError(t, err)
	require.Equal(t, "2024-03-20", c.FormatDate(got))
}

func TestRRule(t *testing.T) {
	c := New(testLoc, 9)
	start := mustDate(t, c, "2024-03-01")

	s, err := c.RRule(models.RecurrenceWeekly, 2, start)
	require.NoError(t, err)
	require.Contains(t, s, "FREQ=WEEKLY")
	require.Contains(t, s, "INTERVAL=2")

	_, err = c.RRule(models.RecurrenceNone, 1, start)
	require.ErrorIs(t, err, ErrInvalidRecurrenceType)
}
