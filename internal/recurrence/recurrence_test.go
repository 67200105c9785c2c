package recurrence

import (
	"errors"
	"testing"
	"time"

	"lifeplanner-api/internal/models"

	"github.com/stretchr/testify/require"
)

var testLoc = time.FixedZone("test", -5*60*60)

func mustDate(t *testing.T, c *Calculator, s string) time.Time {
	t.Helper()
	d, err := c.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestNextDueDate(t *testing.T) {
	c := New(testLoc, 9)

	cases := []struct {
		name     string
		due      string
		typ      models.RecurrenceType
		interval int
		want     string
	}{
		{"daily", "2024-03-10", models.RecurrenceDaily, 1, "2024-03-11"},
		{"daily across month", "2024-02-28", models.RecurrenceDaily, 2, "2024-03-01"},
		{"weekly every two", "2024-03-01", models.RecurrenceWeekly, 2, "2024-03-15"},
		{"monthly simple", "2024-03-15", models.RecurrenceMonthly, 1, "2024-04-15"},
		{"monthly clamps jan 31 in leap year", "2024-01-31", models.RecurrenceMonthly, 1, "2024-02-29"},
		{"monthly clamps jan 31", "2023-01-31", models.RecurrenceMonthly, 1, "2023-02-28"},
		{"monthly clamps to 30 day month", "2024-03-31", models.RecurrenceMonthly, 1, "2024-04-30"},
		{"monthly across year", "2024-11-30", models.RecurrenceMonthly, 3, "2025-02-28"},
		{"yearly", "2024-06-01", models.RecurrenceYearly, 1, "2025-06-01"},
		{"yearly leap day clamps", "2024-02-29", models.RecurrenceYearly, 1, "2025-02-28"},
		{"yearly leap day every four", "2024-02-29", models.RecurrenceYearly, 4, "2028-02-29"},
		{"zero interval means one", "2024-03-10", models.RecurrenceDaily, 0, "2024-03-11"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due := mustDate(t, c, tc.due)
			got, err := c.NextDueDate(&due, tc.typ, tc.interval, nil)
			require.NoError(t, err)
			require.Equal(t, tc.want, c.FormatDate(got))
		})
	}
}

func TestNextDueDate_BaseDateOverridesDueDate(t *testing.T) {
	c := New(testLoc, 9)
	due := mustDate(t, c, "2024-01-01")
	base := mustDate(t, c, "2024-05-20")

	got, err := c.NextDueDate(&due, models.RecurrenceWeekly, 1, &base)
	require.NoError(t, err)
	require.Equal(t, "2024-05-27", c.FormatDate(got))

	got, err = c.NextDueDate(nil, models.RecurrenceDaily, 1, &base)
	require.NoError(t, err)
	require.Equal(t, "2024-05-21", c.FormatDate(got))
}

func TestNextDueDate_Errors(t *testing.T) {
	c := New(testLoc, 9)

	_, err := c.NextDueDate(nil, models.RecurrenceDaily, 1, nil)
	require.ErrorIs(t, err, ErrMissingDueDate)

	due := mustDate(t, c, "2024-03-10")
	for _, typ := range []models.RecurrenceType{models.RecurrenceNone, "hourly", ""} {
		_, err = c.NextDueDate(&due, typ, 1, nil)
		require.True(t, errors.Is(err, ErrInvalidRecurrenceType), "type %q", typ)
	}
}

func TestNextDueDate_AlwaysAfterAnchorAndDeterministic(t *testing.T) {
	c := New(testLoc, 9)
	types := []models.RecurrenceType{
		models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly,
	}
	start := mustDate(t, c, "2023-12-25")

	for day := 0; day < 800; day += 7 {
		anchor := start.AddDate(0, 0, day)
		for _, typ := range types {
			for interval := 1; interval <= 3; interval++ {
				first, err := c.NextDueDate(&anchor, typ, interval, nil)
				require.NoError(t, err)
				require.True(t, first.After(anchor), "%s x%d from %s", typ, interval, c.FormatDate(anchor))

				second, err := c.NextDueDate(&anchor, typ, interval, nil)
				require.NoError(t, err)
				require.True(t, first.Equal(second))
			}
		}
	}
}

func TestNextReminder(t *testing.T) {
	c := New(testLoc, 9)
	oldDue := mustDate(t, c, "2024-03-10")
	newDue := mustDate(t, c, "2024-03-17")

	require.Nil(t, c.NextReminder(&oldDue, nil, newDue, models.ReminderNone))
	require.Nil(t, c.NextReminder(&oldDue, nil, newDue, ""))
	require.Nil(t, c.NextReminder(&oldDue, nil, newDue, "fortnight-before"))

	same := c.NextReminder(&oldDue, nil, newDue, models.ReminderSameDay)
	require.NotNil(t, same)
	require.Equal(t, time.Date(2024, 3, 17, 9, 0, 0, 0, testLoc), *same)

	dayBefore := c.NextReminder(&oldDue, nil, newDue, models.ReminderDayBefore)
	require.NotNil(t, dayBefore)
	require.Equal(t, time.Date(2024, 3, 16, 9, 0, 0, 0, testLoc), *dayBefore)

	weekBefore := c.NextReminder(&oldDue, nil, newDue, models.ReminderWeekBefore)
	require.NotNil(t, weekBefore)
	require.Equal(t, time.Date(2024, 3, 10, 9, 0, 0, 0, testLoc), *weekBefore)
}

func TestNextReminder_CustomPreservesOffset(t *testing.T) {
	c := New(testLoc, 9)
	oldDue := mustDate(t, c, "2024-03-10")
	offsets := []time.Duration{
		0,
		90 * time.Minute,
		26*time.Hour + 15*time.Minute,
		-8 * time.Hour,
	}

	for _, off := range offsets {
		oldReminder := oldDue.Add(-off)
		newDue := mustDate(t, c, "2024-04-10")
		got := c.NextReminder(&oldDue, &oldReminder, newDue, models.ReminderCustom)
		require.NotNil(t, got)
		require.Equal(t, oldDue.Sub(oldReminder), newDue.Sub(*got))
	}

	newDue := mustDate(t, c, "2024-04-10")
	require.Nil(t, c.NextReminder(&oldDue, nil, newDue, models.ReminderCustom))
	reminder := oldDue.Add(-time.Hour)
	require.Nil(t, c.NextReminder(nil, &reminder, newDue, models.ReminderCustom))
}

func TestParseDate(t *testing.T) {
	c := New(testLoc, 9)

	d, err := c.ParseDate("2024-03-10T00:00:00.000Z")
	require.NoError(t, err)
	require.Equal(t, "2024-03-10", c.FormatDate(d))

	_, err = c.ParseDate("10/03/2024")
	require.Error(t, err)

	p, err := c.ParseDatePtr(nil)
	require.NoError(t, err)
	require.Nil(t, p)

	blank := "  "
	p, err = c.ParseDatePtr(&blank)
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil, 42)
	require.Equal(t, time.Local, c.Location)
	require.Equal(t, DefaultReminderHour, c.ReminderHour)
}
