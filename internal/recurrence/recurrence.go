// Package recurrence computes due dates and reminder times for repeating tasks.
// Everything here is pure: no storage, no wall clock.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"lifeplanner-api/internal/models"
)

var (
	// ErrMissingDueDate is returned when neither a due date nor a base date anchors the series.
	ErrMissingDueDate = errors.New("recurring task has no due date")
	// ErrInvalidRecurrenceType is returned for anything other than daily, weekly, monthly or yearly.
	ErrInvalidRecurrenceType = errors.New("invalid recurrence type")
)

// DefaultReminderHour is the local hour used by same-day, day-before and week-before reminders.
const DefaultReminderHour = 9

// Calculator advances recurring tasks. Dates are midnight in Location.
type Calculator struct {
	Location     *time.Location
	ReminderHour int
}

// New returns a Calculator for loc. A nil loc means time.Local.
func New(loc *time.Location, reminderHour int) *Calculator {
	if loc == nil {
		loc = time.Local
	}
	if reminderHour < 0 || reminderHour > 23 {
		reminderHour = DefaultReminderHour
	}
	return &Calculator{Location: loc, ReminderHour: reminderHour}
}

// ParseDate reads a calendar date. Full RFC3339 timestamps are accepted and
// truncated to their date part, matching how the tasks table was historically filled.
func (c *Calculator) ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(models.DateLayout) && s[len(models.DateLayout)] == 'T' {
		s = s[:len(models.DateLayout)]
	}
	t, err := time.ParseInLocation(models.DateLayout, s, c.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseDatePtr parses an optional date column.
func (c *Calculator) ParseDatePtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := c.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatDate renders t as a calendar date in the calculator's location.
func (c *Calculator) FormatDate(t time.Time) string {
	return t.In(c.Location).Format(models.DateLayout)
}

// Today returns midnight of now's date in the calculator's location.
func (c *Calculator) Today(now time.Time) time.Time {
	return c.Midnight(now)
}

// Midnight truncates t to the start of its day in the calculator's location.
func (c *Calculator) Midnight(t time.Time) time.Time {
	y, m, d := t.In(c.Location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// NextDueDate advances the anchor by one step of interval units. The anchor is
// base when given, otherwise current. Month and year steps clamp to the last
// day of the target month: Jan 31 + 1 month is Feb 29 in a leap year.
func (c *Calculator) NextDueDate(current *time.Time, typ models.RecurrenceType, interval int, base *time.Time) (time.Time, error) {
	anchor := current
	if base != nil {
		anchor = base
	}
	if anchor == nil {
		return time.Time{}, ErrMissingDueDate
	}
	return c.step(*anchor, typ, interval)
}

func (c *Calculator) step(anchor time.Time, typ models.RecurrenceType, interval int) (time.Time, error) {
	if interval < 1 {
		interval = 1
	}
	anchor = anchor.In(c.Location)
	switch typ {
	case models.RecurrenceDaily:
		return anchor.AddDate(0, 0, interval), nil
	case models.RecurrenceWeekly:
		return anchor.AddDate(0, 0, 7*interval), nil
	case models.RecurrenceMonthly:
		return addMonthsClamped(anchor, interval), nil
	case models.RecurrenceYearly:
		return addMonthsClamped(anchor, 12*interval), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, typ)
	}
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	idx := int(m) - 1 + months
	y += idx / 12
	idx %= 12
	if idx < 0 {
		idx += 12
		y--
	}
	target := time.Month(idx + 1)
	if last := daysIn(y, target, t.Location()); d > last {
		d = last
	}
	return time.Date(y, target, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// NextReminder computes the reminder for the occurrence due on newDue.
// It returns nil for none, for unknown reminder types, and for custom
// reminders whose previous offset cannot be determined.
func (c *Calculator) NextReminder(oldDue, oldReminder *time.Time, newDue time.Time, typ models.ReminderType) *time.Time {
	var r time.Time
	switch typ {
	case models.ReminderCustom:
		if oldDue == nil || oldReminder == nil {
			return nil
		}
		r = newDue.Add(-oldDue.Sub(*oldReminder))
	case models.ReminderSameDay:
		r = c.atReminderHour(newDue)
	case models.ReminderDayBefore:
		r = c.atReminderHour(newDue.AddDate(0, 0, -1))
	case models.ReminderWeekBefore:
		r = c.atReminderHour(newDue.AddDate(0, 0, -7))
	default:
		return nil
	}
	return &r
}

func (c *Calculator) atReminderHour(day time.Time) time.Time {
	y, m, d := day.In(c.Location).Date()
	return time.Date(y, m, d, c.ReminderHour, 0, 0, 0, c.Location)
}
