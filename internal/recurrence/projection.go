package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"lifeplanner-api/internal/models"
)

// maxRollForward bounds RollForward for series that drifted far into the past.
const maxRollForward = 10000

// Preview returns the next count due dates after anchor, each computed from the
// previous one exactly as successive spawns would compute them.
func (c *Calculator) Preview(anchor time.Time, typ models.RecurrenceType, interval, count int) ([]time.Time, error) {
	out := make([]time.Time, 0, count)
	cur := anchor
	for i := 0; i < count; i++ {
		next, err := c.step(cur, typ, interval)
		if err != nil {
			return nil, err
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}

// RollForward steps next forward until it is on or after today.
// The calendar uses it so a virtual occurrence never lands in the past.
func (c *Calculator) RollForward(next, today time.Time, typ models.RecurrenceType, interval int) (time.Time, error) {
	for i := 0; next.Before(today); i++ {
		if i >= maxRollForward {
			return time.Time{}, fmt.Errorf("roll forward: no occurrence after %d steps", maxRollForward)
		}
		var err error
		if next, err = c.step(next, typ, interval); err != nil {
			return time.Time{}, err
		}
	}
	return next, nil
}

var frequencies = map[models.RecurrenceType]rrule.Frequency{
	models.RecurrenceDaily:   rrule.DAILY,
	models.RecurrenceWeekly:  rrule.WEEKLY,
	models.RecurrenceMonthly: rrule.MONTHLY,
	models.RecurrenceYearly:  rrule.YEARLY,
}

// RRule renders the series as an RFC 5545 rule starting at dtstart, for calendar export.
// The result is two lines: DTSTART then RRULE.
// RFC 5545 skips months lacking the start day, so monthly series anchored after
// the 28th export a rule that diverges from the clamped dates this package produces.
func (c *Calculator) RRule(typ models.RecurrenceType, interval int, dtstart time.Time) (string, error) {
	freq, ok := frequencies[typ]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrenceType, typ)
	}
	if interval < 1 {
		interval = 1
	}
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     freq,
		Interval: interval,
		Dtstart:  dtstart.In(c.Location),
	})
	if err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}
	return rule.String(), nil
}
