package main

import (
	"fmt"

	"lifeplanner-api/internal/config"
	"lifeplanner-api/internal/models"
	"lifeplanner-api/internal/recurrence"

	"github.com/spf13/cobra"
)

var (
	nextType     string
	nextInterval int
	nextCount    int
	nextRRule    bool
)

// nextCmd runs the date engine without a database.
var nextCmd = &cobra.Command{
	Use:   "next <due-date>",
	Short: "Print the next due dates of a series",
	Long: `Print the due dates that successive completions of a series would spawn.

Examples:
  # Month-end clamping
  lifeplanner next 2024-01-31 --type monthly --count 3

  # Every other week, with the RFC 5545 rule (a DTSTART line and an RRULE line)
  lifeplanner next 2024-03-01 --type weekly --interval 2 --rrule`,
	Args: cobra.ExactArgs(1),
	RunE: runNext,
}

func init() {
	nextCmd.Flags().StringVar(&nextType, "type", string(models.RecurrenceDaily), "recurrence type: daily, weekly, monthly or yearly")
	nextCmd.Flags().IntVar(&nextInterval, "interval", 1, "recurrence interval")
	nextCmd.Flags().IntVar(&nextCount, "count", 1, "number of dates to print")
	nextCmd.Flags().BoolVar(&nextRRule, "rrule", false, "also print the DTSTART and RRULE lines for calendar export")
}

func runNext(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if nextInterval < 1 {
		return fmt.Errorf("--interval must be at least 1")
	}
	if nextCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	calc := recurrence.New(cfg.Schedule.Location, cfg.Schedule.ReminderHour)
	anchor, err := calc.ParseDate(args[0])
	if err != nil {
		return err
	}
	typ := models.RecurrenceType(nextType)

	dates, err := calc.Preview(anchor, typ, nextInterval, nextCount)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, d := range dates {
		fmt.Fprintf(out, "%s  %s\n", calc.FormatDate(d), d.Weekday().String()[:3])
	}
	if nextRRule {
		rule, err := calc.RRule(typ, nextInterval, anchor)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, rule)
	}
	return nil
}
