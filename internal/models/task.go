package models

import (
	"time"
)

// RecurrenceType represents how often a task repeats
type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Valid reports whether r is one of the known recurrence types.
// The empty string is treated as none.
func (r RecurrenceType) Valid() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// ReminderType represents when a reminder fires relative to the due date
type ReminderType string

const (
	ReminderNone       ReminderType = "none"
	ReminderCustom     ReminderType = "custom"
	ReminderSameDay    ReminderType = "same-day"
	ReminderDayBefore  ReminderType = "day-before"
	ReminderWeekBefore ReminderType = "week-before"
)

// Valid reports whether r is one of the known reminder types.
func (r ReminderType) Valid() bool {
	switch r {
	case "", ReminderNone, ReminderCustom, ReminderSameDay, ReminderDayBefore, ReminderWeekBefore:
		return true
	}
	return false
}

// DateLayout is the storage and wire format of calendar dates.
const DateLayout = "2006-01-02"

// Task represents a task in the system. AssignedDate, DueDate and
// NextOccurrenceDate are calendar dates in DateLayout.
type Task struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	Title              string         `json:"title" gorm:"not null"`
	Description        string         `json:"description"`
	AssignedDate       *string        `json:"assigned_date" gorm:"column:assigned_date;type:varchar(10);index"`
	DueDate            *string        `json:"due_date" gorm:"column:due_date;type:varchar(10);index"`
	ReminderTime       *time.Time     `json:"reminder_time" gorm:"column:reminder_time"`
	ReminderType       ReminderType   `json:"reminder_type" gorm:"column:reminder_type;not null;default:'none'"`
	RecurrenceType     RecurrenceType `json:"recurrence_type" gorm:"column:recurrence_type;not null;default:'none'"`
	RecurrenceInterval int            `json:"recurrence_interval" gorm:"column:recurrence_interval;not null;default:1"`
	SeriesID           *string        `json:"series_id" gorm:"column:series_id;type:varchar(36);index"`
	NextOccurrenceDate *string        `json:"next_occurrence_date" gorm:"column:next_occurrence_date;type:varchar(10)"`
	IsComplete         bool           `json:"is_complete" gorm:"column:is_complete;not null;default:false"`
	ParentTaskID       *uint          `json:"parent_task_id" gorm:"column:parent_task_id;index"`
	IsSubtask          bool           `json:"is_subtask" gorm:"column:is_subtask;not null;default:false"`
	HasSubtasks        bool           `json:"has_subtasks" gorm:"column:has_subtasks;not null;default:false"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Task Model
func (Task) TableName() string {
	return "tasks"
}

// IsRecurring reports whether the task belongs to a repeating series.
func (t *Task) IsRecurring() bool {
	return t.RecurrenceType != "" && t.RecurrenceType != RecurrenceNone
}

// Interval returns the recurrence interval, defaulting to 1.
func (t *Task) Interval() int {
	if t.RecurrenceInterval < 1 {
		return 1
	}
	return t.RecurrenceInterval
}

// StringPtr is a small helper for optional string columns.
func StringPtr(s string) *string {
	return &s
}
