package occurrence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lifeplanner-api/internal/models"

	"go.uber.org/zap"
)

// VirtualOccurrence is a projected next occurrence that has not been spawned.
type VirtualOccurrence struct {
	SourceID           uint                  `json:"source_id"`
	SeriesID           *string               `json:"series_id"`
	Title              string                `json:"title"`
	Description        string                `json:"description"`
	AssignedDate       string                `json:"assigned_date"`
	DueDate            string                `json:"due_date"`
	RecurrenceType     models.RecurrenceType `json:"recurrence_type"`
	RecurrenceInterval int                   `json:"recurrence_interval"`
	Virtual            bool                  `json:"virtual"`
}

// Calendar is the server-side calendar projection for a date range.
type Calendar struct {
	From    string              `json:"from"`
	To      string              `json:"to"`
	Tasks   []models.Task       `json:"tasks"`
	Virtual []VirtualOccurrence `json:"virtual"`
}

// Calendar lists the stored tasks assigned within [from, to] and adds one
// virtual occurrence per completed series that has no open member, rolled
// forward so it never lands before today.
func (r *Reconciler) Calendar(ctx context.Context, from, to time.Time) (*Calendar, error) {
	if to.Before(from) {
		return nil, wrap(ErrInvalidDate, fmt.Errorf("range ends before it starts"))
	}
	fromKey, toKey := r.calc.FormatDate(from), r.calc.FormatDate(to)
	db := r.db.WithContext(ctx)

	cal := &Calendar{From: fromKey, To: toKey, Tasks: []models.Task{}, Virtual: []VirtualOccurrence{}}
	if err := db.Where("assigned_date >= ? AND assigned_date <= ?", fromKey, toKey).
		Order("assigned_date ASC, is_complete ASC, id ASC").
		Find(&cal.Tasks).Error; err != nil {
		return nil, fmt.Errorf("load calendar tasks: %w", err)
	}

	var recurring []models.Task
	if err := db.Where("recurrence_type <> ? AND recurrence_type <> ?", models.RecurrenceNone, "").
		Order("due_date DESC, id DESC").
		Find(&recurring).Error; err != nil {
		return nil, fmt.Errorf("load recurring tasks: %w", err)
	}

	today := r.Today()
	seen := make(map[string]struct{})
	for i := range recurring {
		t := &recurring[i]
		if !t.IsComplete || t.DueDate == nil || !t.RecurrenceType.Valid() {
			continue
		}
		// rows are newest first, so the first completed member wins
		key := SeriesKey(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if hasOpenMember(recurring, t) {
			continue
		}

		v, err := r.project(t, today)
		if err != nil {
			r.logger.Warn("skipping calendar projection", zap.Uint("task_id", t.ID), zap.Error(err))
			continue
		}
		if v.DueDate >= fromKey && v.DueDate <= toKey {
			cal.Virtual = append(cal.Virtual, *v)
		}
	}
	sort.SliceStable(cal.Virtual, func(i, j int) bool { return cal.Virtual[i].DueDate < cal.Virtual[j].DueDate })
	return cal, nil
}

func (r *Reconciler) project(t *models.Task, today time.Time) (*VirtualOccurrence, error) {
	due, err := r.calc.ParseDate(*t.DueDate)
	if err != nil {
		return nil, err
	}
	next, err := r.calc.NextDueDate(&due, t.RecurrenceType, t.Interval(), nil)
	if err != nil {
		return nil, err
	}
	if next, err = r.calc.RollForward(next, today, t.RecurrenceType, t.Interval()); err != nil {
		return nil, err
	}
	date := r.calc.FormatDate(next)
	return &VirtualOccurrence{
		SourceID:           t.ID,
		SeriesID:           t.SeriesID,
		Title:              t.Title,
		Description:        t.Description,
		AssignedDate:       date,
		DueDate:            date,
		RecurrenceType:     t.RecurrenceType,
		RecurrenceInterval: t.Interval(),
		Virtual:            true,
	}, nil
}

func hasOpenMember(tasks []models.Task, t *models.Task) bool {
	for i := range tasks {
		o := &tasks[i]
		if o.ID != t.ID && !o.IsComplete && sameSeries(t, o) {
			return true
		}
	}
	return false
}
