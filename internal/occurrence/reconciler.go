// Package occurrence spawns, guards and deletes the occurrences of recurring task series.
package occurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lifeplanner-api/internal/metrics"
	"lifeplanner-api/internal/models"
	"lifeplanner-api/internal/recurrence"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Trigger records what asked for a spawn.
type Trigger string

const (
	TriggerCompletion Trigger = "completion"
	TriggerExplicit   Trigger = "explicit"
	TriggerAdjust     Trigger = "adjust"
)

// SpawnResult is the outcome of a spawn request. Created is false when the
// duplicate guard found an open occurrence and Task is that occurrence.
// Moved reports that an adjust moved that occurrence forward onto today's cycle.
type SpawnResult struct {
	Task    *models.Task
	Created bool
	Moved   bool
}

// CompletionResult is the outcome of a completion toggle.
type CompletionResult struct {
	Task    *models.Task
	Spawned *SpawnResult
	// SpawnErr is set when a requested spawn failed; the completion itself stands.
	SpawnErr error
}

// CompletionOptions tunes SetCompletion.
type CompletionOptions struct {
	CreateNext      bool
	CascadeSubtasks bool
}

// Reconciler turns completions into next occurrences.
type Reconciler struct {
	db      *gorm.DB
	calc    *recurrence.Calculator
	locks   *SeriesLocks
	parents ParentStatusUpdater
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the wall clock used for "today".
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithSeriesLocks shares a lock table, e.g. with the janitor.
func WithSeriesLocks(l *SeriesLocks) Option {
	return func(r *Reconciler) { r.locks = l }
}

// WithParentUpdater replaces the parent-completion hook.
func WithParentUpdater(p ParentStatusUpdater) Option {
	return func(r *Reconciler) { r.parents = p }
}

// NewReconciler wires a Reconciler over db.
func NewReconciler(db *gorm.DB, calc *recurrence.Calculator, logger *zap.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Reconciler{
		db:     db,
		calc:   calc,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.locks == nil {
		r.locks = NewSeriesLocks(0)
	}
	if r.parents == nil {
		r.parents = NewGormParentUpdater(db)
	}
	return r
}

// Calculator exposes the date engine the reconciler spawns with.
func (r *Reconciler) Calculator() *recurrence.Calculator {
	return r.calc
}

// Today returns the reconciler's notion of today's date.
func (r *Reconciler) Today() time.Time {
	return r.calc.Today(r.now())
}

// CreateNextOccurrence spawns the occurrence that follows taskID.
// base, when non-nil, replaces the task's due date as the anchor.
func (r *Reconciler) CreateNextOccurrence(ctx context.Context, taskID uint, base *time.Time) (*SpawnResult, error) {
	return r.spawn(ctx, taskID, base, TriggerExplicit)
}

// AdjustToToday spawns the next occurrence anchored on today instead of
// the task's due date, catching up a series that drifted into the past.
// An open occurrence still due before today is moved onto that date
// instead of being returned as is.
func (r *Reconciler) AdjustToToday(ctx context.Context, taskID uint) (*SpawnResult, error) {
	today := r.Today()
	return r.spawn(ctx, taskID, &today, TriggerAdjust)
}

// CompleteAndAdvance marks taskID complete and, when asked, spawns its next occurrence.
func (r *Reconciler) CompleteAndAdvance(ctx context.Context, taskID uint, wantsNextOccurrence bool) (*CompletionResult, error) {
	return r.SetCompletion(ctx, taskID, true, CompletionOptions{CreateNext: wantsNextOccurrence})
}

// SetCompletion persists the completion state. The write is the primary
// effect: spawning and the parent refresh that follow are best-effort and
// never turn a successful write into an error.
func (r *Reconciler) SetCompletion(ctx context.Context, taskID uint, complete bool, opts CompletionOptions) (*CompletionResult, error) {
	var task models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, taskID, &task); err != nil {
			return err
		}
		if err := tx.Model(&task).Update("is_complete", complete).Error; err != nil {
			return fmt.Errorf("update completion: %w", err)
		}
		if opts.CascadeSubtasks && task.HasSubtasks {
			if err := tx.Model(&models.Task{}).
				Where("parent_task_id = ?", task.ID).
				Update("is_complete", complete).Error; err != nil {
				return fmt.Errorf("cascade completion to subtasks: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	task.IsComplete = complete

	res := &CompletionResult{Task: &task}
	log := r.logger.With(zap.Uint("task_id", task.ID))

	if complete && opts.CreateNext && task.IsRecurring() {
		spawned, err := r.spawn(ctx, task.ID, nil, TriggerCompletion)
		if err != nil {
			log.Warn("next occurrence not created", zap.Error(err))
			metrics.RecordAdvisoryFailure(metrics.AdvisorySpawn)
			res.SpawnErr = err
		} else {
			res.Spawned = spawned
			if spawned.Task.DueDate != nil {
				task.NextOccurrenceDate = spawned.Task.DueDate
			}
		}
	}

	if task.IsSubtask && task.ParentTaskID != nil {
		if err := r.parents.RefreshParent(ctx, *task.ParentTaskID); err != nil {
			log.Warn("parent completion refresh failed", zap.Uint("parent_id", *task.ParentTaskID), zap.Error(err))
			metrics.RecordAdvisoryFailure(metrics.AdvisoryParentStatus)
		}
	}

	return res, nil
}

func (r *Reconciler) spawn(ctx context.Context, taskID uint, base *time.Time, trigger Trigger) (*SpawnResult, error) {
	var task models.Task
	if err := loadTask(r.db.WithContext(ctx), taskID, &task); err != nil {
		return nil, err
	}
	if err := r.checkSpawnable(&task, base); err != nil {
		return nil, err
	}

	unlock := r.locks.Lock(SeriesKey(&task))
	defer unlock()

	log := r.logger.With(zap.Uint("task_id", task.ID), zap.String("trigger", string(trigger)))
	var res *SpawnResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-read under the series lock; a concurrent spawn may have just committed.
		if err := loadTask(tx, taskID, &task); err != nil {
			return err
		}
		if err := r.checkSpawnable(&task, base); err != nil {
			return err
		}

		var existing models.Task
		err := openMembers(tx, &task).Order("due_date ASC, id ASC").First(&existing).Error
		switch {
		case err == nil:
			if trigger == TriggerAdjust && base != nil && dueBefore(&existing, r.calc.FormatDate(*base)) {
				if err := r.moveOnto(tx, &task, &existing, base); err != nil {
					return err
				}
				log.Info("open occurrence moved forward",
					zap.Uint("existing_id", existing.ID), zap.String("due_date", *existing.DueDate))
				r.annotate(tx, &task, &existing, log)
				res = &SpawnResult{Task: &existing, Moved: true}
				return nil
			}
			log.Info("open occurrence already exists", zap.Uint("existing_id", existing.ID))
			metrics.DuplicatesSuppressed.Inc()
			res = &SpawnResult{Task: &existing}
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("check open occurrences: %w", err)
		}

		next, err := r.buildNext(&task, base)
		if err != nil {
			return err
		}
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("insert occurrence: %w", err)
		}
		res = &SpawnResult{Task: next, Created: true}
		r.annotate(tx, &task, next, log)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Created {
		metrics.OccurrencesSpawned.WithLabelValues(string(trigger)).Inc()
		log.Info("occurrence spawned",
			zap.Uint("spawned_id", res.Task.ID),
			zap.String("due_date", *res.Task.DueDate),
			zap.Stringp("series_id", res.Task.SeriesID))
	}
	return res, nil
}

// annotate points source at next. It runs in a savepoint: a failure rolls
// back alone and the surrounding spawn still commits.
func (r *Reconciler) annotate(tx *gorm.DB, source, next *models.Task, log *zap.Logger) {
	updates := map[string]any{"next_occurrence_date": *next.DueDate}
	if source.SeriesID == nil && next.SeriesID != nil {
		updates["series_id"] = *next.SeriesID
	}
	if err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Model(&models.Task{}).Where("id = ?", source.ID).Updates(updates).Error
	}); err != nil {
		log.Warn("next occurrence annotation failed", zap.Uint("next_id", next.ID), zap.Error(err))
		metrics.RecordAdvisoryFailure(metrics.AdvisoryNextOccurrenceDate)
	}
}

// moveOnto reschedules the open occurrence to the date a spawn from base
// would get, carrying the reminder along.
func (r *Reconciler) moveOnto(tx *gorm.DB, source, open *models.Task, base *time.Time) error {
	next, err := r.buildNext(source, base)
	if err != nil {
		return err
	}
	updates := map[string]any{
		"assigned_date": *next.DueDate,
		"due_date":      *next.DueDate,
		"reminder_time": next.ReminderTime,
	}
	if open.SeriesID == nil {
		updates["series_id"] = *next.SeriesID
		open.SeriesID = next.SeriesID
	}
	if err := tx.Model(&models.Task{}).Where("id = ?", open.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("move occurrence %d: %w", open.ID, err)
	}
	open.AssignedDate = next.DueDate
	open.DueDate = next.DueDate
	open.ReminderTime = next.ReminderTime
	return nil
}

func dueBefore(t *models.Task, date string) bool {
	return t.DueDate == nil || *t.DueDate == "" || *t.DueDate < date
}

func (r *Reconciler) checkSpawnable(task *models.Task, base *time.Time) error {
	if !task.IsRecurring() {
		return ErrNotRecurring
	}
	if !task.RecurrenceType.Valid() {
		return wrap(ErrInvalidRecurrenceType, fmt.Errorf("%q", task.RecurrenceType))
	}
	if base == nil && (task.DueDate == nil || *task.DueDate == "") {
		return ErrMissingDueDate
	}
	return nil
}

// buildNext computes the row that follows task. It copies title,
// description, reminder type and recurrence settings.
func (r *Reconciler) buildNext(task *models.Task, base *time.Time) (*models.Task, error) {
	due, err := r.calc.ParseDatePtr(task.DueDate)
	if err != nil {
		return nil, wrap(ErrInvalidDate, err)
	}
	nextDue, err := r.calc.NextDueDate(due, task.RecurrenceType, task.Interval(), base)
	switch {
	case errors.Is(err, recurrence.ErrMissingDueDate):
		return nil, wrap(ErrMissingDueDate, err)
	case errors.Is(err, recurrence.ErrInvalidRecurrenceType):
		return nil, wrap(ErrInvalidRecurrenceType, err)
	case err != nil:
		return nil, err
	}

	if !task.ReminderType.Valid() {
		r.logger.Warn("unknown reminder type, next occurrence gets no reminder",
			zap.Uint("task_id", task.ID), zap.String("reminder_type", string(task.ReminderType)))
	}
	reminder := r.calc.NextReminder(due, task.ReminderTime, nextDue, task.ReminderType)

	seriesID := task.SeriesID
	if seriesID == nil {
		seriesID = models.StringPtr(uuid.NewString())
	}

	date := r.calc.FormatDate(nextDue)
	return &models.Task{
		Title:              task.Title,
		Description:        task.Description,
		AssignedDate:       models.StringPtr(date),
		DueDate:            models.StringPtr(date),
		ReminderTime:       reminder,
		ReminderType:       task.ReminderType,
		RecurrenceType:     task.RecurrenceType,
		RecurrenceInterval: task.Interval(),
		SeriesID:           seriesID,
		IsComplete:         false,
	}, nil
}

func loadTask(db *gorm.DB, id uint, task *models.Task) error {
	if err := db.First(task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("load task %d: %w", id, err)
	}
	return nil
}
