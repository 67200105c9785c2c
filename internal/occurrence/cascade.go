package occurrence

import (
	"context"
	"fmt"
	"sort"

	"lifeplanner-api/internal/metrics"
	"lifeplanner-api/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeleteResult lists every row removed by DeleteTask.
type DeleteResult struct {
	Task       models.Task
	DeletedIDs []uint
}

// DeletedCount is len(DeletedIDs).
func (d *DeleteResult) DeletedCount() int {
	return len(d.DeletedIDs)
}

// DeleteTask removes taskID. For a recurring task it also removes every
// member of the series due on or after it, leaving earlier history intact.
// Subtasks of removed rows go with them.
func (r *Reconciler) DeleteTask(ctx context.Context, taskID uint) (*DeleteResult, error) {
	res := &DeleteResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, taskID, &res.Task); err != nil {
			return err
		}
		task := &res.Task

		ids := []uint{task.ID}
		if task.IsRecurring() {
			if task.DueDate == nil || *task.DueDate == "" {
				r.logger.Info("recurring task has no due date, deleting it alone", zap.Uint("task_id", task.ID))
			} else {
				cond, args := cascadeCondition(task)
				args = append([]any{task.ID}, append(args, *task.DueDate)...)
				var members []uint
				if err := tx.Model(&models.Task{}).
					Where("id = ? OR ("+cond+" AND due_date >= ?)", args...).
					Pluck("id", &members).Error; err != nil {
					return fmt.Errorf("select series members: %w", err)
				}
				ids = mergeIDs(ids, members)
			}
		}

		var subtasks []uint
		if err := tx.Model(&models.Task{}).Where("parent_task_id IN ?", ids).Pluck("id", &subtasks).Error; err != nil {
			return fmt.Errorf("select subtasks: %w", err)
		}
		ids = mergeIDs(ids, subtasks)

		if err := tx.Where("id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		res.DeletedIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SeriesDeletedRows.Add(float64(len(res.DeletedIDs)))
	r.logger.Info("tasks deleted",
		zap.Uint("task_id", taskID),
		zap.Int("deleted_count", len(res.DeletedIDs)),
		zap.Bool("recurring", res.Task.IsRecurring()))

	if res.Task.IsSubtask && res.Task.ParentTaskID != nil && !containsID(res.DeletedIDs, *res.Task.ParentTaskID) {
		if err := r.parents.RefreshParent(ctx, *res.Task.ParentTaskID); err != nil {
			r.logger.Warn("parent refresh after delete failed", zap.Uint("parent_id", *res.Task.ParentTaskID), zap.Error(err))
			metrics.RecordAdvisoryFailure(metrics.AdvisoryParentStatus)
		}
	}
	return res, nil
}

func mergeIDs(a, b []uint) []uint {
	seen := make(map[uint]struct{}, len(a)+len(b))
	out := make([]uint, 0, len(a)+len(b))
	for _, id := range append(append([]uint{}, a...), b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
