package occurrence

import (
	"context"
	"fmt"

	"lifeplanner-api/internal/models"

	"gorm.io/gorm"
)

// ParentStatusUpdater recomputes a parent task from its subtasks.
type ParentStatusUpdater interface {
	RefreshParent(ctx context.Context, parentID uint) error
}

// GormParentUpdater marks a parent complete exactly when all of its
// subtasks are complete, and keeps has_subtasks in step with the rows.
type GormParentUpdater struct {
	db *gorm.DB
}

func NewGormParentUpdater(db *gorm.DB) *GormParentUpdater {
	return &GormParentUpdater{db: db}
}

func (p *GormParentUpdater) RefreshParent(ctx context.Context, parentID uint) error {
	db := p.db.WithContext(ctx)

	var total, done int64
	if err := db.Model(&models.Task{}).Where("parent_task_id = ?", parentID).Count(&total).Error; err != nil {
		return fmt.Errorf("count subtasks of %d: %w", parentID, err)
	}
	updates := map[string]any{"has_subtasks": total > 0}
	if total > 0 {
		if err := db.Model(&models.Task{}).
			Where("parent_task_id = ? AND is_complete = ?", parentID, true).
			Count(&done).Error; err != nil {
			return fmt.Errorf("count completed subtasks of %d: %w", parentID, err)
		}
		updates["is_complete"] = done == total
	}
	if err := db.Model(&models.Task{}).Where("id = ?", parentID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update parent %d: %w", parentID, err)
	}
	return nil
}
