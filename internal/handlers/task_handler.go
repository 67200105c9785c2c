package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"lifeplanner-api/internal/logger"
	"lifeplanner-api/internal/metrics"
	"lifeplanner-api/internal/models"
	"lifeplanner-api/internal/occurrence"
	"lifeplanner-api/internal/realtime"
	"lifeplanner-api/internal/recurrence"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title              string                `json:"title" binding:"required"`
	Description        string                `json:"description"`
	ReminderTime       *time.Time            `json:"reminderTime"`
	ReminderType       models.ReminderType   `json:"reminderType"`
	AssignedDate       *string               `json:"assignedDate"`
	DueDate            *string               `json:"dueDate"`
	RecurrenceType     models.RecurrenceType `json:"recurrenceType"`
	RecurrenceInterval *int                  `json:"recurrenceInterval"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Completion fields use the snake_case names existing clients send.
type UpdateTaskRequest struct {
	Title                *string                `json:"title"`
	Description          *string                `json:"description"`
	ReminderTime         *time.Time             `json:"reminderTime"`
	ReminderType         *models.ReminderType   `json:"reminderType"`
	AssignedDate         *string                `json:"assignedDate"`
	DueDate              *string                `json:"dueDate"`
	RecurrenceType       *models.RecurrenceType `json:"recurrenceType"`
	RecurrenceInterval   *int                   `json:"recurrenceInterval"`
	IsComplete           *bool                  `json:"is_complete"`
	CreateNextOccurrence bool                   `json:"create_next_occurrence"`
	NextOccurrenceDate   *string                `json:"nextOccurrenceDate"`
}

func (r *UpdateTaskRequest) empty() bool {
	return r.Title == nil && r.Description == nil && r.ReminderTime == nil && r.ReminderType == nil &&
		r.AssignedDate == nil && r.DueDate == nil && r.RecurrenceType == nil && r.RecurrenceInterval == nil &&
		r.IsComplete == nil && r.NextOccurrenceDate == nil
}

// ToggleCompletionRequest is the body of PATCH /api/tasks/:id/toggle-completion
type ToggleCompletionRequest struct {
	IsComplete           *bool `json:"is_complete"`
	HasSubtasks          bool  `json:"has_subtasks"`
	CreateNextOccurrence bool  `json:"create_next_occurrence"`
}

// NextOccurrenceRequest is the optional body of POST /api/tasks/:id/next-occurrence
type NextOccurrenceRequest struct {
	BaseDate *string `json:"base_date"`
}

// CreateSubtaskRequest represents the request payload for creating a subtask
type CreateSubtaskRequest struct {
	Title        string  `json:"title" binding:"required"`
	Description  string  `json:"description"`
	AssignedDate *string `json:"assignedDate"`
	DueDate      *string `json:"dueDate"`
}

// taskResponse is a task plus the occurrence spawned alongside it, if any.
type taskResponse struct {
	models.Task
	NextOccurrence *models.Task `json:"nextOccurrence,omitempty"`
}

var taskIDPattern = regexp.MustCompile(`^[1-9]\d*$`)

// TaskHandler serves the task routes.
type TaskHandler struct {
	db     *gorm.DB
	rec    *occurrence.Reconciler
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewTaskHandler(db *gorm.DB, rec *occurrence.Reconciler, hub *realtime.Hub, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hub == nil {
		hub = realtime.NewHub()
	}
	return &TaskHandler{db: db, rec: rec, hub: hub, logger: logger}
}

func (h *TaskHandler) calc() *recurrence.Calculator {
	return h.rec.Calculator()
}

// GetTasks handles GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	tasks := []models.Task{}
	if err := h.db.WithContext(c.Request.Context()).
		Order("is_complete ASC, assigned_date ASC, created_at DESC").
		Find(&tasks).Error; err != nil {
		h.internalError(c, "Failed to fetch tasks", err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// GetTaskByID handles GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	task, ok := h.loadTask(c, id)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, task)
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	if !req.RecurrenceType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recurrence type"})
		return
	}
	if !req.ReminderType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reminder type"})
		return
	}
	interval := 1
	if req.RecurrenceInterval != nil {
		if *req.RecurrenceInterval < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recurrenceInterval must be at least 1"})
			return
		}
		interval = *req.RecurrenceInterval
	}

	assigned, err := h.normalizeDate(req.AssignedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignedDate"})
		return
	}
	due, err := h.normalizeDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}
	// one date given: the other mirrors it
	if assigned == nil {
		assigned = due
	}
	if due == nil {
		due = assigned
	}

	task := models.Task{
		Title:              title,
		Description:        req.Description,
		AssignedDate:       assigned,
		DueDate:            due,
		ReminderTime:       req.ReminderTime,
		ReminderType:       orDefault(req.ReminderType, models.ReminderNone),
		RecurrenceType:     orDefault(req.RecurrenceType, models.RecurrenceNone),
		RecurrenceInterval: interval,
	}
	occurrence.EnsureSeriesID(&task)

	if err := h.db.WithContext(c.Request.Context()).Create(&task).Error; err != nil {
		h.internalError(c, "Failed to create task", err)
		return
	}

	h.publish(realtime.EventTaskCreated, &task, nil)
	c.JSON(http.StatusCreated, task)
}

// UpdateTask handles PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	task, ok := h.loadTask(c, id)
	if !ok {
		return
	}

	updates, msg := h.buildUpdates(task, &req)
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}
	ctx := c.Request.Context()
	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(task).Updates(updates).Error; err != nil {
			h.internalError(c, "Failed to update task", err)
			return
		}
	}

	resp := taskResponse{}
	if req.IsComplete != nil {
		res, err := h.rec.SetCompletion(ctx, id, *req.IsComplete, occurrence.CompletionOptions{
			CreateNext: req.CreateNextOccurrence,
		})
		if err != nil {
			h.writeError(c, "Failed to update task", err)
			return
		}
		resp.NextOccurrence = h.publishSpawn(res.Spawned)
	}

	reloaded, ok := h.loadTask(c, id)
	if !ok {
		return
	}
	resp.Task = *reloaded
	h.publish(realtime.EventTaskUpdated, reloaded, nil)
	c.JSON(http.StatusOK, resp)
}

func (h *TaskHandler) buildUpdates(task *models.Task, req *UpdateTaskRequest) (map[string]any, string) {
	updates := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, "Title cannot be empty"
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ReminderTime != nil {
		updates["reminder_time"] = *req.ReminderTime
	}
	if req.ReminderType != nil {
		if !req.ReminderType.Valid() {
			return nil, "Invalid reminder type"
		}
		updates["reminder_type"] = orDefault(*req.ReminderType, models.ReminderNone)
	}
	for _, f := range []struct {
		column, label string
		value         *string
	}{
		{"assigned_date", "assignedDate", req.AssignedDate},
		{"due_date", "dueDate", req.DueDate},
		{"next_occurrence_date", "nextOccurrenceDate", req.NextOccurrenceDate},
	} {
		if f.value == nil {
			continue
		}
		d, err := h.normalizeDate(f.value)
		if err != nil {
			return nil, "Invalid " + f.label
		}
		if d == nil {
			updates[f.column] = nil
		} else {
			updates[f.column] = *d
		}
	}
	if req.RecurrenceType != nil {
		if !req.RecurrenceType.Valid() {
			return nil, "Invalid recurrence type"
		}
		typ := orDefault(*req.RecurrenceType, models.RecurrenceNone)
		updates["recurrence_type"] = typ
		probe := models.Task{RecurrenceType: typ, SeriesID: task.SeriesID}
		occurrence.EnsureSeriesID(&probe)
		if probe.SeriesID != task.SeriesID {
			updates["series_id"] = *probe.SeriesID
		}
	}
	if req.RecurrenceInterval != nil {
		if *req.RecurrenceInterval < 1 {
			return nil, "recurrenceInterval must be at least 1"
		}
		updates["recurrence_interval"] = *req.RecurrenceInterval
	}
	return updates, ""
}

// ToggleCompletion handles PATCH /api/tasks/:id/toggle-completion
func (h *TaskHandler) ToggleCompletion(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	var req ToggleCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsComplete == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_complete must be a boolean"})
		return
	}

	res, err := h.rec.SetCompletion(c.Request.Context(), id, *req.IsComplete, occurrence.CompletionOptions{
		CreateNext:      req.CreateNextOccurrence,
		CascadeSubtasks: req.HasSubtasks,
	})
	if err != nil {
		h.writeError(c, "Failed to toggle task completion", err)
		return
	}

	resp := taskResponse{Task: *res.Task, NextOccurrence: h.publishSpawn(res.Spawned)}
	h.publish(realtime.EventTaskUpdated, res.Task, nil)
	c.JSON(http.StatusOK, resp)
}

// DeleteTask handles DELETE /api/tasks/:id
// Deleting a recurring task also removes its future occurrences.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	res, err := h.rec.DeleteTask(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to delete task", err)
		return
	}

	evt := realtime.EventTaskDeleted
	if res.DeletedCount() > 1 && res.Task.IsRecurring() {
		evt = realtime.EventSeriesDeleted
	}
	h.publish(evt, &res.Task, gin.H{"deleted_ids": res.DeletedIDs})

	c.JSON(http.StatusOK, gin.H{
		"message":      "Task deleted successfully",
		"id":           id,
		"deletedIds":   res.DeletedIDs,
		"deletedCount": res.DeletedCount(),
	})
}

// GetSubtasks handles GET /api/tasks/:id/subtasks
func (h *TaskHandler) GetSubtasks(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	if _, ok := h.loadTask(c, id); !ok {
		return
	}
	subtasks := []models.Task{}
	if err := h.db.WithContext(c.Request.Context()).
		Where("parent_task_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&subtasks).Error; err != nil {
		h.internalError(c, "Failed to fetch subtasks", err)
		return
	}
	c.JSON(http.StatusOK, subtasks)
}

// CreateSubtask handles POST /api/tasks/:id/subtasks
func (h *TaskHandler) CreateSubtask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}
	assigned, err := h.normalizeDate(req.AssignedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignedDate"})
		return
	}
	due, err := h.normalizeDate(req.DueDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate"})
		return
	}

	var sub models.Task
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var parent models.Task
		if err := tx.First(&parent, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return occurrence.ErrTaskNotFound
			}
			return err
		}
		if assigned == nil {
			assigned = parent.AssignedDate
		}
		if due == nil {
			due = parent.DueDate
		}
		sub = models.Task{
			Title:          title,
			Description:    req.Description,
			AssignedDate:   assigned,
			DueDate:        due,
			ReminderType:   models.ReminderNone,
			RecurrenceType: models.RecurrenceNone,
			ParentTaskID:   &parent.ID,
			IsSubtask:      true,
		}
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		// a new open subtask reopens a completed parent
		return tx.Model(&parent).Updates(map[string]any{"has_subtasks": true, "is_complete": false}).Error
	})
	if err != nil {
		h.writeError(c, "Failed to create subtask", err)
		return
	}

	h.publish(realtime.EventTaskCreated, &sub, nil)
	c.JSON(http.StatusCreated, sub)
}

func parseTaskID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	if !taskIDPattern.MatchString(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return 0, false
	}
	return uint(id), true
}

func (h *TaskHandler) loadTask(c *gin.Context, id uint) (*models.Task, bool) {
	var task models.Task
	if err := h.db.WithContext(c.Request.Context()).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		} else {
			h.internalError(c, "Failed to fetch task", err)
		}
		return nil, false
	}
	return &task, true
}

// normalizeDate validates a wire date and returns it in storage form.
// Blank strings clear the date.
func (h *TaskHandler) normalizeDate(s *string) (*string, error) {
	d, err := h.calc().ParseDatePtr(s)
	if err != nil || d == nil {
		return nil, err
	}
	return models.StringPtr(h.calc().FormatDate(*d)), nil
}

// writeError maps reconciler errors onto 400/404 and everything else onto 500.
func (h *TaskHandler) writeError(c *gin.Context, fallback string, err error) {
	var e *occurrence.Error
	if errors.As(err, &e) {
		switch e.Code {
		case occurrence.CodeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": e.Message})
			return
		case occurrence.CodeInvalid:
			c.JSON(http.StatusBadRequest, gin.H{"error": e.Message})
			return
		}
	}
	h.internalError(c, fallback, err)
}

func (h *TaskHandler) internalError(c *gin.Context, msg string, err error) {
	logger.WithRequestID(c.Request.Context(), h.logger).Error(msg,
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func (h *TaskHandler) publishSpawn(spawned *occurrence.SpawnResult) *models.Task {
	if spawned == nil {
		return nil
	}
	switch {
	case spawned.Created:
		h.publish(realtime.EventOccurrenceSpawned, spawned.Task, nil)
	case spawned.Moved:
		h.publish(realtime.EventTaskUpdated, spawned.Task, nil)
	}
	return spawned.Task
}

// publish is advisory: a failed broadcast never fails the request.
func (h *TaskHandler) publish(eventType string, task *models.Task, payload any) {
	ev := realtime.Event{Type: eventType, TaskID: task.ID, Payload: payload}
	if task.SeriesID != nil {
		ev.SeriesID = *task.SeriesID
	}
	if payload == nil {
		ev.Payload = task
	}
	if err := h.hub.Publish(ev); err != nil {
		h.logger.Debug("event broadcast incomplete", zap.String("type", eventType), zap.Error(err))
		metrics.RecordAdvisoryFailure(metrics.AdvisoryBroadcast)
	}
}

func orDefault[T ~string](v, fallback T) T {
	if v == "" {
		return fallback
	}
	return v
}
