package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"lifeplanner-api/internal/occurrence"

	"github.com/gin-gonic/gin"
)

const (
	defaultPreviewCount = 5
	maxPreviewCount     = 52
)

// CreateNextOccurrence handles POST /api/tasks/:id/next-occurrence
// 201 with the new task, or 200 with the open occurrence that already exists.
func (h *TaskHandler) CreateNextOccurrence(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	var req NextOccurrenceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var base *time.Time
	if req.BaseDate != nil {
		d, err := h.calc().ParseDatePtr(req.BaseDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid base_date"})
			return
		}
		base = d
	}

	res, err := h.rec.CreateNextOccurrence(c.Request.Context(), id, base)
	if err != nil {
		h.writeError(c, "Failed to create next occurrence", err)
		return
	}
	h.publishSpawn(res)
	if res.Created {
		c.JSON(http.StatusCreated, res.Task)
		return
	}
	c.JSON(http.StatusOK, res.Task)
}

// AdjustRecurrences handles POST /api/tasks/:id/adjust-recurrences
// 201 when an occurrence was created, 200 when an open one was kept or moved.
func (h *TaskHandler) AdjustRecurrences(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	res, err := h.rec.AdjustToToday(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to adjust recurrences", err)
		return
	}
	h.publishSpawn(res)

	status, msg := http.StatusCreated, "Recurrence adjusted to today"
	switch {
	case res.Moved:
		status, msg = http.StatusOK, "Open occurrence moved forward from today"
	case !res.Created:
		status, msg = http.StatusOK, "Open occurrence already exists"
	}
	c.JSON(status, gin.H{
		"message":        msg,
		"nextOccurrence": res.Task,
	})
}

// PreviewOccurrences handles GET /api/tasks/:id/preview?count=N
func (h *TaskHandler) PreviewOccurrences(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}
	count := defaultPreviewCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPreviewCount {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be between 1 and 52"})
			return
		}
		count = n
	}

	task, ok := h.loadTask(c, id)
	if !ok {
		return
	}
	if !task.IsRecurring() {
		h.writeError(c, "", occurrence.ErrNotRecurring)
		return
	}

	calc := h.calc()
	anchor := h.rec.Today()
	due, err := calc.ParseDatePtr(task.DueDate)
	if err != nil {
		h.writeError(c, "", occurrence.ErrInvalidDate)
		return
	}
	if due != nil {
		anchor = *due
	}

	dates, err := calc.Preview(anchor, task.RecurrenceType, task.Interval(), count)
	if err != nil {
		h.writeError(c, "", occurrence.ErrInvalidRecurrenceType)
		return
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, calc.FormatDate(d))
	}
	rule, err := calc.RRule(task.RecurrenceType, task.Interval(), anchor)
	if err != nil {
		h.internalError(c, "Failed to build recurrence rule", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     task.ID,
		"anchor": calc.FormatDate(anchor),
		"dates":  out,
		"rrule":  rule,
	})
}

// GetCalendar handles GET /api/calendar?from=YYYY-MM-DD&to=YYYY-MM-DD
// Both bounds default to the current month.
func (h *TaskHandler) GetCalendar(c *gin.Context) {
	calc := h.calc()
	today := h.rec.Today()
	from := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, calc.Location)
	to := from.AddDate(0, 1, -1)

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &from}, {"to", &to}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		d, err := calc.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + p.name + " date"})
			return
		}
		*p.dst = d
	}

	cal, err := h.rec.Calendar(c.Request.Context(), from, to)
	if err != nil {
		h.writeError(c, "Failed to build calendar", err)
		return
	}
	c.JSON(http.StatusOK, cal)
}
