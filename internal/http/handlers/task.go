package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"task_manager/internal/domain"
	"task_manager/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const tasksPerPage = 10

const dueDateLayout = "2006-01-02"

var taskOps = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "task_operations_total",
		Help: "Completed task mutations by operation",
	},
	[]string{"operation"},
)

func init() {
	prometheus.MustRegister(taskOps)
}

// fieldErrors collects per-field validation messages, Laravel-style.
type fieldErrors map[string][]string

func (e fieldErrors) add(field, msg string) {
	e[field] = append(e[field], msg)
}

func validationFailed(c *gin.Context, errs fieldErrors) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"message": "The given data was invalid",
		"errors":  errs,
	})
}

func taskNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Task not found"})
}

func notAuthorized(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized"})
}

type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"due_date"`
}

// validate checks the supplied fields. requireTitle distinguishes create
// (title mandatory) from partial update (title checked only when present).
func (req *taskRequest) validate(requireTitle bool) (domain.TaskUpdate, fieldErrors) {
	errs := fieldErrors{}
	var upd domain.TaskUpdate

	if req.Title != nil || requireTitle {
		title := ""
		if req.Title != nil {
			title = strings.TrimSpace(*req.Title)
		}
		switch {
		case title == "":
			errs.add("title", "Task title is required")
		case utf8.RuneCountInString(title) > 255:
			errs.add("title", "Task title must not exceed 255 characters")
		default:
			upd.Title = &title
		}
	}

	if req.Description != nil {
		if utf8.RuneCountInString(*req.Description) > 1000 {
			errs.add("description", "Description must not exceed 1000 characters")
		} else {
			upd.Description = req.Description
		}
	}

	if req.Status != nil {
		status := domain.Status(*req.Status)
		if !status.Valid() {
			errs.add("status", "Status must be one of: pending, in_progress, completed")
		} else {
			upd.Status = &status
		}
	}

	if req.DueDate != nil {
		if *req.DueDate == "" {
			// explicit empty string clears the due date
			upd.ClearDueDate = true
		} else if due, err := time.ParseInLocation(dueDateLayout, *req.DueDate, time.Local); err != nil {
			errs.add("due_date", "Due date must be a valid date (YYYY-MM-DD)")
		} else if due.Before(startOfToday()) {
			errs.add("due_date", "Due date must be today or later")
		} else {
			upd.DueDate = &due
		}
	}

	return upd, errs
}

func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// ListTasks returns one page of the caller's own tasks, newest first.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page := 1
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}

	tasks, total, err := h.Tasks.ListByUser(c.Request.Context(), userID, page, tasksPerPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	lastPage := (total + tasksPerPage - 1) / tasksPerPage
	if lastPage < 1 {
		lastPage = 1
	}

	c.JSON(http.StatusOK, gin.H{
		"data": tasks,
		"meta": gin.H{
			"current_page": page,
			"per_page":     tasksPerPage,
			"total":        total,
			"last_page":    lastPage,
		},
	})
}

func (h *Handler) CreateTask(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	upd, errs := req.validate(true)
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	task := &domain.Task{
		UserID: userID,
		Title:  *upd.Title,
		Status: domain.StatusPending,
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Status != nil {
		task.Status = *upd.Status
	}
	task.DueDate = upd.DueDate

	if err := h.Tasks.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	taskOps.WithLabelValues("create").Inc()
	c.JSON(http.StatusCreated, gin.H{"data": task})
}

// loadOwnedTask resolves the :id param against the store and enforces the
// ownership check. Not-found always wins over not-authorized: a missing
// task is 404 even when the caller could never have owned it.
func (h *Handler) loadOwnedTask(c *gin.Context) (*domain.Task, bool) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		taskNotFound(c)
		return nil, false
	}

	task, err := h.Tasks.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			taskNotFound(c)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		}
		return nil, false
	}

	if task.UserID != userID {
		notAuthorized(c)
		return nil, false
	}
	return task, true
}

func (h *Handler) GetTask(c *gin.Context) {
	task, ok := h.loadOwnedTask(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

// UpdateTask applies a partial update: omitted fields keep their values.
func (h *Handler) UpdateTask(c *gin.Context) {
	task, ok := h.loadOwnedTask(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	upd, errs := req.validate(false)
	if len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	updated, err := h.Tasks.Update(c.Request.Context(), task.ID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// deleted between load and update; last write wins either way
			taskNotFound(c)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		}
		return
	}

	taskOps.WithLabelValues("update").Inc()
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

func (h *Handler) DeleteTask(c *gin.Context) {
	task, ok := h.loadOwnedTask(c)
	if !ok {
		return
	}

	if err := h.Tasks.Delete(c.Request.Context(), task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			taskNotFound(c)
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		}
		return
	}

	taskOps.WithLabelValues("delete").Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Task deleted successfully"})
}
