package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskshare/backend/internal/middleware"
	"taskshare/backend/internal/services"
)

type TaskHandler struct {
	tasks services.TaskService
}

func NewTaskHandler(tasks services.TaskService) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), middleware.UserID(c), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	opts := services.ListOptions{Search: c.Query("search")}

	flags := 0
	if c.Query("only_owned") == "true" {
		opts.Filter = services.FilterOwned
		flags++
	}
	if c.Query("only_collab") == "true" {
		opts.Filter = services.FilterCollaborating
		flags++
	}
	if c.Query("only_assigned") == "true" {
		opts.Filter = services.FilterAssigned
		flags++
	}
	if flags > 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "conflicting_filters",
			"message": "At most one of only_owned, only_collab, only_assigned may be set",
		})
		return
	}

	tasks, err := h.tasks.List(c.Request.Context(), middleware.UserID(c), opts)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.tasks.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	ClearDue    bool       `json:"clear_due_date"`
	Completed   *bool      `json:"completed"`
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		ClearDue:    req.ClearDue,
		Completed:   req.Completed,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.tasks.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, nil)
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	task, err := h.tasks.Toggle(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}
