package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AlirezaEivazi/Manage-Works/internal/services"
)

type TaskHandler struct {
	taskService services.TaskService
	userService services.UserService
}

func NewTaskHandler(taskService services.TaskService, userService services.UserService) *TaskHandler {
	return &TaskHandler{taskService: taskService, userService: userService}
}

// GetTasks lists the caller's tasks. Paging headers are only set when a page
// is requested.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	q := services.ParseTaskQuery(
		c.Query("category"),
		c.Query("sortBy"),
		c.Query("order"),
		c.Query("page"),
		c.Query("pageSize"),
	)

	tasks, total := h.taskService.ListTasks(currentUsername(c), q)
	if q.Page > 0 {
		c.Header("X-Total-Count", strconv.Itoa(total))
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.CreateTask(currentUsername(c), req)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(currentUsername(c), id)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.UpdateTask(currentUsername(c), id, req)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) ToggleTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	task, err := h.taskService.ToggleTask(currentUsername(c), id)
	if err != nil {
		handleError(c, "task", err)
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c, "task")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(currentUsername(c), id); err != nil {
		handleError(c, "task", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TaskHandler) GetNotificationURL(c *gin.Context) {
	url, err := h.userService.GetNotificationURL(currentUsername(c))
	if err != nil {
		handleError(c, "user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *TaskHandler) SetNotificationURL(c *gin.Context) {
	var req services.NotificationURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.userService.SetNotificationURL(currentUsername(c), req.URL); err != nil {
		handleError(c, "user", err)
		return
	}
	url, _ := h.userService.GetNotificationURL(currentUsername(c))
	c.JSON(http.StatusOK, gin.H{"url": url})
}
