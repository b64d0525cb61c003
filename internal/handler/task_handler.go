package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/pkg/response"
)

// TaskHandler exposes the task control surface: create, pause, resume,
// abort. These run concurrently with in-flight transfers and only touch
// the registry.
type TaskHandler struct {
	taskService service.TaskService
}

func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
}

// Create mints a new task with a random unique task id.
func (h *TaskHandler) Create(c *gin.Context) {
	id, err := h.taskService.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to create task")
		return
	}
	response.Success(c, CreateTaskResponse{TaskID: id})
}

// Pause pauses the task if it is currently running.
func (h *TaskHandler) Pause(c *gin.Context) {
	taskID := c.Param("task_id")
	err := h.taskService.Pause(c.Request.Context(), taskID)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
	case errors.Is(err, service.ErrTaskAlreadyPaused):
		response.Conflict(c, fmt.Sprintf("Task: %s is already paused!", taskID))
	case err != nil:
		response.InternalError(c, "failed to pause task")
	default:
		response.OK(c, fmt.Sprintf("Task: %s paused successfully!", taskID))
	}
}

// Resume resumes the task if it is currently paused.
func (h *TaskHandler) Resume(c *gin.Context) {
	taskID := c.Param("task_id")
	err := h.taskService.Resume(c.Request.Context(), taskID)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
	case errors.Is(err, service.ErrTaskAlreadyRunning):
		response.Conflict(c, fmt.Sprintf("Task: %s is already running!", taskID))
	case err != nil:
		response.InternalError(c, "failed to resume task")
	default:
		response.OK(c, fmt.Sprintf("Task: %s resumed successfully!", taskID))
	}
}

// Abort deletes the task entry; the transfer loop observes the absence on
// its next poll and stops.
func (h *TaskHandler) Abort(c *gin.Context) {
	taskID := c.Param("task_id")
	err := h.taskService.Abort(c.Request.Context(), taskID)
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		response.NotFound(c, fmt.Sprintf("Task: %s is aborted or invalid!", taskID))
	case err != nil:
		response.InternalError(c, "failed to abort task")
	default:
		response.OK(c, fmt.Sprintf("Task: %s aborted successfully!", taskID))
	}
}
