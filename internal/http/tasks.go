package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readingroom/internal/tasks"
)

// TaskQueue enqueues maintenance tasks and reports on them.
type TaskQueue interface {
	Enqueue(taskType string) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// TasksController exposes the maintenance queue to admins. A nil queue
// means background tasks are disabled.
type TasksController struct {
	responder
	queue TaskQueue
}

func NewTasksController(r responder, queue TaskQueue) *TasksController {
	return &TasksController{responder: r, queue: queue}
}

// ListTaskTypes handles GET /admin/tasks
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	tc.render(c, http.StatusOK, "tasks", gin.H{
		"TaskTypes": tasks.MaintenanceTypes(),
		"Enabled":   tc.queue != nil,
	})
}

// GetTaskStatus handles GET /admin/tasks/status/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.queue == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "background tasks are disabled"})
		return
	}
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		tc.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /admin/tasks/:type/run
func (tc *TasksController) RunTask(c *gin.Context) {
	if tc.queue == nil {
		tc.done(c, http.StatusServiceUnavailable, ErrorResponse{Error: "background tasks are disabled"},
			"Background tasks are disabled.", "/admin/tasks")
		return
	}

	taskType := c.Param("type")
	id, err := tc.queue.Enqueue(taskType)
	if errors.Is(err, tasks.ErrUnknownTask) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		tc.fail(c, err, "/admin/tasks")
		return
	}

	tc.done(c, http.StatusAccepted, gin.H{
		"task_id": id,
		"type":    taskType,
	}, "Task enqueued.", "/admin/tasks")
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
