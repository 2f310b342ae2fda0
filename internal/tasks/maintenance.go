package tasks

import (
	"errors"
	"fmt"

	"github.com/mikestefanello/backlite"
)

// Queue names
const (
	QueueSweepOrphanUploads = "sweep_orphan_uploads"
	QueueCleanupAuditEvents = "cleanup_audit_events"
)

// ErrUnknownTask is returned when a task type has no queue.
var ErrUnknownTask = errors.New("unknown task type")

// TaskType describes a task that can be triggered by name.
type TaskType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// MaintenanceTypes lists the maintenance tasks in the order they run.
func MaintenanceTypes() []TaskType {
	return []TaskType{
		{Type: QueueSweepOrphanUploads, Description: "Remove uploaded images no book or page references"},
		{Type: QueueCleanupAuditEvents, Description: "Delete audit events past the retention period"},
	}
}

// NewMaintenanceTask builds the task for a queue name.
func NewMaintenanceTask(taskType string, auditRetentionDays int) (backlite.Task, error) {
	switch taskType {
	case QueueSweepOrphanUploads:
		return SweepOrphanUploadsTask{}, nil
	case QueueCleanupAuditEvents:
		return CleanupAuditEventsTask{RetentionDays: auditRetentionDays}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTask, taskType)
}

// RegisterMaintenance registers both maintenance queues.
func (c *Client) RegisterMaintenance(sweeper UploadSweeper, cleaner AuditEventCleaner) {
	c.Register(
		NewSweepOrphanUploadsQueue(sweeper),
		NewCleanupAuditEventsQueue(cleaner, c.log),
	)
}

// Enqueue adds a maintenance task by type and returns its task ID.
func (c *Client) Enqueue(taskType string) (string, error) {
	task, err := NewMaintenanceTask(taskType, c.config.AuditRetentionDays)
	if err != nil {
		return "", err
	}

	ids, err := c.Add(task).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("enqueue %s: no task id returned", taskType)
	}
	return ids[0], nil
}

// EnqueueMaintenance adds every maintenance task. Failures are joined.
func (c *Client) EnqueueMaintenance() error {
	var errs []error
	for _, t := range MaintenanceTypes() {
		if _, err := c.Enqueue(t.Type); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
