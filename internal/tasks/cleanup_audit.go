package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// DefaultAuditRetentionDays applies when a task carries no retention.
const DefaultAuditRetentionDays = 30

// AuditEventCleaner drops audit events recorded before a cutoff.
type AuditEventCleaner interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupAuditEventsTask trims the audit trail of sign-ins and catalog
// changes to the last RetentionDays days.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueCleanupAuditEvents,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration: 24 * time.Hour,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Cutoff is the creation time before which events are purged.
func (t CleanupAuditEventsTask) Cutoff(now time.Time) time.Time {
	days := t.RetentionDays
	if days <= 0 {
		days = DefaultAuditRetentionDays
	}
	return now.AddDate(0, 0, -days)
}

// CleanupAuditEventsProcessor purges events older than the task's retention,
// measured from now().
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, now func() time.Time, log *zap.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("audit event cleaner not configured")
		}

		cutoff := task.Cutoff(now())
		deleted, err := cleaner.PurgeBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("purge audit events: %w", err)
		}

		log.Info("audit trail trimmed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, log *zap.Logger) backlite.Queue {
	if log == nil {
		log = zap.NewNop()
	}
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, time.Now, log))
}
