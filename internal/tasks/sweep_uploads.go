package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/readingroom/internal/maintenance"
)

// UploadSweeper removes upload files that no row references.
type UploadSweeper interface {
	Sweep(ctx context.Context) (maintenance.Result, error)
}

// SweepOrphanUploadsTask removes orphaned page and cover images.
type SweepOrphanUploadsTask struct{}

// Config returns the queue configuration for upload sweeps.
func (t SweepOrphanUploadsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueSweepOrphanUploads,
		MaxAttempts: 2,
		Backoff:     10 * time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SweepOrphanUploadsProcessor creates a processor function for SweepOrphanUploadsTask.
func SweepOrphanUploadsProcessor(sweeper UploadSweeper) backlite.QueueProcessor[SweepOrphanUploadsTask] {
	return func(ctx context.Context, _ SweepOrphanUploadsTask) error {
		if sweeper == nil {
			return fmt.Errorf("upload sweeper not configured")
		}
		if _, err := sweeper.Sweep(ctx); err != nil {
			return fmt.Errorf("sweep uploads: %w", err)
		}
		return nil
	}
}

// NewSweepOrphanUploadsQueue creates a backlite queue for upload sweeps.
func NewSweepOrphanUploadsQueue(sweeper UploadSweeper) backlite.Queue {
	return backlite.NewQueue(SweepOrphanUploadsProcessor(sweeper))
}
