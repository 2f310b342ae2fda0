package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/maintenance"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.AuditRetentionDays = 7

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func startClient(t *testing.T, client *Client) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		client.Stop(stopCtx)
		cancel()
	})
	go client.Start(ctx)
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("instance", "database-tasks.db"), TasksDBPath(filepath.Join("instance", "database.db")))
	assert.Equal(t, "store-tasks", TasksDBPath("store"))
}

func TestNewClient(t *testing.T) {
	tmpDir := t.TempDir()

	client, err := NewClient(filepath.Join(tmpDir, "test.db"), DefaultConfig(), nil)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(tmpDir, "test-tasks.db"))
	assert.NoError(t, err, "tasks database should be created")

	assert.NoError(t, client.Close())
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	// Give it time to start
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

func TestStopWithoutStart(t *testing.T) {
	client := newTestClient(t)
	assert.True(t, client.Stop(context.Background()))
}

type fakeSweeper struct {
	calls atomic.Int32
	done  chan struct{}
}

func (f *fakeSweeper) Sweep(ctx context.Context) (maintenance.Result, error) {
	if f.calls.Add(1) == 1 {
		close(f.done)
	}
	return maintenance.Result{Files: 1}, nil
}

type fakeCleaner struct {
	cutoffs chan time.Time
}

func (f *fakeCleaner) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoffs <- cutoff
	return 3, nil
}

func TestEnqueueMaintenance_RunsBothQueues(t *testing.T) {
	client := newTestClient(t)
	sweeper := &fakeSweeper{done: make(chan struct{})}
	cleaner := &fakeCleaner{cutoffs: make(chan time.Time, 1)}
	client.RegisterMaintenance(sweeper, cleaner)
	startClient(t, client)

	require.NoError(t, client.EnqueueMaintenance())

	select {
	case <-sweeper.done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweep task was not executed within timeout")
	}

	select {
	case cutoff := <-cleaner.cutoffs:
		assert.WithinDuration(t, time.Now().AddDate(0, 0, -7), cutoff, time.Minute)
	case <-time.After(5 * time.Second):
		t.Fatal("audit cleanup task was not executed within timeout")
	}
}

func TestEnqueue_UnknownType(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Enqueue("enrich_everything")
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestTaskConfigs(t *testing.T) {
	sweep := SweepOrphanUploadsTask{}.Config()
	assert.Equal(t, QueueSweepOrphanUploads, sweep.Name)
	assert.Equal(t, 2, sweep.MaxAttempts)
	assert.NotNil(t, sweep.Retention)

	audit := CleanupAuditEventsTask{RetentionDays: 30}.Config()
	assert.Equal(t, QueueCleanupAuditEvents, audit.Name)
	assert.Equal(t, 3, audit.MaxAttempts)
	assert.Equal(t, 2*time.Minute, audit.Timeout)
}

func TestNewMaintenanceTask(t *testing.T) {
	task, err := NewMaintenanceTask(QueueCleanupAuditEvents, 12)
	require.NoError(t, err)
	assert.Equal(t, CleanupAuditEventsTask{RetentionDays: 12}, task)

	var _ backlite.Task = SweepOrphanUploadsTask{}
	assert.Len(t, MaintenanceTypes(), 2)
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	cleaner := &fakeCleaner{cutoffs: make(chan time.Time, 2)}
	process := CleanupAuditEventsProcessor(cleaner, func() time.Time { return now }, zap.NewNop())

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), <-cleaner.cutoffs, "defaults to 30 days")

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
	assert.Equal(t, time.Date(2026, 3, 24, 12, 0, 0, 0, time.UTC), <-cleaner.cutoffs)

	process = CleanupAuditEventsProcessor(nil, func() time.Time { return now }, zap.NewNop())
	assert.Error(t, process(context.Background(), CleanupAuditEventsTask{}))
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.Tasks{Workers: 3}, config.Maintenance{AuditRetentionDays: 90})
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 30, cfg.AuditRetentionDays)
}
