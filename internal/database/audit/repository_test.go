package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readingroom/internal/database"
	"github.com/mrlokans/readingroom/internal/entities"
)

func setupTestRepo(t *testing.T) *Repository {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB)
}

func bookEvent(eventType entities.AuditEventType, action string, bookID uint, status entities.AuditStatus) *entities.AuditEvent {
	return &entities.AuditEvent{
		EventType:  eventType,
		Action:     action,
		EntityType: "book",
		EntityID:   &bookID,
		Status:     status,
	}
}

func TestRepository_Record(t *testing.T) {
	repo := setupTestRepo(t)

	event := &entities.AuditEvent{
		EventType: entities.AuditEventAdmin,
		Action:    "login",
		Status:    entities.AuditStatusSuccess,
	}
	require.NoError(t, repo.Record(context.Background(), event))
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
}

func TestRepository_List(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		e := bookEvent(entities.AuditEventPage, "move", 1, entities.AuditStatusSuccess)
		e.CreatedAt = time.Now().Add(time.Duration(-i) * time.Hour)
		require.NoError(t, repo.Record(ctx, e))
	}
	require.NoError(t, repo.Record(ctx, bookEvent(entities.AuditEventBook, "add", 1, entities.AuditStatusSuccess)))
	require.NoError(t, repo.Record(ctx, bookEvent(entities.AuditEventBook, "add", 2, entities.AuditStatusSuccess)))
	require.NoError(t, repo.Record(ctx, bookEvent(entities.AuditEventPage, "upload", 2, entities.AuditStatusFailed)))
	require.NoError(t, repo.Record(ctx, &entities.AuditEvent{
		EventType: entities.AuditEventAuth, Action: "login", Status: entities.AuditStatusFailed,
	}))

	tests := []struct {
		name   string
		filter Filter
		total  int64
	}{
		{"everything", Filter{}, 19},
		{"by type", Filter{Type: entities.AuditEventPage}, 16},
		{"one book with its pages", Filter{BookID: 2}, 2},
		{"page changes of one book", Filter{Type: entities.AuditEventPage, BookID: 1}, 15},
		{"failures only", Filter{Status: entities.AuditStatusFailed}, 2},
		{"unknown book", Filter{BookID: 99}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := repo.List(ctx, tt.filter, 100, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.total, total)
		})
	}

	t.Run("paged newest first", func(t *testing.T) {
		filter := Filter{Type: entities.AuditEventPage, BookID: 1}
		events, total, err := repo.List(ctx, filter, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(15), total)
		require.Len(t, events, 10)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].CreatedAt.After(events[i-1].CreatedAt))
		}

		rest, _, err := repo.List(ctx, filter, 10, 10)
		require.NoError(t, err)
		assert.Len(t, rest, 5)
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		events, _, err := repo.List(ctx, Filter{}, 0, -3)
		require.NoError(t, err)
		assert.Len(t, events, 19)
	})
}

func TestRepository_PurgeBefore(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	old := bookEvent(entities.AuditEventBook, "delete", 1, entities.AuditStatusSuccess)
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Record(ctx, old))
	require.NoError(t, repo.Record(ctx, bookEvent(entities.AuditEventBook, "add", 2, entities.AuditStatusSuccess)))

	deleted, err := repo.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := repo.List(ctx, Filter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "add", events[0].Action)
}
