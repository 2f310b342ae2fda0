package readingsessions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/database"
	"github.com/mrlokans/readingroom/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func int64Ptr(v int64) *int64 { return &v }

func TestRepository_Close(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Dune"}
	require.NoError(t, db.Create(book).Error)
	user := &entities.User{Name: "ana", Age: 9, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	s := &entities.ReadingSession{UserID: user.ID, BookID: book.ID, StartedAt: 1000}
	require.NoError(t, repo.Create(ctx, s))

	closed, err := repo.Close(ctx, s.ID, 1050, 50)
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repo.Close(ctx, s.ID, 2000, 1000)
	require.NoError(t, err)
	assert.False(t, closed, "second close must not apply")

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, int64(1050), *got.EndedAt)
	assert.Equal(t, int64(50), *got.DurationSeconds)
}

func TestRepository_ProfileAggregates(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	dune := &entities.Book{Title: "Dune"}
	emma := &entities.Book{Title: "Emma"}
	iliad := &entities.Book{Title: "Iliad"}
	require.NoError(t, db.Create(dune).Error)
	require.NoError(t, db.Create(emma).Error)
	require.NoError(t, db.Create(iliad).Error)
	ana := &entities.User{Name: "ana", Age: 9, PasswordHash: "x"}
	bob := &entities.User{Name: "bob", Age: 40, PasswordHash: "x"}
	require.NoError(t, db.Create(ana).Error)
	require.NoError(t, db.Create(bob).Error)

	for _, s := range []*entities.ReadingSession{
		{UserID: ana.ID, BookID: dune.ID, StartedAt: 100, EndedAt: int64Ptr(130), DurationSeconds: int64Ptr(30)},
		{UserID: ana.ID, BookID: dune.ID, StartedAt: 500, EndedAt: int64Ptr(520), DurationSeconds: int64Ptr(20)},
		{UserID: ana.ID, BookID: emma.ID, StartedAt: 300, EndedAt: int64Ptr(400), DurationSeconds: int64Ptr(100)},
		{UserID: ana.ID, BookID: iliad.ID, StartedAt: 900}, // open, no time yet
		{UserID: bob.ID, BookID: dune.ID, StartedAt: 9999, EndedAt: int64Ptr(10999), DurationSeconds: int64Ptr(1000)},
	} {
		require.NoError(t, repo.Create(ctx, s))
	}

	recent, err := repo.RecentByUser(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "Iliad", recent[0].BookTitle)
	assert.Nil(t, recent[0].EndedAt)
	assert.Equal(t, "Dune", recent[1].BookTitle)
	assert.Equal(t, int64(500), recent[1].StartedAt)
	assert.Equal(t, "Emma", recent[2].BookTitle)

	totals, err := repo.TotalsByUser(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, entities.BookReadingTotal{BookID: emma.ID, BookTitle: "Emma", TotalSeconds: 100}, totals[0])
	assert.Equal(t, entities.BookReadingTotal{BookID: dune.ID, BookTitle: "Dune", TotalSeconds: 50}, totals[1])
}

func TestRepository_RecentByUser_TieBreaksOnID(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()

	book := &entities.Book{Title: "Dune"}
	require.NoError(t, db.Create(book).Error)
	user := &entities.User{Name: "ana", Age: 9, PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	first := &entities.ReadingSession{UserID: user.ID, BookID: book.ID, StartedAt: 100}
	second := &entities.ReadingSession{UserID: user.ID, BookID: book.ID, StartedAt: 100}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	recent, err := repo.RecentByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, second.ID, recent[0].SessionID)
}
