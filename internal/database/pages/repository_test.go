package pages

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/database"
	"github.com/mrlokans/readingroom/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func seedBook(t *testing.T, db *gorm.DB) uint {
	book := &entities.Book{Title: "Dune"}
	require.NoError(t, db.Create(book).Error)
	return book.ID
}

func TestRepository_NextPageNumber(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)

	next, err := repo.NextPageNumber(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, repo.Create(ctx, &entities.Page{BookID: bookID, Filename: "007_x.png", PageNumber: 7}))
	next, err = repo.NextPageNumber(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, 8, next)
}

func TestRepository_Neighbours(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)
	otherBook := seedBook(t, db)

	for _, rank := range []int{1, 3, 6} {
		require.NoError(t, repo.Create(ctx, &entities.Page{BookID: bookID, Filename: "p.png", PageNumber: rank}))
	}
	require.NoError(t, repo.Create(ctx, &entities.Page{BookID: otherBook, Filename: "o.png", PageNumber: 2}))

	prev, err := repo.PreviousInBook(ctx, bookID, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, prev.PageNumber)

	next, err := repo.NextInBook(ctx, bookID, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, next.PageNumber)

	_, err = repo.PreviousInBook(ctx, bookID, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_TransactionRollsBack(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)

	page := &entities.Page{BookID: bookID, Filename: "001_a.png", PageNumber: 1}
	require.NoError(t, repo.Create(ctx, page))

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx *Repository) error {
		require.NoError(t, tx.SetPageNumber(ctx, page.ID, -1))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetInBook(ctx, bookID, page.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PageNumber)
}

func TestRepository_DeleteInBook(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)
	otherBook := seedBook(t, db)

	page := &entities.Page{BookID: bookID, Filename: "001_a.png", PageNumber: 1}
	require.NoError(t, repo.Create(ctx, page))

	deleted, err := repo.DeleteInBook(ctx, otherBook, page.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "page belongs to another book")

	deleted, err = repo.DeleteInBook(ctx, bookID, page.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	list, err := repo.ListByBook(ctx, bookID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRepository_FilenamesByBook(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)

	require.NoError(t, repo.Create(ctx, &entities.Page{BookID: bookID, Filename: "001_a.png", PageNumber: 1}))
	require.NoError(t, repo.Create(ctx, &entities.Page{BookID: bookID, Filename: "002_b.png", PageNumber: 2}))

	names, err := repo.FilenamesByBook(ctx)
	require.NoError(t, err)
	assert.True(t, names[bookID]["001_a.png"])
	assert.True(t, names[bookID]["002_b.png"])
	assert.Len(t, names[bookID], 2)
}

func TestRepository_FilenameTaken(t *testing.T) {
	repo, db := setupTestDB(t)
	ctx := context.Background()
	bookID := seedBook(t, db)
	otherID := seedBook(t, db)

	require.NoError(t, repo.Create(ctx, &entities.Page{BookID: bookID, Filename: "003_image.jpg", PageNumber: 2}))

	taken, err := repo.FilenameTaken(ctx, bookID, "003_image.jpg")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = repo.FilenameTaken(ctx, otherID, "003_image.jpg")
	require.NoError(t, err)
	assert.False(t, taken, "names are scoped to their book")
}
