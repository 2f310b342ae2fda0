// Package books provides database operations for the book catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(ctx, 123)
package books

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a book and sets its ID.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Omit("Pages").Create(book).Error
}

// GetByID retrieves a book by ID. Returns gorm.ErrRecordNotFound when absent.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// Exists reports whether a book with the given ID is stored.
func (r *Repository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// List returns all books, newest first.
func (r *Repository) List(ctx context.Context) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.WithContext(ctx).Order("id DESC").Find(&books).Error
	return books, err
}

// Search matches the query case-insensitively against title and author.
// A non-positive limit returns every match.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + strings.ToLower(query) + "%"
	q := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(COALESCE(author, '')) LIKE ?", pattern, pattern).
		Order("title ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&books).Error
	return books, err
}

// Delete removes a book; pages and reading sessions go with it through the
// foreign key cascade. Returns false when no row matched.
func (r *Repository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&entities.Book{}, id)
	return res.RowsAffected > 0, res.Error
}

// SetImage points the book at a cover file in its directory.
func (r *Repository) SetImage(ctx context.Context, id uint, name string) error {
	return r.db.WithContext(ctx).Model(&entities.Book{}).
		Where("id = ?", id).
		Update("image", name).Error
}

// CoverImages maps every book that has a cover to its cover filename.
func (r *Repository) CoverImages(ctx context.Context) (map[uint]string, error) {
	var rows []entities.Book
	err := r.db.WithContext(ctx).Select("id", "image").
		Where("image IS NOT NULL AND image <> ''").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]string, len(rows))
	for _, b := range rows {
		out[b.ID] = *b.Image
	}
	return out, nil
}

// IDs returns the IDs of every stored book.
func (r *Repository) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entities.Book{}).Pluck("id", &ids).Error
	return ids, err
}
