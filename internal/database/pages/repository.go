// Package pages provides database operations for book page rows.
package pages

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/entities"
)

// Repository handles book_pages rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new pages repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Transaction runs fn against a repository bound to a single transaction.
// Any error returned by fn rolls the transaction back.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// NextPageNumber returns one past the highest rank in the book, 1 for an empty book.
func (r *Repository) NextPageNumber(ctx context.Context, bookID uint) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entities.Page{}).
		Where("book_id = ?", bookID).
		Select("COALESCE(MAX(page_number), 0)").
		Scan(&max).Error
	return max + 1, err
}

// Create inserts a page row.
func (r *Repository) Create(ctx context.Context, page *entities.Page) error {
	return r.db.WithContext(ctx).Create(page).Error
}

// ListByBook returns the pages of a book in rendering order.
func (r *Repository) ListByBook(ctx context.Context, bookID uint) ([]entities.Page, error) {
	var pages []entities.Page
	err := r.db.WithContext(ctx).
		Where("book_id = ?", bookID).
		Order("page_number ASC, id ASC").
		Find(&pages).Error
	return pages, err
}

// GetInBook retrieves a page scoped to its book. Returns gorm.ErrRecordNotFound
// when the page does not exist or belongs to another book.
func (r *Repository) GetInBook(ctx context.Context, bookID, pageID uint) (*entities.Page, error) {
	var page entities.Page
	err := r.db.WithContext(ctx).
		Where("id = ? AND book_id = ?", pageID, bookID).
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// PreviousInBook returns the page with the nearest lower rank.
func (r *Repository) PreviousInBook(ctx context.Context, bookID uint, rank int) (*entities.Page, error) {
	var page entities.Page
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND page_number < ?", bookID, rank).
		Order("page_number DESC, id DESC").
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// NextInBook returns the page with the nearest higher rank.
func (r *Repository) NextInBook(ctx context.Context, bookID uint, rank int) (*entities.Page, error) {
	var page entities.Page
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND page_number > ?", bookID, rank).
		Order("page_number ASC, id ASC").
		First(&page).Error
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// SetPageNumber overwrites the rank of a single page.
func (r *Repository) SetPageNumber(ctx context.Context, pageID uint, rank int) error {
	return r.db.WithContext(ctx).Model(&entities.Page{}).
		Where("id = ?", pageID).
		Update("page_number", rank).Error
}

// DeleteInBook removes a page scoped to its book. Returns false when no row matched.
func (r *Repository) DeleteInBook(ctx context.Context, bookID, pageID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND book_id = ?", pageID, bookID).
		Delete(&entities.Page{})
	return res.RowsAffected > 0, res.Error
}

// FilenamesByBook returns the stored page filenames grouped by book.
func (r *Repository) FilenamesByBook(ctx context.Context) (map[uint]map[string]bool, error) {
	var rows []entities.Page
	if err := r.db.WithContext(ctx).Select("book_id", "filename").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]map[string]bool)
	for _, p := range rows {
		if out[p.BookID] == nil {
			out[p.BookID] = make(map[string]bool)
		}
		out[p.BookID][p.Filename] = true
	}
	return out, nil
}

// FilenameTaken reports whether a page of the book already uses name.
func (r *Repository) FilenameTaken(ctx context.Context, bookID uint, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Page{}).
		Where("book_id = ? AND filename = ?", bookID, name).
		Count(&count).Error
	return count > 0, err
}
