// Package notes provides database operations for the notes shown on the index page.
package notes

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]entities.Note, error) {
	var notes []entities.Note
	err := r.db.WithContext(ctx).Order("id DESC").Find(&notes).Error
	return notes, err
}

func (r *Repository) Create(ctx context.Context, note *entities.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

// Delete removes a note. Deleting a missing note is not an error.
func (r *Repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&entities.Note{}, id).Error
}
