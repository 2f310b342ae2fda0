// Package audit stores the audit trail of sign-ins and catalog changes.
package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/entities"
)

// DefaultLimit applies when a listing asks for no positive limit.
const DefaultLimit = 50

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Type entities.AuditEventType
	// BookID selects the book's own events and the page changes made in it.
	BookID uint
	Status entities.AuditStatus
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record saves an event, stamping it with the current time when unset.
func (r *Repository) Record(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// List returns one page of matching events, newest first, and the number
// of matches overall.
func (r *Repository) List(ctx context.Context, f Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.AuditEvent{})
	if f.Type != "" {
		query = query.Where("event_type = ?", f.Type)
	}
	if f.BookID != 0 {
		query = query.Where("entity_type = ? AND entity_id = ?", "book", f.BookID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	var events []entities.AuditEvent
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// PurgeBefore deletes events created before cutoff and reports how many went.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&entities.AuditEvent{})
	return res.RowsAffected, res.Error
}
