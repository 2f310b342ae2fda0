// Package readingsessions provides database operations for reading sessions
// and the per-user aggregates shown on the profile page.
package readingsessions

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

// Create inserts an open session.
func (r *Repository) Create(ctx context.Context, s *entities.ReadingSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// GetByID returns gorm.ErrRecordNotFound when the session does not exist.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.ReadingSession, error) {
	var s entities.ReadingSession
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Close stamps an open session. The update only applies while ended_at is
// still NULL, so of two concurrent closes exactly one reports true.
func (r *Repository) Close(ctx context.Context, id uint, endedAt, duration int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&entities.ReadingSession{}).
		Where("id = ? AND ended_at IS NULL", id).
		Updates(map[string]any{
			"ended_at":         endedAt,
			"duration_seconds": duration,
		})
	return res.RowsAffected == 1, res.Error
}

const recentByUserSQL = `
SELECT rs.id AS session_id, rs.book_id, b.title AS book_title,
       rs.started_at, rs.ended_at, rs.duration_seconds
FROM reading_sessions rs
JOIN books b ON b.id = rs.book_id
WHERE rs.user_id = ?
  AND rs.id = (
    SELECT r2.id FROM reading_sessions r2
    WHERE r2.user_id = rs.user_id AND r2.book_id = rs.book_id
    ORDER BY r2.started_at DESC, r2.id DESC
    LIMIT 1
  )
ORDER BY rs.started_at DESC, rs.id DESC`

// RecentByUser returns the latest session per book for a user, newest first.
func (r *Repository) RecentByUser(ctx context.Context, userID uint) ([]entities.RecentSession, error) {
	var out []entities.RecentSession
	err := r.db.WithContext(ctx).Raw(recentByUserSQL, userID).Scan(&out).Error
	return out, err
}

const totalsByUserSQL = `
SELECT rs.book_id, b.title AS book_title,
       SUM(COALESCE(rs.duration_seconds, 0)) AS total_seconds
FROM reading_sessions rs
JOIN books b ON b.id = rs.book_id
WHERE rs.user_id = ?
GROUP BY rs.book_id, b.title
HAVING SUM(COALESCE(rs.duration_seconds, 0)) > 0
ORDER BY total_seconds DESC, rs.book_id ASC`

// TotalsByUser returns accumulated reading time per book, books with no
// recorded time omitted, largest first.
func (r *Repository) TotalsByUser(ctx context.Context, userID uint) ([]entities.BookReadingTotal, error) {
	var out []entities.BookReadingTotal
	err := r.db.WithContext(ctx).Raw(totalsByUserSQL, userID).Scan(&out).Error
	return out, err
}
