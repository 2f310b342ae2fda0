// Package reading tracks how long users spend reading each book.
package reading

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/database/readingsessions"
	"github.com/mrlokans/readingroom/internal/entities"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("forbidden")
	ErrAlreadyStopped  = errors.New("session already stopped")
)

// BookChecker reports whether a book exists.
type BookChecker interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// Profile summarizes a user's reading.
type Profile struct {
	RecentSessions []entities.RecentSession    `json:"recent_sessions"`
	PerBookTotals  []entities.BookReadingTotal `json:"per_book_totals"`
	OverallTotal   int64                       `json:"overall_total_seconds"`
}

type Tracker struct {
	repo  *readingsessions.Repository
	books BookChecker
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Tracker)

// WithClock replaces the wall clock used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the tracker's logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

func NewTracker(repo *readingsessions.Repository, books BookChecker, opts ...Option) *Tracker {
	t := &Tracker{repo: repo, books: books, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start opens a session for the user on the book. A user may hold several
// open sessions at once, even on the same book.
func (t *Tracker) Start(ctx context.Context, userID, bookID uint) (*entities.ReadingSession, error) {
	exists, err := t.books.Exists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBookNotFound
	}

	s := &entities.ReadingSession{
		UserID:    userID,
		BookID:    bookID,
		StartedAt: t.now().Unix(),
	}
	if err := t.repo.Create(ctx, s); err != nil {
		return nil, err
	}

	t.log.Debug("reading session started",
		zap.Uint("session_id", s.ID), zap.Uint("user_id", userID), zap.Uint("book_id", bookID))
	return s, nil
}

// Stop closes one of the user's open sessions. The duration is clamped at
// zero when the clock went backwards.
func (t *Tracker) Stop(ctx context.Context, userID, sessionID uint) (*entities.ReadingSession, error) {
	s, err := t.repo.GetByID(ctx, sessionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.UserID != userID {
		return nil, ErrNotOwner
	}
	if !s.IsOpen() {
		return nil, ErrAlreadyStopped
	}

	endedAt := t.now().Unix()
	duration := endedAt - s.StartedAt
	if duration < 0 {
		duration = 0
	}

	closed, err := t.repo.Close(ctx, s.ID, endedAt, duration)
	if err != nil {
		return nil, err
	}
	if !closed {
		// Lost the race against another stop.
		return nil, ErrAlreadyStopped
	}

	s.EndedAt = &endedAt
	s.DurationSeconds = &duration
	return s, nil
}

// Profile returns the user's latest session per book and accumulated time.
func (t *Tracker) Profile(ctx context.Context, userID uint) (*Profile, error) {
	recent, err := t.repo.RecentByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	totals, err := t.repo.TotalsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		RecentSessions: recent,
		PerBookTotals:  totals,
	}
	if p.RecentSessions == nil {
		p.RecentSessions = []entities.RecentSession{}
	}
	if p.PerBookTotals == nil {
		p.PerBookTotals = []entities.BookReadingTotal{}
	}
	for _, bt := range totals {
		p.OverallTotal += bt.TotalSeconds
	}
	return p, nil
}
