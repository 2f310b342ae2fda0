package entities

// ReadingSession records one stretch of reading. Timestamps are unix seconds.
// A session is open while EndedAt is nil.
type ReadingSession struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"not null;index" json:"user_id"`
	BookID          uint   `gorm:"not null;index" json:"book_id"`
	StartedAt       int64  `gorm:"not null" json:"started_at"`
	EndedAt         *int64 `json:"ended_at,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

func (ReadingSession) TableName() string {
	return "reading_sessions"
}

// IsOpen reports whether the session has not been stopped yet.
func (s *ReadingSession) IsOpen() bool {
	return s.EndedAt == nil
}

// RecentSession is the latest session of a user for one book.
type RecentSession struct {
	SessionID       uint   `json:"session_id"`
	BookID          uint   `json:"book_id"`
	BookTitle       string `json:"book_title"`
	StartedAt       int64  `json:"started_at"`
	EndedAt         *int64 `json:"ended_at,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

// BookReadingTotal is the accumulated reading time of a user for one book.
type BookReadingTotal struct {
	BookID       uint   `json:"book_id"`
	BookTitle    string `json:"book_title"`
	TotalSeconds int64  `json:"total_seconds"`
}
