// Package audit records security relevant actions: sign-ins, registrations
// and every admin change to the catalog.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/database/audit"
	"github.com/mrlokans/readingroom/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  *zap.Logger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.Record(context.Background(), event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.Record(context.Background(), event); err != nil {
			s.log.Warn("failed to log audit event",
				zap.String("action", event.Action),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every pending async event has been written.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogAuth records a user sign-in, sign-out or registration attempt.
func (s *Service) LogAuth(userID *uint, action, name, ipAddr string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventAuth,
		Action:      action,
		Description: truncate("user "+name, 500),
		EntityType:  "user",
		EntityID:    userID,
		IPAddress:   ipAddr,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogAdmin records admin sign-in and sign-out.
func (s *Service) LogAdmin(action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		EventType: entities.AuditEventAdmin,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// LogBook records a book being added or removed from the catalog.
func (s *Service) LogBook(action string, bookID uint, title string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventBook,
		Action:      action,
		Description: truncate(title, 500),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogPage records page uploads, deletions and moves.
func (s *Service) LogPage(action string, bookID uint, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventPage,
		Action:      action,
		Description: truncate(description, 500),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// Events lists one page of events matching f, newest first.
func (s *Service) Events(ctx context.Context, f audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.List(ctx, f, limit, offset)
}

// PurgeBefore drops events recorded before cutoff.
func (s *Service) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.PurgeBefore(ctx, cutoff)
	if err == nil && deleted > 0 {
		s.log.Info("purged audit events", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, err
}

func markFailed(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
