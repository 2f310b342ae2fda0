package auth

import (
	"database/sql"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/entities"
)

// Session data keys
const (
	SessionKeyUserID   = "user_id"
	SessionKeyUsername = "username"
	SessionKeyAge      = "age"
	SessionKeyIsAdmin  = "is_admin"
	SessionKeyFlash    = "flash"
)

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the sessions table.
// The sqlDB parameter should be the underlying *sql.DB from GORM; the table
// itself is created by the schema migrations.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) *SessionManager {
	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	sm.Lifetime = cfg.SessionLifetime
	sm.IdleTimeout = cfg.SessionLifetime / 2 // Half of lifetime for inactivity

	sm.Cookie.Name = "session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode // Lax so redirects after form posts keep the session
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}
}

// CreateSession starts a fresh session for a user who just logged in.
// Any previous session state, the admin flag included, is dropped.
func (sm *SessionManager) CreateSession(r *http.Request, user *entities.User) error {
	ctx := r.Context()
	if err := sm.Clear(ctx); err != nil {
		return err
	}
	// Renew token to prevent session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}

	// Store user ID as int to match GetInt() retrieval
	sm.Put(ctx, SessionKeyUserID, int(user.ID))
	sm.Put(ctx, SessionKeyUsername, user.Name)
	sm.Put(ctx, SessionKeyAge, user.Age)
	return nil
}

// DestroySession removes all session data and invalidates the session.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// SetAdmin grants the admin flag to the current session.
func (sm *SessionManager) SetAdmin(r *http.Request) error {
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}
	sm.Put(r.Context(), SessionKeyIsAdmin, true)
	return nil
}

// ClearAdmin drops the admin flag and keeps any user login.
func (sm *SessionManager) ClearAdmin(r *http.Request) {
	sm.Remove(r.Context(), SessionKeyIsAdmin)
}

// IsAdmin reports whether the session carries the admin flag.
func (sm *SessionManager) IsAdmin(r *http.Request) bool {
	return sm.GetBool(r.Context(), SessionKeyIsAdmin)
}

// GetUserID retrieves the user ID from the session.
// Returns 0 if not authenticated.
func (sm *SessionManager) GetUserID(r *http.Request) uint {
	return uint(sm.GetInt(r.Context(), SessionKeyUserID))
}

// IsAuthenticated returns true if the request has a logged in user.
func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	return sm.GetUserID(r) != 0
}

// Flash stores a one-shot message shown on the next rendered page.
func (sm *SessionManager) Flash(r *http.Request, msg string) {
	sm.Put(r.Context(), SessionKeyFlash, msg)
}

// PopFlash returns and clears the pending flash message.
func (sm *SessionManager) PopFlash(r *http.Request) string {
	return sm.PopString(r.Context(), SessionKeyFlash)
}

// SessionData holds the session information for a request.
type SessionData struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Age      int    `json:"age"`
	IsAdmin  bool   `json:"is_admin"`
}

// GetSessionData retrieves all session data at once.
func (sm *SessionManager) GetSessionData(r *http.Request) SessionData {
	ctx := r.Context()
	return SessionData{
		UserID:   sm.GetUserID(r),
		Username: sm.GetString(ctx, SessionKeyUsername),
		Age:      sm.GetInt(ctx, SessionKeyAge),
		IsAdmin:  sm.GetBool(ctx, SessionKeyIsAdmin),
	}
}
