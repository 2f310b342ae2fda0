package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for identity data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyIsAdmin  = "auth_is_admin"
)

// Middleware resolves the session identity of each request.
type Middleware struct {
	service  *Service
	sessions *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessions *SessionManager) *Middleware {
	return &Middleware{service: service, sessions: sessions}
}

// Handler copies the session identity into the gin context. It never
// rejects a request; use RequireUser and RequireAdmin for that.
// A user id pointing at a deleted account is treated as anonymous.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.sessions.IsAdmin(c.Request) {
			c.Set(ContextKeyIsAdmin, true)
		}

		if userID := m.sessions.GetUserID(c.Request); userID != 0 {
			if user, err := m.service.GetUserByID(c.Request.Context(), userID); err == nil {
				c.Set(ContextKeyUserID, user.ID)
				c.Set(ContextKeyUsername, user.Name)
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests without a logged in user.
func (m *Middleware) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) != 0 {
			c.Next()
			return
		}

		if IsAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// RequireAdmin rejects requests whose session lacks the admin flag.
func (m *Middleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsAdmin(c) {
			c.Next()
			return
		}

		if IsAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin access required",
			})
			return
		}

		c.Redirect(http.StatusFound, "/admin/login")
		c.Abort()
	}
}

// IsAPIRequest determines if this is a JSON client vs a web browser request.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/reading/") {
		return true
	}

	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}

	return strings.HasPrefix(c.ContentType(), "application/json")
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the logged in user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the logged in user's name from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// IsAdmin reports whether the request carries the admin flag.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextKeyIsAdmin)
}
