package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/reading"
)

// ReadingController tracks reading time for the signed-in user.
type ReadingController struct {
	responder
	users   *auth.Service
	tracker *reading.Tracker
}

func NewReadingController(r responder, users *auth.Service, tracker *reading.Tracker) *ReadingController {
	return &ReadingController{responder: r, users: users, tracker: tracker}
}

type startReadingRequest struct {
	BookID uint `json:"book_id" form:"book_id" binding:"required"`
}

type stopReadingRequest struct {
	SessionID uint `json:"session_id" form:"session_id" binding:"required"`
}

// Start opens a reading session for a book.
// POST /reading/start
func (rc *ReadingController) Start(c *gin.Context) {
	var req startReadingRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "book_id is required"})
		return
	}

	session, err := rc.tracker.Start(c.Request.Context(), auth.GetUserID(c), req.BookID)
	if err != nil {
		rc.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"started_at": session.StartedAt,
	})
}

// Stop closes one of the user's open sessions.
// POST /reading/stop
func (rc *ReadingController) Stop(c *gin.Context) {
	var req stopReadingRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "session_id is required"})
		return
	}

	session, err := rc.tracker.Stop(c.Request.Context(), auth.GetUserID(c), req.SessionID)
	if err != nil {
		rc.fail(c, err, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":       session.ID,
		"ended_at":         *session.EndedAt,
		"duration_seconds": *session.DurationSeconds,
	})
}

// Profile shows the user's recent sessions and time per book.
// GET /profile
func (rc *ReadingController) Profile(c *gin.Context) {
	user, err := rc.users.GetUserByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		rc.fail(c, err, "")
		return
	}

	profile, err := rc.tracker.Profile(c.Request.Context(), user.ID)
	if err != nil {
		rc.fail(c, err, "")
		return
	}

	rc.render(c, http.StatusOK, "profile", gin.H{
		"User":    user,
		"Profile": profile,
	})
}
