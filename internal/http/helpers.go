package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/catalog"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/reading"
	"github.com/mrlokans/readingroom/internal/uploads"
)

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

var (
	errInvalidID = errors.New("invalid id")
	errBadUpload = errors.New("invalid upload")
)

// errorStatuses maps domain errors to HTTP status codes. Order matters only
// for errors that wrap more than one sentinel.
var errorStatuses = []struct {
	err    error
	status int
}{
	{auth.ErrValidation, http.StatusBadRequest},
	{pages.ErrInvalidDirection, http.StatusBadRequest},
	{catalog.ErrTitleRequired, http.StatusBadRequest},
	{errInvalidID, http.StatusBadRequest},
	{errBadUpload, http.StatusBadRequest},
	{auth.ErrUserExists, http.StatusConflict},
	{reading.ErrAlreadyStopped, http.StatusConflict},
	{pages.ErrCannotMove, http.StatusConflict},
	{pages.ErrPageNotFound, http.StatusNotFound},
	{pages.ErrBookNotFound, http.StatusNotFound},
	{reading.ErrSessionNotFound, http.StatusNotFound},
	{reading.ErrBookNotFound, http.StatusNotFound},
	{catalog.ErrBookNotFound, http.StatusNotFound},
	{reading.ErrNotOwner, http.StatusForbidden},
}

// classify returns the status for err, the message for JSON clients and a
// sentence for flash messages. Unknown errors become a generic 500.
func classify(err error) (status int, apiMessage, flash string) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.err) {
			continue
		}
		if e.err == auth.ErrValidation {
			detail := strings.TrimPrefix(err.Error(), auth.ErrValidation.Error()+": ")
			return e.status, err.Error(), sentence(detail)
		}
		return e.status, err.Error(), sentence(e.err.Error())
	}
	if errors.Is(err, uploads.ErrStorage) {
		return http.StatusInternalServerError, "failed to store uploaded file", "Failed to store uploaded file."
	}
	return http.StatusInternalServerError, "internal server error", "Something went wrong. Please try again."
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	runes := []rune(msg)
	runes[0] = unicode.ToUpper(runes[0])
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, "!") {
		runes = append(runes, '.')
	}
	return string(runes)
}

// responder answers JSON clients with status codes and browsers with
// rendered pages, flash messages and redirects.
type responder struct {
	sessions *auth.SessionManager
	html     bool
	log      *zap.Logger
}

// render writes an HTML template, or data as JSON when no templates are loaded.
func (r responder) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if r.sessions != nil {
		data["Flash"] = r.sessions.PopFlash(c.Request)
	}

	if !r.html || auth.IsAPIRequest(c) {
		c.JSON(status, data)
		return
	}

	data["CSRFField"] = auth.CSRFTokenField(c)
	data["CSRFToken"] = auth.GetCSRFToken(c)
	data["Session"] = templateSession(c)
	c.HTML(status, name, data)
}

// done reports success: body as JSON, or flash and redirect for browsers.
func (r responder) done(c *gin.Context, status int, body any, flash, redirectTo string) {
	if auth.IsAPIRequest(c) {
		c.JSON(status, body)
		return
	}
	if flash != "" && r.sessions != nil {
		r.sessions.Flash(c.Request, flash)
	}
	c.Redirect(http.StatusFound, redirectTo)
}

// fail reports err: JSON error for API clients, flash and redirect otherwise.
func (r responder) fail(c *gin.Context, err error, redirectTo string) {
	status, apiMessage, flash := classify(err)
	if status == http.StatusInternalServerError {
		r.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	if auth.IsAPIRequest(c) || redirectTo == "" {
		c.JSON(status, ErrorResponse{Error: apiMessage})
		return
	}
	if r.sessions != nil {
		r.sessions.Flash(c.Request, flash)
	}
	c.Redirect(http.StatusFound, redirectTo)
}

// TemplateSession is the identity shown in page headers.
type TemplateSession struct {
	UserID   uint
	Username string
	IsAdmin  bool
}

func templateSession(c *gin.Context) TemplateSession {
	return TemplateSession{
		UserID:   auth.GetUserID(c),
		Username: auth.GetUsername(c),
		IsAdmin:  auth.IsAdmin(c),
	}
}

// parseIDParam extracts a positive integer ID from URL parameters.
func parseIDParam(c *gin.Context, paramName string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return uint(id), nil
}
