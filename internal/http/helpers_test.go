package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/reading"
	"github.com/mrlokans/readingroom/internal/uploads"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value   string
		want    uint
		wantErr bool
	}{
		{"123", 123, false},
		{"abc", 0, true},
		{"-1", 0, true},
		{"0", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			id, err := parseIDParam(c, "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, errInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantFlash  string
	}{
		{fmt.Errorf("%w: age must be a number", auth.ErrValidation), http.StatusBadRequest, "Age must be a number."},
		{fmt.Errorf("%w: %q", pages.ErrInvalidDirection, "left"), http.StatusBadRequest, "Invalid move direction."},
		{pages.ErrCannotMove, http.StatusConflict, "Cannot move further."},
		{fmt.Errorf("move: %w", pages.ErrPageNotFound), http.StatusNotFound, "Page not found."},
		{reading.ErrNotOwner, http.StatusForbidden, "Forbidden."},
		{reading.ErrAlreadyStopped, http.StatusConflict, "Session already stopped."},
		{errInvalidID, http.StatusBadRequest, "Invalid id."},
		{fmt.Errorf("%w: disk full", uploads.ErrStorage), http.StatusInternalServerError, "Failed to store uploaded file."},
		{errors.New("boom"), http.StatusInternalServerError, "Something went wrong. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			status, _, flash := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantFlash, flash)
		})
	}
}

func TestClassify_HidesUnexpectedErrors(t *testing.T) {
	_, msg, _ := classify(errors.New("sql: connection refused"))
	assert.Equal(t, "internal server error", msg)
}

func TestSentence(t *testing.T) {
	assert.Equal(t, "", sentence(""))
	assert.Equal(t, "Book not found.", sentence("book not found"))
	assert.Equal(t, "Done!", sentence("done!"))
	assert.Equal(t, "Ok.", sentence("ok."))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", formatDuration(-5))
	assert.Equal(t, "42s", formatDuration(42))
	assert.Equal(t, "2m 05s", formatDuration(125))
	assert.Equal(t, "1h 02m 05s", formatDuration(3725))
}

func TestResponder_FailWithoutRedirectAnswersJSON(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/books/9/pages", nil)

	responder{html: true}.fail(c, pages.ErrBookNotFound, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"book not found"}`, w.Body.String())
}
