package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readingroom/internal/catalog"
)

// NotesController handles the landing page notes.
type NotesController struct {
	responder
	catalog *catalog.Service
}

func NewNotesController(r responder, catalogService *catalog.Service) *NotesController {
	return &NotesController{responder: r, catalog: catalogService}
}

// Add stores a note. A blank title is ignored.
// POST /add
func (nc *NotesController) Add(c *gin.Context) {
	note, err := nc.catalog.AddNote(c.Request.Context(), c.PostForm("title"), c.PostForm("content"))
	if err != nil {
		nc.fail(c, err, "/")
		return
	}
	if note == nil {
		nc.done(c, http.StatusOK, gin.H{"note": nil}, "", "/")
		return
	}
	nc.done(c, http.StatusCreated, gin.H{"note": note}, "", "/")
}

// Delete removes a note.
// POST /delete/:id
func (nc *NotesController) Delete(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		nc.fail(c, err, "/")
		return
	}
	if err := nc.catalog.DeleteNote(c.Request.Context(), id); err != nil {
		nc.fail(c, err, "/")
		return
	}
	nc.done(c, http.StatusOK, gin.H{"deleted": id}, "", "/")
}
