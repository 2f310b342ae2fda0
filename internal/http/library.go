package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readingroom/internal/catalog"
	"github.com/mrlokans/readingroom/internal/pages"
)

// LibraryController serves the public catalog, the reader and search.
type LibraryController struct {
	responder
	catalog *catalog.Service
	pages   *pages.Engine
}

func NewLibraryController(r responder, catalogService *catalog.Service, engine *pages.Engine) *LibraryController {
	return &LibraryController{responder: r, catalog: catalogService, pages: engine}
}

// Index renders the landing page with the notes list.
// GET /
func (lc *LibraryController) Index(c *gin.Context) {
	notes, err := lc.catalog.ListNotes(c.Request.Context())
	if err != nil {
		lc.fail(c, err, "")
		return
	}
	lc.render(c, http.StatusOK, "index", gin.H{"Notes": notes})
}

// Books lists the catalog, newest first.
// GET /books
func (lc *LibraryController) Books(c *gin.Context) {
	books, err := lc.catalog.ListBooks(c.Request.Context())
	if err != nil {
		lc.fail(c, err, "")
		return
	}
	lc.render(c, http.StatusOK, "books", gin.H{"Books": newBookViews(books)})
}

// Book shows a single book.
// GET /books/:id
func (lc *LibraryController) Book(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	book, err := lc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	pageList, err := lc.pages.List(c.Request.Context(), id)
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	lc.render(c, http.StatusOK, "book", gin.H{
		"Book":      newBookView(book),
		"PageCount": len(pageList),
	})
}

// Read renders the reader for a book.
// GET /books/:id/read
func (lc *LibraryController) Read(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	book, err := lc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	pageList, err := lc.pages.List(c.Request.Context(), id)
	if err != nil {
		lc.fail(c, err, "/books")
		return
	}

	lc.render(c, http.StatusOK, "reader", gin.H{
		"Book":  newBookView(book),
		"Pages": pageURLs(pageList),
	})
}

// Pages returns the ordered page image URLs of a book.
// GET /books/:id/pages
func (lc *LibraryController) Pages(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		lc.fail(c, err, "")
		return
	}

	if _, err := lc.catalog.GetBook(c.Request.Context(), id); err != nil {
		lc.fail(c, err, "")
		return
	}

	pageList, err := lc.pages.List(c.Request.Context(), id)
	if err != nil {
		lc.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": pageURLs(pageList)})
}

// Search renders full search results.
// GET /search?q=
func (lc *LibraryController) Search(c *gin.Context) {
	query := c.Query("q")
	books, err := lc.catalog.Search(c.Request.Context(), query)
	if err != nil {
		lc.fail(c, err, "")
		return
	}
	lc.render(c, http.StatusOK, "search", gin.H{
		"Query": query,
		"Books": newBookViews(books),
	})
}

// Suggestion is one live search hit.
type Suggestion struct {
	ID     uint    `json:"id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Image  *string `json:"image"`
}

// Suggest returns up to eight matches for the search box.
// GET /search/suggest?q=
func (lc *LibraryController) Suggest(c *gin.Context) {
	limit := catalog.DefaultSuggestLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	books, err := lc.catalog.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		lc.fail(c, err, "")
		return
	}

	suggestions := make([]Suggestion, 0, len(books))
	for i := range books {
		s := Suggestion{ID: books[i].ID, Title: books[i].Title, Author: books[i].Author}
		if u := coverURL(&books[i]); u != "" {
			s.Image = &u
		}
		suggestions = append(suggestions, s)
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
