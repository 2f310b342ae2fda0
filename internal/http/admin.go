package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readingroom/internal/auth"
	"github.com/mrlokans/readingroom/internal/catalog"
	"github.com/mrlokans/readingroom/internal/pages"
)

// CatalogAuditor records admin changes to books and pages.
type CatalogAuditor interface {
	LogBook(action string, bookID uint, title string, err error)
	LogPage(action string, bookID uint, description string, err error)
}

// AdminController manages books and their pages. Every route sits behind
// the admin gate.
type AdminController struct {
	responder
	catalog *catalog.Service
	pages   *pages.Engine
	auditor CatalogAuditor
}

func NewAdminController(r responder, catalogService *catalog.Service, engine *pages.Engine, auditor CatalogAuditor) *AdminController {
	return &AdminController{responder: r, catalog: catalogService, pages: engine, auditor: auditor}
}

func pagesPath(bookID uint) string {
	return "/admin/books/" + strconv.FormatUint(uint64(bookID), 10) + "/pages"
}

// Books lists the catalog for management.
// GET /admin/books
func (ac *AdminController) Books(c *gin.Context) {
	books, err := ac.catalog.ListBooks(c.Request.Context())
	if err != nil {
		ac.fail(c, err, "")
		return
	}
	ac.render(c, http.StatusOK, "admin_books", gin.H{"Books": newBookViews(books)})
}

// AddBook creates a book from the multipart form: title, author,
// description, an optional image and any number of page images.
// POST /admin/books/add
func (ac *AdminController) AddBook(c *gin.Context) {
	form, err := readUploadForm(c)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	defer form.Close()

	nb := catalog.NewBook{
		Title:       c.PostForm("title"),
		Author:      c.PostForm("author"),
		Description: c.PostForm("description"),
		Pages:       form.Uploads("pages", "pages[]"),
	}
	if covers := form.Uploads("image"); len(covers) > 0 {
		nb.Cover = &covers[0]
	}

	book, created, err := ac.catalog.CreateBook(c.Request.Context(), nb)
	if book != nil {
		ac.logBook("add", book.ID, book.Title, nil)
	}
	if err != nil {
		if book != nil {
			ac.logPage("upload", book.ID, fmt.Sprintf("%d pages stored before failure", len(created)), err)
		}
		ac.fail(c, err, "/admin/books")
		return
	}
	if len(created) > 0 {
		ac.logPage("upload", book.ID, fmt.Sprintf("%d pages", len(created)), nil)
	}

	ac.done(c, http.StatusCreated, gin.H{
		"book":  newBookView(book),
		"pages": newPageViews(created),
	}, "Book added.", "/admin/books")
}

// DeleteBook removes a book with its pages and reading sessions.
// POST /admin/books/delete/:id
func (ac *AdminController) DeleteBook(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}

	book, err := ac.catalog.DeleteBook(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}
	ac.logBook("delete", id, book.Title, nil)

	ac.done(c, http.StatusOK, gin.H{"deleted": id}, "Book deleted.", "/admin/books")
}

// Pages lists a book's pages in order.
// GET /admin/books/:id/pages
func (ac *AdminController) Pages(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}

	book, err := ac.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}

	pageList, err := ac.pages.List(c.Request.Context(), id)
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}

	ac.render(c, http.StatusOK, "admin_pages", gin.H{
		"Book":  newBookView(book),
		"Pages": newPageViews(pageList),
	})
}

// UploadPages appends page images after the last page.
// POST /admin/books/:id/pages
func (ac *AdminController) UploadPages(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return
	}

	form, err := readUploadForm(c)
	if err != nil {
		ac.fail(c, err, pagesPath(id))
		return
	}
	defer form.Close()

	created, err := ac.pages.Append(c.Request.Context(), id, form.Uploads("pages", "pages[]"))
	if len(created) > 0 || err != nil {
		ac.logPage("upload", id, fmt.Sprintf("%d pages", len(created)), err)
	}
	if errors.Is(err, pages.ErrBookNotFound) {
		ac.fail(c, err, "/admin/books")
		return
	}
	if err != nil {
		ac.fail(c, err, pagesPath(id))
		return
	}

	ac.done(c, http.StatusCreated, gin.H{"pages": newPageViews(created)}, "", pagesPath(id))
}

// DeletePage removes one page of a book.
// POST /admin/books/:id/pages/delete/:page_id
func (ac *AdminController) DeletePage(c *gin.Context) {
	bookID, pageID, ok := ac.pageParams(c)
	if !ok {
		return
	}

	page, err := ac.pages.Delete(c.Request.Context(), bookID, pageID)
	if err != nil {
		ac.fail(c, err, pagesPath(bookID))
		return
	}
	ac.logPage("delete", bookID, page.Filename, nil)

	ac.done(c, http.StatusOK, gin.H{"deleted": pageID}, "Page deleted.", pagesPath(bookID))
}

// MovePage swaps a page with its neighbour; form field direction is up or down.
// POST /admin/books/:id/pages/move/:page_id
func (ac *AdminController) MovePage(c *gin.Context) {
	bookID, pageID, ok := ac.pageParams(c)
	if !ok {
		return
	}

	dir, err := pages.ParseDirection(c.PostForm("direction"))
	if err != nil {
		ac.fail(c, err, pagesPath(bookID))
		return
	}

	if err := ac.pages.Move(c.Request.Context(), bookID, pageID, dir); err != nil {
		// Hitting either end of the book is routine, not worth an audit entry
		if !errors.Is(err, pages.ErrCannotMove) {
			ac.logPage("move", bookID, fmt.Sprintf("page %d %s", pageID, dir), err)
		}
		ac.fail(c, err, pagesPath(bookID))
		return
	}
	ac.logPage("move", bookID, fmt.Sprintf("page %d %s", pageID, dir), nil)

	if !auth.IsAPIRequest(c) {
		c.Redirect(http.StatusFound, pagesPath(bookID))
		return
	}
	pageList, err := ac.pages.List(c.Request.Context(), bookID)
	if err != nil {
		ac.fail(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": newPageViews(pageList)})
}

func (ac *AdminController) pageParams(c *gin.Context) (bookID, pageID uint, ok bool) {
	bookID, err := parseIDParam(c, "id")
	if err != nil {
		ac.fail(c, err, "/admin/books")
		return 0, 0, false
	}
	pageID, err = parseIDParam(c, "page_id")
	if err != nil {
		ac.fail(c, err, pagesPath(bookID))
		return 0, 0, false
	}
	return bookID, pageID, true
}

func (ac *AdminController) logBook(action string, bookID uint, title string, err error) {
	if ac.auditor != nil {
		ac.auditor.LogBook(action, bookID, title, err)
	}
}

func (ac *AdminController) logPage(action string, bookID uint, description string, err error) {
	if ac.auditor != nil {
		ac.auditor.LogPage(action, bookID, description, err)
	}
}

// uploadForm holds the opened files of a multipart request.
type uploadForm struct {
	form  *multipart.Form
	files []multipart.File
}

// readUploadForm parses a multipart body. A request that is not multipart
// yields an empty form, so plain form posts still work.
func readUploadForm(c *gin.Context) (*uploadForm, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return &uploadForm{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadUpload, err)
	}
	return &uploadForm{form: form}, nil
}

// Uploads opens the files posted under any of the given field names, in order.
// Files that cannot be opened are skipped.
func (f *uploadForm) Uploads(fields ...string) []pages.Upload {
	if f.form == nil {
		return nil
	}
	var out []pages.Upload
	for _, field := range fields {
		for _, fh := range f.form.File[field] {
			file, err := fh.Open()
			if err != nil {
				continue
			}
			f.files = append(f.files, file)
			out = append(out, pages.Upload{Filename: fh.Filename, Content: file})
		}
	}
	return out
}

// Close releases the opened files and any temp files of the form.
func (f *uploadForm) Close() {
	for _, file := range f.files {
		file.Close()
	}
	if f.form != nil {
		_ = f.form.RemoveAll()
	}
}
