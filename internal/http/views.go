package http

import (
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mrlokans/readingroom/internal/entities"
)

// UploadsURLPrefix is where the uploads directory is served.
const UploadsURLPrefix = "/uploads"

// BookView is a book as shown to clients.
type BookView struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// PageView is a page image with its public URL.
type PageView struct {
	ID         uint   `json:"id"`
	PageNumber int    `json:"page_number"`
	Filename   string `json:"filename"`
	URL        string `json:"url"`
}

func coverURL(book *entities.Book) string {
	if book.Image == nil || *book.Image == "" {
		return ""
	}
	return pageURL(book.ID, *book.Image)
}

func pageURL(bookID uint, filename string) string {
	return UploadsURLPrefix + "/" + strconv.FormatUint(uint64(bookID), 10) + "/" + url.PathEscape(filename)
}

func newBookView(book *entities.Book) BookView {
	return BookView{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		CoverURL:    coverURL(book),
	}
}

func newBookViews(books []entities.Book) []BookView {
	views := make([]BookView, 0, len(books))
	for i := range books {
		views = append(views, newBookView(&books[i]))
	}
	return views
}

func newPageViews(pages []entities.Page) []PageView {
	views := make([]PageView, 0, len(pages))
	for _, p := range pages {
		views = append(views, PageView{
			ID:         p.ID,
			PageNumber: p.PageNumber,
			Filename:   p.Filename,
			URL:        pageURL(p.BookID, p.Filename),
		})
	}
	return views
}

func pageURLs(pages []entities.Page) []string {
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, pageURL(p.BookID, p.Filename))
	}
	return urls
}

// formatDuration renders seconds as "1h 02m 05s", dropping leading zero units.
func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}

var templateFuncs = template.FuncMap{
	"formatDuration": formatDuration,
	"formatUnix":     formatUnix,
	"derefInt64": func(v *int64) int64 {
		if v == nil {
			return 0
		}
		return *v
	},
}

// loadTemplates parses every page template. It returns nil when the
// directory holds none, which switches views to JSON.
func loadTemplates(templatesPath string) (*template.Template, error) {
	if templatesPath == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(templatesPath, "*.html"))
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return template.New("").Funcs(templateFuncs).ParseFiles(matches...)
}
