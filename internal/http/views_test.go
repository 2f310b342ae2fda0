package http

import (
	"bytes"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/readingroom/internal/entities"
	"github.com/mrlokans/readingroom/internal/reading"
)

func strPtr(s string) *string { return &s }

func TestCoverAndPageURLs(t *testing.T) {
	book := &entities.Book{ID: 3, Title: "Emma", Image: strPtr("cover_my cover.png")}
	assert.Equal(t, "/uploads/3/cover_my%20cover.png", coverURL(book))
	assert.Equal(t, "", coverURL(&entities.Book{}))

	assert.Equal(t, "/uploads/3/001_a%23b.png", pageURL(3, "001_a#b.png"))
	assert.Equal(t, []string{"/uploads/3/001_a.png", "/uploads/3/002_b.png"},
		pageURLs([]entities.Page{{BookID: 3, Filename: "001_a.png"}, {BookID: 3, Filename: "002_b.png"}}))
}

func TestLoadTemplates_EmptyDirMeansJSON(t *testing.T) {
	tmpl, err := loadTemplates(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, tmpl)

	tmpl, err = loadTemplates("")
	require.NoError(t, err)
	assert.Nil(t, tmpl)
}

func pageData(extra gin.H) gin.H {
	data := gin.H{
		"Flash":     "Saved.",
		"CSRFField": "",
		"CSRFToken": "",
		"Session":   TemplateSession{UserID: 1, Username: "ana", IsAdmin: true},
	}
	for k, v := range extra {
		data[k] = v
	}
	return data
}

func TestRepositoryTemplatesRender(t *testing.T) {
	tmpl, err := loadTemplates("../../templates")
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	book := BookView{ID: 7, Title: "Emma <1815>", Author: "Austen", CoverURL: "/uploads/7/cover_c.png"}
	ended, duration := int64(1_700_000_090), int64(90)

	pages := map[string]gin.H{
		"index":  {"Notes": []entities.Note{{ID: 1, Title: "Hello"}}},
		"books":  {"Books": []BookView{book}},
		"book":   {"Book": book, "PageCount": 2},
		"reader": {"Book": book, "Pages": []string{"/uploads/7/001_a.png"}},
		"search": {"Query": "emma", "Books": []BookView{}},
		"profile": {
			"User": &entities.User{Name: "ana", Age: 30},
			"Profile": &reading.Profile{
				RecentSessions: []entities.RecentSession{{BookID: 7, BookTitle: "Emma", StartedAt: 1_700_000_000, EndedAt: &ended, DurationSeconds: &duration}},
				PerBookTotals:  []entities.BookReadingTotal{{BookID: 7, BookTitle: "Emma", TotalSeconds: 90}},
				OverallTotal:   90,
			},
		},
		"admin_books": {"Books": []BookView{book}},
		"admin_pages": {"Book": book, "Pages": []PageView{{ID: 1, PageNumber: 1, Filename: "001_a.png", URL: "/uploads/7/001_a.png"}}},
		"audit": {
			"Events":      []entities.AuditEvent{{EventType: entities.AuditEventBook, Action: "add"}},
			"CurrentPage": 1, "TotalPages": 1, "TotalEvents": 1,
			"EventType": "book", "EventTypes": eventTypes(),
			"BookID": uint(7), "FailedOnly": true,
		},
		"tasks": {"TaskTypes": []struct{ Type, Description string }{{"sweep_orphan_uploads", "Sweep"}}, "Enabled": true},
	}

	for name, extra := range pages {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, tmpl.ExecuteTemplate(&buf, name, pageData(extra)))
			out := buf.String()
			assert.Contains(t, out, "<html")
			assert.Contains(t, out, "Saved.")
			assert.NotContains(t, out, "<1815>", "titles are escaped")
		})
	}
}
