// Package maintenance removes upload files that no database row points at.
//
// Orphans appear when a book or page row is deleted but removing its file
// fails, or when the process dies between writing an image and inserting
// its row.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/database/books"
	pagesRepo "github.com/mrlokans/readingroom/internal/database/pages"
	"github.com/mrlokans/readingroom/internal/uploads"
)

// DefaultGrace keeps files younger than this, since an upload may still be
// waiting for its row to be inserted.
const DefaultGrace = 10 * time.Minute

// Result counts what a sweep removed.
type Result struct {
	Files    int `json:"files"`
	BookDirs int `json:"book_dirs"`
}

type Sweeper struct {
	books *books.Repository
	pages *pagesRepo.Repository
	files *uploads.Store
	grace time.Duration
	now   func() time.Time
	log   *zap.Logger
}

func NewSweeper(booksRepo *books.Repository, pages *pagesRepo.Repository, files *uploads.Store, grace time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{books: booksRepo, pages: pages, files: files, grace: grace, now: time.Now, log: log}
}

// Sweep removes directories of deleted books, and files in a book's
// directory that are neither a page row nor the book's cover. Individual
// removal failures are logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result

	ids, err := s.books.IDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list books: %w", err)
	}
	known := make(map[uint]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}

	stored, err := s.pages.FilenamesByBook(ctx)
	if err != nil {
		return res, fmt.Errorf("list pages: %w", err)
	}
	covers, err := s.books.CoverImages(ctx)
	if err != nil {
		return res, fmt.Errorf("list covers: %w", err)
	}

	dirs, err := s.files.BookIDs()
	if err != nil {
		return res, fmt.Errorf("list upload dirs: %w", err)
	}

	for _, bookID := range dirs {
		if !known[bookID] {
			if err := s.files.RemoveBook(bookID); err != nil {
				s.log.Warn("failed to remove orphan book dir", zap.Uint("book_id", bookID), zap.Error(err))
				continue
			}
			res.BookDirs++
			continue
		}

		names, err := s.files.PageFiles(bookID)
		if err != nil {
			s.log.Warn("failed to list book dir", zap.Uint("book_id", bookID), zap.Error(err))
			continue
		}
		for _, name := range names {
			if stored[bookID][name] || covers[bookID] == name || !s.oldEnough(s.files.ModTime(bookID, name)) {
				continue
			}
			if err := s.files.RemovePage(bookID, name); err != nil {
				s.log.Warn("failed to remove orphan file", zap.Uint("book_id", bookID), zap.String("file", name), zap.Error(err))
				continue
			}
			res.Files++
		}
	}

	s.log.Info("upload sweep finished",
		zap.Int("files", res.Files),
		zap.Int("book_dirs", res.BookDirs))
	return res, nil
}

func (s *Sweeper) oldEnough(modTime time.Time, err error) bool {
	if err != nil {
		return false
	}
	return s.now().Sub(modTime) >= s.grace
}
