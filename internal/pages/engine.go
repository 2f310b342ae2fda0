// Package pages keeps the page images of a book in a sparse rendering order.
//
// Every page carries a rank (page_number). New uploads are appended after the
// current maximum, deletions leave gaps, and a move swaps the ranks of a page
// and its nearest neighbour in one transaction. Concurrent moves on the same
// book are not serialized and may interleave.
package pages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	pagesRepo "github.com/mrlokans/readingroom/internal/database/pages"
	"github.com/mrlokans/readingroom/internal/entities"
	"github.com/mrlokans/readingroom/internal/uploads"
)

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrPageNotFound     = errors.New("page not found")
	ErrInvalidDirection = errors.New("invalid move direction")
	ErrCannotMove       = errors.New("cannot move further")
)

// sentinelRank parks the moving page while its neighbour takes its rank.
const sentinelRank = -1

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Upload is one image received from a client.
type Upload struct {
	Filename string
	Content  io.Reader
}

// BookChecker reports whether a book exists.
type BookChecker interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// FileStore persists page images.
type FileStore interface {
	SavePage(bookID uint, name string, r io.Reader) error
	RemovePage(bookID uint, name string) error
}

type Engine struct {
	repo  *pagesRepo.Repository
	books BookChecker
	files FileStore
	log   *zap.Logger
}

func NewEngine(repo *pagesRepo.Repository, books BookChecker, files FileStore, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{repo: repo, books: books, files: files, log: log}
}

// maxNameAttempts bounds the suffixes tried when a stored name is taken.
const maxNameAttempts = 100

// StoredName is the on-disk name of a page: zero padded rank, then the
// sanitized client filename.
func StoredName(rank int, original string) string {
	return fmt.Sprintf("%03d_%s", rank, uploads.SafeName(original))
}

// candidateName is StoredName for the first attempt and adds a numeric
// suffix before the extension for later ones: 003_image-2.jpg.
func candidateName(rank int, original string, attempt int) string {
	name := StoredName(rank, original)
	if attempt == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), attempt+1, ext)
}

// store writes one upload under the first name that neither a page row of
// the book nor a file on disk already uses. Ranks change when pages move,
// so the rank prefix alone does not keep names unique.
func (e *Engine) store(ctx context.Context, bookID uint, rank int, f Upload) (string, error) {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := candidateName(rank, f.Filename, attempt)

		taken, err := e.repo.FilenameTaken(ctx, bookID, name)
		if err != nil {
			return "", err
		}
		if taken {
			continue
		}

		err = e.files.SavePage(bookID, name, f.Content)
		if errors.Is(err, uploads.ErrExists) {
			continue
		}
		if err != nil {
			if !errors.Is(err, uploads.ErrStorage) {
				err = fmt.Errorf("%w: %w", uploads.ErrStorage, err)
			}
			return "", err
		}
		return name, nil
	}
	return "", fmt.Errorf("%w: no free name for %q", uploads.ErrStorage, f.Filename)
}

// Append stores the uploads after the book's last page, in input order.
// Uploads without a usable filename are skipped. Each image is written to
// disk before its row is inserted; when a write fails, Append stops and
// returns the pages stored so far together with an uploads.ErrStorage error.
func (e *Engine) Append(ctx context.Context, bookID uint, files []Upload) ([]entities.Page, error) {
	exists, err := e.books.Exists(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrBookNotFound
	}

	rank, err := e.repo.NextPageNumber(ctx, bookID)
	if err != nil {
		return nil, err
	}

	var created []entities.Page
	for _, f := range files {
		if f.Content == nil || uploads.SafeName(f.Filename) == "" {
			continue
		}
		name, err := e.store(ctx, bookID, rank, f)
		if err != nil {
			return created, err
		}

		page := entities.Page{BookID: bookID, Filename: name, PageNumber: rank}
		if err := e.repo.Create(ctx, &page); err != nil {
			if rmErr := e.files.RemovePage(bookID, name); rmErr != nil {
				e.log.Warn("failed to remove page file after insert error",
					zap.Uint("book_id", bookID), zap.String("file", name), zap.Error(rmErr))
			}
			return created, fmt.Errorf("insert page: %w", err)
		}

		created = append(created, page)
		rank++
	}

	e.log.Debug("pages appended", zap.Uint("book_id", bookID), zap.Int("count", len(created)))
	return created, nil
}

// Delete removes a page row, then its image. Failing to remove the image is
// logged and otherwise ignored.
func (e *Engine) Delete(ctx context.Context, bookID, pageID uint) (*entities.Page, error) {
	page, err := e.repo.GetInBook(ctx, bookID, pageID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPageNotFound
	}
	if err != nil {
		return nil, err
	}

	deleted, err := e.repo.DeleteInBook(ctx, bookID, pageID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrPageNotFound
	}

	if err := e.files.RemovePage(bookID, page.Filename); err != nil {
		e.log.Warn("failed to remove page file",
			zap.Uint("book_id", bookID), zap.String("file", page.Filename), zap.Error(err))
	}
	return page, nil
}

// Move swaps the page with its nearest neighbour in the given direction.
// Up means towards the front of the book.
func (e *Engine) Move(ctx context.Context, bookID, pageID uint, dir Direction) error {
	if dir != Up && dir != Down {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, string(dir))
	}

	return e.repo.Transaction(ctx, func(tx *pagesRepo.Repository) error {
		page, err := tx.GetInBook(ctx, bookID, pageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPageNotFound
		}
		if err != nil {
			return err
		}

		var neighbour *entities.Page
		if dir == Up {
			neighbour, err = tx.PreviousInBook(ctx, bookID, page.PageNumber)
		} else {
			neighbour, err = tx.NextInBook(ctx, bookID, page.PageNumber)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCannotMove
		}
		if err != nil {
			return err
		}

		if err := tx.SetPageNumber(ctx, page.ID, sentinelRank); err != nil {
			return err
		}
		if err := tx.SetPageNumber(ctx, neighbour.ID, page.PageNumber); err != nil {
			return err
		}
		return tx.SetPageNumber(ctx, page.ID, neighbour.PageNumber)
	})
}

// List returns a book's pages in rendering order.
func (e *Engine) List(ctx context.Context, bookID uint) ([]entities.Page, error) {
	return e.repo.ListByBook(ctx, bookID)
}
