// Package catalog manages books, their covers and the notes on the index page.
// Page ordering is delegated to the pages engine.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mrlokans/readingroom/internal/database/books"
	"github.com/mrlokans/readingroom/internal/database/notes"
	"github.com/mrlokans/readingroom/internal/entities"
	"github.com/mrlokans/readingroom/internal/pages"
	"github.com/mrlokans/readingroom/internal/uploads"
)

const DefaultSuggestLimit = 8

var (
	ErrBookNotFound  = errors.New("book not found")
	ErrTitleRequired = errors.New("title is required")
)

// NewBook carries the fields of the admin "add book" form.
type NewBook struct {
	Title       string
	Author      string
	Description string
	Cover       *pages.Upload
	Pages       []pages.Upload
}

type Service struct {
	books *books.Repository
	notes *notes.Repository
	pages *pages.Engine
	files *uploads.Store
	log   *zap.Logger
}

func NewService(booksRepo *books.Repository, notesRepo *notes.Repository, engine *pages.Engine, files *uploads.Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{books: booksRepo, notes: notesRepo, pages: engine, files: files, log: log}
}

func (s *Service) ListBooks(ctx context.Context) ([]entities.Book, error) {
	return s.books.List(ctx)
}

func (s *Service) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.books.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	return book, err
}

// CreateBook inserts the book, stores its cover in the book's directory and
// appends its pages. A cover that cannot be stored undoes the insert. When a
// page fails to store, the book and the pages written before the failure are
// kept and the error is returned alongside them.
func (s *Service) CreateBook(ctx context.Context, nb NewBook) (*entities.Book, []entities.Page, error) {
	title := strings.TrimSpace(nb.Title)
	if title == "" {
		return nil, nil, ErrTitleRequired
	}

	book := &entities.Book{
		Title:       title,
		Author:      strings.TrimSpace(nb.Author),
		Description: strings.TrimSpace(nb.Description),
	}
	if err := s.books.Create(ctx, book); err != nil {
		return nil, nil, fmt.Errorf("create book: %w", err)
	}

	// Leftovers of a deleted book with the same ID belong to nobody
	if err := s.files.RemoveBook(book.ID); err != nil {
		s.log.Warn("failed to clear book directory", zap.Uint("book_id", book.ID), zap.Error(err))
	}

	if err := s.storeCover(ctx, book, nb.Cover); err != nil {
		s.discard(book.ID)
		return nil, nil, err
	}
	s.log.Info("book created", zap.Uint("book_id", book.ID), zap.String("title", book.Title))

	created, err := s.pages.Append(ctx, book.ID, nb.Pages)
	return book, created, err
}

func (s *Service) storeCover(ctx context.Context, book *entities.Book, cover *pages.Upload) error {
	if cover == nil || cover.Content == nil {
		return nil
	}
	name := uploads.CoverName(cover.Filename)
	if name == "" {
		return nil
	}
	if err := s.files.SaveCover(book.ID, name, cover.Content); err != nil {
		return err
	}
	if err := s.books.SetImage(ctx, book.ID, name); err != nil {
		return fmt.Errorf("set cover: %w", err)
	}
	book.Image = &name
	return nil
}

// discard undoes a half created book. Failures are only logged; the sweeper
// picks up whatever stays on disk.
func (s *Service) discard(id uint) {
	if _, err := s.books.Delete(context.Background(), id); err != nil {
		s.log.Warn("failed to remove book after cover error", zap.Uint("book_id", id), zap.Error(err))
	}
	if err := s.files.RemoveBook(id); err != nil {
		s.log.Warn("failed to remove book directory", zap.Uint("book_id", id), zap.Error(err))
	}
}

// DeleteBook removes the book with its pages and sessions, then its
// directory with the cover and page images. Leftover files are only logged.
func (s *Service) DeleteBook(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}

	deleted, err := s.books.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrBookNotFound
	}

	if err := s.files.RemoveBook(id); err != nil {
		s.log.Warn("failed to remove book directory", zap.Uint("book_id", id), zap.Error(err))
	}
	return book, nil
}

// Search returns books whose title or author contains q, ignoring case.
// A blank query matches nothing.
func (s *Service) Search(ctx context.Context, q string) ([]entities.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []entities.Book{}, nil
	}
	return s.books.Search(ctx, q, 0)
}

// Suggest is Search capped at limit results; non-positive limits use DefaultSuggestLimit.
func (s *Service) Suggest(ctx context.Context, q string, limit int) ([]entities.Book, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []entities.Book{}, nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	return s.books.Search(ctx, q, limit)
}

func (s *Service) ListNotes(ctx context.Context) ([]entities.Note, error) {
	return s.notes.List(ctx)
}

// AddNote stores a note. An empty title is silently ignored and returns nil.
func (s *Service) AddNote(ctx context.Context, title, content string) (*entities.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}
	note := &entities.Note{Title: title, Content: strings.TrimSpace(content)}
	if err := s.notes.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *Service) DeleteNote(ctx context.Context, id uint) error {
	return s.notes.Delete(ctx, id)
}
