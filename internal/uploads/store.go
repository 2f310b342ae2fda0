// Package uploads stores cover and page images on local disk.
//
// Every book owns one directory under the root, holding its cover and its
// page images:
//
//	<root>/<bookID>/cover_<name>   the cover
//	<root>/<bookID>/<name>         page images
//
// Files are written to a temp file in the destination directory and linked
// into place, so readers never observe a partially written image and an
// existing file is never replaced.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrStorage wraps every failure to write an upload to disk.
var ErrStorage = errors.New("storage error")

// ErrPathTraversal is returned when a name would resolve outside the store root.
var ErrPathTraversal = errors.New("path escapes upload root")

// ErrExists is returned, wrapped in ErrStorage, when the destination name is
// taken. Nothing has been read from the content at that point.
var ErrExists = errors.New("file already exists")

const coverPrefix = "cover_"

// Store handles reading and writing uploaded images.
type Store struct {
	root string
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve root: %v", ErrStorage, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create root: %v", ErrStorage, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string {
	return s.root
}

// BookDir returns the directory holding a book's page images.
func (s *Store) BookDir(bookID uint) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(bookID), 10))
}

// SafeName reduces a client supplied filename to its final path element.
// Returns "" when nothing usable remains.
func SafeName(original string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return ""
	}
	return name
}

// SavePage writes a page image into the book's directory.
func (s *Store) SavePage(bookID uint, name string, r io.Reader) error {
	return s.save(s.BookDir(bookID), name, r)
}

// CoverName is the on-disk name of a cover uploaded as original. Returns ""
// when the filename is unusable.
func CoverName(original string) string {
	name := SafeName(original)
	if name == "" {
		return ""
	}
	return coverPrefix + name
}

// SaveCover writes a cover image into the book's directory.
func (s *Store) SaveCover(bookID uint, name string, r io.Reader) error {
	return s.save(s.BookDir(bookID), name, r)
}

// RemovePage deletes one file from the book's directory. A missing file is not an error.
func (s *Store) RemovePage(bookID uint, name string) error {
	path, err := s.resolve(s.BookDir(bookID), name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemoveBook deletes a book's directory with its cover and pages.
func (s *Store) RemoveBook(bookID uint) error {
	return os.RemoveAll(s.BookDir(bookID))
}

// PageFiles lists the regular files in a book's directory, cover included.
func (s *Store) PageFiles(bookID uint) ([]string, error) {
	return listFiles(s.BookDir(bookID))
}

// BookIDs returns the IDs of every book directory present on disk.
func (s *Store) BookIDs() ([]uint, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(e.Name(), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func (s *Store) save(dir, name string, r io.Reader) error {
	dest, err := s.resolve(dir, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", ErrStorage, err)
	}
	// Checked before r is read so the caller can retry under another name
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("%w: %w: %s", ErrStorage, ErrExists, name)
	}

	// Create temp file in same directory for atomic write
	tmpFile, err := os.CreateTemp(dir, ".upload_tmp_")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	// Link fails instead of replacing a file created since the check above
	if err := os.Link(tmpPath, dest); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s was created concurrently", ErrStorage, name)
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// resolve joins name onto dir and rejects anything that lands outside the root.
func (s *Store) resolve(dir, name string) (string, error) {
	if SafeName(name) != name {
		return "", ErrPathTraversal
	}
	joined := filepath.Clean(filepath.Join(dir, name))
	rel, err := filepath.Rel(s.root, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", ErrPathTraversal
	}
	return joined, nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".upload_tmp_") {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ModTime returns when a file in the book's directory was last written.
func (s *Store) ModTime(bookID uint, name string) (time.Time, error) {
	path, err := s.resolve(s.BookDir(bookID), name)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
