// Package upload stores user-supplied photos on local disk and serves them
// back under a public URL prefix.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/erazemk/findme/internal/imaging"
)

// URLPrefix is the public path under which stored photos are served.
const URLPrefix = "/uploads/"

// DefaultMaxBytes bounds a single upload.
const DefaultMaxBytes = 5 << 20

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload too large")

// Store saves normalized photos into Dir.
type Store struct {
	Dir      string
	MaxBytes int64
	Options  imaging.Options
}

// New creates the upload directory if needed and returns a Store.
func New(dir string, maxBytes int64) (*Store, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{Dir: dir, MaxBytes: maxBytes, Options: imaging.DefaultOptions}, nil
}

// Save normalizes the photo read from r, writes it under a fresh random name
// and returns its public path, e.g. "/uploads/<uuid>.jpg".
func (s *Store) Save(r io.Reader) (string, error) {
	limited := io.LimitReader(r, s.MaxBytes+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(buf)) > s.MaxBytes {
		return "", fmt.Errorf("%w: limit is %s", ErrTooLarge, humanize.IBytes(uint64(s.MaxBytes)))
	}

	photo, err := imaging.Normalize(bytes.NewReader(buf), s.Options)
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + ".jpg"
	if err := os.WriteFile(filepath.Join(s.Dir, name), photo.Data, 0o644); err != nil {
		return "", fmt.Errorf("writing upload: %w", err)
	}
	return URLPrefix + name, nil
}

// Remove deletes a previously saved photo given its public path. Paths that
// were not produced by Save are ignored.
func (s *Store) Remove(publicPath string) error {
	name, ok := s.fileName(publicPath)
	if !ok {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing upload: %w", err)
	}
	return nil
}

func (s *Store) fileName(publicPath string) (string, bool) {
	if !strings.HasPrefix(publicPath, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(publicPath, URLPrefix)
	if name == "" || name != path.Base(name) || name == "." || name == ".." {
		return "", false
	}
	return name, true
}

// Handler serves stored photos. It is meant to be mounted at URLPrefix.
// Directories are never listed.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(URLPrefix, http.FileServer(filesOnly{http.Dir(s.Dir)}))
}

// filesOnly hides directories, so stored names cannot be enumerated.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// Describe returns a human readable summary of the limit, for logs.
func (s *Store) Describe() string {
	return fmt.Sprintf("%s (max %s per photo)", s.Dir, humanize.IBytes(uint64(s.MaxBytes)))
}
