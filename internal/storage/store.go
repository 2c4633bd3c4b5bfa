package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var ErrInvalidName = errors.New("invalid file name")

// Store keeps uploaded files flat under a single root directory.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore roots the store at dir inside fs, creating it if needed.
func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{fs: fs, root: dir}, nil
}

// NewOSStore is the production store backed by the local disk.
func NewOSStore(dir string) (*Store, error) {
	return NewStore(afero.NewOsFs(), dir)
}

// Save writes reader to name under the store root.
func (s *Store) Save(ctx context.Context, name string, reader io.Reader) (int64, error) {
	p, err := s.path(name)
	if err != nil {
		return 0, err
	}
	f, err := s.fs.Create(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(f, reader)
}

// Open returns a reader for a stored file.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	return s.fs.OpenFile(p, os.O_RDONLY, 0)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	return s.fs.Remove(p)
}

// FileSystem exposes the store root for static serving.
func (s *Store) FileSystem() http.FileSystem {
	return afero.NewHttpFs(afero.NewBasePathFs(s.fs, s.root))
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.root, name), nil
}

// NameFromReference extracts the stored file name from a message reference,
// which is either a bare name or the URL returned by the upload endpoint.
func NameFromReference(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		p = u.Path
	}
	return path.Base(p)
}
