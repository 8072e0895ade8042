package promo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher downloads a transport file by handle.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (io.ReadCloser, error)
}

// FileStore keeps a single local copy of the latest upload. Each save
// replaces the file atomically.
type FileStore struct {
	path    string
	fetcher Fetcher
}

// NewFileStore constructs a FileStore writing to path.
func NewFileStore(path string, fetcher Fetcher) *FileStore {
	return &FileStore{path: path, fetcher: fetcher}
}

func (s *FileStore) Save(ctx context.Context, upload Upload) error {
	if s == nil || s.fetcher == nil || strings.TrimSpace(s.path) == "" {
		return errors.New("file store is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if strings.TrimSpace(upload.FileID) == "" {
		return errors.New("file_id is required")
	}

	body, err := s.fetcher.Fetch(ctx, upload.FileID)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer body.Close()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp image: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace image: %w", err)
	}

	return nil
}

func (s *FileStore) Latest(ctx context.Context) (Image, bool, error) {
	if s == nil || strings.TrimSpace(s.path) == "" {
		return Image{}, false, errors.New("file store is not initialized")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Image{}, false, nil
		}
		return Image{}, false, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return Image{}, false, nil
	}

	return Image{Filename: filepath.Base(s.path), Data: data}, true, nil
}
