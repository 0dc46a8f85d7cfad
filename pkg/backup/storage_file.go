package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage keeps archives as plain files under one directory.
type FileStorage struct {
	dir string
}

func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// path strips any directory components from name so archives cannot escape
// the storage directory.
func (s *FileStorage) path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}

func (s *FileStorage) Save(ctx context.Context, name string, data io.Reader) error {
	file, err := os.Create(s.path(name))
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("write backup file: %w", err)
	}
	return file.Sync()
}

func (s *FileStorage) Load(ctx context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("open backup file: %w", err)
	}
	return file, nil
}

func (s *FileStorage) List(ctx context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func (s *FileStorage) Delete(ctx context.Context, name string) error {
	return os.Remove(s.path(name))
}
