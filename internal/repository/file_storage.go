package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/nikolayk812/coursecart/internal/port"
	"github.com/spf13/afero"
)

type fileStorage struct {
	fs   afero.Fs
	dir  string
	path string
}

// NewFileStorage keeps the cart in <dir>/<key>.json. Writes go through a
// temporary file and a rename so a crash never leaves a torn state behind.
func NewFileStorage(fsys afero.Fs, dir, key string) (port.CartStorage, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is empty")
	}

	return &fileStorage{
		fs:   fsys,
		dir:  dir,
		path: filepath.Join(dir, key+".json"),
	}, nil
}

func (s *fileStorage) Load(_ context.Context) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("afero.ReadFile: %w", err)
	}

	return data, nil
}

func (s *fileStorage) Save(ctx context.Context, data []byte) (saveErr error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("fs.MkdirAll: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, s.dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("afero.TempFile: %w", err)
	}

	defer func() {
		if saveErr != nil {
			if removeErr := s.fs.Remove(tmp.Name()); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
				saveErr = errors.Join(saveErr, fmt.Errorf("fs.Remove: %w", removeErr))
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.Write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("tmp.Sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("tmp.Close: %w", err)
	}

	if err := s.fs.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("fs.Rename: %w", err)
	}

	return nil
}
