package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FS writes content units as markdown files under a book's root folder.
type FS struct {
	root string
}

// NewFS returns a filesystem store rooted at the book folder.
func NewFS(root string) *FS {
	return &FS{root: root}
}

func (s *FS) path(kind Kind, pos Position) (string, error) {
	key, err := Key(kind, pos)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Exists reports whether the unit's file is present.
func (s *FS) Exists(ctx context.Context, kind Kind, pos Position) (bool, error) {
	path, err := s.path(kind, pos)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Save writes the unit's text, creating containing directories as needed.
func (s *FS) Save(ctx context.Context, kind Kind, pos Position, text string) error {
	path, err := s.path(kind, pos)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create content folder %q: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write content file %q: %w", path, err)
	}
	return nil
}
