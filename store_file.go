package marketwatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore persists snapshots as one JSON file per cache key in a
// directory. Writes go through a temporary file renamed into place, so a
// concurrent reader sees either the old file or the complete new one.
type FileStore struct {
	dir string
}

// NewFileStore returns a store rooted at dir. The directory is created
// on the first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Load reads the snapshot for key, or (nil, nil) when none was ever saved.
func (s *FileStore) Load(_ context.Context, key string) (*Snapshot, error) {
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot %q: %w", s.path(key), err)
	}
	defer f.Close()
	snap, err := decodeSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("cannot decode snapshot %q: %w", s.path(key), err)
	}
	return snap, nil
}

// Save overwrites the snapshot for key atomically.
func (s *FileStore) Save(_ context.Context, key string, snap *Snapshot) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("cannot create cache dir %q: %w", s.dir, err)
	}
	tmp, err := os.CreateTemp(s.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create snapshot temp file: %w", err)
	}
	if err := encodeSnapshot(tmp, snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cannot publish snapshot %q: %w", s.path(key), err)
	}
	return nil
}
