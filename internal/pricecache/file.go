package pricecache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// FileStore persists a value snapshot as one JSON document on local disk.
type FileStore struct {
	path string
}

// NewFileStore returns a store writing to path. The parent directory is
// created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the target file.
func (f *FileStore) Path() string { return f.path }

// Load reads the snapshot file. A missing file yields domain.ErrNotFound; a
// malformed one, or one lacking items or fetched_at, yields domain.ErrBadPayload.
func (f *FileStore) Load() (domain.ValueSnapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ValueSnapshot{}, domain.ErrNotFound
		}
		return domain.ValueSnapshot{}, fmt.Errorf("pricecache: read %s: %w", f.path, err)
	}

	var doc domain.SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ValueSnapshot{}, fmt.Errorf("pricecache: decode %s: %w: %v", f.path, domain.ErrBadPayload, err)
	}
	snap, ok := doc.Snapshot()
	if !ok {
		return domain.ValueSnapshot{}, fmt.Errorf("pricecache: decode %s: %w: missing items or fetched_at", f.path, domain.ErrBadPayload)
	}
	return snap, nil
}

// Save writes the snapshot through a temp file in the target directory,
// fsyncs it and renames it over the target. Readers never see a partial file.
func (f *FileStore) Save(snap domain.ValueSnapshot) error {
	data, err := json.Marshal(domain.NewSnapshotDocument(snap))
	if err != nil {
		return fmt.Errorf("pricecache: encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pricecache: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "itemdetails-*.json.tmp")
	if err != nil {
		return fmt.Errorf("pricecache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("pricecache: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("pricecache: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("pricecache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("pricecache: rename into %s: %w", f.path, err)
	}
	committed = true
	return nil
}
