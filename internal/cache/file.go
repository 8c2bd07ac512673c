package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Houeta/batch-geocoder/internal/models"
)

// FileStore keeps the cache in memory and persists it wholesale to a single
// JSON file. Flush writes to a temp file in the destination directory and
// renames it over the old state, so a crash mid-write never corrupts the
// previously persisted cache.
type FileStore struct {
	path  string
	log   *slog.Logger
	data  map[string]models.CacheEntry
	dirty bool
}

// NewFileStore loads the persisted cache from path. A missing file yields an
// empty store; an unparsable file is logged as a warning and also yields an
// empty store, so a broken cache never aborts a run.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	store := &FileStore{
		path: path,
		log:  log,
		data: make(map[string]models.CacheEntry),
	}

	if err := store.load(); err != nil {
		log.Warn("Could not load cache file, starting with empty cache", "path", path, "error", err)
	}

	return store
}

func (fs *FileStore) load() error {
	raw, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	data := make(map[string]models.CacheEntry)
	if err = json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	fs.data = data
	return nil
}

// Lookup returns the cached entry for key, or nil when absent.
func (fs *FileStore) Lookup(_ context.Context, key string) (*models.CacheEntry, error) {
	entry, ok := fs.data[key]
	if !ok {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	return &entry, nil
}

// Insert stores a successful entry in memory. The file is not touched until
// the next Flush.
func (fs *FileStore) Insert(_ context.Context, key string, entry models.CacheEntry) error {
	fs.data[key] = entry
	fs.dirty = true
	return nil
}

// Flush writes the full mapping to disk atomically. It is a no-op when no
// insert happened since the last flush, so repeated flushes leave the
// persisted state byte-identical.
func (fs *FileStore) Flush(ctx context.Context) error {
	if !fs.dirty {
		return nil
	}

	raw, err := json.MarshalIndent(fs.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(fs.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err = tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err = os.Rename(tmp.Name(), fs.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}

	fs.dirty = false
	fs.log.InfoContext(ctx, "Cache saved", "path", fs.path, "entries", len(fs.data))
	return nil
}

// Len reports the number of entries currently in memory.
func (fs *FileStore) Len(_ context.Context) (int, error) {
	return len(fs.data), nil
}
