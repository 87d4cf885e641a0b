package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileCollections keeps each collection in <dir>/<name>.json.  Writes go
// to a temporary file in the same directory which is then renamed over the
// target, so a crash mid-write leaves the previous file intact.
type FileCollections struct {
	dir string
	mu  sync.Mutex
}

// NewFileCollections returns a file backend rooted at dir.  The directory
// is created on first write.
func NewFileCollections(dir string) *FileCollections {
	return &FileCollections{dir: dir}
}

// Dir returns the data directory.
func (f *FileCollections) Dir() string { return f.dir }

func (f *FileCollections) path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *FileCollections) ReadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(f.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	records, err := decodeArray(body)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return records, nil
}

func (f *FileCollections) WriteCollection(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := encodeArray(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", f.dir, err)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, f.path(name)); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// ResolveDataDir picks the directory holding the collection files.  A
// non-empty root wins outright.  Otherwise the search walks up from start
// until it reaches a directory whose base name equals marker and returns
// its "data" subdirectory.
func ResolveDataDir(root, marker, start string) (string, error) {
	if root != "" {
		return filepath.Abs(root)
	}
	if marker == "" {
		return "", errors.New("data root: no DATA_ROOT and no marker directory configured")
	}
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	for {
		if filepath.Base(dir) == marker {
			return filepath.Join(dir, "data"), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("data root: no %q directory above %s", marker, start)
		}
		dir = parent
	}
}
