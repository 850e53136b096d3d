package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"faceattend/internal/logger"
)

// Documents is a file-backed JSON document store.
//
// Each named document is a whole JSON file under the root directory.
// Writers must hold the per-key lock across the full read-modify-write;
// writes land atomically (temp file + rename) so unlocked readers always
// observe a complete document.
type Documents struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewDocuments creates the store rooted at dir.
func NewDocuments(dir string) (*Documents, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Documents{root: dir, locks: make(map[string]*sync.Mutex)}, nil
}

// Lock acquires the mutex for a resource key and returns its unlock func.
// Keys are logical ("gallery", "ledger:<date>"), not file names.
func (d *Documents) Lock(key string) func() {
	d.mu.Lock()
	m, ok := d.locks[key]
	if !ok {
		m = &sync.Mutex{}
		d.locks[key] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Load reads a document into v. A missing file leaves v untouched; a
// corrupt file is logged and likewise falls back to the caller's default.
// This favors availability over durability: corrupted collections silently
// reset instead of taking the service down.
func (d *Documents) Load(name string, v interface{}) error {
	raw, err := os.ReadFile(d.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logger.WithError(err).WithField("document", name).Warn("corrupt document, falling back to empty default")
		return nil
	}
	return nil
}

// Save writes v as indented JSON via a temp file and rename.
func (d *Documents) Save(name string, v interface{}) error {
	path := d.path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", name, err)
	}

	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("temp file for %s: %w", name, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// List returns the file names directly under a subdirectory of the root.
func (d *Documents) List(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(d.root, filepath.FromSlash(dir)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *Documents) path(name string) string {
	return filepath.Join(d.root, filepath.FromSlash(name))
}
