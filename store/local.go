package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local is a Store whose tree lives in a single JSON file.
type Local struct {
	*treeStore
	file *fileMedium
}

var _ Store = (*Local)(nil)

// NewLocal opens the JSON file named by config.FileName, creating it with
// {} when missing. A file that does not hold a JSON object fails with
// ErrMalformedMedium.
func NewLocal(ctx context.Context, config Config) (*Local, error) {
	config.validate()
	p, err := resolveFileName(config.FileName)
	if err != nil {
		return nil, err
	}
	m := &fileMedium{path: p}
	ts, err := newTreeStore(ctx, m, config)
	if err != nil {
		return nil, err
	}
	return &Local{treeStore: ts, file: m}, nil
}

// Path returns the absolute path of the backing file.
func (l *Local) Path() string {
	return l.file.path
}

// Reload replaces the in-memory tree with the file's current content.
// Unflushed WithoutWrite mutations are lost.
func (l *Local) Reload(ctx context.Context) error {
	raw, exists, err := l.file.read(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", l.file, err)
	}
	data := map[string]any{}
	if exists {
		data, err = parseTree(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedMedium, l.file, err)
		}
	}
	l.mu.Lock()
	l.data = data
	l.mu.Unlock()
	return nil
}

// resolveFileName appends ".json" when missing and makes the name absolute
// against the working directory.
func resolveFileName(name string) (string, error) {
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	p, err := filepath.Abs(name)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", name, err)
	}
	return p, nil
}

// fileMedium stores the tree in one file, replaced atomically on write.
type fileMedium struct {
	path string
}

func (f *fileMedium) String() string { return f.path }

func (f *fileMedium) read(ctx context.Context) ([]byte, bool, error) {
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// write goes through a temp file in the same directory and a rename so
// readers never observe a partial tree.
func (f *fileMedium) write(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), tmp.Close(), os.Remove(tmpPath))
	}
	if err := tmp.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil { //nolint:gosec // G302: the store is a plain data file
		return errors.Join(fmt.Errorf("failed to chmod temp file: %w", err), os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return errors.Join(fmt.Errorf("failed to rename temp file: %w", err), os.Remove(tmpPath))
	}
	return nil
}
