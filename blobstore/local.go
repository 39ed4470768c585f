package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Local is a filesystem-backed store rooted at a directory. Writes go
// through a temp file, fsync, and rename, so a crash never leaves a
// partially written blob under its final name.
type Local struct {
	dir string
}

// NewLocal creates a local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Local{dir: dir}, nil
}

// Get implements Store.
func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return data, nil
}

// Put implements Store.
func (l *Local) Put(_ context.Context, name string, data []byte) error {
	final := filepath.Join(l.dir, name)

	tmp, err := os.CreateTemp(l.dir, name+".tmp-*")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return syncDir(l.dir)
}

// Delete implements Store. Deleting a missing blob is not an error.
func (l *Local) Delete(_ context.Context, name string) error {
	if err := os.Remove(filepath.Join(l.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// List implements Store.
func (l *Local) List(_ context.Context, prefix string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		if strings.HasPrefix(e.Name(), prefix) {
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	return names, nil
}

// syncDir makes the rename durable on filesystems that require a
// directory fsync.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Sync()
}
