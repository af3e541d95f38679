package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persister stores the encoded binding set as one opaque document.
type Persister interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Ping(ctx context.Context) error
}

type FilePersister struct {
	path string
	perm os.FileMode
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path, perm: 0o644}
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Read(_ context.Context) ([]byte, error) {
	raw, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoState
	}
	return raw, err
}

func (p *FilePersister) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return atomicWrite(p.path, data, p.perm)
}

func (p *FilePersister) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(p.path))
	return err
}

// atomicWrite writes data to a temp file in the target directory and renames
// it over path, so readers see either the old or the new contents.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
