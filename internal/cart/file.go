package cart

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileBlob keeps the cart in a JSON file. Writes go to a temp file in the
// same directory and are renamed into place.
type FileBlob struct {
	path string
}

// NewFileBlob creates a file-backed blob at path.
func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

// Path returns the file location.
func (b *FileBlob) Path() string { return b.path }

// Load reads the file, returning nil when it does not exist yet.
func (b *FileBlob) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save replaces the file atomically through a temp file in the same
// directory, creating the directory if needed.
func (b *FileBlob) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cart dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".cart-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path)
}

// Delete removes the file. A missing file is not an error.
func (b *FileBlob) Delete(_ context.Context) error {
	err := os.Remove(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
