// Package filesystem provides file-based repositories for the infrastructure layer.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// FileDescriptorRepository implements ports.DescriptorRepository using the
// local filesystem. The format follows the file extension (see CodecFor).
type FileDescriptorRepository struct{}

// NewFileDescriptorRepository creates a new FileDescriptorRepository.
func NewFileDescriptorRepository() *FileDescriptorRepository {
	return &FileDescriptorRepository{}
}

// Load reads a descriptor file from the given path.
// A missing file or directory yields (nil, nil).
func (r *FileDescriptorRepository) Load(ctx context.Context, path string) (*entities.DescriptorFile, error) {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	root, err := os.OpenRoot(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open directory %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.Open(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open descriptor file %q: %w", base, err)
	}
	defer func() { _ = file.Close() }()

	return decode(file, path)
}

// Save writes a descriptor file, creating its directory if needed.
func (r *FileDescriptorRepository) Save(ctx context.Context, descriptors *entities.DescriptorFile, path string) error {
	if err := descriptors.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	base := filepath.Base(path)
	file, err := root.OpenFile(base, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating descriptor file %q: %w", base, err)
	}

	if err := CodecFor(path).Encode(file, descriptors); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Exists checks if a descriptor file exists at the given path.
func (r *FileDescriptorRepository) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// LoadFS reads a descriptor file from fsys, typically an embedded bundle.
// Unlike Load, a missing file is an error.
func LoadFS(fsys fs.FS, path string) (*entities.DescriptorFile, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open descriptor file %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	return decode(file, path)
}

func decode(file fs.File, path string) (*entities.DescriptorFile, error) {
	descriptors, err := CodecFor(path).Decode(file)
	if err != nil {
		return nil, err
	}
	if err := descriptors.Validate(); err != nil {
		return nil, errors.Join(fmt.Errorf("invalid descriptor file %q", path), err)
	}
	return descriptors, nil
}
