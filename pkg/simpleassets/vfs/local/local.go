package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

const (
	tempPrefix  = ".simpleassets-tmp-"
	tempPattern = tempPrefix + "*"
	lockSuffix  = ".simpleassets.lock"
	lockRetry   = 10 * time.Millisecond
)

// Backend is a filesystem implementation of the simpleassets.FileSystem interface
type Backend struct {
	baseDir string
}

// Config options for the local backend
type Config struct {
	BaseDir string // Directory that locations are resolved against
}

// New creates a new local file system backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	abs, err := filepath.Abs(config.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{baseDir: abs}, nil
}

// BaseDir returns the absolute base directory
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// resolve maps a location to a path under baseDir, rejecting escapes.
func (b *Backend) resolve(location string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash("/" + location))
	full := filepath.Join(b.baseDir, clean)
	if full != b.baseDir && !strings.HasPrefix(full, b.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s escapes base directory", simpleassets.ErrInvalidPath, location)
	}
	return full, nil
}

// Open opens a file for reading
func (b *Backend) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	full, err := b.resolve(location)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", simpleassets.ErrNotFound, location)
	} else if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// WriteFile writes to a temporary file in the target directory and renames it
// over the target, holding a lock file so concurrent writers from other
// processes are serialized.
func (b *Backend) WriteFile(ctx context.Context, location string, r io.Reader) error {
	full, err := b.resolve(location)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	lock := flock.New(full + lockSuffix)
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire write lock for %s", location)
	}
	// The lock file is left in place; removing it would let two writers
	// lock different inodes.
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, full); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Exists reports whether a regular file exists at location
func (b *Backend) Exists(ctx context.Context, location string) (bool, error) {
	full, err := b.resolve(location)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to get file info: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

// Remove deletes a file and any directories it leaves empty
func (b *Backend) Remove(ctx context.Context, location string) error {
	full, err := b.resolve(location)
	if err != nil {
		return err
	}

	if err := os.Remove(full); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", simpleassets.ErrNotFound, location)
	} else if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	b.cleanupEmptyDirectories(filepath.Dir(full))
	return nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if dir == b.baseDir || !strings.HasPrefix(dir, b.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}

// List walks the directory at prefix and returns slash-separated locations
// of every regular file, skipping the backend's own temporary and lock files.
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	start, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var out []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, lockSuffix) || strings.HasPrefix(name, tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(b.baseDir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}
	slices.Sort(out)
	return out, nil
}
