// Package paths provides path normalization helpers shared by the other
// packages: every path handed to the filesystem goes through Resolve first,
// so callers always work with absolute, symlink-free paths.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fclairamb/expkit/internal/apperrors"
)

const dirPerm = 0750 // Directory permissions: rwxr-x---

// options controls normalization behavior.
type options struct {
	requireExists bool
	createParents bool
	createDir     bool
}

// Option configures NormalizeFile and NormalizeDir.
type Option func(*options)

// WithExistenceRequired makes a missing target an error.
func WithExistenceRequired() Option {
	return func(o *options) {
		o.requireExists = true
	}
}

// WithoutParents disables creation of missing parent directories.
func WithoutParents() Option {
	return func(o *options) {
		o.createParents = false
	}
}

// WithoutCreate disables creation of the directory itself.
func WithoutCreate() Option {
	return func(o *options) {
		o.createDir = false
	}
}

// NormalizeFile resolves a file path to its absolute, symlink-free form.
// Missing parent directories are created unless WithoutParents is given.
// With WithExistenceRequired, a missing target is an error wrapping
// fs.ErrNotExist.
func NormalizeFile(path string, opts ...Option) (string, error) {
	o := options{createParents: true}
	for _, opt := range opts {
		opt(&o)
	}

	resolved, err := Resolve(path)
	if err != nil {
		return "", err
	}

	if o.createParents {
		if err := os.MkdirAll(filepath.Dir(resolved), dirPerm); err != nil {
			return "", fmt.Errorf("create parent directories: %w", err)
		}
	}

	if o.requireExists {
		if _, err := os.Stat(resolved); err != nil {
			return "", fmt.Errorf("path %s: %w", resolved, err)
		}
	}

	return resolved, nil
}

// NormalizeDir resolves a directory path to its absolute, symlink-free form,
// creating the directory and all missing parents unless WithoutCreate is
// given. Creation is idempotent: an existing directory is not an error.
func NormalizeDir(path string, opts ...Option) (string, error) {
	o := options{createDir: true}
	for _, opt := range opts {
		opt(&o)
	}

	resolved, err := Resolve(path)
	if err != nil {
		return "", err
	}

	if o.createDir {
		if err := os.MkdirAll(resolved, dirPerm); err != nil {
			return "", fmt.Errorf("create directory: %w", err)
		}
	}

	if o.requireExists {
		if _, err := os.Stat(resolved); err != nil {
			return "", fmt.Errorf("path %s: %w", resolved, err)
		}
	}

	return resolved, nil
}

// Resolve returns the absolute, symlink-free form of path. The path does not
// have to exist: symlinks are resolved over the longest existing prefix and
// the remainder is appended unchanged.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", apperrors.ErrEmptyPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	prefix := abs
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(prefix)
		if err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("resolve %s: %w", prefix, err)
		}

		parent := filepath.Dir(prefix)
		if parent == prefix {
			// Walked all the way up without finding anything on disk.
			return abs, nil
		}
		rest = append(rest, filepath.Base(prefix))
		prefix = parent
	}
}
