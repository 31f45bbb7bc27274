// Package fsio is the filesystem boundary of the editor. Every call returns
// a *Error that says what kind of failure happened, so callers can report it
// instead of aborting.
package fsio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Kind classifies a filesystem failure.
type Kind int

const (
	KindOther Kind = iota
	KindNotFound
	KindPermission
	KindExists
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission denied"
	case KindExists:
		return "already exists"
	case KindInvalid:
		return "invalid"
	default:
		return "i/o error"
	}
}

// Error is returned by every function in this package.
type Error struct {
	Op   string
	Path string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == k
	}
	return false
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindOther
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	case errors.Is(err, fs.ErrExist):
		kind = KindExists
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.EISDIR), errors.Is(err, syscall.ENOTDIR):
		kind = KindInvalid
	}
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// ReadText reads a whole file as text. No line-ending or encoding
// conversion happens.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", wrap("read", path, err)
	}
	return string(data), nil
}

// WriteText writes text verbatim, creating parent directories as needed.
func WriteText(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return wrap("write", path, err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return wrap("write", path, err)
	}
	return nil
}

// ReadDir returns the entries of dir in the order the filesystem yields
// them. Unlike os.ReadDir it does not sort.
func ReadDir(dir string) ([]fs.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, wrap("readdir", dir, err)
	}
	defer f.Close()
	entries, err := f.ReadDir(-1)
	if err != nil {
		return entries, wrap("readdir", dir, err)
	}
	return entries, nil
}

// CreateFile creates an empty file. An existing file is never truncated.
func CreateFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return wrap("create", path, err)
	}
	if err := f.Close(); err != nil {
		return wrap("create", path, err)
	}
	return nil
}

// CreateDir creates a single empty directory.
func CreateDir(path string) error {
	return wrap("mkdir", path, os.Mkdir(path, 0755))
}

// Remove deletes a file, or a directory together with everything below it.
func Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return wrap("remove", path, err)
	}
	if info.IsDir() {
		return wrap("remove", path, os.RemoveAll(path))
	}
	return wrap("remove", path, os.Remove(path))
}

// IsDir reports whether path is an existing directory.
func IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, wrap("stat", path, err)
	}
	return info.IsDir(), nil
}
