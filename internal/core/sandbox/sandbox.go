// Package sandbox authorizes file paths against a single root directory.
// Every read and write performed on behalf of a reviewer or repairer goes
// through a Sandbox first.
package sandbox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideSandbox is returned for absolute paths, paths containing a
	// parent-directory segment, and paths that resolve outside the root.
	ErrOutsideSandbox = errors.New("path outside sandbox")
	// ErrNotFound is returned when a read target does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrNotAFile is returned when a read target is a directory or special file.
	ErrNotAFile = errors.New("not a regular file")
)

// PathError records the operation and sandbox-relative path that failed
// authorization.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error { return e.Err }

// Sandbox is an immutable, symlink-resolved root directory. It holds no
// other state and is safe for concurrent use.
type Sandbox struct {
	root string
}

// New resolves root to an absolute, symlink-free directory path.
func New(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %s is not a directory", root)
	}

	return &Sandbox{root: resolved}, nil
}

// Root returns the absolute sandbox root.
func (s *Sandbox) Root() string {
	return s.root
}

// AuthorizeRead validates path and returns its resolved absolute location.
// The target must exist and be a regular file.
func (s *Sandbox) AuthorizeRead(path string) (string, error) {
	resolved, err := s.resolve("read", path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &PathError{Op: "read", Path: path, Err: ErrNotFound}
		}
		return "", &PathError{Op: "read", Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &PathError{Op: "read", Path: path, Err: ErrNotAFile}
	}

	return resolved, nil
}

// AuthorizeWrite validates path and returns its resolved absolute location,
// creating any missing parent directories. Directories are only created
// once the target is known to lie inside the root.
func (s *Sandbox) AuthorizeWrite(path string) (string, error) {
	resolved, err := s.resolve("write", path)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(resolved); err == nil && !info.Mode().IsRegular() {
		return "", &PathError{Op: "write", Path: path, Err: ErrNotAFile}
	}

	parent := filepath.Dir(resolved)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", &PathError{Op: "write", Path: path, Err: err}
	}

	// Re-check the parent after creation in case part of it was swapped
	// for a symlink in the meantime.
	realParent, err := filepath.EvalSymlinks(parent)
	if err != nil {
		return "", &PathError{Op: "write", Path: path, Err: err}
	}
	if !s.contains(realParent) {
		return "", &PathError{Op: "write", Path: path, Err: ErrOutsideSandbox}
	}

	return filepath.Join(realParent, filepath.Base(resolved)), nil
}

// Stat authorizes path like AuthorizeRead but accepts any existing file
// type. Missing targets report ErrNotFound.
func (s *Sandbox) Stat(path string) (fs.FileInfo, error) {
	resolved, err := s.resolve("stat", path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PathError{Op: "stat", Path: path, Err: ErrNotFound}
		}
		return nil, &PathError{Op: "stat", Path: path, Err: err}
	}
	return info, nil
}

// ReadDir lists the entries of a directory inside the sandbox.
func (s *Sandbox) ReadDir(path string) ([]fs.DirEntry, error) {
	resolved, err := s.resolve("readdir", path)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &PathError{Op: "readdir", Path: path, Err: ErrNotFound}
		}
		return nil, &PathError{Op: "readdir", Path: path, Err: err}
	}
	return entries, nil
}

// ReadFile authorizes path for reading and returns its contents.
func (s *Sandbox) ReadFile(path string) ([]byte, error) {
	resolved, err := s.AuthorizeRead(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved)
}

// WriteFile authorizes path for writing and replaces its contents.
func (s *Sandbox) WriteFile(path string, data []byte) error {
	resolved, err := s.AuthorizeWrite(path)
	if err != nil {
		return err
	}
	return os.WriteFile(resolved, data, 0o644)
}

// Rel converts a host path (absolute, or relative to the working directory)
// to the slash-separated sandbox-relative form the other methods expect.
func (s *Sandbox) Rel(hostPath string) (string, error) {
	abs, err := filepath.Abs(hostPath)
	if err != nil {
		return "", err
	}

	resolved, err := evalExisting(abs)
	if err != nil {
		return "", &PathError{Op: "rel", Path: hostPath, Err: err}
	}
	if !s.contains(resolved) {
		return "", &PathError{Op: "rel", Path: hostPath, Err: ErrOutsideSandbox}
	}

	rel, err := filepath.Rel(s.root, resolved)
	if err != nil {
		return "", &PathError{Op: "rel", Path: hostPath, Err: err}
	}
	return filepath.ToSlash(rel), nil
}

// resolve applies the syntactic checks, joins path onto the root, follows
// symlinks and verifies containment.
func (s *Sandbox) resolve(op, path string) (string, error) {
	if err := checkSyntax(path); err != nil {
		return "", &PathError{Op: op, Path: path, Err: err}
	}

	joined := filepath.Join(s.root, filepath.FromSlash(path))
	resolved, err := evalExisting(joined)
	if err != nil {
		return "", &PathError{Op: op, Path: path, Err: err}
	}

	if !s.contains(resolved) {
		return "", &PathError{Op: op, Path: path, Err: ErrOutsideSandbox}
	}
	return resolved, nil
}

func (s *Sandbox) contains(p string) bool {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// checkSyntax rejects absolute paths and any ".." segment on the raw input,
// before cleaning, so traversal is refused even when it would land back
// inside the root.
func checkSyntax(path string) error {
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) || filepath.VolumeName(path) != "" {
		return ErrOutsideSandbox
	}

	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for _, seg := range segments {
		if seg == ".." {
			return ErrOutsideSandbox
		}
	}
	return nil
}

// evalExisting resolves symlinks for the deepest existing ancestor of p and
// re-attaches the missing remainder. A dangling symlink cannot be checked
// for containment and is rejected.
func evalExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(rest) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, rest[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if _, lerr := os.Lstat(cur); lerr == nil {
			return "", ErrOutsideSandbox
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append(rest, filepath.Base(cur))
		cur = parent
	}
}
