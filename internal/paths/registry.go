package paths

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Resolves named roots to absolute paths and owns temp allocation.
//
// A registry is created once per recipe run. All filesystem access from
// recipe code is routed through it, which is what makes simulation possible:
// swapping the backing filesystem for an in-memory one changes no recipe
// code.
type Registry struct {
	fs            afero.Fs          // Backing filesystem (OS or in-memory).
	roots         map[string]string // Root name to absolute path.
	temps         []string          // Allocated temp paths, removed by CleanupAll.
	tempSeq       int               // Sequence counter for deterministic temp names.
	deterministic bool              // Whether temp names use the stable scheme.
	checkoutDir   string            // Deprecated settable-once slot.
	checkoutSet   bool              // Whether checkoutDir has been written.
	warnings      []string          // Deprecation warnings observed during the run.
}

// Creates a new registry over the given filesystem.
func NewRegistry(fs afero.Fs) *Registry {
	return &Registry{
		fs:    fs,
		roots: make(map[string]string),
	}
}

// Creates a registry over an in-memory filesystem with stable temp naming.
//
// Temp paths are derived from a sequence counter and the caller-supplied
// prefix, so two simulation runs with the same inputs allocate identical
// paths.
func NewSimRegistry() *Registry {
	r := NewRegistry(afero.NewMemMapFs())
	r.deterministic = true
	return r
}

// Returns the backing filesystem.
func (r *Registry) Fs() afero.Fs {
	return r.fs
}

// Names a root, binding it to an absolute path.
//
// Registering the same name twice is an error; roots are immutable for the
// duration of a run.
func (r *Registry) RegisterRoot(name, path string) error {
	if _, ok := r.roots[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoot, name)
	}
	r.roots[name] = path
	return nil
}

// Resolves a root name to its absolute path.
func (r *Registry) Root(name string) (string, error) {
	path, ok := r.roots[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownRoot, name)
	}
	return path, nil
}

// Returns the registered root names in sorted order.
func (r *Registry) Roots() []string {
	names := make([]string, 0, len(r.roots))
	for name := range r.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Joins path segments beneath a named root.
//
// Pure construction: the result is not created or checked on the filesystem.
func (r *Registry) Join(root string, segments ...string) (string, error) {
	base, err := r.Root(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(append([]string{base}, segments...)...), nil
}

// Creates a fresh directory beneath a root and records it for cleanup.
func (r *Registry) MkdTemp(root, prefix string) (string, error) {
	base, err := r.Root(root)
	if err != nil {
		return "", err
	}

	var dir string
	if r.deterministic {
		dir = filepath.Join(base, r.nextTempName(prefix))
		if err := r.fs.MkdirAll(dir, DefaultDirMode); err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
	} else {
		if err := r.fs.MkdirAll(base, DefaultDirMode); err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
		dir, err = afero.TempDir(r.fs, base, prefix)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
	}

	r.temps = append(r.temps, dir)
	return dir, nil
}

// Creates a fresh file beneath a root and records it for cleanup.
//
// The file exists and is empty when this returns; the caller writes to it
// through the registry or hands the path to a child process.
func (r *Registry) MksTemp(root, prefix string) (string, error) {
	base, err := r.Root(root)
	if err != nil {
		return "", err
	}
	if err := r.fs.MkdirAll(base, DefaultDirMode); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	var path string
	if r.deterministic {
		path = filepath.Join(base, r.nextTempName(prefix))
		if err := afero.WriteFile(r.fs, path, nil, DefaultFileMode); err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
	} else {
		f, err := afero.TempFile(r.fs, base, prefix)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
		path = f.Name()
		f.Close()
	}

	r.temps = append(r.temps, path)
	return path, nil
}

// Returns the next deterministic temp name for a prefix.
//
// Prefixes are sanitized so step names with separators produce flat,
// filesystem-safe names.
func (r *Registry) nextTempName(prefix string) string {
	r.tempSeq++
	clean := strings.Map(func(c rune) rune {
		switch c {
		case '/', '\\', '|', ' ', ':':
			return '_'
		}
		return c
	}, prefix)
	return fmt.Sprintf("%s_tmp_%d", clean, r.tempSeq)
}

// Removes every temp path allocated through the registry.
//
// Called exactly once at recipe end, on normal, error, and cancellation
// paths alike. Removal errors are collected, not fatal; the first one is
// returned.
func (r *Registry) CleanupAll() error {
	var first error
	for _, path := range r.temps {
		if err := r.fs.RemoveAll(path); err != nil && first == nil {
			first = fmt.Errorf("%w: %w", ErrFileSystem, err)
		}
	}
	r.temps = nil
	return first
}

// Reports whether a path exists on the backing filesystem.
func (r *Registry) Exists(path string) bool {
	ok, err := afero.Exists(r.fs, path)
	return err == nil && ok
}

// Lists the entries of a directory in sorted order.
func (r *Registry) ListDir(path string) ([]string, error) {
	infos, err := afero.ReadDir(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Reads a file from the backing filesystem.
func (r *Registry) ReadFile(path string) ([]byte, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	return data, nil
}

// Writes a file to the backing filesystem, creating parent directories.
func (r *Registry) WriteFile(path string, data []byte) error {
	if err := r.fs.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := afero.WriteFile(r.fs, path, data, DefaultFileMode); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	return nil
}

// Sets the deprecated checkout directory slot.
//
// The slot is settable exactly once. New code should thread directories
// through context scopes or explicit arguments instead.
func (r *Registry) SetCheckoutDir(path string) error {
	if r.checkoutSet {
		return fmt.Errorf("%w: %s", ErrCheckoutDirSet, r.checkoutDir)
	}
	r.checkoutDir = path
	r.checkoutSet = true
	r.warn("deprecated-checkout-dir")
	return nil
}

// Reads the deprecated checkout directory slot.
//
// Reading before the slot has been written is an error, not an empty value.
func (r *Registry) CheckoutDir() (string, error) {
	if !r.checkoutSet {
		return "", ErrCheckoutDirUnset
	}
	r.warn("deprecated-checkout-dir")
	return r.checkoutDir, nil
}

// Records a deprecation warning once.
func (r *Registry) warn(name string) {
	for _, w := range r.warnings {
		if w == name {
			return
		}
	}
	r.warnings = append(r.warnings, name)
}

// Returns deprecation warnings observed during the run.
func (r *Registry) Warnings() []string {
	return append([]string(nil), r.warnings...)
}
