package manifest

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Rebinds dependency repos to local paths, bypassing revision pins.
//
// Collected from repeated -O flags. Overrides compose; the last flag for a
// given repo wins.
type Overrides map[string]string

// Parses a single "name=/local/path" override flag.
func ParseOverride(flag string) (name, path string, err error) {
	name, path, ok := strings.Cut(flag, "=")
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("%w: %q, want name=path", ErrBadOverride, flag)
	}
	if !filepath.IsAbs(path) {
		abs, absErr := filepath.Abs(path)
		if absErr != nil {
			return "", "", fmt.Errorf("%w: %q: %w", ErrBadOverride, flag, absErr)
		}
		path = abs
	}
	return name, path, nil
}

// Parses a list of override flags into a composed set.
func ParseOverrides(flags []string) (Overrides, error) {
	o := make(Overrides, len(flags))
	for _, flag := range flags {
		name, path, err := ParseOverride(flag)
		if err != nil {
			return nil, err
		}
		o[name] = path
	}
	return o, nil
}

// Returns the resolved path for a dependency repo.
//
// An overridden repo resolves to its local path regardless of the pin;
// otherwise the repo resolves to its fetched location under the cache root.
func (o Overrides) Resolve(dep Dep, fetchRoot string) string {
	if path, ok := o[dep.Name]; ok {
		return path
	}
	return filepath.Join(fetchRoot, dep.Name, dep.Revision)
}

// Returns the overridden repo names in sorted order.
func (o Overrides) Names() []string {
	names := make([]string, 0, len(o))
	for name := range o {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
