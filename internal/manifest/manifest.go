package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"
)

// In-repo location of the manifest file.
const ConfigPath = "infra/config/recipes.cfg"

// Manifest format version accepted by this engine.
const apiVersion = 2

// Matches a full 40-hex git revision pin.
var revisionPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// Declares a repository that carries recipes and recipe modules.
type Config struct {
	APIVersion  int    `json:"api_version"`
	RepoName    string `json:"repo_name"`
	RecipesPath string `json:"recipes_path,omitempty"` // Relative path to the recipes tree; empty means repo root.
	Deps        []Dep  `json:"deps,omitempty"`
}

// Pins one dependency repository to an exact revision.
type Dep struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Branch   string `json:"branch"`
	Revision string `json:"revision"`
}

// Reads and validates the manifest of the repo rooted at repoRoot.
func Load(fs afero.Fs, repoRoot string) (*Config, error) {
	path := filepath.Join(repoRoot, filepath.FromSlash(ConfigPath))

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Checks the manifest's structural invariants.
func (c *Config) Validate() error {
	if c.APIVersion != apiVersion {
		return fmt.Errorf("%w: api_version %d, want %d", ErrValidation, c.APIVersion, apiVersion)
	}
	if c.RepoName == "" {
		return fmt.Errorf("%w: repo_name is empty", ErrValidation)
	}

	seen := make(map[string]bool, len(c.Deps))
	for _, dep := range c.Deps {
		if dep.Name == "" {
			return fmt.Errorf("%w: dep with empty name", ErrValidation)
		}
		if seen[dep.Name] {
			return fmt.Errorf("%w: duplicate dep %q", ErrValidation, dep.Name)
		}
		seen[dep.Name] = true
		if !revisionPattern.MatchString(dep.Revision) {
			return fmt.Errorf("%w: dep %q revision %q is not a full revision pin", ErrValidation, dep.Name, dep.Revision)
		}
	}

	return nil
}

// Returns the dep entry for a repo name.
func (c *Config) Dep(name string) (*Dep, error) {
	for i := range c.Deps {
		if c.Deps[i].Name == name {
			return &c.Deps[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDep, name)
}

// Writes the manifest back to its repo, atomically.
//
// The config is serialized to a temp file in the manifest directory, then
// renamed over the original so a crash never leaves a half-written manifest.
func Save(fs afero.Fs, repoRoot string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	data = append(data, '\n')

	path := filepath.Join(repoRoot, filepath.FromSlash(ConfigPath))
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	tmp, err := afero.TempFile(fs, dir, ".recipes.cfg.")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	if err := fs.Rename(tmpName, path); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrFileSystem, err)
	}

	return nil
}
