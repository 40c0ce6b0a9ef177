package manifest

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Maps a repo onto its recipes tree.
//
// The recipes path from the manifest is the in-repo location of the
// recipes/ and recipe_modules/ directories; an empty path means the repo
// root.
type Layout struct {
	RepoRoot    string
	RecipesPath string
}

// Creates a layout for a repo root and its manifest recipes path.
func NewLayout(repoRoot, recipesPath string) Layout {
	return Layout{RepoRoot: repoRoot, RecipesPath: recipesPath}
}

// Returns the directory holding entry recipes.
func (l Layout) RecipesDir() string {
	return filepath.Join(l.base(), "recipes")
}

// Returns the directory holding recipe modules.
func (l Layout) ModulesDir() string {
	return filepath.Join(l.base(), "recipe_modules")
}

// Returns the directory of a single module.
func (l Layout) ModuleDir(name string) string {
	return filepath.Join(l.ModulesDir(), name)
}

// Returns a module's resource directory.
func (l Layout) ResourceDir(name string) string {
	return filepath.Join(l.ModuleDir(name), "resources")
}

// Returns the expectation directory for a recipe.
//
// Expectation files live adjacent to the recipe, one directory per recipe,
// one JSON file per test case. Sub-recipes ("mod:examples/full") map into
// the owning module's directory.
func (l Layout) ExpectationDir(recipe string) string {
	if mod, sub, ok := strings.Cut(recipe, ":"); ok {
		return filepath.Join(l.ModuleDir(mod), filepath.FromSlash(sub)+".expected")
	}
	return filepath.Join(l.RecipesDir(), filepath.FromSlash(recipe)+".expected")
}

// Lists the module directories present in the repo, sorted by name.
func (l Layout) DiscoverModules(fs afero.Fs) ([]string, error) {
	dir := l.ModulesDir()
	ok, err := afero.DirExists(fs, dir)
	if err != nil || !ok {
		return nil, err
	}

	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() && !strings.HasPrefix(info.Name(), ".") {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (l Layout) base() string {
	if l.RecipesPath == "" {
		return l.RepoRoot
	}
	return filepath.Join(l.RepoRoot, filepath.FromSlash(l.RecipesPath))
}
