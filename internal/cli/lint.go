package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/manifest"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
)

// Represents the 'kiln lint' command.
type LintCmd struct {
	Repo string `help:"Repo root holding the manifest." default:"." placeholder:"PATH"`
}

// Executes the lint command.
//
// Checks the manifest's structural invariants, that every registered
// recipe resolves, and that simulation coverage is complete.
func (c *LintCmd) Run(ctx context.Context) error {
	var defects []error

	if _, err := manifest.Load(afero.NewOsFs(), c.Repo); err != nil {
		if errors.Is(err, manifest.ErrFileSystem) && errors.Is(err, os.ErrNotExist) {
			slog.Debug("no manifest", "repo", c.Repo)
		} else {
			defects = append(defects, err)
		}
	}

	reg := resolver.Global()
	for _, name := range reg.RecipeNames() {
		if _, err := reg.Resolve(name); err != nil {
			defects = append(defects, err)
		}
	}
	defects = append(defects, simulation.Coverage(reg)...)

	for _, defect := range defects {
		fmt.Printf("lint: %v\n", defect)
	}
	if len(defects) > 0 {
		return fmt.Errorf("%d lint defects", len(defects))
	}
	return nil
}
