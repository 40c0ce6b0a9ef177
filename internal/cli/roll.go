package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/manifest"
)

// Represents the 'kiln manual-roll' command.
type ManualRollCmd struct {
	Name     string `arg:"" help:"Dependency repo name."`
	Revision string `arg:"" help:"Full revision to pin."`
	Repo     string `help:"Repo root holding the manifest." default:"." placeholder:"PATH"`
}

// Executes the manual-roll command: rewrites one dep's revision pin and
// saves the manifest atomically.
func (c *ManualRollCmd) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := manifest.Load(fs, c.Repo)
	if err != nil {
		return err
	}
	dep, err := cfg.Dep(c.Name)
	if err != nil {
		return err
	}

	old := dep.Revision
	dep.Revision = c.Revision
	if err := manifest.Save(fs, c.Repo, cfg); err != nil {
		return err
	}

	slog.Info("rolled dep", "name", c.Name, "from", old, "to", c.Revision)
	return nil
}
