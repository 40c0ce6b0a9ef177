package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/manifest"
	"github.com/kilnhq/kiln/internal/paths"
)

// Represents the 'kiln fetch' command.
type FetchCmd struct {
	Repo string `help:"Repo root holding the manifest." default:"." placeholder:"PATH"`
}

// Executes the fetch command.
//
// Each manifest dep lands under the cache at <cache>/deps/<name>/<revision>,
// checked out at its pinned revision. Overridden repos are left to their
// local paths and never touched.
func (c *FetchCmd) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := manifest.Load(fs, c.Repo)
	if err != nil {
		return err
	}
	ovr, err := overrides()
	if err != nil {
		return err
	}

	fetchRoot := filepath.Join(paths.DefaultCache(), "deps")
	for _, dep := range cfg.Deps {
		if path, ok := ovr[dep.Name]; ok {
			slog.Info("dep overridden", "name", dep.Name, "path", path)
			continue
		}

		dst := ovr.Resolve(dep, fetchRoot)
		if ok, _ := afero.DirExists(fs, dst); ok {
			slog.Debug("dep already fetched", "name", dep.Name, "path", dst)
			continue
		}

		slog.Info("fetching dep", "name", dep.Name, "url", dep.URL, "revision", dep.Revision)
		if err := fs.MkdirAll(filepath.Dir(dst), paths.DefaultDirMode); err != nil {
			return err
		}
		if err := gitFetch(ctx, dep, dst); err != nil {
			fs.RemoveAll(dst)
			return fmt.Errorf("fetch %s: %w", dep.Name, err)
		}
	}
	return nil
}

// Clones a dep repo and checks out its pinned revision.
func gitFetch(ctx context.Context, dep manifest.Dep, dst string) error {
	clone := exec.CommandContext(ctx, "git", "clone", "--no-checkout", "--branch", dep.Branch, dep.URL, dst)
	if out, err := clone.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %w: %s", err, out)
	}
	checkout := exec.CommandContext(ctx, "git", "-C", dst, "checkout", "--detach", dep.Revision)
	if out, err := checkout.CombinedOutput(); err != nil {
		return fmt.Errorf("git checkout: %w: %s", err, out)
	}
	return nil
}
