package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/manifest"
)

// Represents the 'kiln autoroll' command.
type AutorollCmd struct {
	Repo string `help:"Repo root holding the manifest." default:"." placeholder:"PATH"`
}

// Executes the autoroll command.
//
// Each non-overridden dep is rolled to the tip of its pinned branch; the
// manifest is rewritten once when any pin moved.
func (c *AutorollCmd) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := manifest.Load(fs, c.Repo)
	if err != nil {
		return err
	}
	ovr, err := overrides()
	if err != nil {
		return err
	}

	rolled := 0
	for i := range cfg.Deps {
		dep := &cfg.Deps[i]
		if path, ok := ovr[dep.Name]; ok {
			slog.Info("dep overridden, not rolled", "name", dep.Name, "path", path)
			continue
		}

		revision, err := remoteRevision(ctx, dep.URL, dep.Branch)
		if err != nil {
			return fmt.Errorf("autoroll %s: %w", dep.Name, err)
		}
		if revision == dep.Revision {
			slog.Debug("dep already at branch tip", "name", dep.Name)
			continue
		}

		slog.Info("rolling dep", "name", dep.Name, "from", dep.Revision, "to", revision)
		dep.Revision = revision
		rolled++
	}

	if rolled == 0 {
		slog.Info("nothing to roll")
		return nil
	}
	if err := manifest.Save(fs, c.Repo, cfg); err != nil {
		return err
	}
	slog.Info("rolled deps", "count", rolled)
	return nil
}

// Asks the remote for the revision at a branch tip.
func remoteRevision(ctx context.Context, url, branch string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "ls-remote", url, "refs/heads/"+branch).Output()
	if err != nil {
		return "", fmt.Errorf("git ls-remote: %w", err)
	}
	revision, ok := parseLsRemote(string(out))
	if !ok {
		return "", fmt.Errorf("branch %q not found on %s", branch, url)
	}
	return revision, nil
}

// Extracts the revision from git ls-remote output.
func parseLsRemote(out string) (string, bool) {
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			return fields[0], true
		}
	}
	return "", false
}
