package cli

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/manifest"
)

// Represents the 'kiln bundle' command.
type BundleCmd struct {
	Repo   string `help:"Repo root holding the manifest." default:"." placeholder:"PATH"`
	Output string `short:"o" help:"Output archive path." default:"bundle.zip" placeholder:"PATH"`
}

// Executes the bundle command.
//
// Bundles the manifest and the repo's recipes tree into one archive, so
// the result runs without fetching anything.
func (c *BundleCmd) Run(ctx context.Context) error {
	fs := afero.NewOsFs()

	cfg, err := manifest.Load(fs, c.Repo)
	if err != nil {
		return err
	}
	layout := manifest.NewLayout(c.Repo, cfg.RecipesPath)

	out, err := os.Create(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	manifestPath := filepath.Join(c.Repo, filepath.FromSlash(manifest.ConfigPath))
	if err := addFile(fs, zw, c.Repo, manifestPath); err != nil {
		return err
	}
	for _, dir := range []string{layout.RecipesDir(), layout.ModulesDir()} {
		if ok, _ := afero.DirExists(fs, dir); !ok {
			continue
		}
		if err := addTree(fs, zw, c.Repo, dir); err != nil {
			return err
		}
	}

	slog.Info("bundle written", "repo", cfg.RepoName, "output", c.Output)
	return nil
}

// Adds every regular file beneath dir to the archive.
func addTree(fs afero.Fs, zw *zip.Writer, root, dir string) error {
	return afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return addFile(fs, zw, root, path)
	})
}

// Adds one file to the archive under its slash-separated repo-relative
// name.
func addFile(fs afero.Fs, zw *zip.Writer, root, path string) error {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	f, err := fs.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
