// Package manifest reads and writes repository manifests.
//
// Every repository that carries recipes declares itself in
// infra/config/recipes.cfg: its repo name, the in-repo location of the
// recipes/ and recipe_modules/ directories, and the set of dependency
// repositories pinned to exact revisions. Pins are immutable during a run;
// the manual-roll command rewrites them atomically.
//
// A [Layout] maps a validated config onto concrete directories, and
// [Overrides] rebind a dependency repo to a local path for development,
// bypassing its pin.
//
// Example usage:
//
//	cfg, err := manifest.Load(fs, repoRoot)
//	if err != nil {
//	    return err
//	}
//
//	layout := manifest.NewLayout(repoRoot, cfg.RecipesPath)
//	modules, err := layout.DiscoverModules(fs)
package manifest
