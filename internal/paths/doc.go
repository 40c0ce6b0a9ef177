// Package paths names abstract filesystem roots and resolves them to
// concrete paths.
//
// A [Registry] owns a small set of named roots (start dir, cache, cleanup,
// tmp base, per-module resource dirs) and hands out paths beneath them.
// Temporary files and directories allocated through the registry are
// recorded and removed together at the end of a recipe run, on both the
// normal and the failure path.
//
// All filesystem access goes through the registry's backing [afero.Fs].
// Real runs use the OS filesystem; simulations swap in an in-memory
// filesystem seeded by the test case, so recipe code never needs to know
// which mode it is running in.
//
// Example usage:
//
//	reg := paths.NewRegistry(afero.NewOsFs())
//	reg.RegisterRoot(paths.RootStart, workdir)
//	defer reg.CleanupAll()
//
//	dir, err := reg.MkdTemp(paths.RootCleanup, "checkout")
//	if err != nil {
//	    return err
//	}
package paths
