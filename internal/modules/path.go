package modules

import (
	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/resolver"
)

// Path api: named roots, joins, and temp allocation through the engine's
// path registry.
type PathAPI struct {
	reg *paths.Registry
}

// Returns the path api from a dependency view.
func PathFrom(deps *resolver.DepsView) *PathAPI {
	return deps.MustAPI("path").(*PathAPI)
}

// Returns the directory the engine was started in.
func (a *PathAPI) Start() (string, error) {
	return a.reg.Root(paths.RootStart)
}

// Returns the long-lived cache root.
func (a *PathAPI) Cache() (string, error) {
	return a.reg.Root(paths.RootCache)
}

// Returns the scratch root removed at recipe end.
func (a *PathAPI) Cleanup() (string, error) {
	return a.reg.Root(paths.RootCleanup)
}

// Joins segments beneath a named root without touching the filesystem.
func (a *PathAPI) Join(root string, segments ...string) (string, error) {
	return a.reg.Join(root, segments...)
}

// Allocates a fresh temp directory, removed at recipe end.
func (a *PathAPI) MkdTemp(prefix string) (string, error) {
	return a.reg.MkdTemp(paths.RootTmp, prefix)
}

// Allocates a fresh temp file, removed at recipe end.
func (a *PathAPI) MksTemp(prefix string) (string, error) {
	return a.reg.MksTemp(paths.RootTmp, prefix)
}

// Returns a module's resource directory, holding files shipped alongside
// its source. The module is addressed as "repo/name".
func (a *PathAPI) ResourceDir(module string) (string, error) {
	return a.reg.Root(paths.ResourceRoot(module))
}

// Reports whether a path exists.
func (a *PathAPI) Exists(path string) bool {
	return a.reg.Exists(path)
}

// Reads the deprecated checkout directory slot.
//
// Deprecated: thread directories through context scopes or explicit
// arguments instead.
func (a *PathAPI) CheckoutDir() (string, error) {
	return a.reg.CheckoutDir()
}

// Writes the deprecated checkout directory slot, settable exactly once.
//
// Deprecated: see [PathAPI.CheckoutDir].
func (a *PathAPI) SetCheckoutDir(path string) error {
	return a.reg.SetCheckoutDir(path)
}

func pathSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo:     "kiln",
		Name:     "path",
		Warnings: []string{"deprecated-checkout-dir"},
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &PathAPI{reg: mc.Host.Paths}, nil
		},
	}
}
