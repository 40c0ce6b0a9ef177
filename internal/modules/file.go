package modules

import (
	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/resolver"
)

// File api: direct filesystem operations through the path registry.
//
// Everything routes through the registry's backing filesystem, so
// simulated runs see the in-memory tree the test case configured.
type FileAPI struct {
	reg  *paths.Registry
	path *PathAPI
}

// Returns the file api from a dependency view.
func FileFrom(deps *resolver.DepsView) *FileAPI {
	return deps.MustAPI("file").(*FileAPI)
}

// Reads a file as text.
func (a *FileAPI) ReadText(path string) (string, error) {
	data, err := a.reg.ReadFile(path)
	return string(data), err
}

// Reads a file as raw bytes.
func (a *FileAPI) ReadBytes(path string) ([]byte, error) {
	return a.reg.ReadFile(path)
}

// Writes text to a file, creating parent directories.
func (a *FileAPI) WriteText(path, content string) error {
	return a.reg.WriteFile(path, []byte(content))
}

// Copies one file to another path.
func (a *FileAPI) Copy(src, dst string) error {
	data, err := a.reg.ReadFile(src)
	if err != nil {
		return err
	}
	return a.reg.WriteFile(dst, data)
}

// Lists a directory's entries in sorted order.
func (a *FileAPI) ListDir(path string) ([]string, error) {
	return a.reg.ListDir(path)
}

// Reports whether a path exists.
func (a *FileAPI) Exists(path string) bool {
	return a.reg.Exists(path)
}

func fileSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "file",
		Deps: resolver.Use("path"),
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &FileAPI{
				reg:  mc.Host.Paths,
				path: PathFrom(mc.Deps),
			}, nil
		},
	}
}
