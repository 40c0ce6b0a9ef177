package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// Well-known root names registered by the engine for every recipe run.
const (
	RootStart   = "start_dir" // Directory the engine was started in.
	RootCache   = "cache"     // Long-lived cache, survives across runs.
	RootCleanup = "cleanup"   // Scratch space, removed at recipe end.
	RootTmp     = "tmp_base"  // Base for temp file and dir allocation.
)

const (

	// Name used for directory and file naming.
	engineName = "kiln"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Prefix for per-module resource roots.
const resourcePrefix = "resource/"

// Returns the root name for a module's resource directory.
//
// The resource directory holds files shipped alongside the module's source
// (scripts, templates) and is registered when the module is instantiated.
func ResourceRoot(module string) string {
	return resourcePrefix + module
}

// Default path to the engine cache directory.
//
//	Linux:   $XDG_CACHE_HOME/kiln or ~/.cache/kiln
//	macOS:   ~/Library/Caches/kiln
func DefaultCache() string {
	return filepath.Join(xdg.CacheHome, engineName)
}

// Default base directory for temp allocation.
//
//	Linux:   $XDG_CACHE_HOME/kiln/tmp
//	macOS:   ~/Library/Caches/kiln/tmp
func DefaultTmp() string {
	return filepath.Join(DefaultCache(), "tmp")
}
