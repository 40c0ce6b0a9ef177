package modules

import (
	"github.com/kilnhq/kiln/internal/resolver"
)

// Platform api: the platform the recipe believes it runs on. Real runs
// report the host; simulations report whatever the case configured.
type PlatformAPI struct {
	platform resolver.Platform
}

// Returns the platform api from a dependency view.
func PlatformFrom(deps *resolver.DepsView) *PlatformAPI {
	return deps.MustAPI("platform").(*PlatformAPI)
}

// Returns the operating system name, like "linux" or "windows".
func (a *PlatformAPI) OS() string {
	return a.platform.OS
}

// Returns the processor architecture, like "amd64".
func (a *PlatformAPI) Arch() string {
	return a.platform.Arch
}

// Returns the word size in bits.
func (a *PlatformAPI) Bits() int {
	return a.platform.Bits
}

// Reports whether the recipe runs on Windows.
func (a *PlatformAPI) IsWindows() bool {
	return a.platform.OS == "windows"
}

func platformSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "platform",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &PlatformAPI{platform: mc.Host.Platform}, nil
		},
	}
}
