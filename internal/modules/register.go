package modules

import "github.com/kilnhq/kiln/internal/resolver"

func init() {
	for _, spec := range Specs() {
		resolver.MustRegisterModule(spec)
	}
}

// Returns fresh specs for every built-in module. Tests use this to
// populate private registries.
func Specs() []*resolver.Spec {
	return []*resolver.Spec{
		stepSpec(),
		pathSpec(),
		jsonSpec(),
		rawSpec(),
		fileSpec(),
		platformSpec(),
		propertiesSpec(),
		ctxSpec(),
	}
}

// Registers every built-in module with a private registry.
func RegisterAll(reg *resolver.Registry) error {
	for _, spec := range Specs() {
		if err := reg.RegisterModule(spec); err != nil {
			return err
		}
	}
	return nil
}
