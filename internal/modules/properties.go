package modules

import (
	"github.com/kilnhq/kiln/internal/resolver"
)

// Properties api: raw access to the run's input property tree.
//
// Typed access goes through schemas; this module serves recipes that need
// to inspect keys dynamically.
type PropertiesAPI struct {
	tree map[string]any
}

// Returns the properties api from a dependency view.
func PropertiesFrom(deps *resolver.DepsView) *PropertiesAPI {
	return deps.MustAPI("properties").(*PropertiesAPI)
}

// Returns a top-level property value.
func (a *PropertiesAPI) Get(key string) (any, bool) {
	v, ok := a.tree[key]
	return v, ok
}

// Returns a copy of the whole tree.
func (a *PropertiesAPI) Tree() map[string]any {
	out := make(map[string]any, len(a.tree))
	for k, v := range a.tree {
		out[k] = v
	}
	return out
}

func propertiesSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "properties",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &PropertiesAPI{tree: mc.Host.PropertyTree}, nil
		},
	}
}
