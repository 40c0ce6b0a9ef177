package modules

import (
	"github.com/mitchellh/mapstructure"

	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/resolver"
)

// JSON api: placeholders carrying JSON-encoded data in and out of steps.
type JSONAPI struct{}

// Returns the json api from a dependency view.
func JSONFrom(deps *resolver.DepsView) *JSONAPI {
	return deps.MustAPI("json").(*JSONAPI)
}

// Creates an output placeholder that parses the written file as JSON.
//
// The result lands on step data under "json.output", or
// "json.output.<subname>" when a subname is given.
func (a *JSONAPI) Output(subname ...string) *placeholder.Output {
	sub := ""
	if len(subname) > 0 {
		sub = subname[0]
	}
	return placeholder.JSONOutput("json", "output", sub)
}

// Creates an input placeholder carrying v encoded as JSON.
func (a *JSONAPI) Input(v any, subname ...string) (*placeholder.Input, error) {
	sub := ""
	if len(subname) > 0 {
		sub = subname[0]
	}
	return placeholder.JSONInput("json", "input", sub, v)
}

// Decodes a resolved placeholder value into a typed struct.
func (a *JSONAPI) Decode(value any, target any) error {
	return mapstructure.Decode(value, target)
}

func jsonSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "json",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &JSONAPI{}, nil
		},
	}
}
