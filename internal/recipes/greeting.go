package recipes

import (
	"context"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
)

type greetingProps struct {
	Target string `mapstructure:"target"`
}

func greetingFor(target string) string {
	if target == "DarthVader" {
		return "Die in a fire DarthVader!"
	}
	return "Hello " + target
}

func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo:       "kiln",
		Name:       "greeting",
		Deps:       resolver.Use("kiln/step"),
		Properties: func() any { return &greetingProps{Target: "world"} },
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			target := rc.Properties.(*greetingProps).Target
			api := modules.StepFrom(rc.Deps)
			api.MustRun(ctx, &step.Step{
				Name: "greet",
				Cmd:  []any{"echo", greetingFor(target)},
			})
			return nil
		},
	})

	simulation.Register("greeting", func() []simulation.Case {
		greets := func(want string) simulation.Hook {
			return func(check *simulation.Check, steps *simulation.StepLog) {
				v, ok := steps.Get("greet")
				if !check.That(ok, "greet must run", "steps", steps.Names()) {
					return
				}
				check.That(len(v.Cmd) == 2 && v.Cmd[1] == want, "greeting text", "cmd", v.Cmd)
			}
		}
		return []simulation.Case{
			{
				Name:        "bob",
				Properties:  map[string]any{"target": "Bob"},
				PostProcess: []simulation.Hook{greets("Hello Bob")},
			},
			{
				Name:        "vader",
				Properties:  map[string]any{"target": "DarthVader"},
				PostProcess: []simulation.Hook{greets("Die in a fire DarthVader!")},
			},
		}
	})
}
