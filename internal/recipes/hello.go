package recipes

import (
	"context"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
)

func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo: "kiln",
		Name: "hello",
		Deps: resolver.Use("kiln/step"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)
			api.MustRun(ctx, &step.Step{
				Name: "say hello",
				Cmd:  []any{"echo", "hello", "world"},
			})
			return nil
		},
	})

	simulation.Register("hello", func() []simulation.Case {
		return []simulation.Case{{
			Name: "basic",
			Steps: map[string]*step.TestData{
				"say hello": {Stdout: "hello world\n"},
			},
			PostProcess: []simulation.Hook{func(check *simulation.Check, steps *simulation.StepLog) {
				v, ok := steps.Get("say hello")
				if !check.That(ok, "say hello must run", "steps", steps.Names()) {
					return
				}
				check.That(len(v.Logs["stdout"]) == 1 && v.Logs["stdout"][0] == "hello world",
					"greeting on stdout", "logs", v.Logs)
			}},
		}}
	})
}
