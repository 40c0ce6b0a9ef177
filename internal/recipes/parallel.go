package recipes

import (
	"context"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo: "kiln",
		Name: "parallel",
		Deps: resolver.Use("kiln/step", "kiln/ctx"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)
			cx := modules.CtxFrom(rc.Deps)

			run := func(name string, cmd ...any) func(ctx context.Context) error {
				return func(ctx context.Context) error {
					_, err := api.Run(ctx, &step.Step{Name: name, Cmd: cmd})
					return err
				}
			}
			return cx.Parallel(ctx,
				run("compile", "make", "build"),
				run("lint", "make", "lint"),
			)
		},
	})

	simulation.Register("parallel", func() []simulation.Case {
		return []simulation.Case{{
			Name: "interleaved",
			Steps: map[string]*step.TestData{
				"compile": {Stdout: "ok\n"},
				"lint":    {Stdout: "clean\n"},
			},
			PostProcess: []simulation.Hook{func(check *simulation.Check, steps *simulation.StepLog) {
				names := steps.Names()
				if !check.That(len(names) == 2, "both steps run", "steps", names) {
					return
				}
				// Spawn order is the open order under deterministic
				// scheduling.
				check.That(names[0] == "compile" && names[1] == "lint", "open order", "steps", names)
				for _, name := range names {
					v, _ := steps.Get(name)
					check.That(v.Status == stream.StatusSuccess, "step status", "step", name, "status", v.Status)
				}
			}},
		}}
	})
}
