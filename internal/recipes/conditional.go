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
		Name: "conditional",
		Deps: resolver.Use("kiln/step"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)

			probe, err := api.Run(ctx, &step.Step{
				Name:   "check feature flag",
				Cmd:    []any{"check-flag"},
				AnyRet: true,
			})
			if err != nil {
				return err
			}

			branch := &step.Step{Name: "boring", Cmd: []any{"echo", "flag is unset"}}
			if probe.Retcode == 0 {
				branch = &step.Step{Name: "victory", Cmd: []any{"echo", "flag is set"}}
			}
			api.MustRun(ctx, branch)
			return nil
		},
	})

	simulation.Register("conditional", func() []simulation.Case {
		oneBranch := func(want, other string) simulation.Hook {
			return func(check *simulation.Check, steps *simulation.StepLog) {
				check.That(steps.Ran(want), "branch must run", "want", want, "steps", steps.Names())
				check.That(!steps.Ran(other), "other branch must not run", "other", other)
			}
		}
		return []simulation.Case{
			{
				Name:        "flag_set",
				Steps:       map[string]*step.TestData{"check feature flag": {Retcode: 0}},
				PostProcess: []simulation.Hook{oneBranch("victory", "boring")},
			},
			{
				Name:        "flag_unset",
				Steps:       map[string]*step.TestData{"check feature flag": {Retcode: 1}},
				PostProcess: []simulation.Hook{oneBranch("boring", "victory")},
			},
		}
	})
}
