package recipes

import (
	"context"
	"time"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo: "kiln",
		Name: "timeout_demo",
		Deps: resolver.Use("kiln/step", "kiln/ctx"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)
			cx := modules.CtxFrom(rc.Deps)

			tctx, cancel := cx.WithTimeout(ctx, time.Second)
			defer cancel()
			api.MustRun(tctx, &step.Step{Name: "sleep", Cmd: []any{"sleep", "60"}})
			return nil
		},
	})

	simulation.Register("timeout_demo", func() []simulation.Case {
		return []simulation.Case{{
			Name: "deadline_hit",
			Steps: map[string]*step.TestData{
				"sleep": {WasTimeout: true},
			},
			ExpectStatus: stream.StatusCanceled,
			ExpectError:  "deadline exceeded",
			PostProcess: []simulation.Hook{func(check *simulation.Check, steps *simulation.StepLog) {
				v, ok := steps.Get("sleep")
				if !check.That(ok, "sleep must run") {
					return
				}
				check.That(v.Status == stream.StatusCanceled, "sleep canceled", "status", v.Status)
			}},
		}}
	})
}
