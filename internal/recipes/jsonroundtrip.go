package recipes

import (
	"context"
	"fmt"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
	"github.com/kilnhq/kiln/internal/step"
)

type collectedResults struct {
	NumPassed int `mapstructure:"num_passed"`
}

func init() {
	resolver.MustRegisterRecipe(&resolver.RecipeSpec{
		Repo: "kiln",
		Name: "json_roundtrip",
		Deps: resolver.Use("kiln/step", "kiln/json"),
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			api := modules.StepFrom(rc.Deps)
			js := modules.JSONFrom(rc.Deps)

			out := js.Output()
			data := api.MustRun(ctx, &step.Step{
				Name: "collect results",
				Cmd:  []any{"write-json", out},
			})

			value, err := data.Result("json", "output")
			if err != nil {
				return err
			}
			var results collectedResults
			if err := js.Decode(value, &results); err != nil {
				return err
			}

			api.MustRun(ctx, &step.Step{
				Name: "report",
				Cmd:  []any{"echo", fmt.Sprintf("%d passed", results.NumPassed)},
			})
			return nil
		},
	})

	simulation.Register("json_roundtrip", func() []simulation.Case {
		return []simulation.Case{{
			Name: "passes",
			Steps: map[string]*step.TestData{
				"collect results": {Placeholders: map[string]any{
					"json.output": map[string]any{"num_passed": 791},
				}},
				"report": {Stdout: "791 passed\n"},
			},
			PostProcess: []simulation.Hook{func(check *simulation.Check, steps *simulation.StepLog) {
				v, ok := steps.Get("report")
				if !check.That(ok, "report must run", "steps", steps.Names()) {
					return
				}
				check.That(len(v.Cmd) == 2 && v.Cmd[1] == "791 passed", "report text", "cmd", v.Cmd)
			}},
		}}
	})
}
