package recipes

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
)

// Runs every registered case against the checked-in expectation files.
// Retrain with the test runner's train mode after intentional changes.
func TestBuiltinRecipes(t *testing.T) {
	results, err := simulation.RunSuite(context.Background(), simulation.SuiteOptions{
		Registry:  resolver.Global(),
		ExpectDir: "testdata",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no cases ran")
	}
	for _, res := range results {
		if !res.OK() {
			t.Errorf("%s/%s: %v", res.Recipe, res.Case, res.Errs)
		}
	}
}

func TestEveryRecipeHasCases(t *testing.T) {
	for _, recipe := range resolver.Global().RecipeNames() {
		if len(simulation.CasesFor(recipe)) == 0 {
			t.Errorf("recipe %s has no cases", recipe)
		}
	}
}

// Replays the parallel case several times; the deterministic loop must
// produce an identical step log on every run.
func TestParallelReplayIsDeterministic(t *testing.T) {
	c := simulation.CasesFor("parallel")[0]

	var first []simulation.StepView
	for i := 0; i < 5; i++ {
		out, err := simulation.RunCase(context.Background(), resolver.Global(), "parallel", c)
		if err != nil {
			t.Fatal(err)
		}
		views := out.Steps.Views()
		if first == nil {
			first = views
			continue
		}
		if diff := cmp.Diff(first, views); diff != "" {
			t.Fatalf("run %d diverged (-first +got):\n%s", i, diff)
		}
	}
}
