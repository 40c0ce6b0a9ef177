package simulation

import (
	"fmt"
	"sort"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

// A post-process hook: asserts over the ordered step views of one run.
type Hook func(check *Check, steps *StepLog)

// One simulation case for a recipe.
type Case struct {
	Name string

	Properties map[string]any
	Env        map[string]string

	// Mocked outcomes keyed by full step name. A step without a mock
	// succeeds with exit code 0 and empty output.
	Steps map[string]*step.TestData

	// Paths that exist on the simulated filesystem before the run.
	Files []string

	Platform resolver.Platform

	PostProcess []Hook

	// Terminal status the run must end with; zero means success.
	ExpectStatus stream.Status

	// Substring the terminal error must contain; empty means no error
	// content assertion.
	ExpectError string

	// Skips golden comparison; the case asserts through hooks only.
	DropExpectation bool
}

// Generates a recipe's cases eagerly.
type GenTests func() []Case

var caseGens = map[string]GenTests{}

// Registers a recipe's case generator. For use from package init,
// alongside the recipe's own registration.
func Register(recipe string, gen GenTests) {
	if _, ok := caseGens[recipe]; ok {
		panic(fmt.Errorf("%w: %s", ErrDuplicateCases, recipe))
	}
	caseGens[recipe] = gen
}

// Returns a recipe's cases, or nil when none are registered.
func CasesFor(recipe string) []Case {
	gen, ok := caseGens[recipe]
	if !ok {
		return nil
	}
	return gen()
}

// Returns the recipes with registered cases in sorted order.
func CaseRecipes() []string {
	names := make([]string, 0, len(caseGens))
	for name := range caseGens {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
