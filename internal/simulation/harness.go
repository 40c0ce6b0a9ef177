package simulation

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kilnhq/kiln/internal/engine"
	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

// Everything one simulated run produced.
type Outcome struct {
	Recipe string
	Case   string

	Steps   *StepLog
	Result  engine.Result
	Err     error
	Final   stream.Event
	Events  []stream.Event
	Checks  []CheckFailure
	Unused  []string // Mock table entries no executed step matched.
}

// Runs one case against a recipe.
//
// The run is fully deterministic: in-memory filesystem with stable temp
// names, mocked step outcomes, the deterministic loop, and zeroed
// timings. The returned error covers harness problems only; the recipe's
// own outcome lives in the Outcome.
func RunCase(ctx context.Context, reg *resolver.Registry, recipe string, c Case) (*Outcome, error) {
	pathReg := paths.NewSimRegistry()
	for _, path := range c.Files {
		if err := pathReg.WriteFile(path, nil); err != nil {
			return nil, err
		}
	}

	loop := sched.NewSimLoop()
	runner := &step.SimRunner{Loop: loop, Mocks: c.Steps}
	rec := stream.NewRecorder()

	platform := c.Platform
	if platform == (resolver.Platform{}) {
		platform = resolver.Platform{OS: "linux", Arch: "amd64", Bits: 64}
	}
	environ := c.Env
	if environ == nil {
		environ = map[string]string{}
	}

	result, runErr := engine.Run(ctx, engine.Options{
		Recipe:     recipe,
		Properties: c.Properties,
		Environ:    environ,
		Registry:   reg,
		Sink:       rec,
		Runner:     runner,
		Paths:      pathReg,
		Loop:       loop,
		Platform:   platform,
		Simulated:  true,
	})

	events := rec.Events()
	log, final := fold(events)

	out := &Outcome{
		Recipe: recipe,
		Case:   c.Name,
		Steps:  log,
		Result: result,
		Err:    runErr,
		Final:  final,
		Events: events,
	}

	used := runner.UsedMocks()
	for _, name := range sortedKeys(c.Steps) {
		if !used[name] {
			out.Unused = append(out.Unused, name)
		}
	}

	check := &Check{}
	for _, hook := range c.PostProcess {
		hook(check, log)
	}
	out.Checks = check.Failures()

	return out, nil
}

// Judges one outcome against its case.
//
// Returns one error per defect: wrong terminal status, missing expected
// error content, failed checks, and unused mocks (a test-authoring error,
// not a recipe bug).
func Judge(c Case, out *Outcome) []error {
	var errs []error

	wantStatus := c.ExpectStatus
	if wantStatus == "" {
		wantStatus = stream.StatusSuccess
	}
	if out.Result.Status != wantStatus {
		errs = append(errs, fmt.Errorf("%w: %s (want %s): %s",
			ErrWrongOutcome, out.Result.Status, wantStatus, out.Result.Summary))
	}
	if c.ExpectError != "" {
		if out.Err == nil || !strings.Contains(out.Err.Error(), c.ExpectError) {
			errs = append(errs, fmt.Errorf("%w: error %v does not contain %q",
				ErrWrongOutcome, out.Err, c.ExpectError))
		}
	}
	for _, failure := range out.Checks {
		errs = append(errs, fmt.Errorf("%w: %s", ErrCheckFailed, failure))
	}
	for _, name := range out.Unused {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnusedMock, name))
	}
	return errs
}

// Reports registered names no simulation exercises.
//
// Every registered recipe needs at least one case, and every registered
// module must be reachable from at least one recipe's dependency graph.
func Coverage(reg *resolver.Registry) []error {
	var errs []error

	reached := make(map[resolver.Ref]bool)
	for _, recipe := range reg.RecipeNames() {
		if len(CasesFor(recipe)) == 0 {
			errs = append(errs, fmt.Errorf("%w: recipe %s has no cases", ErrUncovered, recipe))
		}
		res, err := reg.Resolve(recipe)
		if err != nil {
			continue
		}
		for _, ref := range res.Refs() {
			reached[ref] = true
		}
	}

	for _, ref := range reg.ModuleRefs() {
		if !reached[ref] {
			errs = append(errs, fmt.Errorf("%w: module %s unreachable from any recipe", ErrUncovered, ref))
		}
	}
	return errs
}

func sortedKeys(m map[string]*step.TestData) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
