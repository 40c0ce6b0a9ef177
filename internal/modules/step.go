package modules

import (
	"context"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

// Central step api: runs subprocesses through the engine's tracker.
type StepAPI struct {
	tracker *step.Tracker
}

// Returns the step api from a dependency view.
func StepFrom(deps *resolver.DepsView) *StepAPI {
	return deps.MustAPI("step").(*StepAPI)
}

// Runs one step.
//
// The error is nil on success and carries the typed disposition
// otherwise; the returned data is valid whenever the step actually ran.
func (a *StepAPI) Run(ctx context.Context, s *step.Step) (*step.Data, error) {
	return a.tracker.Run(ctx, s)
}

// Runs one step, propagating any failure to the engine.
//
// For recipe code with no recovery path: the typed error unwinds the run
// and becomes the recipe's terminal status.
func (a *StepAPI) MustRun(ctx context.Context, s *step.Step) *step.Data {
	data, err := a.tracker.Run(ctx, s)
	if err != nil {
		panic(err)
	}
	return data
}

// Builds a child step name beneath a parent.
func (a *StepAPI) Nest(parent, child string) string {
	return parent + stream.NameSep + child
}

func stepSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "step",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &StepAPI{tracker: mc.Host.Steps}, nil
		},
	}
}
