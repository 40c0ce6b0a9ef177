// Package modules holds the engine's built-in recipe modules.
//
// Each module registers a resolver spec under the "kiln" repo and exposes
// a typed api object plus a From accessor that recipes use to pull the
// api out of their dependency view:
//
//	steps := modules.StepFrom(rc.Deps)
//	data, err := steps.Run(ctx, &step.Step{
//		Name: "say hello",
//		Cmd:  []any{"echo", "hello"},
//	})
//
// Registration happens in package init; importing the package for effect
// is enough to make every built-in resolvable.
package modules
