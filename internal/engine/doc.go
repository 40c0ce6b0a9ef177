// Package engine wires the resolver, the scheduler, and the step runner
// into a recipe run.
//
// Run resolves the entry recipe's module graph, decodes properties,
// constructs the module singletons, and executes the recipe's run
// function as the root future. Whatever happens inside, cleanup runs and
// the sink receives a terminal recipe_ended event carrying the final
// status.
//
// Example usage:
//
//	result, err := engine.Run(ctx, engine.Options{
//		Recipe:     "hello",
//		Properties: map[string]any{"target": "world"},
//		Sink:       sink,
//	})
//	if err != nil {
//		slog.Error("recipe failed", "status", result.Status, "error", err)
//	}
package engine
