// Package simulation replays recipes deterministically and checks the
// emitted step sequence.
//
// A recipe's cases come from a registered generator. Each case supplies
// properties, mocked step outcomes, simulated filesystem state, and
// post-process hooks; the harness runs the recipe against the in-memory
// filesystem and the mocked runner, folds the event stream into ordered
// step views, runs the hooks, and compares against a golden expectation
// file. Training mode rewrites the goldens.
//
// Example usage:
//
//	simulation.Register("hello", func() []simulation.Case {
//		return []simulation.Case{{
//			Name:  "basic",
//			Steps: map[string]*step.TestData{"say hello": {Stdout: "hello world\n"}},
//		}}
//	})
package simulation
