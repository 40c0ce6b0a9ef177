// Package sched schedules recipe code cooperatively.
//
// Exactly one goroutine runs recipe code at any moment: the holder of the
// loop's token. Recipe code requests parallelism by spawning futures, and
// control switches between futures only at suspension points: awaiting a
// future, running a step, or sleeping. Subprocesses launched by steps run
// concurrently with whichever future holds the token; the engine observes
// them through the step runner.
//
// Token handoff is ordered: when the holder suspends, the ready future
// with the lowest creation sequence runs next. In deterministic mode
// (simulation) blocking work is executed synchronously before the yield,
// so identical inputs produce an identical interleaving and an identical
// event stream.
//
// Deadlines, environment overrides, working directory, and the grace
// period travel in a [context.Context] scope. Nested scopes only tighten
// the deadline; cancellation carries a cause so the engine can tell a
// timeout from an external cancel. Cleanup regions run under [Shield],
// which detaches cancellation without dropping scope values.
package sched
