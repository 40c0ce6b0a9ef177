// Package step models one subprocess invocation and runs it.
//
// A [Step] is a command vector (strings and placeholders), an environment
// delta, a working directory, a timeout, and the policy for interpreting
// its exit code. Step names form a tree via the "|" separator; a parent
// step must run before its children.
//
// Running a step yields an [ExecutionResult], which is always well-formed:
// runners never fail out of Run. Whether a retcode means success, how a
// timeout differs from a cancel, and what exception to raise are decisions
// the engine makes from the result afterwards.
//
// Two runners share the contract. [ExecRunner] spawns real subprocesses,
// streams their output line by line to the sink, enforces the scope
// deadline with a graceful-stop-then-kill sequence, and resolves output
// placeholders from what the child wrote. [SimRunner] replays pre-supplied
// mock outcomes with deterministic paths and timings, emitting the same
// event sequence.
package step
