package step

import (
	"context"
	"io"
	"strings"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/stream"
)

// Replays mocked outcomes instead of spawning subprocesses.
//
// Outcomes come from the step's own TestData when set, otherwise from the
// runner's mock table keyed by full step name. A step with no mock at all
// succeeds with exit code 0 and empty output.
type SimRunner struct {
	Loop  *sched.Loop
	Mocks map[string]*TestData

	used map[string]bool
}

// Returns the mock table names consumed so far. The harness flags
// table entries that no executed step ever matched.
func (r *SimRunner) UsedMocks() map[string]bool {
	if r.used == nil {
		return map[string]bool{}
	}
	return r.used
}

// Replays one step from its mock data.
func (r *SimRunner) Run(ctx context.Context, s *Step, sink stream.Sink, reg *paths.Registry) ExecutionResult {
	scope := sched.ScopeOf(ctx)

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	td := r.mockFor(s)

	argv, err := renderCmd(s, reg)
	if err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("render: %v", err)
	}

	cwd := s.Cwd
	if cwd == "" {
		cwd = scope.Cwd
	}

	if err := sink.Emit(openedEvent(s, argv, cwd, scope)); err != nil {
		cleanupPlaceholders(s, false)
		return ResultException("emit step_opened: %v", err)
	}

	emitMockLines(sink, s.Name, "stdout", td.Stdout)
	emitMockLines(sink, s.Name, "stderr", td.Stderr)

	// The suspension point the real runner has at cmd.Wait. Sibling
	// futures interleave here in the same order on every run.
	r.Loop.Block(ctx, func() {})

	res := r.mockResult(ctx, td)

	r.mockOutputs(s, td)
	cleanupPlaceholders(s, res.Retcode != nil && s.RetcodeOK(*res.Retcode))
	return res
}

// Looks up the mock for a step, recording table hits.
func (r *SimRunner) mockFor(s *Step) *TestData {
	if s.TestData != nil {
		return s.TestData
	}
	if td, ok := r.Mocks[s.Name]; ok {
		if r.used == nil {
			r.used = make(map[string]bool)
		}
		r.used[s.Name] = true
		return td
	}
	return &TestData{}
}

// Translates mock data and context state into an execution result.
func (r *SimRunner) mockResult(ctx context.Context, td *TestData) ExecutionResult {
	switch {
	case ctx.Err() != nil && sched.IsTimeout(ctx), td.WasTimeout:
		return ExecutionResult{WasTimeout: true}
	case ctx.Err() != nil, td.WasCancelled:
		return ExecutionResult{WasCancelled: true}
	case td.Exception != "":
		return ResultException("%s", td.Exception)
	default:
		return ResultRetcode(td.Retcode)
	}
}

// Fills every output placeholder from the mock.
//
// Stream captures replay the mocked stdout/stderr text through the same
// writer the real runner tees into, so parse behavior is identical.
// File-backed outputs take their value from the mock's placeholder map;
// an omitted entry resolves to a test-authoring error.
func (r *SimRunner) mockOutputs(s *Step, td *TestData) {
	fill := func(out *placeholder.Output, data string) {
		io.WriteString(out.Writer(), data)
		out.Resolve()
	}
	if s.Stdout != nil {
		fill(s.Stdout, td.Stdout)
	}
	if s.Stderr != nil {
		fill(s.Stderr, td.Stderr)
	}

	for _, out := range s.Outputs() {
		if out == s.Stdout || out == s.Stderr {
			continue
		}
		key := out.Label().Key()
		if value, ok := td.Placeholders[key]; ok {
			out.ResolveMock(value)
			continue
		}
		out.ResolveMockMissing(s.Name)
	}
}

// Emits one log line event per line of mocked output.
func emitMockLines(sink stream.Sink, stepName, logName, data string) {
	if data == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(data, "\n"), "\n") {
		sink.Emit(stream.Event{
			Kind: stream.KindStepLogLine,
			Step: stepName,
			Log:  logName,
			Line: line,
		})
	}
}
