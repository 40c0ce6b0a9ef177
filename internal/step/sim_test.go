package step

import (
	"context"
	"errors"
	"testing"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/stream"
)

func newSimEnv(t *testing.T) (*sched.Loop, *paths.Registry) {
	t.Helper()
	reg := paths.NewSimRegistry()
	if err := reg.RegisterRoot(paths.RootTmp, "/tmp_base"); err != nil {
		t.Fatalf("RegisterRoot: %v", err)
	}
	return sched.NewSimLoop(), reg
}

func runSim(t *testing.T, r *SimRunner, loop *sched.Loop, reg *paths.Registry, s *Step, sink stream.Sink) ExecutionResult {
	t.Helper()
	var res ExecutionResult
	err := loop.Run(context.Background(), func(ctx context.Context) error {
		res = r.Run(ctx, s, sink, reg)
		return nil
	})
	if err != nil {
		t.Fatalf("loop.Run: %v", err)
	}
	return res
}

func TestSimRunnerDefaultsToSuccess(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{Loop: loop}
	rec := stream.NewRecorder()

	s := &Step{Name: "hello", Cmd: []any{"echo", "hi"}}
	res := runSim(t, r, loop, reg, s, rec)

	if res.Retcode == nil || *res.Retcode != 0 {
		t.Fatalf("Retcode = %v, want 0", res.Retcode)
	}

	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 step_opened", len(events))
	}
	if events[0].Kind != stream.KindStepOpened || events[0].Step != "hello" {
		t.Fatalf("event = %+v, want step_opened for hello", events[0])
	}
	if len(events[0].Cmd) != 2 || events[0].Cmd[0] != "echo" {
		t.Fatalf("cmd = %v, want [echo hi]", events[0].Cmd)
	}
}

func TestSimRunnerReplaysMockedOutput(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{
		Loop: loop,
		Mocks: map[string]*TestData{
			"greet": {Retcode: 1, Stdout: "hello\nworld\n", Stderr: "oops\n"},
		},
	}
	rec := stream.NewRecorder()

	s := &Step{Name: "greet", Cmd: []any{"greeter"}}
	res := runSim(t, r, loop, reg, s, rec)

	if res.Retcode == nil || *res.Retcode != 1 {
		t.Fatalf("Retcode = %v, want 1", res.Retcode)
	}

	var lines []string
	for _, ev := range rec.Events() {
		if ev.Kind == stream.KindStepLogLine {
			lines = append(lines, ev.Log+":"+ev.Line)
		}
	}
	want := []string{"stdout:hello", "stdout:world", "stderr:oops"}
	if len(lines) != len(want) {
		t.Fatalf("log lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	if !r.UsedMocks()["greet"] {
		t.Fatal("mock for greet not marked used")
	}
}

func TestSimRunnerMocksFilePlaceholders(t *testing.T) {
	loop, reg := newSimEnv(t)
	out := placeholder.JSONOutput("json", "output", "")
	r := &SimRunner{
		Loop: loop,
		Mocks: map[string]*TestData{
			"emit": {Placeholders: map[string]any{
				"json.output": map[string]any{"count": float64(3)},
			}},
		},
	}

	s := &Step{Name: "emit", Cmd: []any{"tool", out}}
	runSim(t, r, loop, reg, s, stream.Discard{})

	value, err := out.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	m, ok := value.(map[string]any)
	if !ok || m["count"] != float64(3) {
		t.Fatalf("Result() = %v, want count=3", value)
	}
}

func TestSimRunnerFlagsMissingPlaceholderMock(t *testing.T) {
	loop, reg := newSimEnv(t)
	out := placeholder.JSONOutput("json", "output", "")
	r := &SimRunner{Loop: loop}

	s := &Step{Name: "emit", Cmd: []any{"tool", out}}
	res := runSim(t, r, loop, reg, s, stream.Discard{})

	if res.Retcode == nil || *res.Retcode != 0 {
		t.Fatalf("Retcode = %v, want 0", res.Retcode)
	}
	if _, err := out.Result(); !errors.Is(err, placeholder.ErrNoMockData) {
		t.Fatalf("Result() = %v, want ErrNoMockData", err)
	}
}

func TestSimRunnerCapturesMockedStdout(t *testing.T) {
	loop, reg := newSimEnv(t)
	capture := placeholder.StreamOutput("raw", "stdout", "", placeholder.BackStdout, false)
	r := &SimRunner{
		Loop: loop,
		Mocks: map[string]*TestData{
			"cat": {Stdout: "captured text\n"},
		},
	}

	s := &Step{Name: "cat", Cmd: []any{"cat"}, Stdout: capture}
	runSim(t, r, loop, reg, s, stream.Discard{})

	value, err := capture.Result()
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if value != "captured text\n" {
		t.Fatalf("Result() = %q, want captured text", value)
	}
}

func TestSimRunnerStepTestDataWins(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{
		Loop:  loop,
		Mocks: map[string]*TestData{"x": {Retcode: 7}},
	}

	s := &Step{Name: "x", Cmd: []any{"x"}, TestData: &TestData{Retcode: 3}}
	res := runSim(t, r, loop, reg, s, stream.Discard{})

	if res.Retcode == nil || *res.Retcode != 3 {
		t.Fatalf("Retcode = %v, want step-level 3", res.Retcode)
	}
	if r.UsedMocks()["x"] {
		t.Fatal("table mock marked used despite step-level data")
	}
}

func TestSimRunnerMockedTimeout(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{
		Loop:  loop,
		Mocks: map[string]*TestData{"slow": {WasTimeout: true}},
	}

	s := &Step{Name: "slow", Cmd: []any{"sleep", "60"}}
	res := runSim(t, r, loop, reg, s, stream.Discard{})

	if !res.WasTimeout {
		t.Fatalf("result = %+v, want WasTimeout", res)
	}
	if res.Retcode != nil {
		t.Fatalf("Retcode = %v, want nil on timeout", res.Retcode)
	}
	if Classify(s, res) != stream.StatusCanceled {
		t.Fatalf("Classify = %q, want canceled", Classify(s, res))
	}
}

func TestSimRunnerMockedException(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{
		Loop:  loop,
		Mocks: map[string]*TestData{"broken": {Exception: "binary not found"}},
	}

	s := &Step{Name: "broken", Cmd: []any{"missing-tool"}}
	res := runSim(t, r, loop, reg, s, stream.Discard{})

	if !res.HadException || res.ExceptionReason != "binary not found" {
		t.Fatalf("result = %+v, want exception", res)
	}
}

func TestSimRunnerEnvDelta(t *testing.T) {
	loop, reg := newSimEnv(t)
	r := &SimRunner{Loop: loop}
	rec := stream.NewRecorder()

	s := &Step{
		Name:         "env",
		Cmd:          []any{"env"},
		EnvAdditions: map[string]string{"FOO": "bar"},
		EnvPrefixes:  map[string][]string{"PATH": {"/opt/tool/bin"}},
	}
	runSim(t, r, loop, reg, s, rec)

	env := rec.Events()[0].Env
	if env["FOO"] != "bar" {
		t.Fatalf("env FOO = %q, want bar", env["FOO"])
	}
	if env["PATH"] == "" {
		t.Fatal("env PATH delta missing")
	}
}
