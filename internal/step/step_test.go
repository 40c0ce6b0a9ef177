package step

import (
	"errors"
	"testing"

	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/stream"
)

func TestValidateRejectsEmptyName(t *testing.T) {
	s := &Step{Cmd: []any{"true"}}
	if err := s.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("Validate() = %v, want ErrEmptyName", err)
	}
}

func TestValidateRejectsEmptyCmd(t *testing.T) {
	s := &Step{Name: "noop"}
	if err := s.Validate(); !errors.Is(err, ErrEmptyCmd) {
		t.Fatalf("Validate() = %v, want ErrEmptyCmd", err)
	}
}

func TestValidateRejectsBadArgType(t *testing.T) {
	s := &Step{Name: "bad", Cmd: []any{"echo", 42}}
	if err := s.Validate(); !errors.Is(err, ErrBadArg) {
		t.Fatalf("Validate() = %v, want ErrBadArg", err)
	}
}

func TestValidateRejectsDuplicateLabels(t *testing.T) {
	s := &Step{
		Name: "dup",
		Cmd: []any{
			"tool",
			placeholder.TextOutput("json", "output", ""),
			placeholder.TextOutput("json", "output", ""),
		},
	}
	if err := s.Validate(); !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("Validate() = %v, want ErrDuplicateLabel", err)
	}
}

func TestValidateAcceptsDistinctSubnames(t *testing.T) {
	s := &Step{
		Name: "ok",
		Cmd: []any{
			"tool",
			placeholder.TextOutput("json", "output", "first"),
			placeholder.TextOutput("json", "output", "second"),
		},
		Stdout: placeholder.StreamOutput("raw", "stdout", "", placeholder.BackStdout, false),
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestRetcodeOK(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		retcode int
		want    bool
	}{
		{"default zero", Step{}, 0, true},
		{"default nonzero", Step{}, 1, false},
		{"okret match", Step{OkRet: []int{0, 2}}, 2, true},
		{"okret miss", Step{OkRet: []int{0, 2}}, 1, false},
		{"anyret", Step{AnyRet: true}, 77, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.step.RetcodeOK(tt.retcode); got != tt.want {
				t.Fatalf("RetcodeOK(%d) = %v, want %v", tt.retcode, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		step Step
		res  ExecutionResult
		want stream.Status
	}{
		{"success", Step{}, ResultRetcode(0), stream.StatusSuccess},
		{"failure", Step{}, ResultRetcode(1), stream.StatusFailure},
		{"infra failure", Step{InfraStep: true}, ResultRetcode(1), stream.StatusInfraFailure},
		{"infra success", Step{InfraStep: true}, ResultRetcode(0), stream.StatusSuccess},
		{"exception", Step{}, ResultException("boom"), stream.StatusException},
		{"no retcode", Step{}, ExecutionResult{}, stream.StatusException},
		{"timeout", Step{}, ExecutionResult{WasTimeout: true}, stream.StatusCanceled},
		{"cancelled", Step{}, ExecutionResult{WasCancelled: true}, stream.StatusCanceled},
		{"okret tolerated", Step{OkRet: []int{3}}, ResultRetcode(3), stream.StatusSuccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(&tt.step, tt.res); got != tt.want {
				t.Fatalf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDataResults(t *testing.T) {
	d := NewData("build", 0, NewPresentation("build"))
	d.AddResult(placeholder.Label{Module: "json", Method: "output"}, map[string]any{"ok": true})

	got, err := d.Result("json", "output")
	if err != nil {
		t.Fatalf("Result() error: %v", err)
	}
	if m, ok := got.(map[string]any); !ok || m["ok"] != true {
		t.Fatalf("Result() = %v, want map with ok=true", got)
	}

	if _, err := d.Result("json", "missing"); !errors.Is(err, ErrUnknownResult) {
		t.Fatalf("Result(missing) = %v, want ErrUnknownResult", err)
	}
}

func TestDataStreamValues(t *testing.T) {
	d := NewData("greet", 0, NewPresentation("greet"))
	if _, err := d.StdoutValue(); !errors.Is(err, ErrUnknownResult) {
		t.Fatalf("StdoutValue() before set = %v, want ErrUnknownResult", err)
	}

	d.SetStdoutValue("hello\n")
	got, err := d.StdoutValue()
	if err != nil {
		t.Fatalf("StdoutValue() error: %v", err)
	}
	if got != "hello\n" {
		t.Fatalf("StdoutValue() = %q, want %q", got, "hello\n")
	}
}
