package simulation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/modules"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

type echoProps struct {
	Msg string `mapstructure:"msg"`
}

// Registers a step-only recipe under the given name in a private
// registry.
func echoRegistry(t *testing.T, recipe string) *resolver.Registry {
	t.Helper()
	reg := resolver.NewRegistry()
	for _, spec := range modules.Specs() {
		if spec.Name != "step" {
			continue
		}
		if err := reg.RegisterModule(spec); err != nil {
			t.Fatal(err)
		}
	}
	err := reg.RegisterRecipe(&resolver.RecipeSpec{
		Repo:       "main",
		Name:       recipe,
		Deps:       resolver.Use("kiln/step"),
		Properties: func() any { return &echoProps{} },
		Run: func(ctx context.Context, rc *resolver.RecipeRun) error {
			msg := rc.Properties.(*echoProps).Msg
			if msg == "" {
				msg = "hello"
			}
			api := modules.StepFrom(rc.Deps)
			api.MustRun(ctx, &step.Step{Name: "greet", Cmd: []any{"echo", msg}})
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestRunCaseSuccess(t *testing.T) {
	reg := echoRegistry(t, "echo")
	c := Case{
		Name:       "basic",
		Properties: map[string]any{"msg": "hi there"},
		Steps: map[string]*step.TestData{
			"greet": {Stdout: "hi there\n"},
		},
	}

	out, err := RunCase(context.Background(), reg, "echo", c)
	if err != nil {
		t.Fatal(err)
	}
	if out.Result.Status != stream.StatusSuccess {
		t.Fatalf("status = %s, want success", out.Result.Status)
	}
	if !out.Steps.Ran("greet") {
		t.Fatalf("steps = %v, want greet", out.Steps.Names())
	}
	v, _ := out.Steps.Get("greet")
	if len(v.Cmd) != 2 || v.Cmd[1] != "hi there" {
		t.Fatalf("cmd = %v", v.Cmd)
	}
	if got := v.Logs["stdout"]; len(got) != 1 || got[0] != "hi there" {
		t.Fatalf("stdout = %v", got)
	}
	if errs := Judge(c, out); len(errs) != 0 {
		t.Fatalf("judge = %v", errs)
	}
}

func TestRunCaseUnusedMock(t *testing.T) {
	reg := echoRegistry(t, "echo_unused")
	c := Case{
		Name: "stray",
		Steps: map[string]*step.TestData{
			"never_runs": {Retcode: 1},
		},
	}

	out, err := RunCase(context.Background(), reg, "echo_unused", c)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Unused) != 1 || out.Unused[0] != "never_runs" {
		t.Fatalf("unused = %v", out.Unused)
	}
	errs := Judge(c, out)
	if len(errs) != 1 || !errors.Is(errs[0], ErrUnusedMock) {
		t.Fatalf("judge = %v", errs)
	}
}

func TestJudgeWrongStatus(t *testing.T) {
	reg := echoRegistry(t, "echo_status")
	c := Case{Name: "expect_fail", ExpectStatus: stream.StatusFailure}

	out, err := RunCase(context.Background(), reg, "echo_status", c)
	if err != nil {
		t.Fatal(err)
	}
	errs := Judge(c, out)
	if len(errs) != 1 || !errors.Is(errs[0], ErrWrongOutcome) {
		t.Fatalf("judge = %v", errs)
	}
}

func TestJudgeExpectedFailure(t *testing.T) {
	reg := echoRegistry(t, "echo_fail")
	c := Case{
		Name:         "exit_one",
		Steps:        map[string]*step.TestData{"greet": {Retcode: 1}},
		ExpectStatus: stream.StatusFailure,
	}

	out, err := RunCase(context.Background(), reg, "echo_fail", c)
	if err != nil {
		t.Fatal(err)
	}
	if errs := Judge(c, out); len(errs) != 0 {
		t.Fatalf("judge = %v", errs)
	}
	if out.Err == nil {
		t.Fatal("want terminal error for failed step")
	}
}

func TestPostProcessHook(t *testing.T) {
	reg := echoRegistry(t, "echo_hook")
	c := Case{
		Name: "hooks",
		PostProcess: []Hook{
			func(check *Check, steps *StepLog) {
				check.That(steps.Ran("greet"), "greet must run")
				check.That(steps.Ran("missing"), "missing step", "steps", steps.Names())
			},
		},
	}

	out, err := RunCase(context.Background(), reg, "echo_hook", c)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Checks) != 1 {
		t.Fatalf("checks = %v", out.Checks)
	}
	f := out.Checks[0]
	if f.Message != "missing step" || f.Line == 0 || !strings.HasSuffix(f.File, "simulation_test.go") {
		t.Fatalf("failure = %+v", f)
	}
	errs := Judge(c, out)
	if len(errs) != 1 || !errors.Is(errs[0], ErrCheckFailed) {
		t.Fatalf("judge = %v", errs)
	}
}

func TestExpectationRoundTrip(t *testing.T) {
	reg := echoRegistry(t, "echo_golden")
	c := Case{Name: "golden", Steps: map[string]*step.TestData{"greet": {Stdout: "hello\n"}}}

	out, err := RunCase(context.Background(), reg, "echo_golden", c)
	if err != nil {
		t.Fatal(err)
	}

	fs := afero.NewMemMapFs()
	path := ExpectationPath("testdata", "echo_golden", c.Name)
	if path != "testdata/echo_golden.expected/golden.json" {
		t.Fatalf("path = %s", path)
	}
	if err := WriteExpectation(fs, path, Expect(out)); err != nil {
		t.Fatal(err)
	}

	want, err := LoadExpectation(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := CompareExpectation(want, out); err != nil {
		t.Fatalf("compare after train: %v", err)
	}

	want.Summary = "something else"
	if err := CompareExpectation(want, out); !errors.Is(err, ErrExpectation) {
		t.Fatalf("compare = %v, want expectation mismatch", err)
	}
}

func TestLoadExpectationMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadExpectation(fs, "testdata/none.expected/x.json")
	if !errors.Is(err, ErrNoExpectation) {
		t.Fatalf("err = %v", err)
	}
}

func TestSuiteTrainThenRun(t *testing.T) {
	reg := echoRegistry(t, "echo_suite")
	Register("echo_suite", func() []Case {
		return []Case{
			{Name: "hi", Properties: map[string]any{"msg": "hi"}},
			{Name: "bye", Properties: map[string]any{"msg": "bye"}},
		}
	})

	fs := afero.NewMemMapFs()
	opts := SuiteOptions{Registry: reg, ExpectDir: "testdata", Fs: fs, Train: true}

	results, err := RunSuite(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, res := range results {
		if !res.OK() || !res.Trained {
			t.Fatalf("train result = %+v", res)
		}
	}
	if ok, _ := afero.Exists(fs, "testdata/echo_suite.expected/hi.json"); !ok {
		t.Fatal("trained expectation missing")
	}

	opts.Train = false
	results, err = RunSuite(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range results {
		if !res.OK() {
			t.Fatalf("verify result = %+v: %v", res, res.Errs)
		}
	}
}

func TestSuiteFilter(t *testing.T) {
	reg := echoRegistry(t, "echo_filter")
	Register("echo_filter", func() []Case {
		return []Case{
			{Name: "one", DropExpectation: true},
			{Name: "two", DropExpectation: true},
		}
	})

	results, err := RunSuite(context.Background(), SuiteOptions{
		Registry: reg,
		Filter:   "echo_filter/one$",
		Fs:       afero.NewMemMapFs(),
		Train:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Case != "one" {
		t.Fatalf("results = %+v", results)
	}
}

func TestSuiteReportsMissingCases(t *testing.T) {
	reg := echoRegistry(t, "echo_uncased")

	results, err := RunSuite(context.Background(), SuiteOptions{
		Registry: reg,
		Fs:       afero.NewMemMapFs(),
	})
	if err != nil {
		t.Fatal(err)
	}
	var sawNoCases bool
	for _, res := range results {
		for _, e := range res.Errs {
			if errors.Is(e, ErrNoCases) {
				sawNoCases = true
			}
		}
	}
	if !sawNoCases {
		t.Fatalf("results = %+v, want no-cases defect", results)
	}
}

func TestCoverageUnreachableModule(t *testing.T) {
	reg := echoRegistry(t, "echo_cov")
	Register("echo_cov", func() []Case {
		return []Case{{Name: "only", DropExpectation: true}}
	})
	err := reg.RegisterModule(&resolver.Spec{
		Repo: "main",
		Name: "orphan",
		New:  func(mc *resolver.ModuleInit) (any, error) { return struct{}{}, nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	errs := Coverage(reg)
	if len(errs) != 1 || !errors.Is(errs[0], ErrUncovered) {
		t.Fatalf("coverage = %v", errs)
	}
	if !strings.Contains(errs[0].Error(), "main/orphan") {
		t.Fatalf("coverage = %v", errs[0])
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("echo_dup", func() []Case { return nil })
	defer func() {
		if recover() == nil {
			t.Fatal("want panic on duplicate registration")
		}
	}()
	Register("echo_dup", func() []Case { return nil })
}
