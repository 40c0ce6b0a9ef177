package placeholder

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kilnhq/kiln/internal/paths"
)

func newTestRegistry(t *testing.T) *paths.Registry {
	t.Helper()
	reg := paths.NewSimRegistry()
	if err := reg.RegisterRoot(paths.RootTmp, "/tmp_base"); err != nil {
		t.Fatalf("RegisterRoot: %v", err)
	}
	return reg
}

func TestLabelKey(t *testing.T) {
	tests := []struct {
		label Label
		want  string
	}{
		{Label{Module: "json", Method: "output"}, "json.output"},
		{Label{Module: "raw", Method: "output_text", Subname: "log"}, "raw.output_text.log"},
	}
	for _, tt := range tests {
		if got := tt.label.Key(); got != tt.want {
			t.Fatalf("Key = %q, want %q", got, tt.want)
		}
	}
}

func TestInputRender(t *testing.T) {
	reg := newTestRegistry(t)
	in := TextInput("raw", "input_text", "", "hello file")

	args, err := in.Render(reg, "write config")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("args = %v, want one path", args)
	}

	data, err := reg.ReadFile(args[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "hello file" {
		t.Fatalf("content = %q, want hello file", data)
	}

	if err := in.Cleanup(true); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if reg.Exists(args[0]) {
		t.Fatal("input file survived cleanup")
	}
}

func TestJSONInput(t *testing.T) {
	reg := newTestRegistry(t)
	in, err := JSONInput("json", "input", "", map[string]any{"k": "v"})
	if err != nil {
		t.Fatalf("JSONInput: %v", err)
	}

	args, err := in.Render(reg, "s")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	data, err := reg.ReadFile(args[0])
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"k":"v"}` {
		t.Fatalf("content = %q", data)
	}
}

func TestOutputFileRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	out := JSONOutput("json", "output", "")

	args, err := out.Render(reg, "collect")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("args = %v, want one path", args)
	}

	// The child process writes its result file.
	if err := reg.WriteFile(args[0], []byte(`{"num_passed": 791}`)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	value, err := out.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := map[string]any{"num_passed": float64(791)}
	if diff := cmp.Diff(want, value); diff != "" {
		t.Fatalf("value mismatch (-want +got):\n%s", diff)
	}

	got, err := out.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Result mismatch (-want +got):\n%s", diff)
	}
}

func TestOutputResultBeforeResolve(t *testing.T) {
	out := TextOutput("raw", "output_text", "")
	if _, err := out.Result(); !errors.Is(err, ErrUnresolved) {
		t.Fatalf("Result = %v, want ErrUnresolved", err)
	}
}

func TestOutputDoubleResolve(t *testing.T) {
	reg := newTestRegistry(t)
	out := TextOutput("raw", "output_text", "")

	args, err := out.Render(reg, "s")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	reg.WriteFile(args[0], []byte("once"))

	if _, err := out.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := out.Resolve(); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("second Resolve = %v, want ErrAlreadyResolved", err)
	}
}

func TestOutputParseFailure(t *testing.T) {
	reg := newTestRegistry(t)
	out := JSONOutput("json", "output", "")

	args, err := out.Render(reg, "s")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	reg.WriteFile(args[0], []byte("{definitely not json"))

	if _, err := out.Resolve(); !errors.Is(err, ErrParse) {
		t.Fatalf("Resolve = %v, want ErrParse", err)
	}
	// The failure sticks to later reads.
	if _, err := out.Result(); !errors.Is(err, ErrParse) {
		t.Fatalf("Result = %v, want ErrParse", err)
	}
}

func TestStreamOutputCapture(t *testing.T) {
	reg := newTestRegistry(t)
	out := StreamOutput("raw", "output_text", "", BackStdout, false)

	args, err := out.Render(reg, "s")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(args) != 0 {
		t.Fatalf("stream-backed placeholder rendered args %v", args)
	}

	out.Writer().Write([]byte("line one\nline two\n"))

	value, err := out.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if value != "line one\nline two\n" {
		t.Fatalf("value = %q", value)
	}
}

func TestResolveMock(t *testing.T) {
	out := JSONOutput("json", "output", "")
	if err := out.ResolveMock(map[string]any{"ok": true}); err != nil {
		t.Fatalf("ResolveMock: %v", err)
	}

	value, err := out.Result()
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	m, ok := value.(map[string]any)
	if !ok || m["ok"] != true {
		t.Fatalf("value = %v", value)
	}
}

func TestLeakKeepsFile(t *testing.T) {
	reg := newTestRegistry(t)
	out := TextOutput("raw", "output_text", "").Leak()

	args, err := out.Render(reg, "s")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	reg.WriteFile(args[0], []byte("kept"))

	if err := out.Cleanup(true); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if !reg.Exists(args[0]) {
		t.Fatal("leaked file was removed")
	}
}
