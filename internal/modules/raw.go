package modules

import (
	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/resolver"
)

// Raw io api: plain text and byte placeholders, including stream capture.
type RawAPI struct{}

// Returns the raw api from a dependency view.
func RawFrom(deps *resolver.DepsView) *RawAPI {
	return deps.MustAPI("raw").(*RawAPI)
}

// Creates an input placeholder carrying text.
func (a *RawAPI) Input(content string, subname ...string) *placeholder.Input {
	return placeholder.TextInput("raw", "input", sub(subname), content)
}

// Creates an input placeholder carrying raw bytes.
func (a *RawAPI) BytesInput(content []byte, subname ...string) *placeholder.Input {
	return placeholder.BytesInput("raw", "input", sub(subname), content)
}

// Creates a file-backed output placeholder parsed as text.
func (a *RawAPI) Output(subname ...string) *placeholder.Output {
	return placeholder.TextOutput("raw", "output", sub(subname))
}

// Creates a file-backed output placeholder returned as raw bytes.
func (a *RawAPI) BytesOutput(subname ...string) *placeholder.Output {
	return placeholder.BytesOutput("raw", "output", sub(subname))
}

// Creates a placeholder capturing the step's stdout as text.
func (a *RawAPI) Stdout() *placeholder.Output {
	return placeholder.StreamOutput("raw", "stdout", "", placeholder.BackStdout, false)
}

// Creates a placeholder capturing the step's stderr as text.
func (a *RawAPI) Stderr() *placeholder.Output {
	return placeholder.StreamOutput("raw", "stderr", "", placeholder.BackStderr, false)
}

func sub(subname []string) string {
	if len(subname) > 0 {
		return subname[0]
	}
	return ""
}

func rawSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "raw",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &RawAPI{}, nil
		},
	}
}
