package placeholder

import (
	"github.com/kilnhq/kiln/internal/paths"
)

// Identity of a placeholder within one step.
//
// Results are indexed under "module.method" or "module.method.subname" on
// the returned step data. Two placeholders with the same label may not
// appear in one step.
type Label struct {
	Module  string
	Method  string
	Subname string
}

// Returns the lookup key for the label.
func (l Label) Key() string {
	key := l.Module + "." + l.Method
	if l.Subname != "" {
		key += "." + l.Subname
	}
	return key
}

// A command-argument stand-in.
//
// Render is called once before the step runs and returns the argument
// strings to splice in at the placeholder's position. Cleanup is called
// unconditionally after the step, success or not.
type Placeholder interface {
	Label() Label
	Render(reg *paths.Registry, stepName string) ([]string, error)
	Cleanup(success bool) error
}

// Where an output placeholder's data comes from.
type Backing int

const (
	BackFile   Backing = iota // A temp file passed as a command argument.
	BackStdout                // The step's captured stdout stream.
	BackStderr                // The step's captured stderr stream.
)
