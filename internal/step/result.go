package step

import (
	"fmt"

	"github.com/kilnhq/kiln/internal/placeholder"
	"github.com/kilnhq/kiln/internal/stream"
)

// The non-raising outcome of attempting to run one step.
//
// Always well-defined: a runner reports what happened through this value
// and never through an error return.
type ExecutionResult struct {
	Retcode         *int   // Exit code; nil when the process never ran or never exited.
	HadException    bool   // The runner hit an internal failure (spawn, pipe, render).
	ExceptionReason string // Human-readable reason when HadException is set.
	WasCancelled    bool   // The scope was cancelled while the step ran.
	WasTimeout      bool   // The scope deadline elapsed while the step ran.
}

// Returns a result carrying an exit code.
func ResultRetcode(code int) ExecutionResult {
	return ExecutionResult{Retcode: &code}
}

// Returns a result for a runner-internal failure.
func ResultException(format string, args ...any) ExecutionResult {
	return ExecutionResult{
		HadException:    true,
		ExceptionReason: fmt.Sprintf(format, args...),
	}
}

// Returned to recipe code after a step has run.
type Data struct {
	Name         string
	Retcode      int
	Presentation *Presentation

	results map[string]any // Placeholder label key to resolved value.

	stdoutVal any
	stderrVal any
	hasStdout bool
	hasStderr bool
}

// Creates step data with resolved placeholder values.
func NewData(name string, retcode int, pres *Presentation) *Data {
	return &Data{
		Name:         name,
		Retcode:      retcode,
		Presentation: pres,
		results:      make(map[string]any),
	}
}

// Records a resolved placeholder value under its label key.
func (d *Data) AddResult(label placeholder.Label, value any) {
	d.results[label.Key()] = value
}

// Returns the resolved value for "module.method" or
// "module.method.subname".
func (d *Data) Result(module, method string, subname ...string) (any, error) {
	l := placeholder.Label{Module: module, Method: method}
	if len(subname) > 0 {
		l.Subname = subname[0]
	}
	value, ok := d.results[l.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s on step %q", ErrUnknownResult, l.Key(), d.Name)
	}
	return value, nil
}

// Records the value resolved from the step's stdout placeholder.
func (d *Data) SetStdoutValue(value any) {
	d.stdoutVal = value
	d.hasStdout = true
}

// Records the value resolved from the step's stderr placeholder.
func (d *Data) SetStderrValue(value any) {
	d.stderrVal = value
	d.hasStderr = true
}

// Returns the value captured from the step's stdout placeholder.
func (d *Data) StdoutValue() (any, error) {
	if !d.hasStdout {
		return nil, fmt.Errorf("%w: no stdout capture on step %q", ErrUnknownResult, d.Name)
	}
	return d.stdoutVal, nil
}

// Returns the value captured from the step's stderr placeholder.
func (d *Data) StderrValue() (any, error) {
	if !d.hasStderr {
		return nil, fmt.Errorf("%w: no stderr capture on step %q", ErrUnknownResult, d.Name)
	}
	return d.stderrVal, nil
}

// Classifies a result against a step's policy into a terminal status.
func Classify(s *Step, res ExecutionResult) stream.Status {
	switch {
	case res.WasTimeout, res.WasCancelled:
		return stream.StatusCanceled
	case res.HadException:
		return stream.StatusException
	case res.Retcode == nil:
		return stream.StatusException
	case s.RetcodeOK(*res.Retcode):
		return stream.StatusSuccess
	case s.InfraStep:
		return stream.StatusInfraFailure
	default:
		return stream.StatusFailure
	}
}
