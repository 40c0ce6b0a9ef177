package simulation

import (
	"fmt"
	"runtime"
)

// Records assertion failures from post-process hooks.
type Check struct {
	failures []CheckFailure
}

// One failed assertion, with the hook's call site.
type CheckFailure struct {
	File    string
	Line    int
	Message string
	Values  []any
}

func (f CheckFailure) String() string {
	s := fmt.Sprintf("%s:%d: %s", f.File, f.Line, f.Message)
	for i := 0; i+1 < len(f.Values); i += 2 {
		s += fmt.Sprintf(" %v=%v", f.Values[i], f.Values[i+1])
	}
	return s
}

// Evaluates a condition; a false condition records the failure with the
// caller's location and the given key-value renderings.
func (c *Check) That(cond bool, msg string, kv ...any) bool {
	if cond {
		return true
	}
	_, file, line, _ := runtime.Caller(1)
	c.failures = append(c.failures, CheckFailure{
		File:    file,
		Line:    line,
		Message: msg,
		Values:  kv,
	})
	return false
}

// Returns the recorded failures.
func (c *Check) Failures() []CheckFailure {
	return append([]CheckFailure(nil), c.failures...)
}
