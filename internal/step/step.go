package step

import (
	"fmt"
	"time"

	"github.com/kilnhq/kiln/internal/placeholder"
)

// Defines one subprocess invocation.
type Step struct {
	// Full hierarchical name; "|" separates parent from child segments.
	Name string

	// Command vector. Each element is a string or a
	// [placeholder.Placeholder] that renders into strings at invocation.
	Cmd []any

	EnvAdditions map[string]string
	EnvPrefixes  map[string][]string // PATH-like prepends.
	EnvSuffixes  map[string][]string // PATH-like appends.

	Cwd     string        // Empty inherits the scope cwd, then start dir.
	Timeout time.Duration // Zero inherits the scope deadline only.

	OkRet  []int // Exit codes that count as success; nil means {0}.
	AnyRet bool  // Every exit code counts as success.

	// Failures of an infra step surface as infra failures, not test
	// failures.
	InfraStep bool

	Stdin  *placeholder.Input
	Stdout *placeholder.Output // Must be stream-backed on stdout.
	Stderr *placeholder.Output // Must be stream-backed on stderr.

	// Mock outcome consumed by the simulated runner; ignored by the real
	// one.
	TestData *TestData
}

// Pre-supplied outcome for one simulated step.
type TestData struct {
	Retcode      int
	Stdout       string
	Stderr       string
	Placeholders map[string]any // Label key to mocked resolved value.
	WasTimeout   bool
	WasCancelled bool
	Exception    string
}

// Checks a step's structural invariants before it runs.
func (s *Step) Validate() error {
	if s.Name == "" {
		return ErrEmptyName
	}
	if len(s.Cmd) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyCmd, s.Name)
	}

	labels := make(map[string]bool)
	record := func(l placeholder.Label) error {
		key := l.Key()
		if labels[key] {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateLabel, key, s.Name)
		}
		labels[key] = true
		return nil
	}

	for _, arg := range s.Cmd {
		switch a := arg.(type) {
		case string:
		case placeholder.Placeholder:
			if err := record(a.Label()); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %q has %T", ErrBadArg, s.Name, arg)
		}
	}
	if s.Stdout != nil {
		if err := record(s.Stdout.Label()); err != nil {
			return err
		}
	}
	if s.Stderr != nil {
		if err := record(s.Stderr.Label()); err != nil {
			return err
		}
	}

	return nil
}

// Reports whether retcode satisfies the step's success policy.
func (s *Step) RetcodeOK(retcode int) bool {
	if s.AnyRet {
		return true
	}
	if len(s.OkRet) == 0 {
		return retcode == 0
	}
	for _, ok := range s.OkRet {
		if retcode == ok {
			return true
		}
	}
	return false
}

// Returns every output placeholder attached to the step, command args
// first, then stdout and stderr captures.
func (s *Step) Outputs() []*placeholder.Output {
	var outs []*placeholder.Output
	for _, arg := range s.Cmd {
		if out, ok := arg.(*placeholder.Output); ok {
			outs = append(outs, out)
		}
	}
	if s.Stdout != nil {
		outs = append(outs, s.Stdout)
	}
	if s.Stderr != nil {
		outs = append(outs, s.Stderr)
	}
	return outs
}

// Returns every placeholder attached to the step.
func (s *Step) Placeholders() []placeholder.Placeholder {
	var all []placeholder.Placeholder
	for _, arg := range s.Cmd {
		if ph, ok := arg.(placeholder.Placeholder); ok {
			all = append(all, ph)
		}
	}
	if s.Stdin != nil {
		all = append(all, s.Stdin)
	}
	if s.Stdout != nil {
		all = append(all, s.Stdout)
	}
	if s.Stderr != nil {
		all = append(all, s.Stderr)
	}
	return all
}
