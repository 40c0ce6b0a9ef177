package step

import (
	"context"
	"fmt"
	"strings"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/stream"
)

// Drives steps through one recipe run.
//
// The tracker owns the per-run step discipline: a child step needs a
// previously opened parent, duplicate names are disambiguated, the
// previous step's presentation closes when the next step opens, and
// execution results translate into the failure types recipe code sees.
type Tracker struct {
	runner Runner
	sink   stream.Sink
	reg    *paths.Registry

	counts map[string]int
	opened map[string]bool
	last   *Presentation
}

// Creates a tracker for one recipe run.
func NewTracker(runner Runner, sink stream.Sink, reg *paths.Registry) *Tracker {
	return &Tracker{
		runner: runner,
		sink:   sink,
		reg:    reg,
		counts: make(map[string]int),
		opened: make(map[string]bool),
	}
}

// Runs one step and returns its data.
//
// The returned error carries the step's terminal disposition: nil on
// success, *Failure, *InfraFailure, or *Exception otherwise, and the
// context cause when the scope was cancelled or timed out. Step data is
// returned alongside the error whenever the step actually ran, so
// recovering callers can still read the retcode and presentation.
func (t *Tracker) Run(ctx context.Context, s *Step) (*Data, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if parent, ok := parentOf(s.Name); ok && !t.opened[parent] {
		return nil, fmt.Errorf("%w: %q has no open parent %q", ErrOrphanStep, s.Name, parent)
	}

	run := s
	t.counts[s.Name]++
	if n := t.counts[s.Name]; n > 1 {
		// Same name run twice; disambiguate like " (2)" so the event
		// stream stays unambiguous.
		clone := *s
		clone.Name = fmt.Sprintf("%s (%d)", s.Name, n)
		run = &clone
	}
	t.opened[run.Name] = true

	t.closeLast()

	pres := NewPresentation(run.Name)
	res := t.runner.Run(ctx, run, t.sink, t.reg)

	status := Classify(run, res)
	reason := res.ExceptionReason

	retcode := 0
	if res.Retcode != nil {
		retcode = *res.Retcode
	}
	data := NewData(run.Name, retcode, pres)

	for _, out := range run.Outputs() {
		value, err := out.Result()
		if err != nil {
			if status != stream.StatusCanceled {
				status = stream.StatusException
				reason = err.Error()
			}
			continue
		}
		switch out {
		case run.Stdout:
			data.SetStdoutValue(value)
		case run.Stderr:
			data.SetStderrValue(value)
		default:
			data.AddResult(out.Label(), value)
		}
	}

	pres.SetStatus(status)
	if reason != "" {
		pres.SetStatusDetails(reason)
	}
	// A concurrent sibling may have finished while this step ran; its
	// presentation is the open one and closes now.
	t.closeLast()
	t.last = pres

	return data, t.disposition(ctx, run, res, status, reason, retcode)
}

// Closes the last open presentation. Called at recipe end; running the
// next step closes it implicitly.
func (t *Tracker) Finish() error {
	return t.closeLast()
}

func (t *Tracker) closeLast() error {
	if t.last == nil {
		return nil
	}
	pres := t.last
	t.last = nil
	return pres.Close(t.sink)
}

// Maps a terminal status to the error recipe code observes.
func (t *Tracker) disposition(ctx context.Context, s *Step, res ExecutionResult, status stream.Status, reason string, retcode int) error {
	switch status {
	case stream.StatusSuccess, stream.StatusWarning:
		return nil
	case stream.StatusCanceled:
		if cause := context.Cause(ctx); cause != nil {
			return fmt.Errorf("step %q: %w", s.Name, cause)
		}
		if res.WasTimeout {
			return fmt.Errorf("step %q: %w", s.Name, context.DeadlineExceeded)
		}
		return fmt.Errorf("step %q: %w", s.Name, context.Canceled)
	case stream.StatusException:
		return &Exception{Step: s.Name, Reason: reason}
	case stream.StatusInfraFailure:
		return &InfraFailure{Step: s.Name, Retcode: retcode, Reason: reason}
	default:
		return &Failure{Step: s.Name, Retcode: retcode}
	}
}

// Splits a hierarchical name into its parent, if any.
func parentOf(name string) (string, bool) {
	i := strings.LastIndex(name, stream.NameSep)
	if i < 0 {
		return "", false
	}
	return name[:i], true
}
