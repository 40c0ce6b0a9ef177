package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// In-memory build presentation replicated to an external consumer.
//
// The emitter maintains a nested step tree mirroring the event sequence and
// writes a JSON snapshot of the whole build to the writer each time a step
// closes and once more when the recipe ends. Consumers treat the last
// snapshot as authoritative; earlier snapshots show the build in flight.
type Structured struct {
	w     io.Writer
	build Build
	index map[string]*BuildStep
}

// Final build presentation message.
type Build struct {
	Status  Status       `json:"status,omitempty"`
	Summary string       `json:"summary,omitempty"`
	Steps   []*BuildStep `json:"steps,omitempty"`
}

// One step in the build presentation tree.
type BuildStep struct {
	Name       string            `json:"name"` // Leaf segment of the step name.
	Cmd        []string          `json:"cmd,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	Status     Status            `json:"status,omitempty"`
	Text       string            `json:"text,omitempty"`
	Summary    string            `json:"summary,omitempty"`
	Logs       []NamedLog        `json:"logs,omitempty"`
	Links      []NamedLink       `json:"links,omitempty"`
	Properties map[string]any    `json:"properties,omitempty"`
	Details    string            `json:"details,omitempty"`
	Children   []*BuildStep      `json:"children,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

// An ordered log entry; order of first appearance is preserved.
type NamedLog struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// An ordered link entry.
type NamedLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Creates a structured emitter writing snapshots to w.
func NewStructured(w io.Writer) *Structured {
	return &Structured{w: w, index: make(map[string]*BuildStep)}
}

// Applies one event to the presentation tree.
func (s *Structured) Emit(ev Event) error {
	switch ev.Kind {
	case KindStepOpened:
		step, err := s.open(ev.Step)
		if err != nil {
			return err
		}
		step.Cmd = ev.Cmd
		step.Cwd = ev.Cwd
		step.Env = ev.Env
		return nil

	case KindStepLogLine:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		step.appendLog(ev.Log, ev.Line)
		return nil

	case KindStepText:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		step.Text = ev.Text
		return nil

	case KindStepSummary:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		step.Summary = ev.Text
		return nil

	case KindStepLink:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		step.Links = append(step.Links, NamedLink{Name: ev.Name, URL: ev.URL})
		return nil

	case KindStepProperty:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		if step.Properties == nil {
			step.Properties = make(map[string]any)
		}
		step.Properties[ev.Key] = ev.Value
		return nil

	case KindStepClosed:
		step, err := s.lookup(ev.Step)
		if err != nil {
			return err
		}
		step.Status = ev.Status
		step.Details = ev.Details
		return s.replicate()

	case KindRecipeEnded:
		s.build.Status = ev.Status
		s.build.Summary = ev.Text
		return s.replicate()
	}

	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// Writes a final snapshot.
func (s *Structured) Close() error {
	return s.replicate()
}

// Returns the current build presentation.
func (s *Structured) Build() *Build {
	return &s.build
}

// Creates the step node, attaching it beneath its parent.
//
// A parent must have been opened before any of its children; the engine
// rejects orphan children before they reach the sink, so a miss here is an
// internal error.
func (s *Structured) open(name string) (*BuildStep, error) {
	if _, ok := s.index[name]; ok {
		return nil, fmt.Errorf("step %q opened twice", name)
	}

	leaf := name
	var siblings *[]*BuildStep = &s.build.Steps
	if parent, rest, ok := cutLast(name); ok {
		p, found := s.index[parent]
		if !found {
			return nil, fmt.Errorf("step %q opened before its parent %q", name, parent)
		}
		siblings = &p.Children
		leaf = rest
	}

	step := &BuildStep{Name: leaf}
	*siblings = append(*siblings, step)
	s.index[name] = step
	return step, nil
}

// Finds an open step node by full name.
func (s *Structured) lookup(name string) (*BuildStep, error) {
	step, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("event for unopened step %q", name)
	}
	return step, nil
}

// Appends a line to a named log, creating the log on first use.
func (b *BuildStep) appendLog(name, line string) {
	for i := range b.Logs {
		if b.Logs[i].Name == name {
			b.Logs[i].Lines = append(b.Logs[i].Lines, line)
			return
		}
	}
	b.Logs = append(b.Logs, NamedLog{Name: name, Lines: []string{line}})
}

// Writes one JSON snapshot line of the current build.
func (s *Structured) replicate() error {
	data, err := json.Marshal(&s.build)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = s.w.Write(data)
	return err
}

// Splits a full step name into its parent name and leaf segment.
func cutLast(name string) (parent, leaf string, ok bool) {
	i := strings.LastIndex(name, NameSep)
	if i < 0 {
		return "", name, false
	}
	return name[:i], name[i+1:], true
}
