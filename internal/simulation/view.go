package simulation

import (
	"github.com/kilnhq/kiln/internal/stream"
)

// One step as the expectation format records it: everything the event
// stream said about the step, folded into a single object.
type StepView struct {
	Name       string              `json:"name"`
	Cmd        []string            `json:"cmd,omitempty"`
	Cwd        string              `json:"cwd,omitempty"`
	Env        map[string]string   `json:"env,omitempty"`
	Logs       map[string][]string `json:"logs,omitempty"`
	Text       string              `json:"text,omitempty"`
	Summary    string              `json:"summary,omitempty"`
	Links      map[string]string   `json:"links,omitempty"`
	Properties map[string]any      `json:"properties,omitempty"`
	Status     stream.Status       `json:"status"`
	Details    string              `json:"details,omitempty"`
}

// The ordered step views of one simulated run.
type StepLog struct {
	views []StepView
	index map[string]int
}

// Returns step names in open order.
func (l *StepLog) Names() []string {
	names := make([]string, 0, len(l.views))
	for _, v := range l.views {
		names = append(names, v.Name)
	}
	return names
}

// Returns the view for a step.
func (l *StepLog) Get(name string) (StepView, bool) {
	i, ok := l.index[name]
	if !ok {
		return StepView{}, false
	}
	return l.views[i], true
}

// Reports whether a step ran.
func (l *StepLog) Ran(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Returns the views in open order.
func (l *StepLog) Views() []StepView {
	return append([]StepView(nil), l.views...)
}

// Folds the normalized event stream into ordered step views plus the
// terminal recipe event.
func fold(events []stream.Event) (*StepLog, stream.Event) {
	log := &StepLog{index: make(map[string]int)}
	var final stream.Event

	at := func(name string) *StepView {
		i, ok := log.index[name]
		if !ok {
			log.views = append(log.views, StepView{Name: name})
			i = len(log.views) - 1
			log.index[name] = i
		}
		return &log.views[i]
	}

	for _, ev := range events {
		switch ev.Kind {
		case stream.KindStepOpened:
			v := at(ev.Step)
			v.Cmd = ev.Cmd
			v.Cwd = ev.Cwd
			v.Env = ev.Env
		case stream.KindStepLogLine:
			v := at(ev.Step)
			if v.Logs == nil {
				v.Logs = make(map[string][]string)
			}
			v.Logs[ev.Log] = append(v.Logs[ev.Log], ev.Line)
		case stream.KindStepText:
			at(ev.Step).Text = ev.Text
		case stream.KindStepSummary:
			at(ev.Step).Summary = ev.Text
		case stream.KindStepLink:
			v := at(ev.Step)
			if v.Links == nil {
				v.Links = make(map[string]string)
			}
			v.Links[ev.Name] = ev.URL
		case stream.KindStepProperty:
			v := at(ev.Step)
			if v.Properties == nil {
				v.Properties = make(map[string]any)
			}
			v.Properties[ev.Key] = ev.Value
		case stream.KindStepClosed:
			v := at(ev.Step)
			v.Status = ev.Status
			v.Details = ev.Details
		case stream.KindRecipeEnded:
			final = ev
		}
	}
	return log, final
}
