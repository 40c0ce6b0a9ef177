package step

import (
	"fmt"

	"github.com/kilnhq/kiln/internal/stream"
)

// Mutable UI state attached to a step.
//
// A presentation stays writable after its step has run, until the next
// step opens (or the recipe ends). Closing flushes the accumulated
// changes to the sink as presentation events followed by the step_closed
// event; mutations after close are errors, not silent writes into limbo.
type Presentation struct {
	stepName string
	status   stream.Status
	details  string
	text     string
	summary  string
	logs     []stream.NamedLog
	links    []stream.NamedLink
	propKeys []string
	props    map[string]any
	closed   bool
}

// Creates an open presentation for a step, defaulting to success.
func NewPresentation(stepName string) *Presentation {
	return &Presentation{
		stepName: stepName,
		status:   stream.StatusSuccess,
		props:    make(map[string]any),
	}
}

// Returns the step's terminal status as currently set.
func (p *Presentation) Status() stream.Status {
	return p.status
}

// Sets the step's terminal status.
func (p *Presentation) SetStatus(status stream.Status) error {
	if p.closed {
		return p.closedErr("status")
	}
	p.status = status
	return nil
}

// Sets supplemental detail shown with the status.
func (p *Presentation) SetStatusDetails(details string) error {
	if p.closed {
		return p.closedErr("status details")
	}
	p.details = details
	return nil
}

// Sets the short text shown next to the step name.
func (p *Presentation) SetText(text string) error {
	if p.closed {
		return p.closedErr("text")
	}
	p.text = text
	return nil
}

// Sets the step's summary markdown.
func (p *Presentation) SetSummary(markdown string) error {
	if p.closed {
		return p.closedErr("summary")
	}
	p.summary = markdown
	return nil
}

// Appends lines to a named log, creating it on first use.
func (p *Presentation) AddLog(name string, lines ...string) error {
	if p.closed {
		return p.closedErr("log " + name)
	}
	for i := range p.logs {
		if p.logs[i].Name == name {
			p.logs[i].Lines = append(p.logs[i].Lines, lines...)
			return nil
		}
	}
	p.logs = append(p.logs, stream.NamedLog{Name: name, Lines: lines})
	return nil
}

// Adds a named link.
func (p *Presentation) AddLink(name, url string) error {
	if p.closed {
		return p.closedErr("link " + name)
	}
	p.links = append(p.links, stream.NamedLink{Name: name, URL: url})
	return nil
}

// Sets an output property on the build.
func (p *Presentation) SetProperty(key string, value any) error {
	if p.closed {
		return p.closedErr("property " + key)
	}
	if _, ok := p.props[key]; !ok {
		p.propKeys = append(p.propKeys, key)
	}
	p.props[key] = value
	return nil
}

// Reports whether the presentation has been closed.
func (p *Presentation) Closed() bool {
	return p.closed
}

// Flushes accumulated changes and closes the step.
//
// Emits presentation events in a fixed order (text, summary, logs, links,
// properties) followed by step_closed. Closing twice is a no-op.
func (p *Presentation) Close(sink stream.Sink) error {
	if p.closed {
		return nil
	}
	p.closed = true

	if p.text != "" {
		if err := sink.Emit(stream.Event{Kind: stream.KindStepText, Step: p.stepName, Text: p.text}); err != nil {
			return err
		}
	}
	if p.summary != "" {
		if err := sink.Emit(stream.Event{Kind: stream.KindStepSummary, Step: p.stepName, Text: p.summary}); err != nil {
			return err
		}
	}
	for _, log := range p.logs {
		for _, line := range log.Lines {
			if err := sink.Emit(stream.Event{Kind: stream.KindStepLogLine, Step: p.stepName, Log: log.Name, Line: line}); err != nil {
				return err
			}
		}
	}
	for _, link := range p.links {
		if err := sink.Emit(stream.Event{Kind: stream.KindStepLink, Step: p.stepName, Name: link.Name, URL: link.URL}); err != nil {
			return err
		}
	}
	for _, key := range p.propKeys {
		if err := sink.Emit(stream.Event{Kind: stream.KindStepProperty, Step: p.stepName, Key: key, Value: p.props[key]}); err != nil {
			return err
		}
	}

	return sink.Emit(stream.Event{
		Kind:    stream.KindStepClosed,
		Step:    p.stepName,
		Status:  p.status,
		Details: p.details,
	})
}

func (p *Presentation) closedErr(what string) error {
	return fmt.Errorf("%w: %s on %q", ErrPresentationClosed, what, p.stepName)
}
