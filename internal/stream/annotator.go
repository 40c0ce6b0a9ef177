package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Emits the textual sentinel protocol on a captured output stream.
//
// Each presentation change becomes a "@@@COMMAND@arg@arg@@@" line
// interleaved with the step's log output. Stdout log lines are written
// verbatim under the active step cursor; named logs use STEP_LOG_LINE.
type Annotator struct {
	w      io.Writer
	cursor string // Step the cursor currently points at.
	seeded map[string]bool
}

// Creates an annotator writing to w.
func NewAnnotator(w io.Writer) *Annotator {
	return &Annotator{w: w, seeded: make(map[string]bool)}
}

// Translates one event into sentinel commands.
func (a *Annotator) Emit(ev Event) error {
	switch ev.Kind {
	case KindStepOpened:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		return a.command("STEP_STARTED")

	case KindStepLogLine:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		if ev.Log == "stdout" {
			return a.raw(ev.Line)
		}
		return a.command("STEP_LOG_LINE", ev.Log, ev.Line)

	case KindStepText:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		return a.command("STEP_TEXT", ev.Text)

	case KindStepSummary:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		return a.command("STEP_SUMMARY_TEXT", ev.Text)

	case KindStepLink:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		return a.command("STEP_LINK", ev.Name, ev.URL)

	case KindStepProperty:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		value, err := json.Marshal(ev.Value)
		if err != nil {
			return err
		}
		return a.command("SET_BUILD_PROPERTY", ev.Key, string(value))

	case KindStepClosed:
		if err := a.ensureCursor(ev.Step); err != nil {
			return err
		}
		if cmd := statusCommand(ev.Status); cmd != "" {
			if err := a.command(cmd); err != nil {
				return err
			}
		}
		return a.command("STEP_CLOSED")

	case KindRecipeEnded:
		if ev.Status != StatusSuccess {
			return a.command("BUILD_FAILED", string(ev.Status))
		}
		return nil
	}

	return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// Flushes nothing; the protocol is line-oriented and unbuffered.
func (a *Annotator) Close() error {
	return nil
}

// Seeds the step on first sight and moves the cursor to it.
func (a *Annotator) ensureCursor(step string) error {
	if !a.seeded[step] {
		a.seeded[step] = true
		if err := a.command("SEED_STEP", step); err != nil {
			return err
		}
	}
	if a.cursor != step {
		a.cursor = step
		return a.command("STEP_CURSOR", step)
	}
	return nil
}

// Writes one sentinel command line.
//
// The "@@@" delimiter may not appear inside arguments; occurrences are
// replaced so the stream stays parseable.
func (a *Annotator) command(name string, args ...string) error {
	var b strings.Builder
	b.WriteString("@@@")
	b.WriteString(name)
	for _, arg := range args {
		b.WriteString("@")
		b.WriteString(strings.ReplaceAll(arg, "@@@", "@-@-@"))
	}
	b.WriteString("@@@\n")
	_, err := io.WriteString(a.w, b.String())
	return err
}

// Writes a verbatim output line.
func (a *Annotator) raw(line string) error {
	_, err := io.WriteString(a.w, line+"\n")
	return err
}

// Maps a non-success status to its sentinel command.
func statusCommand(status Status) string {
	switch status {
	case StatusFailure:
		return "STEP_FAILURE"
	case StatusInfraFailure, StatusException, StatusCanceled:
		return "STEP_EXCEPTION"
	case StatusWarning:
		return "STEP_WARNINGS"
	}
	return ""
}
