package placeholder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kilnhq/kiln/internal/paths"
)

// An output placeholder: reserves a fresh path (or a captured stream),
// then parses the written data into a typed value after the step ends.
type Output struct {
	label    Label
	backing  Backing
	parse    func([]byte) (any, error)
	leak     bool // Keep the backing file after cleanup.
	reg      *paths.Registry
	path     string
	buf      bytes.Buffer // Capture buffer for stream-backed placeholders.
	resolved bool
	value    any
	err      error
}

// Creates a file-backed output placeholder whose data is parsed as text.
func TextOutput(module, method, subname string) *Output {
	return &Output{
		label:   Label{Module: module, Method: method, Subname: subname},
		backing: BackFile,
		parse:   parseText,
	}
}

// Creates a file-backed output placeholder whose data is returned as raw
// bytes.
func BytesOutput(module, method, subname string) *Output {
	return &Output{
		label:   Label{Module: module, Method: method, Subname: subname},
		backing: BackFile,
		parse:   parseBytes,
	}
}

// Creates a file-backed output placeholder whose data is parsed as JSON.
func JSONOutput(module, method, subname string) *Output {
	return &Output{
		label:   Label{Module: module, Method: method, Subname: subname},
		backing: BackFile,
		parse:   parseJSON,
	}
}

// Creates a stream-backed output placeholder over stdout or stderr.
//
// The placeholder renders to no arguments; the step runner tees the
// captured stream into it.
func StreamOutput(module, method, subname string, backing Backing, jsonData bool) *Output {
	parse := parseText
	if jsonData {
		parse = parseJSON
	}
	return &Output{
		label:   Label{Module: module, Method: method, Subname: subname},
		backing: backing,
		parse:   parse,
	}
}

// Marks the backing file to survive cleanup, for debugging failed parses.
func (p *Output) Leak() *Output {
	p.leak = true
	return p
}

// Returns the placeholder identity.
func (p *Output) Label() Label {
	return p.label
}

// Returns where the placeholder's data comes from.
func (p *Output) Backing() Backing {
	return p.backing
}

// Reserves the backing path and returns it as the argument.
//
// Stream-backed placeholders contribute no arguments; their data arrives
// through [Output.Writer].
func (p *Output) Render(reg *paths.Registry, stepName string) ([]string, error) {
	p.reg = reg
	if p.backing != BackFile {
		return nil, nil
	}

	path, err := reg.MksTemp(paths.RootTmp, stepName+"_"+p.label.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	p.path = path
	return []string{path}, nil
}

// Returns the writer the runner tees captured stream data into.
func (p *Output) Writer() io.Writer {
	return &p.buf
}

// Removes the backing file unless marked leaked.
func (p *Output) Cleanup(success bool) error {
	if p.leak || p.reg == nil || p.path == "" {
		return nil
	}
	err := p.reg.Fs().Remove(p.path)
	p.path = ""
	return err
}

// Reads and parses the backing data. Called by the runner exactly once,
// after the step has ended and before Cleanup.
func (p *Output) Resolve() (any, error) {
	if p.resolved {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyResolved, p.label.Key())
	}
	p.resolved = true

	var raw []byte
	switch p.backing {
	case BackFile:
		if p.reg == nil || p.path == "" {
			p.err = fmt.Errorf("%w: %s", ErrNotRendered, p.label.Key())
			return nil, p.err
		}
		data, err := p.reg.ReadFile(p.path)
		if err != nil {
			p.err = fmt.Errorf("%w: %s: %w", ErrParse, p.label.Key(), err)
			return nil, p.err
		}
		raw = data
	default:
		raw = p.buf.Bytes()
	}

	value, err := p.parse(raw)
	if err != nil {
		p.err = fmt.Errorf("%w: %s: %w", ErrParse, p.label.Key(), err)
		return nil, p.err
	}
	p.value = value
	return value, nil
}

// Installs a pre-supplied mock value in place of parsing.
//
// Used by the simulated runner; the mock bypasses the backing file
// entirely.
func (p *Output) ResolveMock(value any) error {
	if p.resolved {
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, p.label.Key())
	}
	p.resolved = true
	p.value = value
	return nil
}

// Records a missing-mock failure in place of a value.
//
// Used by the simulated runner when the test case supplies no data for a
// file-backed output; reading the result then surfaces the authoring error
// instead of a silent nil.
func (p *Output) ResolveMockMissing(stepName string) error {
	if p.resolved {
		return fmt.Errorf("%w: %s", ErrAlreadyResolved, p.label.Key())
	}
	p.resolved = true
	p.err = fmt.Errorf("%w: %s in step %q", ErrNoMockData, p.label.Key(), stepName)
	return nil
}

// Returns the resolved value.
func (p *Output) Result() (any, error) {
	if !p.resolved {
		return nil, fmt.Errorf("%w: %s", ErrUnresolved, p.label.Key())
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.value, nil
}

func parseText(data []byte) (any, error) {
	return string(data), nil
}

func parseBytes(data []byte) (any, error) {
	return data, nil
}

func parseJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
