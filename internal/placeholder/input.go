package placeholder

import (
	"encoding/json"
	"fmt"

	"github.com/kilnhq/kiln/internal/paths"
)

// An input placeholder: materializes content into a temp file before the
// step and renders to the file's path.
type Input struct {
	label   Label
	content []byte
	reg     *paths.Registry
	path    string
}

// Creates an input placeholder carrying raw bytes.
func BytesInput(module, method, subname string, content []byte) *Input {
	return &Input{
		label:   Label{Module: module, Method: method, Subname: subname},
		content: content,
	}
}

// Creates an input placeholder carrying text.
func TextInput(module, method, subname, content string) *Input {
	return BytesInput(module, method, subname, []byte(content))
}

// Creates an input placeholder carrying a JSON-encoded value.
func JSONInput(module, method, subname string, v any) (*Input, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	return BytesInput(module, method, subname, data), nil
}

// Returns the placeholder identity.
func (p *Input) Label() Label {
	return p.label
}

// Writes the content to a fresh temp file and returns its path.
func (p *Input) Render(reg *paths.Registry, stepName string) ([]string, error) {
	path, err := reg.MksTemp(paths.RootTmp, stepName+"_"+p.label.Key())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	if err := reg.WriteFile(path, p.content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}
	p.reg = reg
	p.path = path
	return []string{path}, nil
}

// Removes the backing file.
//
// The registry would remove it at recipe end anyway; releasing here keeps
// the temp footprint bounded for long recipes.
func (p *Input) Cleanup(success bool) error {
	if p.reg == nil || p.path == "" {
		return nil
	}
	err := p.reg.Fs().Remove(p.path)
	p.path = ""
	return err
}

// Returns the rendered path; used as the child's stdin source.
func (p *Input) Path() (string, error) {
	if p.path == "" {
		return "", ErrNotRendered
	}
	return p.path, nil
}
