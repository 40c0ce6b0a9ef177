package simulation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/stream"
)

// The on-disk expectation for one case: the folded step views plus the
// terminal status and summary. Stored as indented JSON so diffs read
// well in review.
type Expectation struct {
	Steps   []StepView    `json:"steps"`
	Status  stream.Status `json:"status"`
	Summary string        `json:"summary,omitempty"`
}

// Returns the expectation file path for a case:
// <dir>/<recipe>.expected/<case>.json.
func ExpectationPath(dir, recipe, name string) string {
	return filepath.Join(dir, recipe+".expected", name+".json")
}

// Builds the expectation an outcome would be recorded as.
func Expect(out *Outcome) Expectation {
	return Expectation{
		Steps:   out.Steps.Views(),
		Status:  out.Result.Status,
		Summary: out.Result.Summary,
	}
}

// Loads an expectation file.
func LoadExpectation(fs afero.Fs, path string) (Expectation, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return Expectation{}, fmt.Errorf("%w: %s", ErrNoExpectation, path)
		}
		return Expectation{}, err
	}
	var exp Expectation
	if err := json.Unmarshal(data, &exp); err != nil {
		return Expectation{}, fmt.Errorf("%w: %s: %w", ErrExpectation, path, err)
	}
	return exp, nil
}

// Writes an expectation file atomically: full temp write, then rename.
func WriteExpectation(fs afero.Fs, path string, exp Expectation) error {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return err
	}
	return fs.Rename(tmp, path)
}

// Compares an outcome against its stored expectation.
func CompareExpectation(want Expectation, out *Outcome) error {
	got := Expect(out)
	if diff := cmp.Diff(want, got); diff != "" {
		return fmt.Errorf("%w (-want +got):\n%s", ErrExpectation, diff)
	}
	return nil
}
