package simulation

import (
	"context"
	"fmt"
	"regexp"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/resolver"
)

// Controls one suite run over every registered recipe's cases.
type SuiteOptions struct {
	Registry *resolver.Registry

	// Directory holding <recipe>.expected/<case>.json files.
	ExpectDir string

	// Filesystem the expectation files live on. Defaults to the OS.
	Fs afero.Fs

	// Regexp over "recipe/case" names; empty runs everything.
	Filter string

	// Rewrites expectation files from the observed outcomes instead of
	// comparing against them.
	Train bool

	// Stops after the first case with defects.
	Stop bool
}

// One case's verdict.
type CaseResult struct {
	Recipe  string
	Case    string
	Errs    []error
	Trained bool
}

func (r CaseResult) OK() bool { return len(r.Errs) == 0 }

// Runs every registered case, judging each against its case expectations
// and its golden file. Coverage defects (recipes with no cases, modules
// no recipe reaches) are reported as results under the recipe name "".
func RunSuite(ctx context.Context, opts SuiteOptions) ([]CaseResult, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	var filter *regexp.Regexp
	if opts.Filter != "" {
		var err error
		filter, err = regexp.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("bad filter: %w", err)
		}
	}

	var results []CaseResult
	for _, recipe := range opts.Registry.RecipeNames() {
		cases := CasesFor(recipe)
		if len(cases) == 0 {
			results = append(results, CaseResult{
				Recipe: recipe,
				Errs:   []error{fmt.Errorf("%w: %s", ErrNoCases, recipe)},
			})
			continue
		}
		for _, c := range cases {
			if filter != nil && !filter.MatchString(recipe+"/"+c.Name) {
				continue
			}
			res := runOne(ctx, opts, fs, recipe, c)
			results = append(results, res)
			if opts.Stop && !res.OK() {
				return results, nil
			}
		}
	}

	if !opts.Train {
		for _, err := range Coverage(opts.Registry) {
			results = append(results, CaseResult{Errs: []error{err}})
		}
	}
	return results, nil
}

func runOne(ctx context.Context, opts SuiteOptions, fs afero.Fs, recipe string, c Case) CaseResult {
	res := CaseResult{Recipe: recipe, Case: c.Name}

	out, err := RunCase(ctx, opts.Registry, recipe, c)
	if err != nil {
		res.Errs = append(res.Errs, err)
		return res
	}
	res.Errs = append(res.Errs, Judge(c, out)...)

	if c.DropExpectation {
		return res
	}
	path := ExpectationPath(opts.ExpectDir, recipe, c.Name)
	if opts.Train {
		if err := WriteExpectation(fs, path, Expect(out)); err != nil {
			res.Errs = append(res.Errs, err)
			return res
		}
		res.Trained = true
		return res
	}
	want, err := LoadExpectation(fs, path)
	if err != nil {
		res.Errs = append(res.Errs, err)
		return res
	}
	if err := CompareExpectation(want, out); err != nil {
		res.Errs = append(res.Errs, err)
	}
	return res
}
