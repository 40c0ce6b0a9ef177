package cli

import (
	"context"
	"fmt"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
)

// Default location of the built-in recipes' expectation files.
const defaultExpectDir = "internal/recipes/testdata"

// Represents the 'kiln test' command group.
type TestCmd struct {
	Run   TestRunCmd   `cmd:"" help:"Run simulation tests against expectations."`
	Train TestTrainCmd `cmd:"" help:"Run simulation tests and rewrite expectations."`
}

// Represents the 'kiln test run' command.
type TestRunCmd struct {
	Filter    string `help:"Regexp over recipe/case names." placeholder:"REGEX"`
	Stop      bool   `help:"Stop at the first failing case."`
	ExpectDir string `help:"Directory holding expectation files." default:"${expect_dir}" placeholder:"PATH"`
}

// Executes the test run command.
func (c *TestRunCmd) Run(ctx context.Context) error {
	return runSuite(ctx, c.Filter, c.Stop, c.ExpectDir, false)
}

// Represents the 'kiln test train' command.
type TestTrainCmd struct {
	Filter    string `help:"Regexp over recipe/case names." placeholder:"REGEX"`
	ExpectDir string `help:"Directory holding expectation files." default:"${expect_dir}" placeholder:"PATH"`
}

// Executes the test train command.
func (c *TestTrainCmd) Run(ctx context.Context) error {
	return runSuite(ctx, c.Filter, false, c.ExpectDir, true)
}

// Runs the simulation suite and reports per-case verdicts on stdout.
func runSuite(ctx context.Context, filter string, stop bool, expectDir string, train bool) error {
	if expectDir == "" {
		expectDir = defaultExpectDir
	}

	results, err := simulation.RunSuite(ctx, simulation.SuiteOptions{
		Registry:  resolver.Global(),
		ExpectDir: expectDir,
		Filter:    filter,
		Train:     train,
		Stop:      stop,
	})
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		name := res.Recipe + "/" + res.Case
		switch {
		case res.OK() && res.Trained:
			fmt.Printf("TRAINED %s\n", name)
		case res.OK():
			fmt.Printf("PASS    %s\n", name)
		default:
			failed++
			fmt.Printf("FAIL    %s\n", name)
			for _, err := range res.Errs {
				fmt.Printf("        %v\n", err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d cases failed", failed, len(results))
	}
	return nil
}
