package cli

import (
	"context"
	"fmt"

	"github.com/kilnhq/kiln/internal/resolver"
)

// Represents the 'kiln analyze' command.
type AnalyzeCmd struct {
	Modules []string `arg:"" help:"Module refs, as repo/name or a bare name."`
}

// Executes the analyze command: prints the recipes whose dependency graph
// reaches any of the named modules, one per line.
func (c *AnalyzeCmd) Run(ctx context.Context) error {
	affected, err := affectedRecipes(resolver.Global(), c.Modules)
	if err != nil {
		return err
	}
	for _, name := range affected {
		fmt.Println(name)
	}
	return nil
}

// Returns the recipes whose resolved graph reaches any listed module.
func affectedRecipes(reg *resolver.Registry, modules []string) ([]string, error) {
	wanted := make(map[resolver.Ref]bool, len(modules))
	for _, raw := range modules {
		ref, err := moduleRefArg(reg, raw)
		if err != nil {
			return nil, err
		}
		wanted[ref] = true
	}

	var affected []string
	for _, name := range reg.RecipeNames() {
		res, err := reg.Resolve(name)
		if err != nil {
			continue
		}
		for _, ref := range res.Refs() {
			if wanted[ref] {
				affected = append(affected, name)
				break
			}
		}
	}
	return affected, nil
}

// Resolves a command-line module argument to a registered ref. The
// "repo/name" form is exact; a bare name matches when unambiguous.
func moduleRefArg(reg *resolver.Registry, raw string) (resolver.Ref, error) {
	var matches []resolver.Ref
	for _, ref := range reg.ModuleRefs() {
		if ref.String() == raw || ref.Name == raw {
			matches = append(matches, ref)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return resolver.Ref{}, fmt.Errorf("unknown module %q", raw)
	default:
		return resolver.Ref{}, fmt.Errorf("ambiguous module %q, qualify as repo/name", raw)
	}
}
