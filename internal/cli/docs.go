package cli

import (
	"context"
	"fmt"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/simulation"
)

// Represents the 'kiln doc' command.
type DocCmd struct{}

// Executes the doc command: lists registered recipes and modules with
// their dependency declarations and case counts.
func (c *DocCmd) Run(ctx context.Context) error {
	reg := resolver.Global()

	fmt.Println("Recipes:")
	for _, name := range reg.RecipeNames() {
		spec, err := reg.Recipe(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %s/%s%s\n", spec.Repo, name, depList(spec.Deps))
		if n := len(simulation.CasesFor(name)); n > 0 {
			fmt.Printf("    cases: %d\n", n)
		}
	}

	fmt.Println("Modules:")
	for _, ref := range reg.ModuleRefs() {
		spec, err := reg.Module(ref)
		if err != nil {
			return err
		}
		fmt.Printf("  %s%s\n", ref, depList(spec.Deps))
		for _, warning := range spec.Warnings {
			fmt.Printf("    warning: %s\n", warning)
		}
	}
	return nil
}

// Renders a dependency declaration list for display.
func depList(deps []resolver.Dep) string {
	if len(deps) == 0 {
		return ""
	}
	s := "  ["
	for i, dep := range deps {
		if i > 0 {
			s += ", "
		}
		if dep.Alias != "" && dep.Alias != dep.Ref {
			s += dep.Alias + "=" + dep.Ref
		} else {
			s += dep.Ref
		}
	}
	return s + "]"
}
