package resolver

import (
	"fmt"
	"sort"
	"strings"
)

// The result of expanding an entry recipe's dependency graph.
type Resolution struct {
	Entry *RecipeSpec
	Order []*Spec // Topological instantiation order.

	// Resolved alias bindings per module, plus the entry recipe's own.
	moduleDeps map[Ref]map[string]Ref
	entryDeps  map[string]Ref
}

// Expands an entry recipe into its transitive module set.
//
// Cycles and references to unregistered modules are load errors; the
// instantiation order is a topological sort with ties broken by
// (repo, name) so it is identical on every run.
func (r *Registry) Resolve(entry string) (*Resolution, error) {
	recipe, err := r.Recipe(entry)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Entry:      recipe,
		moduleDeps: make(map[Ref]map[string]Ref),
	}

	res.entryDeps, err = r.resolveDecls(recipe.Deps, recipe.Repo, "recipe "+recipe.Name)
	if err != nil {
		return nil, err
	}

	// Depth-first expansion with an explicit path for cycle reporting.
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[Ref]int)
	var path []Ref

	var visit func(ref Ref) error
	visit = func(ref Ref) error {
		switch state[ref] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrCycle, cyclePath(path, ref))
		}
		state[ref] = visiting
		path = append(path, ref)

		spec, err := r.Module(ref)
		if err != nil {
			return fmt.Errorf("%w (required by %s)", err, requirer(path))
		}
		bound, err := r.resolveDecls(spec.Deps, spec.Repo, "module "+ref.String())
		if err != nil {
			return err
		}
		res.moduleDeps[ref] = bound

		for _, dep := range sortedRefs(bound) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		state[ref] = done
		return nil
	}

	for _, ref := range sortedRefs(res.entryDeps) {
		if err := visit(ref); err != nil {
			return nil, err
		}
	}

	res.Order = r.topoSort(res)
	return res, nil
}

// Resolves one DEPS declaration list into alias bindings.
func (r *Registry) resolveDecls(decls []Dep, ownRepo, where string) (map[string]Ref, error) {
	bound := make(map[string]Ref, len(decls))
	for _, d := range decls {
		ref, err := parseRef(d.Ref, ownRepo)
		if err != nil {
			return nil, fmt.Errorf("%w in %s", err, where)
		}
		if _, ok := bound[d.Alias]; ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateAlias, d.Alias, where)
		}
		bound[d.Alias] = ref
	}
	return bound, nil
}

// Orders the reachable modules so that every dependency precedes its
// dependents. Kahn's algorithm; the ready set is kept sorted by
// (repo, name) for a deterministic result.
func (r *Registry) topoSort(res *Resolution) []*Spec {
	indegree := make(map[Ref]int, len(res.moduleDeps))
	dependents := make(map[Ref][]Ref)
	for ref, deps := range res.moduleDeps {
		if _, ok := indegree[ref]; !ok {
			indegree[ref] = 0
		}
		for _, dep := range deps {
			indegree[ref]++
			dependents[dep] = append(dependents[dep], ref)
		}
	}

	var ready []Ref
	for ref, n := range indegree {
		if n == 0 {
			ready = append(ready, ref)
		}
	}

	var order []*Spec
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Repo != ready[j].Repo {
				return ready[i].Repo < ready[j].Repo
			}
			return ready[i].Name < ready[j].Name
		})
		next := ready[0]
		ready = ready[1:]

		spec, _ := r.Module(next)
		order = append(order, spec)

		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
	}
	return order
}

// Returns the alias bindings resolved for one module.
func (res *Resolution) DepsOf(ref Ref) map[string]Ref {
	return res.moduleDeps[ref]
}

// Returns the entry recipe's alias bindings.
func (res *Resolution) EntryDeps() map[string]Ref {
	return res.entryDeps
}

// Returns the refs of every reachable module in instantiation order.
func (res *Resolution) Refs() []Ref {
	refs := make([]Ref, 0, len(res.Order))
	for _, spec := range res.Order {
		refs = append(refs, spec.ref())
	}
	return refs
}

func sortedRefs(bound map[string]Ref) []Ref {
	refs := make([]Ref, 0, len(bound))
	for _, ref := range bound {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Repo != refs[j].Repo {
			return refs[i].Repo < refs[j].Repo
		}
		return refs[i].Name < refs[j].Name
	})
	return refs
}

// Renders the cycle from its first occurrence on the path.
func cyclePath(path []Ref, repeat Ref) string {
	start := 0
	for i, ref := range path {
		if ref == repeat {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, ref := range path[start:] {
		parts = append(parts, ref.String())
	}
	parts = append(parts, repeat.String())
	return strings.Join(parts, " -> ")
}

// Names the module whose DEPS pulled in the current path tail.
func requirer(path []Ref) string {
	if len(path) < 2 {
		return "the entry recipe"
	}
	return path[len(path)-2].String()
}
