package resolver

import (
	"context"
	"fmt"
	"sort"
)

// Describes one registered module.
type Spec struct {
	Repo string
	Name string
	Deps []Dep

	// Schema factories; nil when the module declares no such schema.
	Properties       func() any
	GlobalProperties func() any
	EnvProperties    func() any

	// Constructs the module's api object. Called exactly once per recipe
	// run, after every dependency has been constructed.
	New func(mc *ModuleInit) (any, error)

	// Constructs the module's test api, attached as a side channel in
	// simulation. Optional.
	NewTest func(deps *DepsView) any

	// Deprecation warnings attributed to every caller depending on this
	// module.
	Warnings []string
}

func (s *Spec) ref() Ref {
	return Ref{Repo: s.Repo, Name: s.Name}
}

// Describes one registered recipe. Same dependency shape as a module, but
// not injectable.
type RecipeSpec struct {
	Repo string
	Name string
	Deps []Dep

	Properties    func() any
	EnvProperties func() any

	Run func(ctx context.Context, rc *RecipeRun) error
}

// Holds registered modules and recipes.
//
// The package-level registry serves normal operation; tests construct
// their own to keep registration local.
type Registry struct {
	modules map[Ref]*Spec
	recipes map[string]*RecipeSpec
}

// Creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[Ref]*Spec),
		recipes: make(map[string]*RecipeSpec),
	}
}

var global = NewRegistry()

// Returns the package-level registry.
func Global() *Registry {
	return global
}

// Registers a module.
func (r *Registry) RegisterModule(s *Spec) error {
	ref := s.ref()
	if _, ok := r.modules[ref]; ok {
		return fmt.Errorf("%w: module %s", ErrDuplicate, ref)
	}
	r.modules[ref] = s
	return nil
}

// Registers a recipe.
func (r *Registry) RegisterRecipe(s *RecipeSpec) error {
	if _, ok := r.recipes[s.Name]; ok {
		return fmt.Errorf("%w: recipe %s", ErrDuplicate, s.Name)
	}
	r.recipes[s.Name] = s
	return nil
}

// Registers a module with the package-level registry, panicking on
// conflict. For use from package init.
func MustRegisterModule(s *Spec) {
	if err := global.RegisterModule(s); err != nil {
		panic(err)
	}
}

// Registers a recipe with the package-level registry, panicking on
// conflict. For use from package init.
func MustRegisterRecipe(s *RecipeSpec) {
	if err := global.RegisterRecipe(s); err != nil {
		panic(err)
	}
}

// Looks up a module.
func (r *Registry) Module(ref Ref) (*Spec, error) {
	s, ok := r.modules[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, ref)
	}
	return s, nil
}

// Looks up a recipe by name.
func (r *Registry) Recipe(name string) (*RecipeSpec, error) {
	s, ok := r.recipes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, name)
	}
	return s, nil
}

// Returns registered recipe names in sorted order.
func (r *Registry) RecipeNames() []string {
	names := make([]string, 0, len(r.recipes))
	for name := range r.recipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Returns registered module refs sorted by (repo, name).
func (r *Registry) ModuleRefs() []Ref {
	refs := make([]Ref, 0, len(r.modules))
	for ref := range r.modules {
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
