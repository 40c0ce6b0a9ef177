package resolver

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/props"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

// Platform the recipe believes it runs on. Simulations pick one; real
// runs report the host.
type Platform struct {
	OS   string
	Arch string
	Bits int
}

// Engine services shared by every module in one recipe run.
type Host struct {
	Loop     *sched.Loop
	Steps    *step.Tracker
	Sink     stream.Sink
	Paths    *paths.Registry
	Platform Platform

	// Directory holding module sources, base for per-module resource roots.
	ModulesDir string

	// Raw inputs, exposed to the properties and platform modules.
	PropertyTree map[string]any
	Environ      map[string]string

	Simulated bool
}

// Exposes a module's constructed dependencies under their local aliases.
type DepsView struct {
	owner string
	apis  map[string]any
}

// Returns the dependency constructed under an alias.
func (v *DepsView) API(alias string) (any, error) {
	api, ok := v.apis[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownDep, alias, v.owner)
	}
	return api, nil
}

// Returns the dependency constructed under an alias, panicking when the
// alias was never declared. For use inside typed From accessors, where a
// missing alias is a wiring bug, not a runtime condition.
func (v *DepsView) MustAPI(alias string) any {
	api, err := v.API(alias)
	if err != nil {
		panic(err)
	}
	return api
}

// Returns the declared aliases in no particular order.
func (v *DepsView) Aliases() []string {
	aliases := make([]string, 0, len(v.apis))
	for alias := range v.apis {
		aliases = append(aliases, alias)
	}
	return aliases
}

// Everything a module's factory receives.
type ModuleInit struct {
	Deps *DepsView
	Host *Host

	// Decoded schema instances; nil where the module declares none.
	Properties       any
	GlobalProperties any
	EnvProperties    any

	// Test api side channel, non-nil only in simulation.
	TestAPI any
}

// Everything a recipe's run function receives.
type RecipeRun struct {
	Deps       *DepsView
	Host       *Host
	Properties any
	EnvProps   any
}

// Optional post-construction hook. Runs in instantiation order once every
// module exists, so a hook may freely call the module's dependencies.
type Initializer interface {
	Initialize() error
}

// A deprecation warning attributed to the module that depends on its
// declarer.
type Warning struct {
	Name     string
	Declarer Ref
	Caller   string // "repo/name" of the depending module, or the recipe name.
}

// Owns the module singletons of one recipe run.
type Arena struct {
	apis     map[Ref]any
	order    []Ref
	entry    *DepsView
	warnings []Warning
}

// Constructs every reachable module in instantiation order.
//
// For each module the binder decodes its namespaced, global, and
// environment properties first; a decode failure is a load error and no
// module is constructed. Initialize hooks run after the full graph
// exists, again in instantiation order.
func BuildArena(res *Resolution, host *Host, testAPIs bool) (*Arena, error) {
	a := &Arena{apis: make(map[Ref]any, len(res.Order))}

	for _, spec := range res.Order {
		ref := spec.ref()

		if err := registerResourceRoot(host, ref); err != nil {
			return nil, err
		}
		if spec.GlobalProperties != nil {
			a.warnings = append(a.warnings, Warning{
				Name:     "legacy-global-properties",
				Declarer: ref,
				Caller:   ref.String(),
			})
		}

		view := &DepsView{owner: "module " + ref.String(), apis: make(map[string]any)}
		for alias, dep := range res.DepsOf(ref) {
			view.apis[alias] = a.apis[dep]
			a.attributeWarnings(res, dep, ref.String())
		}

		mc := &ModuleInit{Deps: view, Host: host}
		var err error
		if mc.Properties, err = props.DecodeModule(host.PropertyTree, spec.Repo, spec.Name, spec.Properties); err != nil {
			return nil, err
		}
		if mc.GlobalProperties, err = props.DecodeGlobal(host.PropertyTree, spec.GlobalProperties); err != nil {
			return nil, err
		}
		if mc.EnvProperties, err = props.DecodeEnv(host.Environ, spec.EnvProperties); err != nil {
			return nil, err
		}
		if testAPIs && spec.NewTest != nil {
			mc.TestAPI = spec.NewTest(view)
		}

		api, err := spec.New(mc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConstruct, ref, err)
		}
		a.apis[ref] = api
		a.order = append(a.order, ref)
	}

	a.entry = &DepsView{owner: "recipe " + res.Entry.Name, apis: make(map[string]any)}
	for alias, dep := range res.EntryDeps() {
		a.entry.apis[alias] = a.apis[dep]
		a.attributeWarnings(res, dep, res.Entry.Name)
	}

	for _, ref := range a.order {
		if init, ok := a.apis[ref].(Initializer); ok {
			if err := init.Initialize(); err != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrInitialize, ref, err)
			}
		}
	}
	return a, nil
}

// Returns the singleton constructed for a module.
func (a *Arena) API(ref Ref) (any, error) {
	api, ok := a.apis[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, ref)
	}
	return api, nil
}

// Returns the entry recipe's dependency view.
func (a *Arena) RecipeDeps() *DepsView {
	return a.entry
}

// Returns the instantiation order actually used.
func (a *Arena) Order() []Ref {
	return append([]Ref(nil), a.order...)
}

// Returns deprecation warnings attributed during construction.
func (a *Arena) Warnings() []Warning {
	return append([]Warning(nil), a.warnings...)
}

// Records the declarer's warnings against a caller.
func (a *Arena) attributeWarnings(res *Resolution, declarer Ref, caller string) {
	for _, spec := range res.Order {
		if spec.ref() != declarer {
			continue
		}
		for _, name := range spec.Warnings {
			a.warnings = append(a.warnings, Warning{Name: name, Declarer: declarer, Caller: caller})
		}
	}
}

// Binds a module's resource directory beneath the module source base.
//
// The root holds files shipped alongside the module's source (scripts,
// templates). A pre-registered root is left in place.
func registerResourceRoot(host *Host, ref Ref) error {
	if host.Paths == nil {
		return nil
	}
	dir := filepath.Join(host.ModulesDir, ref.Name, "resources")
	err := host.Paths.RegisterRoot(paths.ResourceRoot(ref.String()), dir)
	if err != nil && !errors.Is(err, paths.ErrDuplicateRoot) {
		return err
	}
	return nil
}

// Runs the entry recipe against the constructed graph.
func (a *Arena) RunRecipe(ctx context.Context, res *Resolution, host *Host) error {
	rc := &RecipeRun{Deps: a.entry, Host: host}

	// Keys a legacy global schema claims decode through that schema, not
	// the recipe's strict top-level decode.
	var claimed []string
	for _, spec := range res.Order {
		keys, err := props.FieldKeys(spec.GlobalProperties)
		if err != nil {
			return err
		}
		claimed = append(claimed, keys...)
	}

	var err error
	if rc.Properties, err = props.DecodeRecipe(host.PropertyTree, res.Entry.Properties, claimed...); err != nil {
		return err
	}
	if rc.EnvProps, err = props.DecodeEnv(host.Environ, res.Entry.EnvProperties); err != nil {
		return err
	}
	return res.Entry.Run(ctx, rc)
}
