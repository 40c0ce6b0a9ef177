package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kilnhq/kiln/internal/paths"
)

// Module whose factory records the construction order.
func recordingSpec(repo, name string, deps []Dep, log *[]string) *Spec {
	return &Spec{
		Repo: repo,
		Name: name,
		Deps: deps,
		New: func(mc *ModuleInit) (any, error) {
			*log = append(*log, repo+"/"+name)
			return &struct{ Name string }{Name: name}, nil
		},
	}
}

func TestResolveTopologicalOrder(t *testing.T) {
	reg := NewRegistry()
	var log []string

	// c has no deps; a and b depend on c; entry depends on a and b.
	reg.RegisterModule(recordingSpec("main", "c", nil, &log))
	reg.RegisterModule(recordingSpec("main", "a", Use("c"), &log))
	reg.RegisterModule(recordingSpec("main", "b", Use("c"), &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main",
		Name: "entry",
		Deps: Use("a", "b"),
		Run:  func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	refs := res.Refs()
	position := make(map[Ref]int, len(refs))
	for i, ref := range refs {
		position[ref] = i
	}
	for _, spec := range res.Order {
		for _, dep := range res.DepsOf(spec.ref()) {
			if position[dep] >= position[spec.ref()] {
				t.Fatalf("dep %s constructed after %s (order %v)", dep, spec.ref(), refs)
			}
		}
	}

	// Ties break on (repo, name): c first, then a before b.
	want := []Ref{{"main", "c"}, {"main", "a"}, {"main", "b"}}
	if len(refs) != len(want) {
		t.Fatalf("order = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Fatalf("order = %v, want %v", refs, want)
		}
	}
}

func TestResolveCrossRepoQualifiedRefs(t *testing.T) {
	reg := NewRegistry()
	var log []string
	reg.RegisterModule(recordingSpec("engine", "step", nil, &log))
	reg.RegisterModule(recordingSpec("main", "build", Use("engine/step"), &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main",
		Name: "entry",
		Deps: []Dep{As("builder", "build")},
		Run:  func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if got := res.EntryDeps()["builder"]; got != (Ref{"main", "build"}) {
		t.Fatalf("alias builder = %v, want main/build", got)
	}
	bound := res.DepsOf(Ref{"main", "build"})
	if got := bound["step"]; got != (Ref{"engine", "step"}) {
		t.Fatalf("alias step = %v, want engine/step", got)
	}
}

func TestResolveCycleReportsPath(t *testing.T) {
	reg := NewRegistry()
	var log []string
	reg.RegisterModule(recordingSpec("main", "a", Use("b"), &log))
	reg.RegisterModule(recordingSpec("main", "b", Use("a"), &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("a"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	_, err := reg.Resolve("entry")
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("Resolve = %v, want ErrCycle", err)
	}
	if !strings.Contains(err.Error(), "main/a -> main/b -> main/a") {
		t.Fatalf("cycle path missing from %q", err)
	}
}

func TestResolveMissingModuleNamesRequirer(t *testing.T) {
	reg := NewRegistry()
	var log []string
	reg.RegisterModule(recordingSpec("main", "a", Use("ghost"), &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("a"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	_, err := reg.Resolve("entry")
	if !errors.Is(err, ErrUnknownModule) {
		t.Fatalf("Resolve = %v, want ErrUnknownModule", err)
	}
	if !strings.Contains(err.Error(), "main/a") {
		t.Fatalf("requirer missing from %q", err)
	}
}

func TestResolveUnknownRecipe(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Resolve("nope"); !errors.Is(err, ErrUnknownRecipe) {
		t.Fatalf("Resolve = %v, want ErrUnknownRecipe", err)
	}
}

func TestArenaSingletons(t *testing.T) {
	reg := NewRegistry()
	var log []string
	var seenC []any

	reg.RegisterModule(recordingSpec("main", "c", nil, &log))
	capturing := func(name string) *Spec {
		return &Spec{
			Repo: "main", Name: name, Deps: Use("c"),
			New: func(mc *ModuleInit) (any, error) {
				log = append(log, "main/"+name)
				seenC = append(seenC, mc.Deps.MustAPI("c"))
				return &struct{ Name string }{Name: name}, nil
			},
		}
	}
	reg.RegisterModule(capturing("a"))
	reg.RegisterModule(capturing("b"))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("a", "b"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	arena, err := BuildArena(res, &Host{}, false)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}

	wantLog := []string{"main/c", "main/a", "main/b"}
	for i := range wantLog {
		if log[i] != wantLog[i] {
			t.Fatalf("construction log = %v, want %v", log, wantLog)
		}
	}

	// a and b were handed the same c instance.
	cAPI, err := arena.API(Ref{"main", "c"})
	if err != nil {
		t.Fatalf("API(c): %v", err)
	}
	if len(seenC) != 2 || seenC[0] != cAPI || seenC[1] != cAPI {
		t.Fatal("module c not shared as a singleton")
	}
}

type initRecorder struct {
	name string
	log  *[]string
}

func (m *initRecorder) Initialize() error {
	*m.log = append(*m.log, "init "+m.name)
	return nil
}

func TestArenaInitializeHooksRunInOrder(t *testing.T) {
	reg := NewRegistry()
	var log []string
	newInit := func(repo, name string, deps []Dep) *Spec {
		return &Spec{
			Repo: repo, Name: name, Deps: deps,
			New: func(mc *ModuleInit) (any, error) {
				log = append(log, "new "+name)
				return &initRecorder{name: name, log: &log}, nil
			},
		}
	}
	reg.RegisterModule(newInit("main", "base", nil))
	reg.RegisterModule(newInit("main", "user", Use("base")))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("user"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := BuildArena(res, &Host{}, false); err != nil {
		t.Fatalf("BuildArena: %v", err)
	}

	want := []string{"new base", "new user", "init base", "init user"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestArenaWarningsAttributedToCallers(t *testing.T) {
	reg := NewRegistry()
	var log []string
	legacy := recordingSpec("main", "legacy", nil, &log)
	legacy.Warnings = []string{"legacy-module"}
	reg.RegisterModule(legacy)
	reg.RegisterModule(recordingSpec("main", "user", Use("legacy"), &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("user"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	arena, err := BuildArena(res, &Host{}, false)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}

	warnings := arena.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
	w := warnings[0]
	if w.Name != "legacy-module" || w.Caller != "main/user" || w.Declarer != (Ref{"main", "legacy"}) {
		t.Fatalf("warning = %+v", w)
	}
}

func TestArenaModulePropertiesDecoded(t *testing.T) {
	type schema struct {
		Level int `mapstructure:"level"`
	}
	reg := NewRegistry()
	var got *schema
	reg.RegisterModule(&Spec{
		Repo: "main", Name: "tunable",
		Properties: func() any { return &schema{Level: 1} },
		New: func(mc *ModuleInit) (any, error) {
			got = mc.Properties.(*schema)
			return struct{}{}, nil
		},
	})
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("tunable"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	host := &Host{PropertyTree: map[string]any{
		"$main/tunable": map[string]any{"level": 9},
	}}
	if _, err := BuildArena(res, host, false); err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	if got == nil || got.Level != 9 {
		t.Fatalf("decoded properties = %+v, want level 9", got)
	}
}

func TestRunRecipeCoexistsWithModuleGlobals(t *testing.T) {
	type globalSchema struct {
		Target string `mapstructure:"target"`
	}
	type recipeSchema struct {
		Other string `mapstructure:"other"`
	}
	reg := NewRegistry()
	var moduleSaw string
	reg.RegisterModule(&Spec{
		Repo: "main", Name: "legacy",
		GlobalProperties: func() any { return &globalSchema{} },
		New: func(mc *ModuleInit) (any, error) {
			moduleSaw = mc.GlobalProperties.(*globalSchema).Target
			return struct{}{}, nil
		},
	})
	var recipeSaw string
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("legacy"),
		Properties: func() any { return &recipeSchema{} },
		Run: func(ctx context.Context, rc *RecipeRun) error {
			recipeSaw = rc.Properties.(*recipeSchema).Other
			return nil
		},
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	host := &Host{PropertyTree: map[string]any{"target": "Bob", "other": "x"}}
	arena, err := BuildArena(res, host, false)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	if err := arena.RunRecipe(context.Background(), res, host); err != nil {
		t.Fatalf("RunRecipe: %v", err)
	}

	if moduleSaw != "Bob" {
		t.Fatalf("module global target = %q, want Bob", moduleSaw)
	}
	if recipeSaw != "x" {
		t.Fatalf("recipe other = %q, want x", recipeSaw)
	}

	// Declaring a legacy global schema is itself warned about.
	var found bool
	for _, w := range arena.Warnings() {
		if w.Name == "legacy-global-properties" && w.Declarer == (Ref{"main", "legacy"}) {
			found = true
		}
	}
	if !found {
		t.Fatalf("warnings = %v, want legacy-global-properties for main/legacy", arena.Warnings())
	}
}

func TestBuildArenaRegistersResourceRoots(t *testing.T) {
	reg := NewRegistry()
	var log []string
	reg.RegisterModule(recordingSpec("main", "git", nil, &log))
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "entry", Deps: Use("git"),
		Run: func(ctx context.Context, rc *RecipeRun) error { return nil },
	})

	res, err := reg.Resolve("entry")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	host := &Host{
		Paths:      paths.NewSimRegistry(),
		ModulesDir: "/start_dir/recipe_modules",
	}
	if _, err := BuildArena(res, host, false); err != nil {
		t.Fatalf("BuildArena: %v", err)
	}

	dir, err := host.Paths.Root(paths.ResourceRoot("main/git"))
	if err != nil {
		t.Fatalf("resource root missing: %v", err)
	}
	if dir != "/start_dir/recipe_modules/git/resources" {
		t.Fatalf("resource root = %q", dir)
	}
}

func TestRunRecipeDecodesProperties(t *testing.T) {
	type schema struct {
		Target string `mapstructure:"target"`
	}
	reg := NewRegistry()
	var seen string
	reg.RegisterRecipe(&RecipeSpec{
		Repo: "main", Name: "greet",
		Properties: func() any { return &schema{} },
		Run: func(ctx context.Context, rc *RecipeRun) error {
			seen = rc.Properties.(*schema).Target
			return nil
		},
	})

	res, err := reg.Resolve("greet")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	host := &Host{PropertyTree: map[string]any{"target": "Bob"}}
	arena, err := BuildArena(res, host, false)
	if err != nil {
		t.Fatalf("BuildArena: %v", err)
	}
	if err := arena.RunRecipe(context.Background(), res, host); err != nil {
		t.Fatalf("RunRecipe: %v", err)
	}
	if seen != "Bob" {
		t.Fatalf("target = %q, want Bob", seen)
	}
}
