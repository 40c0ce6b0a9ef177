// Package resolver loads the module dependency graph for a recipe run.
//
// Modules and recipes register Specs, usually from package init. Resolving
// an entry recipe expands its declared dependencies into the transitive
// module set, rejects cycles, and fixes a deterministic topological
// instantiation order. An Arena then constructs each module's api object
// exactly once, in that order, so two modules depending on the same third
// share one instance.
//
// Example usage:
//
//	res, err := resolver.Global().Resolve("hello")
//	if err != nil {
//		return err
//	}
//	arena, err := resolver.BuildArena(res, host, tree, environ)
//	if err != nil {
//		return err
//	}
//	api, _ := arena.RecipeDeps().API("step")
package resolver
