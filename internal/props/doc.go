// Package props decodes the JSON-shaped input property tree and the
// process environment into typed schema structs.
//
// Top-level keys starting with "$" are namespaced to modules as
// "$<repo>/<module>"; all other keys feed the recipe's own schema and any
// module-declared global schema. Environment schemas decode from an
// uppercased view of the environment.
//
// Example usage:
//
//	type greetProps struct {
//		Target string `mapstructure:"target"`
//	}
//
//	v, err := props.DecodeRecipe(tree, func() any { return &greetProps{} })
//	if err != nil {
//		return err
//	}
//	target := v.(*greetProps).Target
package props
