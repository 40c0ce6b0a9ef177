// Package recipes holds the built-in recipes.
//
// Each file registers one recipe with the resolver and its simulation
// cases alongside, from init. Importing the package is what makes the
// recipes runnable; cmd/kiln does so with a blank import.
package recipes
