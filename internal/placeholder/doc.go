// Package placeholder provides typed stand-ins for command arguments.
//
// A placeholder occupies a position in a step's command vector. Before the
// step runs, it renders into zero or more concrete argument strings,
// allocating a backing temp file when needed. Input placeholders write
// content for the child to read; output placeholders reserve a fresh path
// (or attach to the captured stdout/stderr stream) and parse it into a
// typed value once the step has ended.
//
// Results are addressed by the placeholder's [Label], an identity of
// (module, method, optional subname), under the returned step data.
// Reading a result before the step has ended, or resolving the same
// placeholder twice, is an error. A placeholder lives for exactly one
// step; its temp resources are released by Cleanup regardless of outcome.
//
// Example usage:
//
//	out := placeholder.JSONOutput("json", "output", "")
//	data, err := api.Run(ctx, "collect", []any{"collect-results", out})
//	if err != nil {
//	    return err
//	}
//	results, err := data.Result("json", "output")
package placeholder
