// Parses flags and dispatches the kiln subcommands.
//
// The tool exposes the following commands:
//
//	run          Execute one recipe.
//	test run     Run simulation tests against expectations.
//	test train   Run simulation tests and rewrite expectations.
//	fetch        Fetch pinned dependency repos.
//	bundle       Bundle the recipes tree into a zip archive.
//	doc          Describe registered recipes and modules.
//	lint         Check the manifest and simulation coverage.
//	manual-roll  Pin a dependency repo to a new revision.
//	version      Show version information.
//
// Global flags select the log level (-q, -v, -d) and override dependency
// repos with local paths (-O name=path). Flags override build-time
// defaults set via linker flags; after parsing, the global logger is
// reconfigured before the command runs.
package cli
