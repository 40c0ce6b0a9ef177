package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kilnhq/kiln/internal"
	"github.com/kilnhq/kiln/internal/manifest"
)

// Represents the root command for the kiln tool.
var RootCmd struct {
	Quiet    bool     `short:"q" help:"Suppress informational output."`
	Verbose  bool     `short:"v" help:"Enable verbose output."`
	Debug    bool     `short:"d" help:"Enable debug output."`
	Override []string `short:"O" help:"Override a dependency repo with a local path." placeholder:"NAME=PATH"`

	Run        RunCmd        `cmd:"" help:"Execute one recipe."`
	Test       TestCmd       `cmd:"" help:"Run or train simulation tests."`
	Fetch      FetchCmd      `cmd:"" help:"Fetch pinned dependency repos."`
	Bundle     BundleCmd     `cmd:"" help:"Bundle the recipes tree into a zip archive."`
	Doc        DocCmd        `cmd:"" help:"Describe registered recipes and modules."`
	Lint       LintCmd       `cmd:"" help:"Check the manifest and simulation coverage."`
	Analyze    AnalyzeCmd    `cmd:"" help:"List recipes affected by the named modules."`
	ManualRoll ManualRollCmd `cmd:"" name:"manual-roll" help:"Pin a dependency repo to a new revision."`
	Autoroll   AutorollCmd   `cmd:"" help:"Roll dependency pins to their branch tips."`
	Version    VersionCmd    `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("The recipe engine.\n\nRuns dependency-resolved recipes as subprocess steps and streams their build presentation."),
		kong.UsageOnError(),
		kong.Vars{
			"version":    internal.VersionString(),
			"expect_dir": defaultExpectDir,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}
	if RootCmd.Debug {
		internal.SetDebug(true)
	}

	level := slog.LevelInfo
	if internal.IsDebug() {
		level = slog.LevelDebug
	} else if internal.IsQuiet() {
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: internal.IsVerbose(),
	})))
}

// Parses the repeated -O flags into a composed override set.
func overrides() (manifest.Overrides, error) {
	return manifest.ParseOverrides(RootCmd.Override)
}
