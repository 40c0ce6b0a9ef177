package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/afero"

	"github.com/kilnhq/kiln/internal/paths"
	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/sched"
	"github.com/kilnhq/kiln/internal/step"
	"github.com/kilnhq/kiln/internal/stream"
)

// Configures one recipe run. Zero fields are defaulted.
type Options struct {
	Recipe     string
	Properties map[string]any
	Environ    map[string]string

	Registry *resolver.Registry // Defaults to the package-level registry.
	Sink     stream.Sink        // Defaults to discarding events.
	Runner   step.Runner        // Defaults to the real subprocess runner.
	Paths    *paths.Registry    // Defaults to an OS-backed registry.
	Loop     *sched.Loop        // Defaults to a real loop.
	Platform resolver.Platform  // Defaults to the host platform.

	StartDir   string // Defaults to the working directory.
	ModulesDir string // Module source base; defaults to recipe_modules under StartDir.

	// Runs against the deterministic loop and attaches test apis.
	Simulated bool
}

// The outcome of one recipe run.
type Result struct {
	Status   stream.Status
	Summary  string
	Warnings []resolver.Warning
}

// Executes one recipe from resolution through recipe_ended.
//
// The returned error is the recipe's terminal error, typed per the step
// failure taxonomy; the Result is always populated. Cleanup of temps and
// the last open presentation runs on every path.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts = withDefaults(opts)

	res, err := opts.Registry.Resolve(opts.Recipe)
	if err != nil {
		return endEarly(opts.Sink, fmt.Errorf("%w: %w", ErrLoad, err))
	}
	slog.Debug("resolved recipe", "recipe", opts.Recipe, "modules", len(res.Order))

	if err := registerRoots(opts); err != nil {
		return endEarly(opts.Sink, fmt.Errorf("%w: %w", ErrLoad, err))
	}

	tracker := step.NewTracker(opts.Runner, opts.Sink, opts.Paths)
	host := &resolver.Host{
		Loop:         opts.Loop,
		Steps:        tracker,
		Sink:         opts.Sink,
		Paths:        opts.Paths,
		Platform:     opts.Platform,
		ModulesDir:   opts.ModulesDir,
		PropertyTree: opts.Properties,
		Environ:      opts.Environ,
		Simulated:    opts.Simulated,
	}

	arena, err := resolver.BuildArena(res, host, opts.Simulated)
	if err != nil {
		return endEarly(opts.Sink, fmt.Errorf("%w: %w", ErrLoad, err))
	}

	runErr := opts.Loop.Run(ctx, func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				// MustRun panics with the typed step error; keep it so the
				// terminal status stays failure rather than exception.
				if e, ok := r.(error); ok {
					err = e
					return
				}
				err = fmt.Errorf("%w: recipe panicked: %v", ErrInternal, r)
			}
		}()
		return arena.RunRecipe(ctx, res, host)
	})

	// Finalization is shielded: the last presentation closes and temps are
	// removed even when the run was cancelled.
	if err := tracker.Finish(); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrInternal, err)
	}
	if err := opts.Paths.CleanupAll(); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrInternal, err)
	}

	warnings := arena.Warnings()
	for _, name := range opts.Paths.Warnings() {
		warnings = append(warnings, resolver.Warning{Name: name, Caller: opts.Recipe})
	}

	result := Result{
		Status:   statusOf(runErr),
		Summary:  summaryOf(runErr),
		Warnings: warnings,
	}
	opts.Sink.Emit(stream.Event{
		Kind:   stream.KindRecipeEnded,
		Status: result.Status,
		Text:   result.Summary,
	})
	opts.Sink.Close()

	slog.Info("recipe ended", "recipe", opts.Recipe, "status", result.Status)
	return result, runErr
}

// Fills unset options.
func withDefaults(opts Options) Options {
	if opts.Registry == nil {
		opts.Registry = resolver.Global()
	}
	if opts.Sink == nil {
		opts.Sink = stream.Discard{}
	}
	if opts.Loop == nil {
		if opts.Simulated {
			opts.Loop = sched.NewSimLoop()
		} else {
			opts.Loop = sched.NewLoop()
		}
	}
	if opts.Paths == nil {
		if opts.Simulated {
			opts.Paths = paths.NewSimRegistry()
		} else {
			opts.Paths = paths.NewRegistry(afero.NewOsFs())
		}
	}
	if opts.Runner == nil {
		if opts.Simulated {
			opts.Runner = &step.SimRunner{Loop: opts.Loop}
		} else {
			opts.Runner = &step.ExecRunner{Loop: opts.Loop}
		}
	}
	if opts.Platform == (resolver.Platform{}) {
		opts.Platform = hostPlatform()
	}
	if opts.Properties == nil {
		opts.Properties = map[string]any{}
	}
	if opts.Environ == nil {
		opts.Environ = environMap()
	}
	if opts.StartDir == "" {
		if opts.Simulated {
			opts.StartDir = "/start_dir"
		} else if wd, err := os.Getwd(); err == nil {
			opts.StartDir = wd
		} else {
			opts.StartDir = "."
		}
	}
	if opts.ModulesDir == "" {
		opts.ModulesDir = filepath.Join(opts.StartDir, "recipe_modules")
	}
	return opts
}

// Registers the well-known roots for the run.
func registerRoots(opts Options) error {
	reg := opts.Paths

	cache := paths.DefaultCache()
	tmp := paths.DefaultTmp()
	cleanup := tmp
	if opts.Simulated {
		cache, tmp, cleanup = "/cache", "/tmp_base", "/cleanup"
	}

	for _, root := range []struct {
		name string
		path string
	}{
		{paths.RootStart, opts.StartDir},
		{paths.RootCache, cache},
		{paths.RootTmp, tmp},
		{paths.RootCleanup, cleanup},
	} {
		if err := reg.RegisterRoot(root.name, root.path); err != nil {
			// A caller-supplied registry may pre-register roots.
			if !errors.Is(err, paths.ErrDuplicateRoot) {
				return err
			}
		}
	}
	return nil
}

// Emits recipe_ended for a run that failed before any step could execute.
func endEarly(sink stream.Sink, err error) (Result, error) {
	result := Result{Status: stream.StatusException, Summary: err.Error()}
	sink.Emit(stream.Event{
		Kind:   stream.KindRecipeEnded,
		Status: result.Status,
		Text:   result.Summary,
	})
	sink.Close()
	return result, err
}

// Maps the recipe's terminal error to the build status.
func statusOf(err error) stream.Status {
	var failure *step.Failure
	var infra *step.InfraFailure
	var exc *step.Exception
	switch {
	case err == nil:
		return stream.StatusSuccess
	case errors.As(err, &failure):
		return stream.StatusFailure
	case errors.As(err, &infra):
		return stream.StatusInfraFailure
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.Is(err, sched.ErrCancelled):
		return stream.StatusCanceled
	case errors.As(err, &exc):
		return stream.StatusException
	default:
		return stream.StatusException
	}
}

// Renders the human-readable run summary.
func summaryOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Reports the platform the engine is running on.
func hostPlatform() resolver.Platform {
	return resolver.Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
		Bits: strconv.IntSize,
	}
}

// Snapshots the process environment as a map.
func environMap() map[string]string {
	env := make(map[string]string)
	for _, entry := range os.Environ() {
		for i := 0; i < len(entry); i++ {
			if entry[i] == '=' {
				env[entry[:i]] = entry[i+1:]
				break
			}
		}
	}
	return env
}
