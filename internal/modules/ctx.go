package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/kilnhq/kiln/internal/resolver"
	"github.com/kilnhq/kiln/internal/sched"
)

// Context api: deadline, environment, and concurrency scoping over the
// cooperative scheduler.
type CtxAPI struct {
	loop *sched.Loop
}

// Returns the ctx api from a dependency view.
func CtxFrom(deps *resolver.DepsView) *CtxAPI {
	return deps.MustAPI("ctx").(*CtxAPI)
}

// Opens a nested scope with a timeout. The deadline is monotone: it never
// exceeds the parent scope's. The cancel function must run on scope exit.
func (a *CtxAPI) WithTimeout(ctx context.Context, timeout time.Duration, opts ...sched.ScopeOption) (context.Context, context.CancelFunc) {
	return sched.WithScopeTimeout(ctx, timeout, opts...)
}

// Opens a nested scope with an absolute deadline.
func (a *CtxAPI) WithDeadline(ctx context.Context, deadline time.Time, opts ...sched.ScopeOption) (context.Context, context.CancelFunc) {
	return sched.WithScopeDeadline(ctx, deadline, opts...)
}

// Opens a nested scope with environment overrides.
func (a *CtxAPI) WithEnv(ctx context.Context, env map[string]string) context.Context {
	return sched.WithScope(ctx, sched.WithEnv(env))
}

// Opens a nested scope with a working directory for steps.
func (a *CtxAPI) WithCwd(ctx context.Context, cwd string) context.Context {
	return sched.WithScope(ctx, sched.WithCwd(cwd))
}

// Starts fn as a parallel future.
func (a *CtxAPI) Spawn(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) *sched.Future {
	return a.loop.Spawn(ctx, name, fn)
}

// Runs fns as parallel futures and waits for all of them.
//
// Futures interleave at suspension points; the first error wins but every
// future is awaited before Parallel returns.
func (a *CtxAPI) Parallel(ctx context.Context, fns ...func(ctx context.Context) error) error {
	futures := make([]*sched.Future, len(fns))
	for i, fn := range fns {
		fn := fn
		futures[i] = a.loop.Spawn(ctx, fmt.Sprintf("parallel.%d", i), func(ctx context.Context) (any, error) {
			return nil, fn(ctx)
		})
	}
	_, err := sched.AwaitAll(ctx, futures...)
	return err
}

// Suspends the calling future for d. Simulated time passes instantly.
func (a *CtxAPI) Sleep(ctx context.Context, d time.Duration) error {
	return a.loop.Sleep(ctx, d)
}

// Detaches cancellation for a cleanup region.
func (a *CtxAPI) Shield(ctx context.Context) context.Context {
	return sched.Shield(ctx)
}

func ctxSpec() *resolver.Spec {
	return &resolver.Spec{
		Repo: "kiln",
		Name: "ctx",
		New: func(mc *resolver.ModuleInit) (any, error) {
			return &CtxAPI{loop: mc.Host.Loop}, nil
		},
	}
}
