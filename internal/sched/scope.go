package sched

import (
	"context"
	"time"
)

// Grace period applied when no scope sets one.
const DefaultGrace = 30 * time.Second

// Immutable per-scope values inherited by every step launched inside.
type Scope struct {
	Env         map[string]string   // Environment overrides.
	EnvPrefixes map[string][]string // PATH-like prepends, outermost first.
	EnvSuffixes map[string][]string // PATH-like appends.
	Cwd         string              // Working directory for steps.
	Grace       time.Duration       // Wait between graceful stop and kill.
}

// Key for the scope carried in the context.
type scopeKey struct{}

// An option refining a scope.
type ScopeOption func(*Scope)

// Overrides environment variables for steps in the scope.
func WithEnv(env map[string]string) ScopeOption {
	return func(s *Scope) {
		if s.Env == nil {
			s.Env = make(map[string]string, len(env))
		}
		for k, v := range env {
			s.Env[k] = v
		}
	}
}

// Prepends a segment to a PATH-like variable for steps in the scope.
func WithEnvPrefix(key, segment string) ScopeOption {
	return func(s *Scope) {
		if s.EnvPrefixes == nil {
			s.EnvPrefixes = make(map[string][]string)
		}
		s.EnvPrefixes[key] = append([]string{segment}, s.EnvPrefixes[key]...)
	}
}

// Appends a segment to a PATH-like variable for steps in the scope.
func WithEnvSuffix(key, segment string) ScopeOption {
	return func(s *Scope) {
		if s.EnvSuffixes == nil {
			s.EnvSuffixes = make(map[string][]string)
		}
		s.EnvSuffixes[key] = append(s.EnvSuffixes[key], segment)
	}
}

// Sets the working directory for steps in the scope.
func WithCwd(cwd string) ScopeOption {
	return func(s *Scope) { s.Cwd = cwd }
}

// Sets the grace period between graceful termination and kill.
func WithGrace(grace time.Duration) ScopeOption {
	return func(s *Scope) { s.Grace = grace }
}

// Opens a nested scope refining the parent's values.
//
// The returned context carries a copy; the parent scope is unchanged.
func WithScope(ctx context.Context, opts ...ScopeOption) context.Context {
	scope := ScopeOf(ctx).clone()
	for _, opt := range opts {
		opt(&scope)
	}
	return context.WithValue(ctx, scopeKey{}, scope)
}

// Opens a nested scope with a deadline.
//
// Deadlines are monotone: the effective deadline is never later than the
// parent's, which [context.WithDeadline] already guarantees. The cancel
// function must be called on scope exit.
func WithScopeDeadline(ctx context.Context, deadline time.Time, opts ...ScopeOption) (context.Context, context.CancelFunc) {
	ctx = WithScope(ctx, opts...)
	return context.WithDeadline(ctx, deadline)
}

// Opens a nested scope with a timeout relative to now.
func WithScopeTimeout(ctx context.Context, timeout time.Duration, opts ...ScopeOption) (context.Context, context.CancelFunc) {
	ctx = WithScope(ctx, opts...)
	return context.WithTimeout(ctx, timeout)
}

// Returns the scope active in the context.
func ScopeOf(ctx context.Context) Scope {
	scope, _ := ctx.Value(scopeKey{}).(Scope)
	if scope.Grace == 0 {
		scope.Grace = DefaultGrace
	}
	return scope
}

// Returns a deep copy so nested scopes never alias parent maps.
func (s Scope) clone() Scope {
	out := Scope{Cwd: s.Cwd, Grace: s.Grace}
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	if s.EnvPrefixes != nil {
		out.EnvPrefixes = make(map[string][]string, len(s.EnvPrefixes))
		for k, v := range s.EnvPrefixes {
			out.EnvPrefixes[k] = append([]string(nil), v...)
		}
	}
	if s.EnvSuffixes != nil {
		out.EnvSuffixes = make(map[string][]string, len(s.EnvSuffixes))
		for k, v := range s.EnvSuffixes {
			out.EnvSuffixes[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Detaches cancellation for a cleanup region.
//
// The returned context keeps all scope values but never reports done, so
// finalizers run to completion even when the surrounding scope has been
// cancelled or timed out.
func Shield(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// Reports whether the context ended because a deadline elapsed.
func IsTimeout(ctx context.Context) bool {
	return context.Cause(ctx) == context.DeadlineExceeded
}
