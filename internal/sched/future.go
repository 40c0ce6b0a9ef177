package sched

import (
	"context"
	"fmt"
)

// A unit of parallelism inside one recipe run.
//
// A future's body runs only while it holds the loop token; siblings make
// progress when it suspends. Completion wakes awaiters through the ready
// queue, so the order in which they resume is as deterministic as the
// rest of the schedule.
type Future struct {
	loop   *Loop
	seq    uint64
	name   string
	cancel context.CancelCauseFunc

	// All guarded by loop.mu.
	completed bool
	value     any
	err       error
	awaiters  []awaiter
}

// One future parked on another's completion.
type awaiter struct {
	seq uint64
	ch  chan struct{}
}

// Starts fn as a new future.
//
// The future inherits the caller's scope (deadline, env, cwd) and is
// queued behind already-ready futures; it first runs when the caller
// reaches a suspension point. Cancelling the returned future raises at
// the future's next suspension point.
func (l *Loop) Spawn(ctx context.Context, name string, fn func(ctx context.Context) (any, error)) *Future {
	fctx, cancel := context.WithCancelCause(ctx)
	f := &Future{
		loop:   l,
		seq:    l.nextSeq(),
		name:   name,
		cancel: cancel,
	}
	fctx = withSeq(fctx, f.seq)

	ready := l.enqueue(f.seq)
	go func() {
		<-ready
		value, err := fn(fctx)
		f.complete(value, err)
	}()
	return f
}

// Records the result and promotes awaiters into the ready queue, then
// gives up the token. Runs while the future still holds the token, which
// is what keeps wakeup order deterministic.
func (f *Future) complete(value any, err error) {
	l := f.loop
	l.mu.Lock()
	f.completed = true
	f.value = value
	f.err = err
	for _, a := range f.awaiters {
		l.ready = append(l.ready, waiter{seq: a.seq, ch: a.ch})
	}
	f.awaiters = nil
	l.handoffLocked()
	l.mu.Unlock()
}

// Returns the future's name.
func (f *Future) Name() string {
	return f.name
}

// Requests cancellation of the future.
//
// The future observes it at its next suspension point; a step already
// running inside it receives the graceful termination sequence through
// its context.
func (f *Future) Cancel() {
	f.cancel(fmt.Errorf("%w: %s", ErrCancelled, f.name))
}

// Suspends the caller until the future completes, returning its result.
//
// A done context wins over completion: the caller resumes with the
// cancellation cause and the future keeps running.
func (f *Future) Await(ctx context.Context) (any, error) {
	l := f.loop
	seq := seqOf(ctx)

	l.mu.Lock()
	if f.completed {
		value, err := f.value, f.err
		l.mu.Unlock()
		return value, err
	}
	ch := make(chan struct{})
	f.awaiters = append(f.awaiters, awaiter{seq: seq, ch: ch})
	l.handoffLocked()
	l.mu.Unlock()

	select {
	case <-ch:
		l.mu.Lock()
		value, err := f.value, f.err
		l.mu.Unlock()
		return value, err

	case <-ctx.Done():
		// Withdraw from the future and rejoin the ready queue; the token
		// must be re-held before user code continues.
		l.mu.Lock()
		withdrawn := false
		for i, a := range f.awaiters {
			if a.ch == ch {
				f.awaiters = append(f.awaiters[:i], f.awaiters[i+1:]...)
				withdrawn = true
				break
			}
		}
		if withdrawn {
			l.ready = append(l.ready, waiter{seq: seq, ch: ch})
		}
		l.mu.Unlock()
		<-ch
		if !withdrawn {
			// Promotion raced the cancel; the result is in.
			l.mu.Lock()
			value, err := f.value, f.err
			l.mu.Unlock()
			return value, err
		}
		return nil, context.Cause(ctx)
	}
}

// Awaits several futures in order, returning their results.
//
// The first error wins, but every future is still awaited so none outlive
// the call.
func AwaitAll(ctx context.Context, futures ...*Future) ([]any, error) {
	values := make([]any, len(futures))
	var first error
	for i, f := range futures {
		value, err := f.Await(ctx)
		values[i] = value
		if err != nil && first == nil {
			first = err
		}
	}
	return values, first
}
