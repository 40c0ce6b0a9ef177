package sched

import (
	"context"
	"sync"
	"time"
)

// A cooperative scheduler with a single run token.
//
// The token is handed off at suspension points in FIFO ready order: a
// future joins the back of the queue when spawned and rejoins the back
// each time it yields. Enqueue order is program order, which makes the
// interleaving a function of program structure rather than goroutine
// timing.
type Loop struct {
	deterministic bool // Blocking work runs synchronously before yielding.

	mu    sync.Mutex
	held  bool
	ready []waiter // FIFO queue of futures ready for the token.
	seq   uint64   // Last assigned creation sequence.
}

// One parked future waiting for the token.
type waiter struct {
	seq uint64
	ch  chan struct{}
}

// Creates a loop for real execution.
func NewLoop() *Loop {
	return &Loop{}
}

// Creates a loop with deterministic interleaving for simulation.
func NewSimLoop() *Loop {
	l := NewLoop()
	l.deterministic = true
	return l
}

// Runs fn as the root future, holding the token for its duration.
func (l *Loop) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	seq := l.nextSeq()
	l.acquire(seq)
	defer l.release()
	return fn(withSeq(ctx, seq))
}

// Suspends the calling future around a blocking operation.
//
// In real mode the token is released while fn runs, so sibling futures
// (and their subprocesses) make progress concurrently. In deterministic
// mode fn runs synchronously first (simulation never actually blocks)
// and the token then cycles through the ready queue so siblings
// interleave at the same boundary on every run.
func (l *Loop) Block(ctx context.Context, fn func()) {
	seq := seqOf(ctx)
	if l.deterministic {
		fn()
		l.yield(seq)
		return
	}
	l.release()
	fn()
	l.acquire(seq)
}

// Suspends the calling future until d has elapsed or the context is done.
//
// Simulated time is instant: the future yields once and resumes.
func (l *Loop) Sleep(ctx context.Context, d time.Duration) error {
	if l.deterministic {
		l.yield(seqOf(ctx))
		return ctx.Err()
	}

	l.release()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	l.acquire(seqOf(ctx))
	return ctx.Err()
}

// Returns the next creation sequence.
func (l *Loop) nextSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	return l.seq
}

// Takes the token, joining the back of the ready queue if it is held.
func (l *Loop) acquire(seq uint64) {
	l.mu.Lock()
	if !l.held {
		l.held = true
		l.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	l.ready = append(l.ready, waiter{seq: seq, ch: ch})
	l.mu.Unlock()
	<-ch
}

// Hands the token to the front of the ready queue, or frees it.
func (l *Loop) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handoffLocked()
}

// Rejoins the back of the queue, releases, and waits to be picked.
//
// Unlike release+acquire, the caller is already queued when the handoff
// decision is made, so the pick is deterministic.
func (l *Loop) yield(seq uint64) {
	ch := make(chan struct{})
	l.mu.Lock()
	l.ready = append(l.ready, waiter{seq: seq, ch: ch})
	l.handoffLocked()
	l.mu.Unlock()
	<-ch
}

// Queues seq as ready without giving up the token. Used by Spawn so a new
// future is in line before its goroutine has started.
func (l *Loop) enqueue(seq uint64) chan struct{} {
	ch := make(chan struct{})
	l.mu.Lock()
	l.ready = append(l.ready, waiter{seq: seq, ch: ch})
	l.mu.Unlock()
	return ch
}

// Wakes the front of the ready queue, or frees the token. Caller holds mu.
func (l *Loop) handoffLocked() {
	if len(l.ready) == 0 {
		l.held = false
		return
	}
	next := l.ready[0]
	l.ready = l.ready[1:]
	close(next.ch) // Token passes to the woken future; held stays true.
}

// Key for the future sequence carried in the context.
type seqKey struct{}

// Attaches a future's creation sequence to its context.
func withSeq(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, seqKey{}, seq)
}

// Returns the calling future's creation sequence.
//
// Code reaching a suspension point always runs inside Loop.Run or a
// spawned future, so a missing sequence is an engine bug; zero is safe
// for the queue either way.
func seqOf(ctx context.Context) uint64 {
	seq, _ := ctx.Value(seqKey{}).(uint64)
	return seq
}
