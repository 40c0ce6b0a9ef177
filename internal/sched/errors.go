package sched

import "errors"

var (
	ErrCancelled = errors.New("future cancelled")
	ErrNoFuture  = errors.New("context carries no future")
)
