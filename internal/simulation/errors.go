package simulation

import "errors"

var (
	ErrNoCases        = errors.New("recipe has no simulation cases")
	ErrUnusedMock     = errors.New("mock supplied for a step that never ran")
	ErrCheckFailed    = errors.New("post-process check failed")
	ErrExpectation    = errors.New("expectation mismatch")
	ErrNoExpectation  = errors.New("expectation file missing")
	ErrWrongOutcome   = errors.New("case ended with unexpected status")
	ErrUncovered      = errors.New("registered name never exercised")
	ErrDuplicateCases = errors.New("cases already registered for recipe")
)
