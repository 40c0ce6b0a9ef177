package step

import "errors"

var (
	ErrEmptyCmd           = errors.New("step has empty cmd")
	ErrEmptyName          = errors.New("step has empty name")
	ErrBadArg             = errors.New("step cmd argument is neither string nor placeholder")
	ErrDuplicateLabel     = errors.New("duplicate placeholder label in step")
	ErrPresentationClosed = errors.New("presentation mutated after close")
	ErrUnknownResult      = errors.New("no placeholder result under key")
	ErrOrphanStep         = errors.New("child step has no open parent")
)
