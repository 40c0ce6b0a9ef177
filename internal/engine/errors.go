package engine

import "errors"

var (
	ErrLoad     = errors.New("recipe load failed")
	ErrInternal = errors.New("internal engine error")
)
