package placeholder

import "errors"

var (
	ErrUnresolved      = errors.New("placeholder not yet resolved")
	ErrAlreadyResolved = errors.New("placeholder resolved twice")
	ErrNotRendered     = errors.New("placeholder not rendered")
	ErrParse           = errors.New("placeholder parse failed")
	ErrRender          = errors.New("placeholder render failed")
	ErrNoMockData      = errors.New("no mock data for placeholder")
)
