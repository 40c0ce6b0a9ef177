package props

import "errors"

var (
	ErrDecode  = errors.New("property decode failed")
	ErrBadTree = errors.New("property value is not an object")
)
