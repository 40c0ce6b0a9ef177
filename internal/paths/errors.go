package paths

import "errors"

var (
	ErrUnknownRoot      = errors.New("unknown path root")
	ErrDuplicateRoot    = errors.New("root already registered")
	ErrCheckoutDirUnset = errors.New("checkout dir read before set")
	ErrCheckoutDirSet   = errors.New("checkout dir already set")
	ErrFileSystem       = errors.New("file system operation failed")
)
