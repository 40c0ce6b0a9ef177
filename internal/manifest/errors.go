package manifest

import "errors"

var (
	ErrMalformed   = errors.New("malformed manifest")
	ErrValidation  = errors.New("manifest validation failed")
	ErrBadOverride = errors.New("malformed override")
	ErrUnknownDep  = errors.New("unknown dependency repo")
	ErrFileSystem  = errors.New("file system operation failed")
)
