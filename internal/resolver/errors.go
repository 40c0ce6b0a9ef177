package resolver

import "errors"

var (
	ErrUnknownRecipe  = errors.New("no such recipe")
	ErrUnknownModule  = errors.New("no such module")
	ErrUnknownDep     = errors.New("no dependency under alias")
	ErrCycle          = errors.New("dependency cycle")
	ErrDuplicate      = errors.New("duplicate registration")
	ErrBadRef         = errors.New("malformed module reference")
	ErrConstruct      = errors.New("module construction failed")
	ErrInitialize     = errors.New("module initialize hook failed")
	ErrDuplicateAlias = errors.New("duplicate dependency alias")
)
