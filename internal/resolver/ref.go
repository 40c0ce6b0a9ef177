package resolver

import (
	"fmt"
	"strings"
)

// Globally unique module identifier. A module lives in exactly one repo.
type Ref struct {
	Repo string
	Name string
}

func (r Ref) String() string {
	return r.Repo + "/" + r.Name
}

// One declared dependency: a reference plus the local alias the depending
// module uses to address it.
type Dep struct {
	Alias string
	Ref   string // "name" (own repo) or "repo/name".
}

// Declares dependencies whose alias is the referenced module's name.
func Use(refs ...string) []Dep {
	deps := make([]Dep, 0, len(refs))
	for _, ref := range refs {
		deps = append(deps, Dep{Alias: refName(ref), Ref: ref})
	}
	return deps
}

// Declares a dependency under a chosen local alias.
func As(alias, ref string) Dep {
	return Dep{Alias: alias, Ref: ref}
}

// Resolves a raw reference against the declaring repo.
//
// An unqualified "name" binds to the declaring module's own repo; the
// qualified "repo/name" form addresses another repo.
func parseRef(raw, ownRepo string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrBadRef)
	}
	switch parts := strings.Split(raw, "/"); len(parts) {
	case 1:
		return Ref{Repo: ownRepo, Name: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Ref{}, fmt.Errorf("%w: %q", ErrBadRef, raw)
		}
		return Ref{Repo: parts[0], Name: parts[1]}, nil
	default:
		return Ref{}, fmt.Errorf("%w: %q", ErrBadRef, raw)
	}
}

func refName(raw string) string {
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		return raw[i+1:]
	}
	return raw
}
