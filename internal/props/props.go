package props

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Returns the "$<repo>/<module>" key a module's properties live under.
func ModuleKey(repo, name string) string {
	return "$" + repo + "/" + name
}

// Decodes one module's namespaced properties.
//
// A nil schema means the module declares no properties; the namespaced key
// is then ignored entirely. A missing key decodes an empty object, leaving
// schema defaults in place. Unknown fields inside the module's own object
// are decode errors; unknown "$"-keys elsewhere in the tree are tolerated,
// they belong to modules outside this invocation's dependency set.
func DecodeModule(tree map[string]any, repo, name string, schema func() any) (any, error) {
	if schema == nil {
		return nil, nil
	}
	key := ModuleKey(repo, name)

	raw, ok := tree[key]
	if !ok {
		raw = map[string]any{}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadTree, key)
	}

	target := schema()
	if err := decode(obj, target, true); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return target, nil
}

// Decodes the recipe's top-level properties.
//
// "$"-prefixed keys are stripped first. Keys claimed by a module's legacy
// global schema are excluded too, unless the recipe's own schema declares
// them; the rest must match the schema exactly.
func DecodeRecipe(tree map[string]any, schema func() any, claimed ...string) (any, error) {
	if schema == nil {
		return nil, nil
	}
	target := schema()

	top := topKeys(tree)
	if len(claimed) > 0 {
		own, err := fieldSet(target)
		if err != nil {
			return nil, fmt.Errorf("%w: recipe properties: %w", ErrDecode, err)
		}
		for _, key := range claimed {
			if !own[key] {
				delete(top, key)
			}
		}
	}

	if err := decode(top, target, true); err != nil {
		return nil, fmt.Errorf("%w: recipe properties: %w", ErrDecode, err)
	}
	return target, nil
}

// Returns the top-level keys a schema's fields decode from, sorted.
//
// A nil schema claims nothing.
func FieldKeys(schema func() any) ([]string, error) {
	if schema == nil {
		return nil, nil
	}
	set, err := fieldSet(schema())
	if err != nil {
		return nil, fmt.Errorf("%w: schema fields: %w", ErrDecode, err)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Returns the set of keys a schema instance's fields map to.
func fieldSet(v any) (map[string]bool, error) {
	tree := map[string]any{}
	if err := mapstructure.Decode(v, &tree); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(tree))
	for k := range tree {
		set[k] = true
	}
	return set, nil
}

// Decodes a module's legacy un-namespaced properties.
//
// The top-level keys are filtered to the schema's fields; keys meant for
// the recipe or for other modules pass through untouched.
func DecodeGlobal(tree map[string]any, schema func() any) (any, error) {
	if schema == nil {
		return nil, nil
	}
	target := schema()
	if err := decode(topKeys(tree), target, false); err != nil {
		return nil, fmt.Errorf("%w: global properties: %w", ErrDecode, err)
	}
	return target, nil
}

// Decodes an environment schema from the uppercased environment.
//
// Only matching fields decode; values are strings in the environment, so
// numeric and boolean schema fields convert weakly.
func DecodeEnv(environ map[string]string, schema func() any) (any, error) {
	if schema == nil {
		return nil, nil
	}

	upper := make(map[string]any, len(environ))
	for k, v := range environ {
		upper[strings.ToUpper(k)] = v
	}

	target := schema()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: env properties: %w", ErrDecode, err)
	}
	if err := dec.Decode(upper); err != nil {
		return nil, fmt.Errorf("%w: env properties: %w", ErrDecode, err)
	}
	return target, nil
}

// Encodes a schema struct back into a property tree.
func Encode(v any) (map[string]any, error) {
	out := map[string]any{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrDecode, err)
	}
	return out, nil
}

// Returns the tree's top-level keys, excluding the "$" module namespace.
func topKeys(tree map[string]any) map[string]any {
	top := make(map[string]any, len(tree))
	for k, v := range tree {
		if strings.HasPrefix(k, "$") {
			continue
		}
		top[k] = v
	}
	return top
}

// Runs one mapstructure decode. Strict mode makes unknown fields an error;
// failures name the offending field path.
func decode(input map[string]any, target any, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: strict,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
