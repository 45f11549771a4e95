package hcl

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/zclconf/go-cty/cty"
)

// extractOptions evaluates every attribute of an options block into a
// plain Go map. Expressions are evaluated without an eval context; the
// definition language has no variables.
func extractOptions(block *optionsBlock) (map[string]any, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	if len(attrs) == 0 {
		return nil, nil
	}
	options := make(map[string]any, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("option %q: %w", name, diags)
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("option %q: %w", name, err)
		}
		options[name] = goVal
	}
	return options, nil
}

// parseBranches reads a branches attribute. The list form is sugar for
// an identity binding; the map form binds each branch to the connection
// stage its chain ends at, in source order.
func parseBranches(expr hcl.Expression) (*config.Branches, error) {
	if expr == nil {
		return nil, nil
	}

	if items, diags := hcl.ExprList(expr); !diags.HasErrors() {
		names := make([]string, len(items))
		for i, item := range items {
			name, err := stringValue(item)
			if err != nil {
				return nil, fmt.Errorf("branches: %w", err)
			}
			names[i] = name
		}
		return config.NewIdentityBranches(names), nil
	}

	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return nil, fmt.Errorf("branches must be a list of names or a map of branch to connection")
	}
	branches := &config.Branches{Bindings: make(map[string]string, len(pairs))}
	for _, pair := range pairs {
		key := hcl.ExprAsKeyword(pair.Key)
		if key == "" {
			parsed, err := stringValue(pair.Key)
			if err != nil {
				return nil, fmt.Errorf("branches: %w", err)
			}
			key = parsed
		}
		value, err := stringValue(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("branch %q: %w", key, err)
		}
		branches.Order = append(branches.Order, key)
		branches.Bindings[key] = value
	}
	return branches, nil
}

func stringValue(expr hcl.Expression) (string, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	if val.Type() != cty.String {
		return "", fmt.Errorf("expected string, got %s", val.Type().FriendlyName())
	}
	return val.AsString(), nil
}

// ctyToGo converts a cty value into its plain Go representation. Whole
// numbers become int64 so that option digests stay stable across files
// that spell the same value differently.
func ctyToGo(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if i, acc := bf.Int64(); acc == 0 {
			return i, nil
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, goElem)
		}
		return out, nil
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			key, elem := it.Element()
			goElem, err := ctyToGo(elem)
			if err != nil {
				return nil, err
			}
			out[key.AsString()] = goElem
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

// sortedKeys returns map keys in sorted order so error messages stay
// stable across runs.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
