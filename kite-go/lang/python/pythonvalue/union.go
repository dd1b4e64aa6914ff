package pythonvalue

import (
	"sort"
	"strings"
)

// It is possible to write code that generates huge unions; past this size we
// are unlikely to get anything useful out of the union so it widens to Unsolvable.
const MaxUnionSize = 25

// Type parameters nested deeper than this (lists of dicts of tuples of ...) widen
// to Unsolvable, which also bounds the growth of containers built in loops.
const MaxDepth = 6

// Union is a set of at least two non-union values, in canonical order.
// Construct unions with Unite.
type Union struct {
	Members []Value
}

// Kind implements Value
func (u Union) Kind() Kind { return UnionKind }

// Key implements Value
func (u Union) Key() string {
	keys := make([]string, len(u.Members))
	for i, m := range u.Members {
		keys[i] = m.Key()
	}
	return "U(" + strings.Join(keys, "|") + ")"
}

func (u Union) String() string {
	strs := make([]string, len(u.Members))
	for i, m := range u.Members {
		strs[i] = m.String()
	}
	sort.Strings(strs)
	return strings.Join(strs, " or ")
}

// Disjuncts gets the members of a union, or the value itself otherwise.
// Nothing has no disjuncts.
func Disjuncts(v Value) []Value {
	switch v := v.(type) {
	case nil:
		return nil
	case Union:
		return v.Members
	default:
		return []Value{v}
	}
}

// Unite computes the union of several values. The result is independent of the
// order of its arguments: it is flattened, deduplicated and sorted by key.
// Unsolvable absorbs everything else, and uniting nothing gives nothing (nil).
func Unite(vs ...Value) Value {
	byKey := make(map[string]Value)
	for _, v := range vs {
		for _, d := range Disjuncts(v) {
			if d.Kind() == UnsolvableKind {
				return Unsolvable{}
			}
			byKey[d.Key()] = d
		}
	}
	switch len(byKey) {
	case 0:
		return nil
	case 1:
		for _, v := range byKey {
			return v
		}
	}
	if len(byKey) > MaxUnionSize {
		return Unsolvable{}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	members := make([]Value, len(keys))
	for i, k := range keys {
		members[i] = byKey[k]
	}
	return Union{Members: members}
}

// Depth is the nesting depth of type parameters in v
func Depth(v Value) int {
	switch v := v.(type) {
	case Instance:
		max := 0
		for _, p := range v.Params {
			if d := Depth(p); d > max {
				max = d
			}
		}
		return max + 1
	case Union:
		max := 0
		for _, m := range v.Members {
			if d := Depth(m); d > max {
				max = d
			}
		}
		return max
	case nil:
		return 0
	default:
		return 1
	}
}

// ContainsUnknown reports whether an Unknown occurs anywhere in v
func ContainsUnknown(v Value) bool {
	switch v := v.(type) {
	case Unknown:
		return true
	case Instance:
		for _, p := range v.Params {
			if ContainsUnknown(p) {
				return true
			}
		}
	case Union:
		for _, m := range v.Members {
			if ContainsUnknown(m) {
				return true
			}
		}
	case BoundMethod:
		return ContainsUnknown(v.Self)
	}
	return false
}

// Unknowns returns the unknowns occurring in v, in ID order without duplicates
func Unknowns(v Value) []Unknown {
	seen := make(map[int]bool)
	var out []Unknown
	var visit func(v Value)
	visit = func(v Value) {
		switch v := v.(type) {
		case Unknown:
			if !seen[v.ID] {
				seen[v.ID] = true
				out = append(out, v)
			}
		case Instance:
			for _, p := range v.Params {
				visit(p)
			}
		case Union:
			for _, m := range v.Members {
				visit(m)
			}
		case BoundMethod:
			visit(v.Self)
		}
	}
	visit(v)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Map rebuilds v with f applied to every non-union, non-instance leaf, and to
// instance parameters recursively. It is the basis of substitution.
func Map(v Value, f func(Value) Value) Value {
	switch v := v.(type) {
	case nil:
		return nil
	case Union:
		mapped := make([]Value, len(v.Members))
		for i, m := range v.Members {
			mapped[i] = Map(m, f)
		}
		return Unite(mapped...)
	case Instance:
		if len(v.Params) == 0 {
			return f(v)
		}
		params := make([]Value, len(v.Params))
		for i, p := range v.Params {
			params[i] = Map(p, f)
		}
		return f(NewInstance(v.Class, params...))
	case BoundMethod:
		return f(BoundMethod{Self: Map(v.Self, f), Func: v.Func})
	default:
		return f(v)
	}
}
