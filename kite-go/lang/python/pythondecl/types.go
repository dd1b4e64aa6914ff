// Package pythondecl is the output of type inference: a tree of declarations
// with types, rendered in a stub format close to pytd.
package pythondecl

import (
	"sort"
	"strings"
)

// Type is a type in a declaration
type Type interface {
	String() string
	typ()
}

// Named is a class with optional type parameters, e.g. int or list[str]
type Named struct {
	Name   string
	Params []Type
}

func (Named) typ() {}

func (t Named) String() string {
	if len(t.Params) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return t.Name + "[" + strings.Join(parts, ", ") + "]"
}

// Union is an alternative of at least two types; build it with NewUnion
type Union struct {
	Members []Type
}

func (Union) typ() {}

func (t Union) String() string {
	parts := make([]string, len(t.Members))
	for i, m := range t.Members {
		parts[i] = m.String()
	}
	return strings.Join(parts, " or ")
}

// Anything is any value at all
type Anything struct{}

func (Anything) typ() {}

func (Anything) String() string { return "?" }

// Nothing is the type with no values, e.g. the return type of a function that always raises
type Nothing struct{}

func (Nothing) typ() {}

func (Nothing) String() string { return "nothing" }

// Unknown is a value that was not solved
type Unknown struct {
	Name string
}

func (Unknown) typ() {}

func (t Unknown) String() string { return t.Name }

// NewUnion flattens, deduplicates and sorts ts. Anything absorbs the other
// members and Nothing is dropped.
func NewUnion(ts ...Type) Type {
	byName := make(map[string]Type)
	var add func(t Type) bool
	add = func(t Type) bool {
		switch t := t.(type) {
		case nil, Nothing:
		case Anything:
			return false
		case Union:
			for _, m := range t.Members {
				if !add(m) {
					return false
				}
			}
		default:
			byName[t.String()] = t
		}
		return true
	}
	for _, t := range ts {
		if !add(t) {
			return Anything{}
		}
	}

	switch len(byName) {
	case 0:
		return Nothing{}
	case 1:
		for _, t := range byName {
			return t
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	members := make([]Type, len(names))
	for i, name := range names {
		members[i] = byName[name]
	}
	return Union{Members: members}
}
