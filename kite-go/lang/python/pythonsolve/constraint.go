// Package pythonsolve resolves the unknowns left over by simulation: each unknown
// collects constraints describing how it was used, and is replaced by the
// catalog classes that satisfy all of them.
package pythonsolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kiteco/typeinfer/kite-go/lang/python/pythonvalue"
)

// Constraint is an observation about how an unknown value was used
type Constraint interface {
	// Key identifies equal constraints
	Key() string
	String() string
}

// AttributeConstraint records that an attribute was looked up on the unknown
type AttributeConstraint struct {
	Attr string
}

// Key implements Constraint
func (c AttributeConstraint) Key() string { return "attr:" + c.Attr }

func (c AttributeConstraint) String() string { return "has attribute " + c.Attr }

// CallConstraint records that the unknown was called
type CallConstraint struct {
	Args pythonvalue.Args
}

// Key implements Constraint
func (c CallConstraint) Key() string { return "call:" + c.Args.Key() }

func (c CallConstraint) String() string { return "called with " + c.Args.String() }

// OperatorConstraint records that a special method was invoked on the unknown,
// e.g. __add__ for the left operand of +. Other is the operand, nil for unary
// operations such as __neg__ or __iter__.
type OperatorConstraint struct {
	Op    string
	Other pythonvalue.Value
}

// Key implements Constraint
func (c OperatorConstraint) Key() string { return "op:" + c.Op + ":" + pythonvalue.KeyOf(c.Other) }

func (c OperatorConstraint) String() string {
	if c.Other == nil {
		return "supports " + c.Op + "()"
	}
	return fmt.Sprintf("supports %s(%s)", c.Op, pythonvalue.StringOf(c.Other))
}

// ArgumentConstraint records that the unknown was passed to a library function
// where one of Expected was declared, one entry per matching signature
type ArgumentConstraint struct {
	Expected []pythonvalue.Value
}

// NewArgumentConstraint builds an ArgumentConstraint with the alternatives in canonical order
func NewArgumentConstraint(expected ...pythonvalue.Value) ArgumentConstraint {
	byKey := make(map[string]pythonvalue.Value)
	for _, e := range expected {
		byKey[pythonvalue.KeyOf(e)] = e
	}
	var out []pythonvalue.Value
	for _, e := range byKey {
		out = append(out, e)
	}
	pythonvalue.SortByKey(out)
	return ArgumentConstraint{Expected: out}
}

// Key implements Constraint
func (c ArgumentConstraint) Key() string {
	keys := make([]string, len(c.Expected))
	for i, e := range c.Expected {
		keys[i] = pythonvalue.KeyOf(e)
	}
	return "arg:" + strings.Join(keys, "|")
}

func (c ArgumentConstraint) String() string {
	strs := make([]string, len(c.Expected))
	for i, e := range c.Expected {
		strs[i] = pythonvalue.StringOf(e)
	}
	sort.Strings(strs)
	return "passed as " + strings.Join(strs, " | ")
}

// DerivationKind says how a derived unknown was produced
type DerivationKind int

const (
	// AttrOf is the result of an attribute lookup on another unknown
	AttrOf DerivationKind = iota
	// CallOf is the result of calling another unknown
	CallOf
	// OperatorOf is the result of a special method invoked on another unknown
	OperatorOf
)

func (k DerivationKind) String() string {
	switch k {
	case AttrOf:
		return "attribute"
	case CallOf:
		return "call"
	case OperatorOf:
		return "operator"
	}
	return fmt.Sprintf("DerivationKind(%d)", int(k))
}

// Derivation records how a derived unknown was produced from its parent, so
// that it can be recomputed once the parent is solved
type Derivation struct {
	Kind   DerivationKind
	Parent pythonvalue.Unknown
	// Attr is set for AttrOf
	Attr string
	// Args is set for CallOf
	Args pythonvalue.Args
	// Op and Other are set for OperatorOf
	Op    string
	Other pythonvalue.Value
}

func (d Derivation) String() string {
	switch d.Kind {
	case AttrOf:
		return fmt.Sprintf("%s.%s", d.Parent, d.Attr)
	case CallOf:
		return fmt.Sprintf("%s%s", d.Parent, d.Args)
	default:
		if d.Other == nil {
			return fmt.Sprintf("%s.%s()", d.Parent, d.Op)
		}
		return fmt.Sprintf("%s.%s(%s)", d.Parent, d.Op, pythonvalue.StringOf(d.Other))
	}
}
